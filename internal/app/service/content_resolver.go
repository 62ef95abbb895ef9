package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/sifan077/DocLink/internal/app/model"
	"github.com/sifan077/DocLink/internal/app/repository"
	"github.com/sifan077/DocLink/internal/infra/sheet"
	"golang.org/x/sync/errgroup"
)

const pageResolveConcurrency = 8

// FileResolver turns a stored file reference into a servable url.
type FileResolver interface {
	Resolve(ctx context.Context, file, storageType string) (string, error)
}

// SheetParser fetches and flattens a spreadsheet.
type SheetParser interface {
	ParseURL(ctx context.Context, fileURL string) ([]sheet.Data, error)
}

// DocumentReader is the read side of document storage needed to serve content.
type DocumentReader interface {
	GetVersion(ctx context.Context, id string) (*model.DocumentVersion, error)
	ListPages(ctx context.Context, versionID string) ([]model.DocumentPage, error)
}

// PageContent is one rendered page as served to the viewer.
type PageContent struct {
	File          string           `json:"file"`
	PageNumber    int              `json:"pageNumber"`
	EmbeddedLinks []string         `json:"embeddedLinks,omitempty"`
	PageLinks     []model.PageLink `json:"pageLinks,omitempty"`
	Metadata      map[string]any   `json:"metadata,omitempty"`
}

// Content is what the viewer needs to render a document version.
type Content struct {
	File      string
	Pages     []PageContent
	SheetData []sheet.Data
	FileType  string
}

// ContentRequest selects the document version to serve.
type ContentRequest struct {
	DocumentID             string
	VersionID              string
	HasPages               bool
	UseAdvancedExcelViewer bool
}

// ContentResolver resolves document versions into urls and parsed data.
type ContentResolver struct {
	docs         DocumentReader
	files        FileResolver
	sheets       SheetParser
	advancedHost string
}

func NewContentResolver(docs DocumentReader, files FileResolver, sheets SheetParser, advancedHost string) *ContentResolver {
	return &ContentResolver{
		docs:         docs,
		files:        files,
		sheets:       sheets,
		advancedHost: strings.TrimSuffix(advancedHost, "/"),
	}
}

// Resolve loads the version and produces its content. A missing version, or
// one that belongs to another document, yields a 404 GateError.
func (r *ContentResolver) Resolve(ctx context.Context, team *model.Team, req ContentRequest) (*Content, error) {
	version, err := r.docs.GetVersion(ctx, req.VersionID)
	if err != nil {
		if errors.Is(err, repository.ErrVersionNotFound) {
			return nil, errVersionNotFound
		}
		return nil, fmt.Errorf("load document version: %w", err)
	}
	if req.DocumentID != "" && version.DocumentID != req.DocumentID {
		return nil, errVersionNotFound
	}

	if req.HasPages {
		pages, err := r.resolvePages(ctx, version.ID, !team.IsFree())
		if err != nil {
			return nil, err
		}
		return &Content{Pages: pages, FileType: model.FileTypePDF}, nil
	}

	content := &Content{FileType: version.Type}
	switch version.Type {
	case model.FileTypePDF, model.FileTypeImage, model.FileTypeVideo, model.FileTypeZip:
		file, err := r.files.Resolve(ctx, version.File, version.StorageType)
		if err != nil {
			return nil, fmt.Errorf("resolve file: %w", err)
		}
		content.File = file
	case model.FileTypeSheet:
		if req.UseAdvancedExcelViewer {
			content.File = r.advancedURL(version.File)
			break
		}
		fileURL, err := r.files.Resolve(ctx, version.File, version.StorageType)
		if err != nil {
			return nil, fmt.Errorf("resolve sheet: %w", err)
		}
		data, err := r.sheets.ParseURL(ctx, fileURL)
		if err != nil {
			return nil, fmt.Errorf("parse sheet: %w", err)
		}
		content.SheetData = data
	}
	return content, nil
}

func (r *ContentResolver) resolvePages(ctx context.Context, versionID string, withLinks bool) ([]PageContent, error) {
	pages, err := r.docs.ListPages(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("load pages: %w", err)
	}

	out := lo.Map(pages, func(p model.DocumentPage, _ int) PageContent {
		pc := PageContent{PageNumber: p.PageNumber, Metadata: p.Metadata}
		if withLinks {
			pc.EmbeddedLinks = p.EmbeddedLinks
			pc.PageLinks = p.PageLinks
		}
		return pc
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pageResolveConcurrency)
	for i := range pages {
		i := i
		g.Go(func() error {
			file, err := r.files.Resolve(gctx, pages[i].File, pages[i].StorageType)
			if err != nil {
				return fmt.Errorf("resolve page %d: %w", pages[i].PageNumber, err)
			}
			out[i].File = file
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ContentResolver) advancedURL(file string) string {
	if strings.Contains(file, "https://") {
		return file
	}
	return fmt.Sprintf("https://%s/%s", r.advancedHost, strings.TrimPrefix(file, "/"))
}
