package service

import (
	"context"
	"fmt"

	"github.com/sifan077/DocLink/internal/app/repository"
	"github.com/sifan077/DocLink/internal/infra/storage"
)

// FileCopier duplicates the stored files of a document.
type FileCopier interface {
	Copy(ctx context.Context, teamID, filePath, storageType string) (*storage.CopyResult, error)
}

// DocumentService covers owner operations on document files.
type DocumentService struct {
	docs   repository.DocumentRepository
	teams  repository.TeamRepository
	copier FileCopier
}

func NewDocumentService(docs repository.DocumentRepository, teams repository.TeamRepository, copier FileCopier) *DocumentService {
	return &DocumentService{docs: docs, teams: teams, copier: copier}
}

// DuplicateFiles copies the primary version's folder of documentID into a new
// document folder of the same team.
func (s *DocumentService) DuplicateFiles(ctx context.Context, userID, documentID string) (*storage.CopyResult, error) {
	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if err := requireMember(ctx, s.teams, doc.TeamID, userID); err != nil {
		return nil, err
	}

	version, err := s.docs.GetPrimaryVersion(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("get primary version: %w", err)
	}

	res, err := s.copier.Copy(ctx, doc.TeamID, version.File, version.StorageType)
	if err != nil {
		return nil, fmt.Errorf("copy files: %w", err)
	}
	return res, nil
}
