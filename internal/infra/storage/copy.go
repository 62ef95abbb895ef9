package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/sifan077/DocLink/internal/app/model"
)

var (
	// ErrInvalidFilePath signals that no doc_<id> segment was found in the path.
	ErrInvalidFilePath = errors.New("invalid file id")
	// ErrUnsupportedCopy signals a storage type this service cannot duplicate.
	ErrUnsupportedCopy = errors.New("copy not supported for storage type")
)

var docIDPattern = regexp.MustCompile(`doc_\w+`)

// FolderCopier copies all objects below a prefix.
type FolderCopier interface {
	CopyFolder(ctx context.Context, fromPrefix, toPrefix string) (int, error)
}

// CopyResult describes where duplicated files were written.
type CopyResult struct {
	StorageType  string `json:"type"`
	FromLocation string `json:"fromLocation"`
	ToLocation   string `json:"toLocation"`
	Copied       int    `json:"copied"`
}

// DocumentCopier duplicates every stored file of a document into a fresh
// doc_<id> folder of the same team.
type DocumentCopier struct {
	folders FolderCopier
	newID   func() string
}

// NewDocumentCopier returns a DocumentCopier backed by folders.
func NewDocumentCopier(folders FolderCopier) *DocumentCopier {
	return &DocumentCopier{
		folders: folders,
		newID:   func() string { return model.NewID("doc") },
	}
}

// Copy duplicates the document folder that filePath belongs to.
func (c *DocumentCopier) Copy(ctx context.Context, teamID, filePath, storageType string) (*CopyResult, error) {
	if storageType != model.StorageS3Path {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCopy, storageType)
	}

	fromDocID := docIDPattern.FindString(filePath)
	if fromDocID == "" {
		return nil, ErrInvalidFilePath
	}

	from := fmt.Sprintf("%s/%s/", teamID, fromDocID)
	to := fmt.Sprintf("%s/%s/", teamID, c.newID())

	n, err := c.folders.CopyFolder(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return &CopyResult{
		StorageType:  model.StorageS3Path,
		FromLocation: from,
		ToLocation:   to,
		Copied:       n,
	}, nil
}
