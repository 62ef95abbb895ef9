package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/sifan077/DocLink/internal/app/model"
)

// Presigner issues temporary GET urls for object keys.
type Presigner interface {
	PresignGet(ctx context.Context, key string) (string, error)
}

// Resolver turns stored file references into urls a browser can load.
type Resolver struct {
	presigner        Presigner
	distributionHost string
}

// NewResolver returns a Resolver. When distributionHost is set, S3 keys are
// served through that CDN host instead of presigned bucket urls.
func NewResolver(presigner Presigner, distributionHost string) *Resolver {
	return &Resolver{
		presigner:        presigner,
		distributionHost: strings.TrimSuffix(distributionHost, "/"),
	}
}

// Resolve maps (file, storageType) to a servable url.
func (r *Resolver) Resolve(ctx context.Context, file, storageType string) (string, error) {
	switch storageType {
	case model.StorageVercelBlob, "":
		return file, nil
	case model.StorageS3Path:
		key := strings.TrimPrefix(file, "/")
		if r.distributionHost != "" {
			return fmt.Sprintf("https://%s/%s", r.distributionHost, key), nil
		}
		if r.presigner == nil {
			return "", fmt.Errorf("storage: no presigner configured for %s", storageType)
		}
		return r.presigner.PresignGet(ctx, key)
	default:
		return "", fmt.Errorf("storage: unsupported storage type %q", storageType)
	}
}
