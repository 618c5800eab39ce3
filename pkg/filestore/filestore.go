// Package filestore keeps the original bytes of imported files, either on the
// local disk or in a MinIO bucket.
package filestore

import (
	"context"
	"fmt"
	"io"

	"contactos/pkg/config"
)

// Store addresses files by slash-separated keys such as "contacts/<ulid>.csv".
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// New returns the backend selected by cfg.Storage.Backend. The MinIO bucket is
// created when missing.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case config.StorageMinIO:
		m, err := NewMinIO(cfg.Storage.MinIO)
		if err != nil {
			return nil, err
		}
		if err := m.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return m, nil
	case config.StorageLocal, "":
		return NewLocal(cfg.Upload.Base)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
