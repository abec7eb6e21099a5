// Package storage persists uploaded post images behind the AssetStore interface.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"dropview/internal/config"

	"github.com/google/uuid"
)

// ErrUnavailable is returned when the store is refusing calls (open breaker).
var ErrUnavailable = errors.New("asset store unavailable")

// Upload is a processed file ready to be stored.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Asset describes a stored file. PublicID is the stable key used for deletion.
type Asset struct {
	PublicID string
	URL      string
	Filename string
}

// AssetStore stores and deletes post images.
type AssetStore interface {
	Put(ctx context.Context, upload Upload) (*Asset, error)
	Delete(ctx context.Context, publicID string) error
}

// PublicIDFromFilename derives a public id from a stored filename: extension stripped, namespace prefixed.
func PublicIDFromFilename(namespace, filename string) string {
	base := path.Base(strings.TrimSpace(filename))
	if base == "." || base == "/" || base == "" {
		return ""
	}
	base = strings.TrimSuffix(base, path.Ext(base))
	if namespace == "" {
		return base
	}
	return namespace + "/" + base
}

// newObjectName returns a fresh public id and file name for an upload.
func newObjectName(namespace string, upload Upload) (publicID, filename string) {
	id := uuid.NewString()
	filename = id + extensionFor(upload.ContentType, upload.Filename)
	if namespace == "" {
		return id, filename
	}
	return namespace + "/" + id, filename
}

func extensionFor(contentType, filename string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	}
	return strings.ToLower(path.Ext(filename))
}

// New builds the configured backend wrapped in a circuit breaker.
func New(ctx context.Context, cfg *config.Config) (AssetStore, error) {
	var (
		store AssetStore
		err   error
	)
	switch cfg.AssetBackend {
	case "s3":
		store, err = NewS3Store(ctx, S3Options{
			Bucket:     cfg.S3Bucket,
			Region:     cfg.S3Region,
			Endpoint:   cfg.S3Endpoint,
			Namespace:  cfg.AssetNamespace,
			PublicRead: cfg.S3PublicRead,
		})
	case "local", "":
		store, err = NewLocalStore(cfg.AssetLocalDir, cfg.AssetPublicURL, cfg.AssetNamespace)
	default:
		return nil, fmt.Errorf("unknown asset backend %q", cfg.AssetBackend)
	}
	if err != nil {
		return nil, err
	}
	return NewGuardedStore(cfg.AssetBackend, store), nil
}
