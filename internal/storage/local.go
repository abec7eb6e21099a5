package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes assets below a directory served under publicURL.
type LocalStore struct {
	root      string
	publicURL string
	namespace string
}

// NewLocalStore creates root (and the namespace directory) if needed.
func NewLocalStore(root, publicURL, namespace string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("local asset store needs a directory")
	}
	if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(namespace)), 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	return &LocalStore{
		root:      root,
		publicURL: strings.TrimRight(publicURL, "/"),
		namespace: namespace,
	}, nil
}

func (s *LocalStore) Put(ctx context.Context, upload Upload) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	publicID, filename := newObjectName(s.namespace, upload)
	rel := filepath.Join(filepath.FromSlash(s.namespace), filename)
	if err := os.WriteFile(filepath.Join(s.root, rel), upload.Data, 0o644); err != nil {
		return nil, fmt.Errorf("write asset: %w", err)
	}
	return &Asset{
		PublicID: publicID,
		URL:      s.publicURL + "/" + filepath.ToSlash(rel),
		Filename: filename,
	}, nil
}

// Delete removes every file stored under publicID. Missing files are not an error.
func (s *LocalStore) Delete(ctx context.Context, publicID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := filepath.Clean(filepath.FromSlash(publicID))
	if publicID == "" || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return fmt.Errorf("invalid public id %q", publicID)
	}
	matches, err := filepath.Glob(filepath.Join(s.root, clean) + ".*")
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove asset: %w", err)
		}
	}
	return nil
}
