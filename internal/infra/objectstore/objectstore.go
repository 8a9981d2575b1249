// Package objectstore publishes artifacts as files under a bucket directory
// that the HTTP server exposes at /files.
package objectstore

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"jerseyprint/internal/domain"
)

// PublicPrefix is the route the bucket is served under.
const PublicPrefix = "/files"

// FS stores objects on the local filesystem.
type FS struct {
	root    string
	baseURL string
}

// NewFS returns a store rooted at root. URLs are baseURL + /files/ + path.
func NewFS(root, baseURL string) (*FS, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("object storage root: %w", domain.ErrNotConfigured)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create bucket %s: %v", domain.ErrUpload, root, err)
	}
	return &FS{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

var _ domain.ObjectStore = (*FS)(nil)

// Root is the bucket directory.
func (s *FS) Root() string { return s.root }

// Put writes data atomically and returns its public URL.
func (s *FS) Put(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	clean, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}

	dst := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("%w: write %s: %v", domain.ErrUpload, clean, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	return s.baseURL + PublicPrefix + "/" + clean, nil
}

// cleanPath rejects absolute paths and anything escaping the bucket.
func cleanPath(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if p == "" || strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: object path %q", domain.ErrInvalidInput, p)
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: object path %q", domain.ErrInvalidInput, p)
	}
	return clean, nil
}

// SafeName reduces an uploaded file name to a single path segment.
func SafeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if name == "" || name == "." || name == ".." || name == "_" {
		return "upload"
	}
	return name
}
