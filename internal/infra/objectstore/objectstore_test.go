package objectstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jerseyprint/internal/domain"
)

func TestFS_Put(t *testing.T) {
	root := t.TempDir()
	s, err := NewFS(root, "https://shop.example.com/")
	require.NoError(t, err)

	url, err := s.Put(context.Background(), "orders/abc/back.png", []byte("png"), domain.ContentTypePNG)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/files/orders/abc/back.png", url)

	got, err := os.ReadFile(filepath.Join(root, "orders", "abc", "back.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), got)

	_, err = s.Put(context.Background(), "orders/abc/back.png", []byte("png2"), domain.ContentTypePNG)
	require.NoError(t, err)
	got, _ = os.ReadFile(filepath.Join(root, "orders", "abc", "back.png"))
	assert.Equal(t, []byte("png2"), got)

	entries, err := os.ReadDir(filepath.Join(root, "orders", "abc"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestFS_RejectsEscapingPaths(t *testing.T) {
	s, err := NewFS(t.TempDir(), "")
	require.NoError(t, err)

	for _, p := range []string{"", "/etc/passwd", "../x", "a/../../x", "..", "."} {
		_, err := s.Put(context.Background(), p, []byte("x"), "")
		assert.True(t, errors.Is(err, domain.ErrInvalidInput), p)
	}

	url, err := s.Put(context.Background(), "a/../b.png", []byte("x"), "")
	require.NoError(t, err)
	assert.Equal(t, "/files/b.png", url)
}

func TestFS_CanceledContext(t *testing.T) {
	s, err := NewFS(t.TempDir(), "")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Put(ctx, "x.png", []byte("x"), "")
	assert.True(t, errors.Is(err, domain.ErrUpload))
}

func TestNewFS_NotConfigured(t *testing.T) {
	_, err := NewFS(" ", "")
	assert.True(t, errors.Is(err, domain.ErrNotConfigured))
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "back.png", SafeName("back.png"))
	assert.Equal(t, "passwd", SafeName("../../etc/passwd"))
	assert.Equal(t, "my_shirt__1_.jpg", SafeName(`C:\photos\my shirt (1).jpg`))
	assert.Equal(t, "upload", SafeName(""))
	assert.Equal(t, "upload", SafeName(".."))
}
