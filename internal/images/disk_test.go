package images

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is the magic prefix http.DetectContentType recognizes as image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func newDiskStore(t *testing.T) *DiskStore {
	t.Helper()
	logger := zerolog.Nop()
	store, err := NewDiskStore(t.TempDir(), "/images", &logger)
	require.NoError(t, err)
	return store
}

func TestDiskStore_Save(t *testing.T) {
	store := newDiskStore(t)

	url, err := store.Save(context.Background(), pngHeader, "photo.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/images/img_"), "unexpected url %s", url)
	assert.True(t, strings.HasSuffix(url, ".png"))

	name := strings.TrimPrefix(url, "/images/")
	data, err := os.ReadFile(filepath.Join(store.Dir(), name))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestDiskStore_SaveUnknownExtensionFallsBack(t *testing.T) {
	store := newDiskStore(t)

	url, err := store.Save(context.Background(), pngHeader, "weird.bin")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, ".jpg"))
}

func TestDiskStore_RejectsNonImage(t *testing.T) {
	store := newDiskStore(t)

	_, err := store.Save(context.Background(), []byte("plain text content"), "note.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an image")
}

func TestDiskStore_RejectsOversize(t *testing.T) {
	store := newDiskStore(t)

	big := append(append([]byte(nil), pngHeader...), bytes.Repeat([]byte{0}, 10*1024*1024)...)
	_, err := store.Save(context.Background(), big, "huge.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestDiskStore_RejectsEmpty(t *testing.T) {
	store := newDiskStore(t)

	_, err := store.Save(context.Background(), nil, "empty.png")
	assert.Error(t, err)
}
