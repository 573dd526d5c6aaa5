package images

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"duetmenu/internal/models"

	"github.com/rs/zerolog"
)

// DiskStore keeps dish images as files under a configured directory and
// hands back stable reference URLs the catalog can store on a dish.
type DiskStore struct {
	dir       string
	urlPrefix string
	logger    *zerolog.Logger
}

func NewDiskStore(dir, urlPrefix string, logger *zerolog.Logger) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	return &DiskStore{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/"), logger: logger}, nil
}

// Save writes the uploaded bytes under a fresh img_<unixmilli>.<ext> name
// and returns the URL to reference it by. Only image content within the
// size limit is accepted.
func (s *DiskStore) Save(ctx context.Context, data []byte, filenameHint string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("image is empty")
	}
	if len(data) > models.MaxImageSizeBytes {
		return "", fmt.Errorf("image exceeds %d bytes", models.MaxImageSizeBytes)
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return "", fmt.Errorf("content is not an image")
	}

	name := fmt.Sprintf("img_%d%s", time.Now().UnixMilli(), extension(filenameHint))
	target := filepath.Join(s.dir, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}

	s.logger.Info().Str("file", name).Int("size", len(data)).Msg("image stored")
	return s.urlPrefix + "/" + name, nil
}

// Dir returns the backing directory, for static file serving.
func (s *DiskStore) Dir() string {
	return s.dir
}

func extension(hint string) string {
	ext := strings.ToLower(path.Ext(path.Base(hint)))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return ext
	default:
		return ".jpg"
	}
}
