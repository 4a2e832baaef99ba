package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zombor/epic-scan/internal/imagefmt"
)

// ErrInvalidName is returned for names that are not plain files inside the gallery
var ErrInvalidName = errors.New("invalid image name")

// Gallery is a directory of images the user can pick from
type Gallery struct {
	basePath string
}

// NewGallery creates a new Gallery, creating the directory if needed
func NewGallery(basePath string) (*Gallery, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating gallery directory: %w", err)
	}

	return &Gallery{
		basePath: basePath,
	}, nil
}

// List returns the names of the pickable images, sorted
func (g *Gallery) List() ([]string, error) {
	entries, err := os.ReadDir(g.basePath)
	if err != nil {
		return nil, fmt.Errorf("reading gallery: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if imagefmt.ContentTypeFromFilename(entry.Name()) == "application/octet-stream" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Pick loads an image at full fidelity. An empty name is a cancelled pick.
func (g *Gallery) Pick(name string) (Image, error) {
	if name == "" {
		return Image{}, ErrCancelled
	}

	clean := filepath.Base(filepath.Clean(name))
	if clean != name || clean == "." || clean == ".." {
		return Image{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	data, err := os.ReadFile(filepath.Join(g.basePath, clean))
	if err != nil {
		return Image{}, fmt.Errorf("reading file: %w", err)
	}

	return Image{
		Data:        data,
		ContentType: imagefmt.ContentTypeFromFilename(clean),
		Fidelity:    FidelityFull,
		Origin:      clean,
	}, nil
}
