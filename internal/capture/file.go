package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zombor/epic-scan/internal/imagefmt"
)

const (
	lowFidelityMaxDim  = 1024
	lowFidelityQuality = 30
)

// File implements the Source interface by re-reading a fixed image path on every capture.
// It stands in for a camera when running headless.
type File struct {
	path string
}

// NewFile creates a File source for the given path
func NewFile(path string) *File {
	return &File{path: path}
}

// Capture reads the file, downscaling it for low fidelity captures
func (f *File) Capture(ctx context.Context, fidelity Fidelity) (Image, error) {
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return Image{}, &CaptureError{Source: f.path, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}

	contentType := imagefmt.ContentTypeFromFilename(f.path)
	if fidelity == FidelityLow {
		data, err = imagefmt.Downscale(data, contentType, lowFidelityMaxDim, lowFidelityQuality)
		if err != nil {
			return Image{}, &CaptureError{Source: f.path, Err: err}
		}
		contentType = imagefmt.MimeJPEG
	}

	return Image{
		Data:        data,
		ContentType: contentType,
		Fidelity:    fidelity,
		Origin:      filepath.Base(f.path),
	}, nil
}

// Close is a no-op for file sources
func (f *File) Close() error {
	return nil
}
