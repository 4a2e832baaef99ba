package capture

import (
	"context"
	"errors"
	"fmt"
)

// Fidelity selects the speed/accuracy trade-off of a capture
type Fidelity int

const (
	// FidelityLow favours speed, for unattended periodic captures
	FidelityLow Fidelity = iota
	// FidelityFull favours accuracy, for single deliberate attempts
	FidelityFull
)

func (f Fidelity) String() string {
	if f == FidelityFull {
		return "full"
	}
	return "low"
}

// Image is an opaque handle to a captured or picked image
type Image struct {
	Data        []byte
	ContentType string
	Fidelity    Fidelity
	// Origin names where the image came from, for logging only
	Origin string
}

// Source produces images on request
type Source interface {
	// Capture obtains a new image at the requested fidelity
	Capture(ctx context.Context, fidelity Fidelity) (Image, error)
	// Close releases the underlying device
	Close() error
}

var (
	// ErrUnavailable means the image source could not deliver a frame right now
	ErrUnavailable = errors.New("image source unavailable")
	// ErrCancelled means the user dismissed the picker without choosing an image
	ErrCancelled = errors.New("pick cancelled")
	// ErrPermissionDenied means the device could not be opened at all
	ErrPermissionDenied = errors.New("permission denied")
)

// CaptureError reports a failed capture attempt
type CaptureError struct {
	Source string
	Err    error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capturing from %s: %v", e.Source, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}
