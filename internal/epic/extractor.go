// Package epic extracts voter ID (EPIC) numbers from recognized text.
//
// An identifier is three uppercase ASCII letters immediately followed by
// seven ASCII digits, standing alone as a token. OCR output is flattened and
// normalized before matching, which makes the match robust to punctuation
// and line breaks the engine inserts around the token.
package epic

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zombor/epic-scan/internal/capture"
	"github.com/zombor/epic-scan/internal/scanning"
)

// Extractor runs OCR on an image and pulls the first identifier out of the text
type Extractor struct {
	recognizer scanning.Recognizer
}

// NewExtractor creates a new Extractor
func NewExtractor(recognizer scanning.Recognizer) *Extractor {
	return &Extractor{recognizer: recognizer}
}

// Extract returns the first identifier found in the image.
// It never fails: recognition faults are logged and reported as no identifier.
func (e *Extractor) Extract(ctx context.Context, img capture.Image) (id string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recognizer panicked", "origin", img.Origin, "panic", fmt.Sprint(r))
			id, ok = "", false
		}
	}()

	text, err := e.recognizer.Recognize(ctx, img.Data, img.ContentType)
	if err != nil {
		slog.Warn("Failed to recognize text",
			"origin", img.Origin,
			"fidelity", img.Fidelity.String(),
			"content_type", img.ContentType,
			"file_size", len(img.Data),
			"error", err,
		)
		return "", false
	}

	flat := Flatten(text)
	id, ok = FindIdentifier(flat)
	slog.Debug("Extraction finished", "origin", img.Origin, "chars", len(flat), "found", ok)
	return id, ok
}
