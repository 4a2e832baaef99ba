// Package tesseract recognizes text with a local Tesseract engine through gosseract.
// It needs the tesseract and leptonica libraries at build time.
package tesseract

import (
	"context"
	"fmt"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/zombor/epic-scan/internal/imagefmt"
	"github.com/zombor/epic-scan/internal/scanning"
)

// Tesseract implements the scanning.Recognizer interface using a local Tesseract engine
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates a new Tesseract recognizer.
// Languages default to "eng".
func New(languages ...string) (*Tesseract, error) {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting tesseract language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting tesseract page segmentation: %w", err)
	}

	return &Tesseract{client: client}, nil
}

// Recognize reads all text in the image, one block per Tesseract layout block
func (t *Tesseract) Recognize(ctx context.Context, imageData []byte, contentType string) (*scanning.Text, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pngData, err := imagefmt.ForOCR(imageData, contentType)
	if err != nil {
		return nil, err
	}

	// The underlying engine handle is not safe for concurrent use
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetImageFromBytes(pngData); err != nil {
		return nil, &scanning.RecognitionError{Engine: "tesseract", Err: fmt.Errorf("setting image: %w", err)}
	}

	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_BLOCK)
	if err != nil {
		return nil, &scanning.RecognitionError{Engine: "tesseract", Err: fmt.Errorf("reading blocks: %w", err)}
	}

	return blocksFromBoxes(boxes), nil
}

// blocksFromBoxes turns block-level boxes into text, one line per line of the block
func blocksFromBoxes(boxes []gosseract.BoundingBox) *scanning.Text {
	text := &scanning.Text{Blocks: make([]scanning.Block, 0, len(boxes))}
	for _, box := range boxes {
		text.Blocks = append(text.Blocks, scanning.BlockFromText(box.Word))
	}
	return scanning.Compact(text)
}

// Close closes the Tesseract client
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
