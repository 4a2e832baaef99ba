package scanning

import (
	"context"
	"fmt"
)

// Line is one recognized line of text
type Line struct {
	Text string `json:"text"`
}

// Block is a group of lines in reading order
type Block struct {
	Lines []Line `json:"lines"`
}

// Text contains recognized blocks in document reading order
type Text struct {
	Blocks []Block `json:"blocks"`
}

// Recognizer defines the interface for optical text recognition
type Recognizer interface {
	// Recognize reads all text in an image
	Recognize(ctx context.Context, imageData []byte, contentType string) (*Text, error)
	// Close closes the recognizer and releases resources
	Close() error
}

// RecognitionError reports a fault inside an OCR engine
type RecognitionError struct {
	Engine string
	Err    error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("%s recognition failed: %v", e.Engine, e.Err)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}
