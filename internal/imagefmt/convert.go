package imagefmt

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

const (
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimePDF  = "application/pdf"
)

// ContentTypeFromFilename guesses a MIME type from a file extension
func ContentTypeFromFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return MimeJPEG
	case ".png":
		return MimePNG
	case ".gif":
		return "image/gif"
	case ".pdf":
		return MimePDF
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// NormalizeContentType lowercases and trims a MIME type, defaulting to JPEG
func NormalizeContentType(contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" {
		return MimeJPEG
	}
	return mimeType
}

// Decode decodes image data of any supported format, including PDF (first page) and HEIC
func Decode(data []byte, contentType string) (image.Image, error) {
	mimeType := NormalizeContentType(contentType)

	if mimeType == MimePDF {
		return pdfToImage(data)
	}

	// Go's standard image package doesn't support HEIC
	if IsHEICFormat(data) || IsHEICMimeType(mimeType) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if strings.Contains(err.Error(), "unknown format") || strings.Contains(err.Error(), "unsupported") {
			return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, HEIC, HEIF, PDF. Error: %w", err)
		}
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// pdfToImage renders the first page of a PDF
func pdfToImage(pdfData []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// IsHEICFormat checks the ftyp box brand of the data
func IsHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	if string(data[4:8]) != "ftyp" {
		return false
	}
	brand := string(data[8:12])
	return brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1"
}

// IsHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func IsHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// ToPNG converts PDFs and non-PNG images to PNG.
// The boolean reports whether a conversion took place.
func ToPNG(data []byte, contentType string) ([]byte, bool, error) {
	mimeType := NormalizeContentType(contentType)
	if mimeType == MimePNG && !IsHEICFormat(data) {
		return data, false, nil
	}

	img, err := Decode(data, mimeType)
	if err != nil {
		return nil, false, fmt.Errorf("converting image to PNG: %w", err)
	}
	pngData, err := encodePNG(img)
	if err != nil {
		return nil, false, err
	}
	return pngData, true, nil
}

// Prepare normalizes the MIME type and converts the image to PNG if needed.
// Returns the final image data, the MIME type to use, and whether conversion occurred.
func Prepare(data []byte, contentType string) ([]byte, string, bool, error) {
	pngData, converted, err := ToPNG(data, contentType)
	if err != nil {
		return nil, "", false, err
	}
	return pngData, MimePNG, converted, nil
}

// Downscale fits the image inside maxDim x maxDim and re-encodes it as JPEG at the given quality.
// Images already inside the bounds are only re-encoded.
func Downscale(data []byte, contentType string, maxDim, quality int) ([]byte, error) {
	img, err := Decode(data, contentType)
	if err != nil {
		return nil, err
	}

	if maxDim > 0 {
		b := img.Bounds()
		if b.Dx() > maxDim || b.Dy() > maxDim {
			img = imaging.Fit(img, maxDim, maxDim, imaging.Box)
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// ForOCR converts the image to a high contrast grayscale PNG, which Tesseract reads more reliably
func ForOCR(data []byte, contentType string) ([]byte, error) {
	img, err := Decode(data, contentType)
	if err != nil {
		return nil, err
	}
	processed := imaging.Grayscale(img)
	processed = imaging.AdjustContrast(processed, 20)
	return encodePNG(processed)
}
