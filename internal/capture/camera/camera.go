package camera

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/zombor/epic-scan/internal/capture"
	"github.com/zombor/epic-scan/internal/imagefmt"
)

const (
	lowFidelityScale   = 0.5
	lowFidelityQuality = 30
)

// Camera implements the capture.Source interface using an OpenCV video device
type Camera struct {
	mu     sync.Mutex
	device *gocv.VideoCapture
	name   string
}

// Open opens the video device with the given index
func Open(deviceID int) (*Camera, error) {
	device, err := gocv.VideoCaptureDevice(deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: opening camera %d: %v", capture.ErrPermissionDenied, deviceID, err)
	}
	if !device.IsOpened() {
		device.Close()
		return nil, fmt.Errorf("%w: camera %d did not open", capture.ErrPermissionDenied, deviceID)
	}

	return &Camera{
		device: device,
		name:   fmt.Sprintf("camera %d", deviceID),
	}, nil
}

// Capture grabs the current frame from the device
func (c *Camera) Capture(ctx context.Context, fidelity capture.Fidelity) (capture.Image, error) {
	if err := ctx.Err(); err != nil {
		return capture.Image{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	frame := gocv.NewMat()
	defer frame.Close()

	if ok := c.device.Read(&frame); !ok || frame.Empty() {
		return capture.Image{}, &capture.CaptureError{Source: c.name, Err: capture.ErrUnavailable}
	}

	data, contentType, err := encodeFrame(frame, fidelity)
	if err != nil {
		return capture.Image{}, &capture.CaptureError{Source: c.name, Err: err}
	}

	return capture.Image{
		Data:        data,
		ContentType: contentType,
		Fidelity:    fidelity,
		Origin:      c.name,
	}, nil
}

// encodeFrame encodes a frame as a half size JPEG for low fidelity, or a PNG for full fidelity
func encodeFrame(frame gocv.Mat, fidelity capture.Fidelity) ([]byte, string, error) {
	if fidelity == capture.FidelityFull {
		buf, err := gocv.IMEncode(gocv.PNGFileExt, frame)
		if err != nil {
			return nil, "", fmt.Errorf("encoding frame: %w", err)
		}
		defer buf.Close()
		return copyBytes(buf.GetBytes()), imagefmt.MimePNG, nil
	}

	small := gocv.NewMat()
	defer small.Close()
	gocv.Resize(frame, &small, image.Point{}, lowFidelityScale, lowFidelityScale, gocv.InterpolationArea)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, small, []int{int(gocv.IMWriteJpegQuality), lowFidelityQuality})
	if err != nil {
		return nil, "", fmt.Errorf("encoding frame: %w", err)
	}
	defer buf.Close()
	return copyBytes(buf.GetBytes()), imagefmt.MimeJPEG, nil
}

// copyBytes detaches data from the native buffer before it is freed
func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Close releases the video device
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device.Close()
}
