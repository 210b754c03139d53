package camera

import (
	"context"
	"image"
)

// FacingMode selects the physical camera on devices with more than one.
type FacingMode string

const (
	FacingUser        FacingMode = "user"
	FacingEnvironment FacingMode = "environment"
)

// Constraints bound the stream requested from the device.
type Constraints struct {
	FacingMode FacingMode
	Width      int
	Height     int
}

// FrameSource opens video streams. Implementations wrap a real device; tests
// inject fakes.
type FrameSource interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is a live video stream. Read returns ErrFrameNotReady while the
// device has not produced a usable frame yet.
type Stream interface {
	Read() (image.Image, error)
	Close() error
}

// Image is an encoded still frame.
type Image struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// DataURL renders the image as a base64 data URL.
func (i Image) DataURL() string {
	return EncodeDataURL(i.MIME, i.Data)
}

// Controller owns the camera for the lifetime of one dialog.
type Controller interface {
	Open(ctx context.Context) error
	CaptureFrame() (Image, error)
	// Sample returns the current raw frame for face counting.
	Sample() (image.Image, error)
	Live() bool
	// Close releases the stream. Safe to call any number of times.
	Close()
}
