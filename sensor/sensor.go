// Package sensor describes the camera capabilities a forwarder consumes:
// a sensor with a color frame source, readers that push frame-arrival
// notifications, and frames that copy their raw pixel data out.
package sensor

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrUnavailable    = errors.New("color frame source is unavailable")
	ErrBufferTooSmall = errors.New("destination buffer is too small for frame data")
	ErrReaderClosed   = errors.New("reader is closed")
)

type PixelFormat string

const (
	BGRA PixelFormat = "bgra"
	RGBA PixelFormat = "rgba"
	YUY2 PixelFormat = "yuy2"
)

func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case BGRA, RGBA:
		return 4
	case YUY2:
		return 2
	}
	return 0
}

func (f PixelFormat) Valid() bool {
	return f.BytesPerPixel() > 0
}

func ParsePixelFormat(s string) (PixelFormat, error) {
	f := PixelFormat(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("unknown pixel format: %q", s)
	}
	return f, nil
}

// Description is the geometry and encoding of the frames a source emits.
type Description struct {
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Format PixelFormat `json:"format"`
}

// Size is the raw data length of one frame, width * height * bytes-per-pixel.
func (d Description) Size() int {
	return d.Width * d.Height * d.Format.BytesPerPixel()
}

func (d Description) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("invalid frame size: %dx%d", d.Width, d.Height)
	}
	if !d.Format.Valid() {
		return fmt.Errorf("unknown pixel format: %q", d.Format)
	}
	if d.Format == YUY2 && d.Width%2 != 0 {
		return fmt.Errorf("yuy2 frame width should be even: %d", d.Width)
	}
	return nil
}

type Frame interface {
	Description() Description
	RawLen() int
	// CopyRawFrameDataTo copies the whole frame into dst, which must hold
	// at least RawLen bytes. Nothing is written on failure.
	CopyRawFrameDataTo(dst []byte) error
}

type Handler func(frame Frame)

type Reader interface {
	io.Closer
	// OnFrameArrived attaches h to the frame-arrival notification.
	// Registrations are additive and fire in registration order.
	OnFrameArrived(h Handler)
}

type FrameSource interface {
	Description() Description
	OpenReader() (Reader, error)
}

type Sensor interface {
	ColorFrameSource() (FrameSource, error)
}
