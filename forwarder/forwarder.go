// Package forwarder copies raw color frames out of a sensor reader and hands
// them to a publisher.
package forwarder

import (
	"errors"
	"fmt"
	"github.com/allape/colorfwd/publisher"
	"github.com/allape/colorfwd/sensor"
	"sync"
)

var (
	ErrBufferTooSmall = sensor.ErrBufferTooSmall
	ErrSizeMismatch   = errors.New("size does not match frame raw data length")
	ErrNilFrame       = errors.New("frame is nil")
)

type Forwarder struct {
	reader    sensor.Reader
	publisher publisher.Publisher
	closeOnce sync.Once
	closeErr  error
}

// New opens a color frame reader on s. Nothing is left open when it fails.
func New(s sensor.Sensor, p publisher.Publisher) (*Forwarder, error) {
	if s == nil {
		return nil, errors.New("sensor is nil")
	}
	if p == nil {
		return nil, errors.New("publisher is nil")
	}

	source, err := s.ColorFrameSource()
	if err != nil {
		return nil, fmt.Errorf("color frame source: %w", err)
	}
	if source == nil {
		return nil, sensor.ErrUnavailable
	}

	reader, err := source.OpenReader()
	if err != nil {
		if reader != nil {
			_ = reader.Close()
		}
		return nil, fmt.Errorf("open reader: %w", err)
	}
	if reader == nil {
		return nil, sensor.ErrUnavailable
	}

	return &Forwarder{
		reader:    reader,
		publisher: p,
	}, nil
}

func (f *Forwarder) Reader() sensor.Reader {
	return f.reader
}

func (f *Forwarder) OnFrameArrived(h sensor.Handler) {
	f.reader.OnFrameArrived(h)
}

// Forward copies exactly size bytes of frame into a new buffer and sends it.
// size must equal frame.RawLen(); nothing is sent otherwise.
func (f *Forwarder) Forward(size int, frame sensor.Frame) error {
	if frame == nil {
		return ErrNilFrame
	}
	if size < 0 {
		return fmt.Errorf("%w: negative size %d", ErrSizeMismatch, size)
	}

	raw := frame.RawLen()
	if size < raw {
		return fmt.Errorf("%w: %d < %d", ErrBufferTooSmall, size, raw)
	} else if size != raw {
		return fmt.Errorf("%w: %d != %d", ErrSizeMismatch, size, raw)
	}

	bytes := make([]byte, size)
	err := frame.CopyRawFrameDataTo(bytes)
	if err != nil {
		return err
	}

	f.publisher.SendByteArray(bytes)

	return nil
}

// Close releases the reader. Handlers stop firing once it returns.
func (f *Forwarder) Close() error {
	f.closeOnce.Do(func() {
		f.closeErr = f.reader.Close()
	})
	return f.closeErr
}
