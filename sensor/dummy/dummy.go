// Package dummy is a synthetic color camera rendering placeholder frames.
package dummy

import (
	"fmt"
	"github.com/allape/colorfwd/sensor"
	"github.com/allape/gogger"
	"image/color"
	"sync"
	"time"
)

var l = gogger.New("sensor.dummy")

type Options struct {
	Width     int
	Height    int
	Format    sensor.PixelFormat
	FrameRate float64

	// Unavailable makes ColorFrameSource fail, like a camera that is unplugged.
	Unavailable bool
}

type Sensor struct {
	text        string
	desc        sensor.Description
	frameRate   float64
	unavailable bool
}

func (s *Sensor) ColorFrameSource() (sensor.FrameSource, error) {
	if s.unavailable {
		return nil, sensor.ErrUnavailable
	}
	return &source{sensor: s}, nil
}

// Interval is the time between two frames.
func (s *Sensor) Interval() (time.Duration, error) {
	interval := time.Duration(float64(time.Second) / s.frameRate)
	if !(s.frameRate > 0) || interval <= 0 {
		return 0, fmt.Errorf("invalid frame rate: %f", s.frameRate)
	}
	return interval, nil
}

type source struct {
	sensor *Sensor
}

func (s *source) Description() sensor.Description {
	return s.sensor.desc
}

func (s *source) OpenReader() (sensor.Reader, error) {
	if err := s.sensor.desc.Validate(); err != nil {
		return nil, err
	}

	interval, err := s.sensor.Interval()
	if err != nil {
		return nil, err
	}

	r := &Reader{
		sensor:   s.sensor,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go r.loop()

	return r, nil
}

type Reader struct {
	sensor.Dispatcher

	sensor    *Sensor
	interval  time.Duration
	count     uint64
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func (r *Reader) OnFrameArrived(h sensor.Handler) {
	r.Add(h)
}

// Close stops frame delivery and waits for an in-flight dispatch to finish.
// It must not be called from a handler.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		r.Dispatcher.Close()
		close(r.stop)
		<-r.done
	})
	return nil
}

func (r *Reader) loop() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		}

		frame, err := r.NextFrame()
		if err != nil {
			l.Error().Println("render frame:", err)
			continue
		}

		select {
		case <-r.stop:
			return
		default:
		}

		r.Dispatch(frame)
	}
}

// NextFrame renders the next synthetic frame.
func (r *Reader) NextFrame() (*sensor.RawFrame, error) {
	r.count++

	desc := r.sensor.desc
	img, err := CreatePlaceholder(
		desc.Width, desc.Height,
		color.RGBA{A: 255},
		color.RGBA{R: 255, G: 255, B: 255, A: 255},
		fmt.Sprintf("%s #%d", r.sensor.text, r.count),
		true,
	)
	if err != nil {
		return nil, err
	}

	data, err := sensor.Encode(img, desc.Format)
	if err != nil {
		return nil, err
	}

	l.Verbose().Println("frame rendered:", r.count)

	return sensor.NewRawFrame(desc, data)
}

func NewSensor(text string, options *Options) *Sensor {
	if options == nil {
		options = &Options{}
	}

	if options.Width == 0 {
		options.Width = 1920
	}
	if options.Height == 0 {
		options.Height = 1080
	}
	if options.Format == "" {
		options.Format = sensor.BGRA
	}
	if options.FrameRate == 0 {
		options.FrameRate = 30
	}

	return &Sensor{
		text: text,
		desc: sensor.Description{
			Width:  options.Width,
			Height: options.Height,
			Format: options.Format,
		},
		frameRate:   options.FrameRate,
		unavailable: options.Unavailable,
	}
}
