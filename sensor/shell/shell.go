// Package shell reads raw color frames from the stdout of a capture command,
// e.g. ffmpeg with "-f rawvideo".
package shell

import (
	"errors"
	"fmt"
	"github.com/allape/colorfwd/config"
	"github.com/allape/colorfwd/sensor"
	"github.com/allape/gogger"
	"io"
	"os"
	"os/exec"
	"sync"
)

var l = gogger.New("sensor.shell")

type Options struct {
	Width         int
	Height        int
	Format        sensor.PixelFormat
	SetupCommands []config.Command
}

type Sensor struct {
	src           config.Command
	setupCommands []config.Command
	desc          sensor.Description
}

func (s *Sensor) ColorFrameSource() (sensor.FrameSource, error) {
	if s.src.Empty() {
		return nil, fmt.Errorf("%w: capture command is empty", sensor.ErrUnavailable)
	}
	return &source{sensor: s}, nil
}

type source struct {
	sensor *Sensor
}

func (s *source) Description() sensor.Description {
	return s.sensor.desc
}

func (s *source) OpenReader() (sensor.Reader, error) {
	desc := s.sensor.desc
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	for _, command := range s.sensor.setupCommands {
		setup, err := command.ToCommand()
		if err != nil {
			return nil, err
		} else if setup == nil {
			continue
		}
		l.Verbose().Println(setup.Path, setup.Args)
		output, err := setup.CombinedOutput()
		o := string(output)
		l.Verbose().Print("setup output:", o)
		if err != nil {
			return nil, fmt.Errorf("setup command %s: %w: %s", setup.Path, err, o)
		}
	}

	cmd, err := s.sensor.src.ToCommand()
	if err != nil {
		return nil, err
	} else if cmd == nil {
		return nil, errors.New("command is nil")
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	l.Verbose().Println(cmd.Path, cmd.Args)

	err = cmd.Start()
	if err != nil {
		return nil, err
	}

	r := &Reader{
		desc:   desc,
		cmd:    cmd,
		stdout: stdout,
		done:   make(chan struct{}),
	}

	go func() {
		buf := make([]byte, 1024)
		for {
			n, err := stderr.Read(buf)
			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
					l.Error().Println(err)
				}
				return
			}
			l.Verbose().Print(string(buf[:n]))
		}
	}()

	go r.loop()

	return r, nil
}

type Reader struct {
	sensor.Dispatcher

	desc      sensor.Description
	cmd       *exec.Cmd
	stdout    io.ReadCloser
	done      chan struct{}
	closeOnce sync.Once
}

func (r *Reader) OnFrameArrived(h sensor.Handler) {
	r.Add(h)
}

// Done is closed once the capture command has exited.
func (r *Reader) Done() <-chan struct{} {
	return r.done
}

func (r *Reader) loop() {
	defer close(r.done)

	size := r.desc.Size()
	count := 0

	for {
		data := make([]byte, size)
		_, err := io.ReadFull(r.stdout, data)
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				l.Warn().Println("dropped incomplete trailing frame")
			} else if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				l.Error().Println("read frame:", err)
			}
			break
		}

		frame, err := sensor.NewRawFrame(r.desc, data)
		if err != nil {
			l.Error().Println(err)
			continue
		}

		count++
		l.Verbose().Println("frame read:", count)

		r.Dispatch(frame)
	}

	err := r.cmd.Wait()
	if err != nil && !r.Closed() {
		l.Warn().Println("capture command exited:", err)
	}
}

// Close kills the capture command and waits for the read loop to exit.
// It must not be called from a handler.
func (r *Reader) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.Dispatcher.Close()
		if r.cmd.Process != nil {
			err = r.cmd.Process.Kill()
			if errors.Is(err, os.ErrProcessDone) {
				err = nil
			}
		}
		_ = r.stdout.Close()
		<-r.done
	})
	return err
}

func NewSensor(src config.Command, options *Options) *Sensor {
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

	return &Sensor{
		src:           src,
		setupCommands: options.SetupCommands,
		desc: sensor.Description{
			Width:  options.Width,
			Height: options.Height,
			Format: options.Format,
		},
	}
}
