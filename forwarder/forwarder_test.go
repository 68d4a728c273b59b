package forwarder

import (
	"bytes"
	"errors"
	"github.com/allape/colorfwd/publisher"
	"github.com/allape/colorfwd/sensor"
	"testing"
)

type testReader struct {
	sensor.Dispatcher
	closeCount int
}

func (r *testReader) OnFrameArrived(h sensor.Handler) {
	r.Add(h)
}

func (r *testReader) Close() error {
	r.closeCount++
	r.Dispatcher.Close()
	return nil
}

type testSource struct {
	reader    *testReader
	openErr   error
	openCount int
}

func (s *testSource) Description() sensor.Description {
	return sensor.Description{Width: 2, Height: 2, Format: sensor.BGRA}
}

func (s *testSource) OpenReader() (sensor.Reader, error) {
	s.openCount++
	if s.openErr != nil {
		return s.reader, s.openErr
	}
	return s.reader, nil
}

type testSensor struct {
	source *testSource
	err    error
}

func (s *testSensor) ColorFrameSource() (sensor.FrameSource, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.source, nil
}

type recorder struct {
	payloads [][]byte
}

func (r *recorder) SendByteArray(payload []byte) {
	r.payloads = append(r.payloads, payload)
}

func newTestForwarder(t *testing.T) (*Forwarder, *testReader, *recorder) {
	t.Helper()

	reader := &testReader{}
	rec := &recorder{}
	f, err := New(&testSensor{source: &testSource{reader: reader}}, rec)
	if err != nil {
		t.Fatal(err)
	}
	return f, reader, rec
}

func filledFrame(t *testing.T, desc sensor.Description, b byte) *sensor.RawFrame {
	t.Helper()

	frame, err := sensor.NewRawFrame(desc, bytes.Repeat([]byte{b}, desc.Size()))
	if err != nil {
		t.Fatal(err)
	}
	return frame
}

func TestForwardFullHD(t *testing.T) {
	f, _, rec := newTestForwarder(t)

	desc := sensor.Description{Width: 1920, Height: 1080, Format: sensor.BGRA}
	frame := filledFrame(t, desc, 0xAB)

	err := f.Forward(8_294_400, frame)
	if err != nil {
		t.Fatal(err)
	}

	if len(rec.payloads) != 1 {
		t.Fatalf("Expected 1 send, got %d", len(rec.payloads))
	}
	payload := rec.payloads[0]
	if len(payload) != 8_294_400 {
		t.Fatalf("Expected 8294400 bytes, got %d", len(payload))
	}
	if !bytes.Equal(payload, bytes.Repeat([]byte{0xAB}, 8_294_400)) {
		t.Fatal("Expected every byte to be 0xAB")
	}
}

func TestForwardExactPayload(t *testing.T) {
	f, _, rec := newTestForwarder(t)

	desc := sensor.Description{Width: 4, Height: 2, Format: sensor.YUY2}
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	frame, err := sensor.NewRawFrame(desc, data)
	if err != nil {
		t.Fatal(err)
	}

	err = f.Forward(frame.RawLen(), frame)
	if err != nil {
		t.Fatal(err)
	}

	if len(rec.payloads) != 1 || !bytes.Equal(rec.payloads[0], data) {
		t.Fatalf("Expected one payload equal to %v, got %v", data, rec.payloads)
	}
}

func TestForwardTooSmall(t *testing.T) {
	f, _, rec := newTestForwarder(t)

	frame := filledFrame(t, sensor.Description{Width: 4, Height: 4, Format: sensor.BGRA}, 1)

	for _, size := range []int{0, 1, 63} {
		err := f.Forward(size, frame)
		if !errors.Is(err, ErrBufferTooSmall) {
			t.Fatalf("Expected ErrBufferTooSmall for size %d, got %v", size, err)
		}
	}

	if len(rec.payloads) != 0 {
		t.Fatalf("Expected no send, got %d", len(rec.payloads))
	}
}

func TestForwardSizeMismatch(t *testing.T) {
	f, _, rec := newTestForwarder(t)

	frame := filledFrame(t, sensor.Description{Width: 4, Height: 4, Format: sensor.BGRA}, 1)

	err := f.Forward(65, frame)
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("Expected ErrSizeMismatch, got %v", err)
	}

	err = f.Forward(-1, frame)
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("Expected ErrSizeMismatch, got %v", err)
	}

	err = f.Forward(64, nil)
	if !errors.Is(err, ErrNilFrame) {
		t.Fatalf("Expected ErrNilFrame, got %v", err)
	}

	if len(rec.payloads) != 0 {
		t.Fatalf("Expected no send, got %d", len(rec.payloads))
	}
}

type lyingFrame struct {
	sensor.Frame
}

func (lyingFrame) RawLen() int {
	return 4
}

func (lyingFrame) CopyRawFrameDataTo(dst []byte) error {
	return sensor.ErrBufferTooSmall
}

func TestForwardCopyFailure(t *testing.T) {
	f, _, rec := newTestForwarder(t)

	err := f.Forward(4, lyingFrame{})
	if !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("Expected ErrBufferTooSmall, got %v", err)
	}
	if len(rec.payloads) != 0 {
		t.Fatalf("Expected no send, got %d", len(rec.payloads))
	}
}

func TestForwardFreshBuffer(t *testing.T) {
	f, _, rec := newTestForwarder(t)

	frame := filledFrame(t, sensor.Description{Width: 2, Height: 2, Format: sensor.BGRA}, 7)

	if err := f.Forward(16, frame); err != nil {
		t.Fatal(err)
	}

	// scribble over what the publisher got; the next forward must not see it
	for i := range rec.payloads[0] {
		rec.payloads[0][i] = 0
	}

	if err := f.Forward(16, frame); err != nil {
		t.Fatal(err)
	}

	if &rec.payloads[0][0] == &rec.payloads[1][0] {
		t.Fatal("Expected a distinct buffer per forward")
	}
	if !bytes.Equal(rec.payloads[1], bytes.Repeat([]byte{7}, 16)) {
		t.Fatalf("Expected untouched frame data, got %v", rec.payloads[1])
	}
}

func TestOnFrameArrived(t *testing.T) {
	f, reader, _ := newTestForwarder(t)

	if f.Reader() != reader {
		t.Fatal("Expected the reader opened from the source")
	}

	var first, second int
	f.OnFrameArrived(func(sensor.Frame) { first++ })
	f.OnFrameArrived(func(sensor.Frame) { second++ })

	reader.Dispatch(filledFrame(t, sensor.Description{Width: 2, Height: 2, Format: sensor.BGRA}, 0))

	if first != 1 || second != 1 {
		t.Fatalf("Expected (1, 1), got (%d, %d)", first, second)
	}
}

func TestHandlerForwards(t *testing.T) {
	f, reader, rec := newTestForwarder(t)

	f.OnFrameArrived(func(frame sensor.Frame) {
		if err := f.Forward(frame.RawLen(), frame); err != nil {
			t.Error(err)
		}
	})

	reader.Dispatch(filledFrame(t, sensor.Description{Width: 2, Height: 2, Format: sensor.BGRA}, 9))
	reader.Dispatch(filledFrame(t, sensor.Description{Width: 2, Height: 2, Format: sensor.BGRA}, 8))

	if len(rec.payloads) != 2 || rec.payloads[0][0] != 9 || rec.payloads[1][0] != 8 {
		t.Fatalf("Expected payloads of 9s then 8s, got %v", rec.payloads)
	}
}

func TestNewUnavailable(t *testing.T) {
	source := &testSource{reader: &testReader{}}
	f, err := New(&testSensor{source: source, err: sensor.ErrUnavailable}, &recorder{})
	if !errors.Is(err, sensor.ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}
	if f != nil {
		t.Fatal("Expected no forwarder")
	}
	if source.openCount != 0 {
		t.Fatalf("Expected no reader opened, got %d", source.openCount)
	}

	_, err = New(nil, &recorder{})
	if err == nil {
		t.Fatal("Expected error for nil sensor")
	}

	_, err = New(&testSensor{source: source}, nil)
	if err == nil {
		t.Fatal("Expected error for nil publisher")
	}
}

func TestNewOpenReaderFailure(t *testing.T) {
	reader := &testReader{}
	openErr := errors.New("device busy")
	f, err := New(&testSensor{source: &testSource{reader: reader, openErr: openErr}}, publisher.Func(func([]byte) {}))
	if !errors.Is(err, openErr) {
		t.Fatalf("Expected device busy, got %v", err)
	}
	if f != nil {
		t.Fatal("Expected no forwarder")
	}
	if reader.closeCount != 1 {
		t.Fatalf("Expected partially opened reader to be closed once, got %d", reader.closeCount)
	}
}

type emptySource struct{}

func (emptySource) Description() sensor.Description {
	return sensor.Description{Width: 2, Height: 2, Format: sensor.BGRA}
}

func (emptySource) OpenReader() (sensor.Reader, error) {
	return nil, nil
}

type emptySensor struct{}

func (emptySensor) ColorFrameSource() (sensor.FrameSource, error) {
	return emptySource{}, nil
}

func TestNewNoReader(t *testing.T) {
	f, err := New(emptySensor{}, &recorder{})
	if !errors.Is(err, sensor.ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}
	if f != nil {
		t.Fatal("Expected no forwarder")
	}
}

func TestClose(t *testing.T) {
	f, reader, _ := newTestForwarder(t)

	called := 0
	f.OnFrameArrived(func(sensor.Frame) { called++ })

	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if reader.closeCount != 1 {
		t.Fatalf("Expected reader closed once, got %d", reader.closeCount)
	}

	reader.Dispatch(nil)
	if called != 0 {
		t.Fatalf("Expected no handler after close, got %d", called)
	}
}
