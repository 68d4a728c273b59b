// Package serialport writes frames to a UART, each one behind a 5 byte header:
// 0xFE followed by the payload length as a big-endian uint32.
package serialport

import (
	"encoding/binary"
	"errors"
	"github.com/allape/colorfwd/publisher"
	"github.com/allape/gogger"
	"go.bug.st/serial"
	"sync"
	"sync/atomic"
)

var l = gogger.New("publisher.serialport")

const (
	Marker     = 0xFE
	HeaderSize = 5
)

type Opener func(name string, mode *serial.Mode) (serial.Port, error)

func Header(length int) []byte {
	header := make([]byte, HeaderSize)
	header[0] = Marker
	binary.BigEndian.PutUint32(header[1:], uint32(length))
	return header
}

type Publisher struct {
	publisher.Publisher

	openLocker  sync.Locker
	writeLocker sync.Locker
	open        Opener

	sent    atomic.Uint64
	dropped atomic.Uint64

	Port serial.Port

	Name string
	Baud int
}

func (p *Publisher) Open() error {
	p.openLocker.Lock()
	defer p.openLocker.Unlock()

	if p.Port != nil {
		return nil
	}

	mode := &serial.Mode{
		BaudRate: p.Baud,
	}
	port, err := p.open(p.Name, mode)
	if err != nil {
		return err
	}
	p.Port = port

	l.Info().Println("opened", p.Name, "at", p.Baud)

	return nil
}

func (p *Publisher) Close() error {
	p.openLocker.Lock()
	defer p.openLocker.Unlock()

	if p.Port == nil {
		return nil
	}

	err := p.Port.Close()
	p.Port = nil
	return err
}

func (p *Publisher) Write(payload []byte) (int, error) {
	err := p.Open()
	if err != nil {
		return 0, err
	}

	p.writeLocker.Lock()
	defer p.writeLocker.Unlock()

	port := p.Port
	if port == nil {
		return 0, errors.New("port is not open")
	}

	_, err = port.Write(Header(len(payload)))
	if err != nil {
		_ = p.Close()
		return 0, err
	}

	n, err := port.Write(payload)
	if err != nil {
		_ = p.Close()
		return n, err
	}

	err = port.Drain()
	if err != nil {
		_ = p.Close()
		return n, err
	}

	return n, nil
}

// SendByteArray writes payload and drops it on any failure; the port is
// reopened on the next call.
func (p *Publisher) SendByteArray(payload []byte) {
	_, err := p.Write(payload)
	if err != nil {
		p.dropped.Add(1)
		l.Error().Println("write frame:", err)
		return
	}
	p.sent.Add(1)
}

func (p *Publisher) Stats() publisher.Stats {
	return publisher.Stats{
		Sent:    p.sent.Load(),
		Dropped: p.dropped.Load(),
	}
}

func New(name string, baud int) *Publisher {
	return NewWithOpener(name, baud, serial.Open)
}

func NewWithOpener(name string, baud int, open Opener) *Publisher {
	return &Publisher{
		openLocker:  &sync.Mutex{},
		writeLocker: &sync.Mutex{},
		open:        open,
		Name:        name,
		Baud:        baud,
	}
}
