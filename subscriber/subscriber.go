// Package subscriber receives raw frames published by a colorfwd server.
package subscriber

import (
	"context"
	"errors"
	"fmt"
	"github.com/allape/gogger"
	"github.com/gorilla/websocket"
	"sync"
	"time"
)

var l = gogger.New("subscriber")

var ErrRunning = errors.New("subscriber is already running")

type Callback func(frame []byte)

type Subscriber struct {
	conn *websocket.Conn

	locker  sync.Locker
	cb      Callback
	running bool
	done    chan struct{}
	err     error
}

func Dial(ctx context.Context, url string) (*Subscriber, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	l.Info().Println("connected to", url)

	return &Subscriber{
		conn:   conn,
		locker: &sync.Mutex{},
	}, nil
}

func (s *Subscriber) SetCallback(cb Callback) {
	s.locker.Lock()
	defer s.locker.Unlock()
	s.cb = cb
}

func (s *Subscriber) read() ([]byte, error) {
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.BinaryMessage {
			return data, nil
		}
		l.Verbose().Println("ignored message of type", kind)
	}
}

// Next blocks for one frame. It must not be used while the subscriber is running.
func (s *Subscriber) Next(ctx context.Context) ([]byte, error) {
	s.locker.Lock()
	running := s.running
	s.locker.Unlock()
	if running {
		return nil, ErrRunning
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	err := s.conn.SetReadDeadline(deadline)
	if err != nil {
		return nil, err
	}

	return s.read()
}

// Start receives frames in the background and hands each one to the callback.
func (s *Subscriber) Start() error {
	s.locker.Lock()
	defer s.locker.Unlock()

	if s.running {
		return ErrRunning
	}
	s.running = true
	s.done = make(chan struct{})

	_ = s.conn.SetReadDeadline(time.Time{})

	go func(done chan struct{}) {
		defer close(done)
		for {
			frame, err := s.read()
			if err != nil {
				s.locker.Lock()
				s.err = err
				s.locker.Unlock()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					l.Verbose().Println("read:", err)
				}
				return
			}

			s.locker.Lock()
			cb := s.cb
			s.locker.Unlock()

			if cb != nil {
				cb(frame)
			}
		}
	}(s.done)

	return nil
}

// Done is closed when the background receive loop ends, nil before Start.
func (s *Subscriber) Done() <-chan struct{} {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.done
}

// Err reports why the receive loop ended.
func (s *Subscriber) Err() error {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.err
}

// Stop closes the connection and waits for the receive loop to end.
func (s *Subscriber) Stop() error {
	_ = s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	err := s.conn.Close()

	s.locker.Lock()
	done := s.done
	s.locker.Unlock()

	if done != nil {
		<-done
	}

	return err
}
