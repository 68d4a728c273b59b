// Package websocket fans raw frames out to websocket clients as binary
// messages. Every client keeps only the latest frame it has not written yet.
package websocket

import (
	"errors"
	"github.com/allape/colorfwd/publisher"
	"github.com/allape/gogger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

var l = gogger.New("publisher.websocket")

var ErrClosed = errors.New("publisher is closed")

type Options struct {
	// Cors accepts upgrades from any origin.
	Cors         bool
	WriteTimeout time.Duration
}

type client struct {
	id     uuid.UUID
	conn   *websocket.Conn
	latest chan []byte
	done   chan struct{}
	once   sync.Once
}

func (c *client) offer(payload []byte) (dropped bool) {
	select {
	case c.latest <- payload:
		return false
	default:
	}

	select {
	case <-c.latest:
		dropped = true
	default:
	}

	select {
	case c.latest <- payload:
	default:
		dropped = true
	}

	return dropped
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

type Publisher struct {
	publisher.Publisher

	upgrader     websocket.Upgrader
	writeTimeout time.Duration

	locker  sync.Locker
	clients map[*client]struct{}
	closed  bool

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// SendByteArray queues payload for every connected client and returns
// without waiting for any write.
func (p *Publisher) SendByteArray(payload []byte) {
	p.locker.Lock()
	defer p.locker.Unlock()

	for c := range p.clients {
		if c.offer(payload) {
			p.dropped.Add(1)
			l.Verbose().Println("dropped a frame for", c.id)
		}
	}
}

func (p *Publisher) Stats() publisher.Stats {
	p.locker.Lock()
	clients := len(p.clients)
	p.locker.Unlock()

	return publisher.Stats{
		Clients: clients,
		Sent:    p.sent.Load(),
		Dropped: p.dropped.Load(),
	}
}

// ServeHTTP upgrades the request and streams frames until the client leaves
// or the publisher closes.
func (p *Publisher) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	conn, err := p.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		l.Error().Println("upgrade:", err)
		return
	}

	c := &client{
		id:     uuid.New(),
		conn:   conn,
		latest: make(chan []byte, 1),
		done:   make(chan struct{}),
	}

	p.locker.Lock()
	if p.closed {
		p.locker.Unlock()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ErrClosed.Error()))
		_ = conn.Close()
		return
	}
	p.clients[c] = struct{}{}
	p.locker.Unlock()

	l.Info().Println("client connected:", c.id, request.RemoteAddr)

	defer func() {
		p.locker.Lock()
		delete(p.clients, c)
		p.locker.Unlock()
		c.close()
		l.Info().Println("client disconnected:", c.id)
	}()

	// subscribers never send anything meaningful, reading only detects a close
	go func() {
		defer c.close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				l.Verbose().Println("read:", c.id, err)
				return
			}
		}
	}()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.latest:
			if p.writeTimeout > 0 {
				_ = conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
			}
			err := conn.WriteMessage(websocket.BinaryMessage, payload)
			if err != nil {
				l.Warn().Println("write:", c.id, err)
				return
			}
			p.sent.Add(1)
		}
	}
}

// Close disconnects every client; later connections are refused.
func (p *Publisher) Close() error {
	p.locker.Lock()
	defer p.locker.Unlock()

	p.closed = true
	for c := range p.clients {
		c.close()
	}

	return nil
}

func New(options *Options) *Publisher {
	if options == nil {
		options = &Options{}
	}

	if options.WriteTimeout == 0 {
		options.WriteTimeout = 5 * time.Second
	}

	upgrader := websocket.Upgrader{}
	if options.Cors {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			return true
		}
	}

	return &Publisher{
		upgrader:     upgrader,
		writeTimeout: options.WriteTimeout,
		locker:       &sync.Mutex{},
		clients:      make(map[*client]struct{}),
	}
}
