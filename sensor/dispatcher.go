package sensor

import (
	"sync"
)

// Dispatcher is the handler registry behind a Reader. Readers call Dispatch
// from their own delivery goroutine, once per frame.
type Dispatcher struct {
	locker   sync.RWMutex
	handlers []Handler
	closed   bool
}

func (d *Dispatcher) Add(h Handler) {
	if h == nil {
		return
	}

	d.locker.Lock()
	defer d.locker.Unlock()

	if d.closed {
		return
	}
	d.handlers = append(d.handlers, h)
}

// Dispatch calls every registered handler with frame and returns how many ran.
func (d *Dispatcher) Dispatch(frame Frame) int {
	d.locker.RLock()
	if d.closed {
		d.locker.RUnlock()
		return 0
	}
	handlers := d.handlers
	d.locker.RUnlock()

	for _, h := range handlers {
		h(frame)
	}

	return len(handlers)
}

func (d *Dispatcher) Len() int {
	d.locker.RLock()
	defer d.locker.RUnlock()
	return len(d.handlers)
}

// Close drops all handlers; later Add and Dispatch calls are no-ops.
func (d *Dispatcher) Close() {
	d.locker.Lock()
	defer d.locker.Unlock()
	d.closed = true
	d.handlers = nil
}

func (d *Dispatcher) Closed() bool {
	d.locker.RLock()
	defer d.locker.RUnlock()
	return d.closed
}
