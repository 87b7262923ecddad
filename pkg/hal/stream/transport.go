// Package stream adapts an io.ReadWriter into a hal.Transport.
//
// Reception follows the interrupt-driven model: a pump goroutine plays the
// receive interrupt and feeds a single-producer/single-consumer Queue, the
// console pops from it without blocking.
package stream

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/golang/glog"
)

// ErrClosed indicates the transport has been closed.
var ErrClosed = errors.New("transport closed")

// Transport implements hal.FailableTransport over an io.ReadWriter.
type Transport struct {
	ReadWriter io.ReadWriter

	queue *Queue
	wbuf  [1]byte

	errLock sync.Mutex
	err     error
}

// New creates a Transport with the default receive queue.
func New(rw io.ReadWriter) *Transport {
	return NewWithQueue(rw, NewQueue(DefaultQueueSize))
}

// NewWithQueue creates a Transport using the provided receive queue.
func NewWithQueue(rw io.ReadWriter, q *Queue) *Transport {
	return &Transport{ReadWriter: rw, queue: q}
}

// Send implements hal.Transport. Write errors are remembered and reported
// through Err; once failed, further bytes are discarded.
func (t *Transport) Send(b byte) {
	if t.Err() != nil {
		return
	}
	t.wbuf[0] = b
	if _, err := t.ReadWriter.Write(t.wbuf[:]); err != nil {
		t.fail(err)
	}
}

// TryReceive implements hal.Transport.
func (t *Transport) TryReceive() (byte, bool) {
	return t.queue.Pop()
}

// Err implements hal.FailableTransport.
func (t *Transport) Err() error {
	t.errLock.Lock()
	defer t.errLock.Unlock()
	return t.err
}

// Overruns returns the number of received bytes dropped on a full queue.
func (t *Transport) Overruns() uint64 {
	return t.queue.Overruns()
}

func (t *Transport) fail(err error) {
	t.errLock.Lock()
	if t.err == nil {
		t.err = err
	}
	t.errLock.Unlock()
}

// Run implements Runnable: it pumps received bytes into the queue until
// the reader fails or ctx is done. A reader failure is also reported by Err
// so the console loop stops with it.
func (t *Transport) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go t.readLoop(errCh)
	select {
	case <-ctx.Done():
		t.fail(ErrClosed)
		return ctx.Err()
	case err := <-errCh:
		t.fail(err)
		return err
	}
}

func (t *Transport) readLoop(errCh chan<- error) {
	buf := make([]byte, 64)
	for {
		n, err := t.ReadWriter.Read(buf)
		for _, b := range buf[:n] {
			if !t.queue.Push(b) {
				glog.V(2).Infof("receive overrun, dropped %#02x", b)
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}
