package link

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/goburrow/serial"
	"github.com/golang/glog"
)

func serialAddress(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	return u.Path
}

func openSerial(u *url.URL, opts Options) (io.ReadWriteCloser, error) {
	addr := serialAddress(u)
	if addr == "" {
		return nil, fmt.Errorf("serial device path required")
	}
	port, err := serial.Open(&serial.Config{
		Address:  addr,
		BaudRate: opts.Baud,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  opts.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return &serialPort{Port: port}, nil
}

// serialPort hides read timeouts so an idle line does not end a session.
type serialPort struct {
	serial.Port
}

func (p *serialPort) Read(b []byte) (int, error) {
	for {
		n, err := p.Port.Read(b)
		if err == serial.ErrTimeout {
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

type serialListener struct {
	url    *url.URL
	opts   Options
	lock   sync.Mutex
	opened bool
	closed bool
}

func listenSerial(u *url.URL, opts Options) (Listener, error) {
	if serialAddress(u) == "" {
		return nil, fmt.Errorf("serial device path required")
	}
	return &serialListener{url: u, opts: opts}, nil
}

// Accept opens the port. After the first session, each reopen waits
// RetryDelay first, and failed opens are retried until ctx is done.
func (l *serialListener) Accept(ctx context.Context) (io.ReadWriteCloser, error) {
	l.lock.Lock()
	reopen := l.opened
	closed := l.closed
	l.lock.Unlock()
	if closed {
		return nil, ErrListenerClosed
	}
	if reopen {
		if err := sleepCtx(ctx, l.opts.RetryDelay); err != nil {
			return nil, err
		}
	}
	for {
		port, err := openSerial(l.url, l.opts)
		if err == nil {
			l.lock.Lock()
			l.opened = true
			l.lock.Unlock()
			return port, nil
		}
		glog.Warningf("open serial %s error: %v", serialAddress(l.url), err)
		if err = sleepCtx(ctx, l.opts.RetryDelay); err != nil {
			return nil, err
		}
	}
}

func (l *serialListener) Close() error {
	l.lock.Lock()
	l.closed = true
	l.lock.Unlock()
	return nil
}

func (l *serialListener) Addr() string {
	return "serial:" + serialAddress(l.url)
}
