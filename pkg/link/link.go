// Package link opens the byte link between a console and its operator.
//
// A link is addressed by URL:
//
//	stdio:                          standard input/output (device side only)
//	serial:/dev/ttyUSB0?baud=9600   serial port, 8N1
//	tcp://127.0.0.1:7023            TCP, listen on device side, dial on operator side
//	ws://127.0.0.1:7080/console     websocket, served on device side
package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"
)

// Options configures link endpoints.
type Options struct {
	// Baud is the serial baud rate, overridden by the URL query "baud".
	Baud int
	// Timeout bounds serial reads and dials.
	Timeout time.Duration
	// RetryDelay is the pause before reopening a serial port.
	RetryDelay time.Duration
}

// Defaults for Options.
const (
	DefaultBaud       = 9600
	DefaultTimeout    = 5 * time.Second
	DefaultRetryDelay = time.Second
)

var (
	// ErrUnsupportedScheme indicates the URL scheme is unknown.
	ErrUnsupportedScheme = errors.New("unsupported link scheme")
	// ErrListenerClosed indicates Accept was called after Close.
	ErrListenerClosed = errors.New("listener closed")
)

// Listener hands out operator sessions one after another.
type Listener interface {
	io.Closer
	// Accept waits for the next session.
	Accept(ctx context.Context) (io.ReadWriteCloser, error)
	// Addr describes where the listener is reachable.
	Addr() string
}

func (o Options) withDefaults() Options {
	if o.Baud <= 0 {
		o.Baud = DefaultBaud
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	return o
}

func parse(rawURL string, opts Options) (*url.URL, Options, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, opts, fmt.Errorf("invalid link URL: %v", err)
	}
	opts = opts.withDefaults()
	if val := u.Query().Get("baud"); val != "" {
		baud, err := strconv.Atoi(val)
		if err != nil || baud <= 0 {
			return nil, opts, fmt.Errorf("invalid baud %q", val)
		}
		opts.Baud = baud
	}
	return u, opts, nil
}

// Listen creates the device side of a link.
func Listen(rawURL string, opts Options) (Listener, error) {
	u, opts, err := parse(rawURL, opts)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "stdio":
		return NewStdio(), nil
	case "serial":
		return listenSerial(u, opts)
	case "tcp":
		return listenTCP(u)
	case "ws":
		return listenWebsocket(u)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// Dial creates the operator side of a link.
func Dial(ctx context.Context, rawURL string, opts Options) (io.ReadWriteCloser, error) {
	u, opts, err := parse(rawURL, opts)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "serial":
		return openSerial(u, opts)
	case "tcp":
		return dialTCP(ctx, u, opts)
	case "ws":
		return dialWebsocket(ctx, u, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// sleepCtx waits d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
