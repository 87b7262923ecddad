package sh

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/robo-console/pkg/console"
)

// ErrNoPrompt is returned when the device does not show its prompt in time.
var ErrNoPrompt = errors.New("no prompt from device")

type event struct {
	line   string
	prompt bool
}

// Client talks to a device console line by line.
type Client struct {
	Conn   io.ReadWriter
	Prompt string
	// OnHeartbeat receives heartbeat lines, which are never part of a
	// response. It is called from the reading goroutine.
	OnHeartbeat func(line string)

	once    sync.Once
	events  chan event
	readErr error
}

// NewClient creates a Client on conn.
func NewClient(conn io.ReadWriter) *Client {
	return &Client{Conn: conn, Prompt: console.DefaultPrompt}
}

func (c *Client) start() {
	c.once.Do(func() {
		c.events = make(chan event, 64)
		go c.readLoop()
	})
}

func (c *Client) readLoop() {
	var pending []byte
	buf := make([]byte, 256)
	for {
		n, err := c.Conn.Read(buf)
		for _, b := range buf[:n] {
			if b != '\n' {
				pending = append(pending, b)
				if string(pending) == c.Prompt {
					pending = pending[:0]
					c.events <- event{prompt: true}
				}
				continue
			}
			line := strings.TrimSuffix(string(pending), "\r")
			pending = pending[:0]
			// a heartbeat may cut into a line being echoed
			if i := strings.Index(line, console.HeartbeatPrefix); i >= 0 && console.IsHeartbeat(line[i:]) {
				if fn := c.OnHeartbeat; fn != nil {
					fn(line[i:])
				}
				pending = append(pending, line[:i]...)
				continue
			}
			c.events <- event{line: line}
		}
		if err != nil {
			c.readErr = err
			close(c.events)
			return
		}
	}
}

func (c *Client) next(ctx context.Context) (event, error) {
	select {
	case ev, ok := <-c.events:
		if !ok {
			return ev, c.readErr
		}
		return ev, nil
	case <-ctx.Done():
		return event{}, ErrNoPrompt
	}
}

// WaitPrompt returns the lines received before the next prompt, e.g. the
// boot banner.
func (c *Client) WaitPrompt(ctx context.Context) ([]string, error) {
	c.start()
	var lines []string
	for {
		ev, err := c.next(ctx)
		if err != nil {
			return lines, err
		}
		if ev.prompt {
			return lines, nil
		}
		lines = append(lines, ev.line)
	}
}

// discard drops events left over from an earlier command, e.g. a response
// arriving after its Do timed out.
func (c *Client) discard() {
	for {
		select {
		case ev, ok := <-c.events:
			if !ok {
				return
			}
			glog.V(2).Infof("discard stale %+v", ev)
		default:
			return
		}
	}
}

// Do sends line as a command and returns the response lines without the
// echo and heartbeats.
func (c *Client) Do(ctx context.Context, line string) ([]string, error) {
	c.start()
	c.discard()
	if _, err := io.WriteString(c.Conn, line+"\r"); err != nil {
		return nil, err
	}
	// the echo ends with the first complete line, possibly truncated at the
	// line capacity; prompt text typed as part of the command is skipped
	for {
		ev, err := c.next(ctx)
		if err != nil {
			return nil, err
		}
		if !ev.prompt {
			break
		}
	}
	lines, err := c.WaitPrompt(ctx)
	if err == nil && len(lines) == 0 {
		return nil, nil
	}
	return lines, err
}

// Sync consumes the boot banner, or asks an already running device for a
// fresh prompt when the banner does not arrive within wait.
func (c *Client) Sync(ctx context.Context, wait time.Duration) error {
	probe, cancel := context.WithTimeout(ctx, wait)
	_, err := c.WaitPrompt(probe)
	cancel()
	if err != ErrNoPrompt || ctx.Err() != nil {
		return err
	}
	_, err = c.Do(ctx, "")
	return err
}
