package console

import (
	"context"
	"time"

	"github.com/robotalks/robo-console/pkg/hal"
)

// Defaults for Options.
const (
	DefaultPrompt = "> "
	DefaultBanner = "=== BOOT F103 (reg-UART1 CLI) ==="
	hintText      = "type: help\r\n"
)

// Options tunes a Console. Zero values select the reference behavior.
type Options struct {
	// Capacity of the line buffer including the reserved slot.
	Capacity int
	// Period between heartbeats in ticks.
	Period uint32
	// Prompt printed after boot and after every line.
	Prompt string
	// Banner printed by Boot.
	Banner string
	// Idle is slept after a poll found no byte. Zero keeps a pure busy loop.
	Idle time.Duration
	// OnHeartbeat is forwarded to Heartbeat.OnBeat.
	OnHeartbeat func(seq uint8, now uint32)
}

// Console owns the line buffer, dispatcher and heartbeat for one link.
type Console struct {
	Transport hal.Transport
	Output    hal.Output
	Ticks     hal.Ticks

	prompt     string
	banner     string
	idle       time.Duration
	line       *Accumulator
	dispatcher *Dispatcher
	heartbeat  *Heartbeat
}

// New creates a Console. The heartbeat period starts at the current tick.
func New(t hal.Transport, out hal.Output, ticks hal.Ticks, opts Options) *Console {
	c := &Console{
		Transport: t,
		Output:    out,
		Ticks:     ticks,
		prompt:    opts.Prompt,
		banner:    opts.Banner,
		idle:      opts.Idle,
	}
	if c.prompt == "" {
		c.prompt = DefaultPrompt
	}
	if c.banner == "" {
		c.banner = DefaultBanner
	}
	c.line = NewAccumulator(t, opts.Capacity)
	c.dispatcher = NewDispatcher(t, out)
	c.heartbeat = NewHeartbeat(t, opts.Period, ticks.Millis())
	c.heartbeat.OnBeat = opts.OnHeartbeat
	return c
}

// Line returns the line accumulator.
func (c *Console) Line() *Accumulator {
	return c.line
}

// Heartbeat returns the heartbeat emitter.
func (c *Console) Heartbeat() *Heartbeat {
	return c.heartbeat
}

// Boot prints the banner, the help hint and the first prompt.
func (c *Console) Boot() {
	hal.WriteString(c.Transport, newline+c.banner+newline)
	hal.WriteString(c.Transport, hintText)
	hal.WriteString(c.Transport, c.prompt)
}

// Step runs one loop iteration: poll the heartbeat, then handle at most
// one received byte. It returns false if no byte was available.
func (c *Console) Step() bool {
	c.heartbeat.Poll(c.Ticks.Millis())
	b, ok := c.Transport.TryReceive()
	if !ok {
		return false
	}
	if ev, line := c.line.Feed(b); ev == LineReady {
		c.dispatcher.Dispatch(line)
		hal.WriteString(c.Transport, c.prompt)
	}
	return true
}

// Run steps forever. It only returns when ctx is done or the transport
// reports a link error.
func (c *Console) Run(ctx context.Context) error {
	failable, _ := c.Transport.(hal.FailableTransport)
	done := ctx.Done()
	for {
		select {
		case <-done:
			return ctx.Err()
		default:
		}
		if c.Step() {
			continue
		}
		// queued input is drained before a link error ends the loop
		if failable != nil {
			if err := failable.Err(); err != nil {
				return err
			}
		}
		if c.idle > 0 {
			time.Sleep(c.idle)
		}
	}
}
