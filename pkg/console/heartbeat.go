package console

import (
	"github.com/robotalks/robo-console/pkg/hal"
)

// DefaultPeriod is the heartbeat period in ticks (milliseconds).
const DefaultPeriod uint32 = 1000

// HeartbeatPrefix starts every heartbeat line, followed by the digit.
const HeartbeatPrefix = "[HB] alive #"

// Heartbeat emits a liveness line at a fixed period.
type Heartbeat struct {
	// OnBeat, if set, is called after each emitted line with the digit
	// that was printed and the tick it was printed at.
	OnBeat func(seq uint8, now uint32)

	out    hal.Transport
	period uint32
	last   uint32
	seq    uint8
}

// NewHeartbeat creates a Heartbeat whose first period starts at start.
// A zero period falls back to DefaultPeriod.
func NewHeartbeat(out hal.Transport, period, start uint32) *Heartbeat {
	if period == 0 {
		period = DefaultPeriod
	}
	return &Heartbeat{out: out, period: period, last: start}
}

// Seq returns the digit the next heartbeat will carry.
func (h *Heartbeat) Seq() uint8 {
	return h.seq
}

// LastEmit returns the tick of the latest heartbeat (or the start tick).
func (h *Heartbeat) LastEmit() uint32 {
	return h.last
}

// Poll emits at most one heartbeat if a full period has elapsed since the
// last one. Elapsed time uses unsigned subtraction so counter wraparound is
// harmless; missed periods are not caught up.
func (h *Heartbeat) Poll(now uint32) bool {
	if now-h.last < h.period {
		return false
	}
	seq := h.seq
	hal.WriteString(h.out, HeartbeatPrefix)
	h.out.Send('0' + seq)
	hal.WriteString(h.out, newline)
	h.seq = (h.seq + 1) % 10
	h.last = now
	if fn := h.OnBeat; fn != nil {
		fn(seq, now)
	}
	return true
}

// IsHeartbeat reports whether a response line is a heartbeat line,
// ignoring a trailing CR LF.
func IsHeartbeat(line string) bool {
	if len(line) >= 2 && line[len(line)-2:] == newline {
		line = line[:len(line)-2]
	}
	return len(line) == len(HeartbeatPrefix)+1 &&
		line[:len(HeartbeatPrefix)] == HeartbeatPrefix &&
		line[len(HeartbeatPrefix)] >= '0' && line[len(HeartbeatPrefix)] <= '9'
}
