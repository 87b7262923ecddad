package console

import "github.com/robotalks/robo-console/pkg/hal"

// LineEvent is the outcome of feeding one byte to an Accumulator.
type LineEvent int

const (
	// Consumed means the byte changed the line and was echoed.
	Consumed LineEvent = iota
	// LineReady means a terminator completed the line.
	LineReady
	// Ignored means the byte had no effect.
	Ignored
)

// String implements fmt.Stringer.
func (e LineEvent) String() string {
	switch e {
	case Consumed:
		return "Consumed"
	case LineReady:
		return "LineReady"
	case Ignored:
		return "Ignored"
	}
	return "LineEvent(?)"
}

// Control bytes understood by the Accumulator.
const (
	CR  byte = '\r'
	LF  byte = '\n'
	BS  byte = 0x08
	DEL byte = 0x7f
)

// DefaultCapacity is the line buffer capacity, including the slot
// reserved for the terminator. A line holds at most DefaultCapacity-1 bytes.
const DefaultCapacity = 32

const (
	newline = "\r\n"
	erase   = "\b \b"
)

// Accumulator assembles received bytes into a command line with local
// echo and destructive backspace.
type Accumulator struct {
	out hal.Transport
	buf []byte
	n   int
}

// NewAccumulator creates an Accumulator echoing to out.
// Capacities below 2 fall back to DefaultCapacity.
func NewAccumulator(out hal.Transport, capacity int) *Accumulator {
	if capacity < 2 {
		capacity = DefaultCapacity
	}
	return &Accumulator{out: out, buf: make([]byte, capacity)}
}

// Capacity returns the buffer capacity including the reserved slot.
func (a *Accumulator) Capacity() int {
	return len(a.buf)
}

// Len returns the number of buffered bytes.
func (a *Accumulator) Len() int {
	return a.n
}

// Pending returns a copy of the unterminated line.
func (a *Accumulator) Pending() string {
	return string(a.buf[:a.n])
}

// Feed consumes one byte. The line is only returned with LineReady, after
// which the buffer is empty again.
// CR and LF are separate terminators: CR LF yields a second, empty line.
func (a *Accumulator) Feed(b byte) (LineEvent, string) {
	switch b {
	case CR, LF:
		hal.WriteString(a.out, newline)
		line := string(a.buf[:a.n])
		a.n = 0
		return LineReady, line
	case BS, DEL:
		if a.n == 0 {
			return Ignored, ""
		}
		a.n--
		hal.WriteString(a.out, erase)
		return Consumed, ""
	}
	if a.n >= len(a.buf)-1 {
		// full: dropped without notice
		return Ignored, ""
	}
	a.buf[a.n] = b
	a.n++
	a.out.Send(b)
	return Consumed, ""
}

// Reset discards the buffered line without output.
func (a *Accumulator) Reset() {
	a.n = 0
}
