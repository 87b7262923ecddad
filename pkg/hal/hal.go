// Package hal defines the narrow hardware capabilities the console consumes.
//
// Implementations are injected per platform: a simulated set lives in
// hal/sim, a host byte-stream transport in hal/stream.
package hal

import "time"

// Transport is the byte link to the operator.
type Transport interface {
	// Send writes one byte. It may wait for the transmitter but never
	// reports failure to the caller.
	Send(b byte)
	// TryReceive returns the next received byte if one is available.
	// It never blocks.
	TryReceive() (byte, bool)
}

// Output is a single binary-state digital output.
type Output interface {
	// Set drives the output to logic-high (true) or logic-low (false).
	Set(high bool)
	// Get reads the current level from the hardware.
	Get() bool
}

// Ticks is a free-running millisecond counter, wrapping at 2^32.
type Ticks interface {
	Millis() uint32
}

// TicksFunc is the func form of Ticks.
type TicksFunc func() uint32

// Millis implements Ticks.
func (f TicksFunc) Millis() uint32 {
	return f()
}

// FailableTransport is implemented by transports which can lose the link.
type FailableTransport interface {
	Transport
	// Err returns the first error seen on the link, if any.
	Err() error
}

// WriteString sends all bytes of s in order.
func WriteString(t Transport, s string) {
	for i := 0; i < len(s); i++ {
		t.Send(s[i])
	}
}

// SystemTicks counts milliseconds elapsed since it was created.
type SystemTicks struct {
	start time.Time
}

// NewSystemTicks creates a SystemTicks starting at zero.
func NewSystemTicks() *SystemTicks {
	return &SystemTicks{start: time.Now()}
}

// Millis implements Ticks.
func (s *SystemTicks) Millis() uint32 {
	return uint32(time.Since(s.start) / time.Millisecond)
}
