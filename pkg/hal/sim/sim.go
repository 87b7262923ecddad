// Package sim provides in-memory hardware for tests and host emulation.
package sim

import "sync"

// Transport is an in-memory byte link.
// Injected bytes are received one at a time; sent bytes are captured.
type Transport struct {
	lock sync.Mutex
	in   []byte
	out  []byte
}

// NewTransport creates an empty Transport.
func NewTransport() *Transport {
	return &Transport{}
}

// Inject queues bytes as if typed by the operator.
func (t *Transport) Inject(p []byte) {
	t.lock.Lock()
	t.in = append(t.in, p...)
	t.lock.Unlock()
}

// InjectString is the string form of Inject.
func (t *Transport) InjectString(s string) {
	t.Inject([]byte(s))
}

// Pending returns the number of injected bytes not yet received.
func (t *Transport) Pending() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.in)
}

// Send implements hal.Transport.
func (t *Transport) Send(b byte) {
	t.lock.Lock()
	t.out = append(t.out, b)
	t.lock.Unlock()
}

// TryReceive implements hal.Transport.
func (t *Transport) TryReceive() (byte, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if len(t.in) == 0 {
		return 0, false
	}
	b := t.in[0]
	t.in = t.in[1:]
	return b, true
}

// Sent returns a copy of everything sent so far.
func (t *Transport) Sent() []byte {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]byte(nil), t.out...)
}

// Take returns everything sent so far as a string and clears the capture.
func (t *Transport) Take() string {
	t.lock.Lock()
	defer t.lock.Unlock()
	s := string(t.out)
	t.out = nil
	return s
}

// Pin is an in-memory digital output.
type Pin struct {
	// OnChange is called after the level actually changes.
	OnChange func(high bool)

	lock    sync.Mutex
	high    bool
	changes int
}

// NewPin creates a Pin driven low.
func NewPin() *Pin {
	return &Pin{}
}

// Set implements hal.Output.
func (p *Pin) Set(high bool) {
	p.lock.Lock()
	changed := p.high != high
	p.high = high
	if changed {
		p.changes++
	}
	fn := p.OnChange
	p.lock.Unlock()
	if changed && fn != nil {
		fn(high)
	}
}

// Get implements hal.Output.
func (p *Pin) Get() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.high
}

// Changes returns how many times the level changed.
func (p *Pin) Changes() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.changes
}

// Clock is a manually driven tick counter.
type Clock struct {
	lock sync.Mutex
	now  uint32
}

// NewClock creates a Clock at the given tick.
func NewClock(start uint32) *Clock {
	return &Clock{now: start}
}

// Millis implements hal.Ticks.
func (c *Clock) Millis() uint32 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

// Set moves the clock to an absolute tick.
func (c *Clock) Set(now uint32) {
	c.lock.Lock()
	c.now = now
	c.lock.Unlock()
}

// Advance moves the clock forward, wrapping at 2^32.
func (c *Clock) Advance(ms uint32) uint32 {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now += ms
	return c.now
}
