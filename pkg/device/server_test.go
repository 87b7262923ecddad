package device

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/robo-console/pkg/console"
	"github.com/robotalks/robo-console/pkg/hal/sim"
	"github.com/robotalks/robo-console/pkg/link"
)

const boot = "\r\n=== BOOT F103 (reg-UART1 CLI) ===\r\ntype: help\r\n> "

type syncBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) waitFor(t *testing.T, s string) {
	require.Eventually(t, func() bool {
		return strings.Contains(b.String(), s)
	}, 2*time.Second, 5*time.Millisecond, "waiting for %q in %q", s, b.String())
}

func collect(r io.Reader) *syncBuffer {
	var out syncBuffer
	go io.Copy(&out, r)
	return &out
}

func TestServeStdio(t *testing.T) {
	out := &syncBuffer{}
	pin := sim.NewPin()
	s := &Server{
		Listener: &link.Stdio{In: strings.NewReader("led on\rstatus\rbogus\r"), Out: out},
		Output:   pin,
		Ticks:    sim.NewClock(0),
	}
	require.NoError(t, s.Run(context.Background()))
	require.True(t, pin.Get())
	require.Equal(t, boot+
		"led on\r\n"+console.LEDOnText+"> "+
		"status\r\n"+console.StatusOn+"> "+
		"bogus\r\n"+console.UnknownText+"> ", out.String())
}

func TestServeSessions(t *testing.T) {
	ln, err := link.Listen("tcp://127.0.0.1:0", link.Options{})
	require.NoError(t, err)
	defer ln.Close()

	pin := sim.NewPin()
	var sessions int
	s := &Server{
		Listener:  ln,
		Output:    pin,
		Ticks:     sim.NewClock(0),
		OnSession: func(*console.Console) { sessions++ },
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	conn, err := link.Dial(ctx, ln.Addr(), link.Options{})
	require.NoError(t, err)
	out := collect(conn)
	out.waitFor(t, boot)
	_, err = conn.Write([]byte("led on\r"))
	require.NoError(t, err)
	out.waitFor(t, console.LEDOnText+"> ")
	conn.Close()

	// a new session boots again and sees the same output
	conn, err = link.Dial(ctx, ln.Addr(), link.Options{})
	require.NoError(t, err)
	defer conn.Close()
	out = collect(conn)
	out.waitFor(t, boot)
	_, err = conn.Write([]byte("status\n"))
	require.NoError(t, err)
	out.waitFor(t, console.StatusOn)
	require.True(t, pin.Get())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
	require.Equal(t, 2, sessions)
}

func TestServeHeartbeat(t *testing.T) {
	clock := sim.NewClock(0)
	var beats []uint8
	var lock sync.Mutex
	s := &Server{
		Output: sim.NewPin(),
		Ticks:  clock,
		Options: console.Options{
			Period: 100,
			OnHeartbeat: func(seq uint8, now uint32) {
				lock.Lock()
				beats = append(beats, seq)
				lock.Unlock()
			},
		},
	}
	client, session := net.Pipe()
	out := collect(client)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, session) }()

	out.waitFor(t, boot)
	clock.Advance(100)
	out.waitFor(t, "[HB] alive #0\r\n")
	clock.Advance(100)
	out.waitFor(t, "[HB] alive #1\r\n")
	cancel()
	require.NoError(t, <-done)
	lock.Lock()
	require.Equal(t, []uint8{0, 1}, beats)
	lock.Unlock()
}
