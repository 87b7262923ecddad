package link

import (
	"context"
	"io"
	"os"
	"sync"
)

// Stdio is a Listener yielding one session over standard input and output.
type Stdio struct {
	In  io.Reader
	Out io.Writer

	lock     sync.Mutex
	accepted bool
}

// NewStdio creates a Stdio on os.Stdin and os.Stdout.
func NewStdio() *Stdio {
	return &Stdio{In: os.Stdin, Out: os.Stdout}
}

// Accept implements Listener. Only the first call yields a session.
func (s *Stdio) Accept(ctx context.Context) (io.ReadWriteCloser, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.accepted {
		return nil, io.EOF
	}
	s.accepted = true
	return &stdioSession{Reader: s.In, Writer: s.Out}, nil
}

// Close implements io.Closer.
func (s *Stdio) Close() error {
	return nil
}

// Addr implements Listener.
func (s *Stdio) Addr() string {
	return "stdio:"
}

type stdioSession struct {
	io.Reader
	io.Writer
}

// Close leaves the process streams open.
func (s *stdioSession) Close() error {
	return nil
}
