package link

import (
	"context"
	"io"
	"net"
	"net/url"

	fx "github.com/robotalks/robo-console/pkg/framework"
)

type tcpListener struct {
	ln net.Listener
}

func listenTCP(u *url.URL) (Listener, error) {
	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, err
	}
	return &tcpListener{ln: ln}, nil
}

func (l *tcpListener) Accept(ctx context.Context) (io.ReadWriteCloser, error) {
	var conn net.Conn
	err := fx.RunWithContextCancel(ctx, func() { l.ln.Close() }, func() (err error) {
		conn, err = l.ln.Accept()
		return
	})
	if err == context.Canceled && conn != nil {
		// accepted while the listener was being closed
		conn.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (l *tcpListener) Close() error {
	return l.ln.Close()
}

func (l *tcpListener) Addr() string {
	return "tcp://" + l.ln.Addr().String()
}

func dialTCP(ctx context.Context, u *url.URL, opts Options) (io.ReadWriteCloser, error) {
	d := net.Dialer{Timeout: opts.Timeout}
	return d.DialContext(ctx, "tcp", u.Host)
}
