package link

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// wsSession is a websocket connection carrying raw bytes in binary frames.
// The serving handler stays alive until the session is closed.
type wsSession struct {
	*websocket.Conn
	once sync.Once
	done chan struct{}
}

func (s *wsSession) Close() error {
	var err error
	s.once.Do(func() {
		err = s.Conn.Close()
		close(s.done)
	})
	return err
}

type wsListener struct {
	ln      net.Listener
	srv     *http.Server
	path    string
	connCh  chan *wsSession
	closeCh chan struct{}
	once    sync.Once
}

func listenWebsocket(u *url.URL) (Listener, error) {
	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, err
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	l := &wsListener{
		ln:      ln,
		path:    path,
		connCh:  make(chan *wsSession),
		closeCh: make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.Handle(path, websocket.Handler(l.serve))
	l.srv = &http.Server{Handler: mux}
	go func() {
		if err := l.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			glog.Errorf("websocket server error: %v", err)
		}
	}()
	return l, nil
}

func (l *wsListener) serve(conn *websocket.Conn) {
	conn.PayloadType = websocket.BinaryFrame
	s := &wsSession{Conn: conn, done: make(chan struct{})}
	select {
	case l.connCh <- s:
	case <-l.closeCh:
		return
	}
	select {
	case <-s.done:
	case <-l.closeCh:
		s.Close()
	}
}

func (l *wsListener) Accept(ctx context.Context) (io.ReadWriteCloser, error) {
	select {
	case s := <-l.connCh:
		return s, nil
	case <-l.closeCh:
		return nil, ErrListenerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *wsListener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.closeCh)
		err = l.srv.Close()
	})
	return err
}

func (l *wsListener) Addr() string {
	return "ws://" + l.ln.Addr().String() + l.path
}

func dialWebsocket(ctx context.Context, u *url.URL, opts Options) (io.ReadWriteCloser, error) {
	conf, err := websocket.NewConfig(u.String(), "http://"+u.Host)
	if err != nil {
		return nil, err
	}
	conf.Dialer = &net.Dialer{Timeout: opts.Timeout}
	conn, err := conf.DialContext(ctx)
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return conn, nil
}
