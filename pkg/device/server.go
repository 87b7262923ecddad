// Package device hosts the console on a link, one session at a time.
package device

import (
	"context"
	"errors"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/robo-console/pkg/console"
	fx "github.com/robotalks/robo-console/pkg/framework"
	"github.com/robotalks/robo-console/pkg/hal"
	"github.com/robotalks/robo-console/pkg/hal/stream"
	"github.com/robotalks/robo-console/pkg/link"
)

// Server accepts sessions from Listener and runs a freshly booted console
// on each. The Output and Ticks are shared by all sessions.
type Server struct {
	Listener link.Listener
	Output   hal.Output
	Ticks    hal.Ticks
	Options  console.Options

	// OnSession is called with each new console before it boots.
	OnSession func(*console.Console)
}

// Run implements framework.Runnable. It returns nil when ctx is done or the
// listener has no more sessions.
func (s *Server) Run(ctx context.Context) error {
	for {
		rwc, err := s.Listener.Accept(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case err == io.EOF:
			glog.Infof("%s: no more sessions", s.addr())
			return nil
		case err != nil:
			return err
		}
		glog.Infof("%s: session opened", s.addr())
		err = s.Serve(ctx, rwc)
		glog.Infof("%s: session closed: %v", s.addr(), err)
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Serve boots a console on rwc and runs it until the session ends or ctx
// is done. rwc is closed on return. A peer hanging up is not an error.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	defer rwc.Close()
	t := stream.New(rwc)
	c := console.New(t, s.Output, s.Ticks, s.Options)
	if fn := s.OnSession; fn != nil {
		fn(c)
	}
	c.Boot()

	runner := fx.NewRunnerWith(ctx)
	runner.Go(
		fx.NamedRun("pump", t),
		fx.NamedRun("console", fx.RunFunc(func(ctx context.Context) error {
			// the pump only stops with the console, so queued input is
			// handled after the peer hangs up
			defer runner.Cancel()
			return c.Run(ctx)
		})),
	)
	err := runner.Wait()
	if n := t.Overruns(); n > 0 {
		glog.Warningf("%s: %d received bytes overrun", s.addr(), n)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, stream.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) addr() string {
	if s.Listener == nil {
		return "session"
	}
	return s.Listener.Addr()
}
