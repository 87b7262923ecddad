package framework

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
)

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun attaches a name used in logs.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{Runnable: runnable, name: name}
}

// ErrForcedExit is returned by Wait when a second stop signal arrives.
var ErrForcedExit = errors.New("forced exit")

// Runner runs Runnables in goroutines sharing one context.
type Runner struct {
	Context context.Context
	Runners []Runnable

	// StopOnFirstExit cancels the remaining Runnables as soon as one returns.
	StopOnFirstExit bool

	cancel func()
	errCh  chan error
	exitCh chan struct{}
}

// NewRunner creates a Runner on a background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a Runner whose context is derived from ctx.
func NewRunnerWith(ctx context.Context) *Runner {
	r := &Runner{
		errCh:  make(chan error, 16),
		exitCh: make(chan struct{}),
	}
	r.Context, r.cancel = context.WithCancel(ctx)
	return r
}

// StopOnFirst sets StopOnFirstExit.
func (r *Runner) StopOnFirst() *Runner {
	r.StopOnFirstExit = true
	return r
}

// HandleSignals cancels the context on SIGINT or SIGTERM. A second signal
// makes Wait return without waiting.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		glog.Infof("%v: stopping", sig)
		r.cancel()
		sig = <-sigCh
		glog.Errorf("%v: forced exit", sig)
		close(r.exitCh)
	}()
	return r
}

// Cancel cancels the shared context.
func (r *Runner) Cancel() {
	r.cancel()
}

// Go starts each Runnable in its own goroutine.
func (r *Runner) Go(runners ...Runnable) *Runner {
	for _, runner := range runners {
		name := fmt.Sprintf("#%d", len(r.Runners))
		if named, ok := runner.(Named); ok {
			name = named.Name()
		}
		r.Runners = append(r.Runners, runner)
		go r.run(name, runner)
	}
	return r
}

func (r *Runner) run(name string, runner Runnable) {
	glog.V(4).Infof("%s: started", name)
	err := runner.Run(r.Context)
	glog.V(4).Infof("%s: stopped: %v", name, err)
	if r.StopOnFirstExit {
		r.cancel()
	}
	r.errCh <- err
}

// Wait blocks until every Runnable has returned and aggregates their
// errors, ignoring context.Canceled.
func (r *Runner) Wait() error {
	defer r.cancel()
	var errs AggregatedError
	for n := len(r.Runners); n > 0; n-- {
		select {
		case err := <-r.errCh:
			if !errors.Is(err, context.Canceled) {
				errs.Add(err)
			}
		case <-r.exitCh:
			return ErrForcedExit
		}
	}
	return errs.Aggregate()
}

// RunWithContextCancel runs fn, which does not take a context. When ctx
// is done first, onCancel must make fn return; context.Canceled is
// returned after fn has returned.
func RunWithContextCancel(ctx context.Context, onCancel func(), fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		onCancel()
		<-done
		return context.Canceled
	}
}
