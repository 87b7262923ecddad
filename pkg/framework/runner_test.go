package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitFor(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRunnerAggregatesErrors(t *testing.T) {
	errA, errB := errors.New("a"), errors.New("b")
	r := NewRunner().Go(
		RunFunc(func(context.Context) error { return errA }),
		RunFunc(func(context.Context) error { return nil }),
		RunFunc(func(context.Context) error { return errB }),
	)
	err := r.Wait()
	require.Error(t, err)
	require.True(t, errors.Is(err, errA))
	require.True(t, errors.Is(err, errB))
}

func TestRunnerStopOnFirstExit(t *testing.T) {
	done := errors.New("session ended")
	r := NewRunner().StopOnFirst().Go(
		NamedRun("pump", RunFunc(func(context.Context) error { return done })),
		NamedRun("loop", RunFunc(waitFor)),
	)
	errCh := make(chan error, 1)
	go func() { errCh <- r.Wait() }()
	select {
	case err := <-errCh:
		require.True(t, errors.Is(err, done))
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunnerCancel(t *testing.T) {
	r := NewRunner().Go(RunFunc(waitFor), RunFunc(waitFor))
	r.Cancel()
	require.NoError(t, r.Wait())
}

func TestNamedRun(t *testing.T) {
	named := NamedRun("x", RunFunc(waitFor)).(Named)
	require.Equal(t, "x", named.Name())
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Aggregate())
	errs.Add(nil, errors.New("one"))
	require.EqualError(t, errs.Aggregate(), "one")
	errs.Add(errors.New("two"))
	require.EqualError(t, errs.Aggregate(), "2 errors: one; two")
}

func TestRunWithContextCancel(t *testing.T) {
	unblock := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RunWithContextCancel(ctx, func() { close(unblock) }, func() error {
		<-unblock
		return errors.New("unblocked")
	})
	require.Equal(t, context.Canceled, err)

	fail := errors.New("fail")
	err = RunWithContextCancel(context.Background(), func() {
		t.Fatal("unexpected cancel")
	}, func() error { return fail })
	require.Equal(t, fail, err)
}
