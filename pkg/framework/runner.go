package framework

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/golang/glog"
)

// RunFunc is func type of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun wraps a Runnable with a name used in logs.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// Runner runs a group of Runnables and collects their errors.
// Runnables started with GoLinked stop the whole group when they return.
type Runner struct {
	Context context.Context

	cancel  context.CancelFunc
	count   int
	resultC chan error
	forceC  chan struct{}
}

// NewRunner creates a runner with a background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a runner under ctx.
func NewRunnerWith(ctx context.Context) *Runner {
	r := &Runner{
		resultC: make(chan error, 1),
		forceC:  make(chan struct{}),
	}
	r.Context, r.cancel = context.WithCancel(ctx)
	return r
}

// HandleSignals stops the group on SIGINT or SIGTERM. A second signal
// makes Wait return immediately.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		glog.Info("stop requested")
		r.Stop()
		<-sigCh
		glog.Error("stop requested again, force exit")
		close(r.forceC)
	}()
	return r
}

// Stop cancels the context of all Runnables.
func (r *Runner) Stop() {
	r.cancel()
}

// Go starts Runnables. The group keeps running when they return.
func (r *Runner) Go(runners ...Runnable) *Runner {
	for _, runner := range runners {
		r.start(runner, false)
	}
	return r
}

// GoLinked starts Runnables which stop the group when they return.
func (r *Runner) GoLinked(runners ...Runnable) *Runner {
	for _, runner := range runners {
		r.start(runner, true)
	}
	return r
}

func (r *Runner) start(runner Runnable, linked bool) {
	name := strconv.Itoa(r.count)
	if named, ok := runner.(Named); ok {
		name = named.Name()
	}
	r.count++
	glog.V(4).Infof("Runner[%s] starting", name)
	go func() {
		err := runner.Run(r.Context)
		glog.V(4).Infof("Runner[%s] stopped: %v", name, err)
		if linked {
			r.cancel()
		}
		r.resultC <- err
	}()
}

// Wait waits until all Runnables return. Cancellation is not reported as
// an error, other errors are aggregated.
func (r *Runner) Wait() error {
	defer r.cancel()
	var errs AggregatedError
	for n := 0; n < r.count; n++ {
		select {
		case <-r.forceC:
			return errors.New("forced exit")
		case err := <-r.resultC:
			if !errors.Is(err, context.Canceled) {
				errs.Add(err)
			}
		}
	}
	return errs.Aggregate()
}

// WaitOrFail waits and exits the process on error. It's for main.
func (r *Runner) WaitOrFail() {
	if err := r.Wait(); err != nil {
		log.Fatalln(err)
	}
}

// RunWithContextCancel runs fn which doesn't accept a context. When ctx is
// done first, onCancel is called to unblock fn and context.Canceled is
// returned once fn returns.
func RunWithContextCancel(ctx context.Context, onCancel func(), fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	if onCancel != nil {
		onCancel()
	}
	<-errCh
	return context.Canceled
}

// RunWithContext is RunWithContextCancel without a cancel callback.
func RunWithContext(ctx context.Context, fn func() error) error {
	return RunWithContextCancel(ctx, nil, fn)
}

// RunWithContextCloser closes closer exactly once, either to unblock fn
// when ctx is done or after fn returns.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	closed := false
	err := RunWithContextCancel(ctx, func() {
		closer.Close()
		closed = true
	}, fn)
	if !closed {
		closer.Close()
	}
	return err
}
