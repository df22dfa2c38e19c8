package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrTaskDisabled is returned from any wait point once the running task
// has been stopped. It always propagates and is never swallowed.
var ErrTaskDisabled = errors.New("task disabled")

// RunnerStatus represents the current state of the runner
type RunnerStatus int

const (
	StatusStopped RunnerStatus = iota
	StatusRunning
)

// Job is the body of a task. It must return promptly once ctx is done.
type Job func(ctx context.Context) error

// Runner owns the lifecycle of one task goroutine
type Runner struct {
	// Callbacks for UI updates
	LogFunc    func(string) // For persistent logs (History)
	StatusFunc func(string) // For transient status (Label)

	mu      sync.Mutex
	status  RunnerStatus
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewRunner creates a stopped runner
func NewRunner(logFunc func(string), statusFunc func(string)) *Runner {
	if logFunc == nil {
		logFunc = func(string) {}
	}
	if statusFunc == nil {
		statusFunc = func(string) {}
	}
	return &Runner{
		status:     StatusStopped,
		LogFunc:    logFunc,
		StatusFunc: statusFunc,
	}
}

// Status returns the current runner status
func (r *Runner) Status() RunnerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Start runs job on its own goroutine. It returns false if a job is
// already running.
func (r *Runner) Start(parent context.Context, name string, job Job) bool {
	r.mu.Lock()
	if r.status == StatusRunning {
		r.mu.Unlock()
		return false
	}

	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.status = StatusRunning
	r.lastErr = nil
	r.wg.Add(1)
	r.mu.Unlock()

	r.LogFunc(fmt.Sprintf("%s started.", name))
	r.StatusFunc("Status: Running")

	go func() {
		defer r.wg.Done()
		err := job(ctx)
		cancel()

		r.mu.Lock()
		r.status = StatusStopped
		r.lastErr = err
		r.mu.Unlock()

		switch {
		case err == nil:
			r.LogFunc(fmt.Sprintf("%s finished.", name))
		case errors.Is(err, ErrTaskDisabled):
			r.LogFunc(fmt.Sprintf("%s stopped.", name))
		default:
			r.LogFunc(fmt.Sprintf("%s failed: %v", name, err))
		}
		r.StatusFunc("Status: Stopped")
	}()
	return true
}

// Stop signals the running job to end and waits for it
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// Wait blocks until the current job returns and reports its error
func (r *Runner) Wait() error {
	r.wg.Wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Disabled reports ErrTaskDisabled once ctx is done
func Disabled(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrTaskDisabled, context.Cause(ctx))
	}
	return nil
}
