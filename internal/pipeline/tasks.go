package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Runner executes background tasks as tracked goroutines with an
// at-most-one guard per key. Upload processing and analysis runs go
// through it so a process shutdown can wait for in-flight work and a
// document can never be processed twice concurrently.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc

	wg       sync.WaitGroup
	mu       sync.Mutex
	inflight map[string]bool
}

// NewRunner creates a Runner whose tasks are cancelled on Shutdown.
func NewRunner() *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[string]bool),
	}
}

// Submit schedules fn on a new goroutine unless a task with the same key
// is already running. It reports whether the task was accepted.
func (r *Runner) Submit(key string, fn func(ctx context.Context)) bool {
	r.mu.Lock()
	if r.inflight[key] {
		r.mu.Unlock()
		zap.L().Debug("runner: task already in flight", zap.String("key", key))
		return false
	}
	r.inflight[key] = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer func() {
			r.mu.Lock()
			delete(r.inflight, key)
			r.mu.Unlock()
			r.wg.Done()
		}()
		fn(r.ctx)
	}()
	return true
}

// Running reports whether a task with the given key is in flight.
func (r *Runner) Running(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inflight[key]
}

// Wait blocks until all in-flight tasks complete or ctx expires, without
// cancelling them. One-shot CLI commands use it to let scheduled work run
// to completion.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels the task context and waits for in-flight tasks, up to
// the deadline on ctx.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
