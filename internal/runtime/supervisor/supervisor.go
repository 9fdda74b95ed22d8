// Package supervisor runs named goroutines tied to a shared context, with
// panic recovery and timeout-aware shutdown waiting.
package supervisor

import (
	"context"
	"runtime/debug"
	"sync"

	"frigatebot/pkg/logx"
)

type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    logx.Logger
	wg     sync.WaitGroup
}

func New(parent context.Context, log logx.Logger) *Supervisor {
	if parent == nil {
		parent = context.Background()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Supervisor{ctx: ctx, cancel: cancel, log: log}
}

func (s *Supervisor) Context() context.Context { return s.ctx }

// Cancel cancels the supervisor context without waiting for goroutines.
func (s *Supervisor) Cancel() { s.cancel() }

// Go starts fn in a supervised goroutine. A panic is recovered and logged
// with a stack trace; it never takes the process down.
func (s *Supervisor) Go(name string, fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("goroutine panic",
					logx.String("name", name),
					logx.Any("panic", r),
					logx.String("stack", string(debug.Stack())),
				)
			}
		}()
		s.log.Debug("goroutine started", logx.String("name", name))
		fn(s.ctx)
		s.log.Debug("goroutine stopped", logx.String("name", name))
	}()
}

// Wait blocks until every supervised goroutine has exited or ctx is done,
// whichever comes first. Returns ctx.Err() when the wait was cut short.
func (s *Supervisor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
