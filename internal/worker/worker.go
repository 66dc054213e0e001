// Package worker runs fire-and-forget jobs that outlive their request.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/nikhil/chapterhub/internal/logger"
)

// Group tracks detached jobs so shutdown can wait for them
type Group struct {
	timeout time.Duration
	log     *logger.Logger
	wg      sync.WaitGroup
}

// NewGroup creates a group whose jobs are cancelled after timeout
func NewGroup(timeout time.Duration, log *logger.Logger) *Group {
	return &Group{timeout: timeout, log: log}
}

// Go runs fn in a goroutine. fn keeps ctx values such as the request id
// but not its cancellation. Panics are logged.
func (g *Group) Go(ctx context.Context, name string, fn func(ctx context.Context)) {
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer cancel()
		defer func() {
			if p := recover(); p != nil {
				g.log.WithContext(jobCtx).Error("Background job panicked", "job", name, "panic", p)
			}
		}()
		fn(jobCtx)
	}()
}

// Wait blocks until every job has finished or ctx ends
func (g *Group) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
