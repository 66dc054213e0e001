package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil/chapterhub/internal/logger"
)

func TestJobOutlivesRequestContext(t *testing.T) {
	g := NewGroup(time.Second, logger.Nop())
	reqCtx, cancel := context.WithCancel(context.Background())

	var ran atomic.Bool
	release := make(chan struct{})
	g.Go(reqCtx, "test", func(ctx context.Context) {
		<-release
		ran.Store(ctx.Err() == nil)
	})
	cancel()
	close(release)

	require.NoError(t, g.Wait(context.Background()))
	assert.True(t, ran.Load())
}

func TestPanicIsContained(t *testing.T) {
	g := NewGroup(time.Second, logger.Nop())
	g.Go(context.Background(), "boom", func(context.Context) { panic("boom") })
	require.NoError(t, g.Wait(context.Background()))
}

func TestWaitHonoursDeadline(t *testing.T) {
	g := NewGroup(time.Minute, logger.Nop())
	block := make(chan struct{})
	defer close(block)
	g.Go(context.Background(), "slow", func(context.Context) { <-block })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.Wait(ctx), context.DeadlineExceeded)
}
