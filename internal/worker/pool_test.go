package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPoolRunsAllJobs(t *testing.T) {
	pool := NewPool(3, zap.NewNop())

	var count atomic.Int32
	jobs := make([]Job, 10)
	for i := range jobs {
		jobs[i] = func(context.Context) error {
			count.Add(1)
			return nil
		}
	}

	errs := pool.Run(context.Background(), jobs)
	require.Len(t, errs, 10)
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(10), count.Load())
}

func TestPoolIsolatesFailures(t *testing.T) {
	pool := NewPool(2, zap.NewNop())

	jobs := []Job{
		func(context.Context) error { return nil },
		func(context.Context) error { return fmt.Errorf("boom") },
		func(context.Context) error { return nil },
	}

	errs := pool.Run(context.Background(), jobs)
	assert.NoError(t, errs[0])
	assert.EqualError(t, errs[1], "boom")
	assert.NoError(t, errs[2], "a failing sibling must not stop other jobs")
}

func TestPoolHonorsCancellation(t *testing.T) {
	pool := NewPool(1, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	jobs := []Job{func(context.Context) error {
		ran.Add(1)
		return nil
	}}

	errs := pool.Run(ctx, jobs)
	assert.ErrorIs(t, errs[0], context.Canceled)
	assert.Zero(t, ran.Load())
}

func TestPoolClampsSize(t *testing.T) {
	pool := NewPool(0, zap.NewNop())

	errs := pool.Run(context.Background(), []Job{func(context.Context) error { return nil }})
	require.Len(t, errs, 1)
	assert.NoError(t, errs[0])
}
