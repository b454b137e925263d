package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeperRunsTaskPeriodically(t *testing.T) {
	var runs atomic.Int64
	s := NewSweeper("test", 10*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}, nil)

	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestSweeperStopHaltsRuns(t *testing.T) {
	var runs atomic.Int64
	s := NewSweeper("test", 10*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}, nil)

	s.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestSweeperKeepsTickingAfterError(t *testing.T) {
	var runs atomic.Int64
	s := NewSweeper("test", 10*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return errors.New("transient")
	}, nil)

	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestSweeperStartIsIdempotent(t *testing.T) {
	var runs atomic.Int64
	s := NewSweeper("test", time.Hour, func(context.Context) error {
		runs.Add(1)
		return nil
	}, nil)

	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()
	assert.Zero(t, runs.Load())
}
