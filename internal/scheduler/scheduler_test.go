package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erfi/goload/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunEmptyStagesCompletesImmediately(t *testing.T) {
	var calls atomic.Int64
	s := New(Options{GracePeriod: time.Second}, func(context.Context) {
		calls.Add(1)
	})

	start := time.Now()
	res := s.Run(context.Background())

	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Zero(t, calls.Load())
	assert.Zero(t, res.Spawned)
	assert.False(t, res.Interrupted)
}

func TestRunRampsAndRetiresAllWorkers(t *testing.T) {
	var calls atomic.Int64
	s := New(Options{
		Stages: []config.Stage{
			{DurationSeconds: 0.2, TargetConcurrency: 4},
			{DurationSeconds: 0.2, TargetConcurrency: 0},
		},
		Tick:        5 * time.Millisecond,
		GracePeriod: time.Second,
		Sleep:       5 * time.Millisecond,
	}, func(context.Context) {
		calls.Add(1)
		time.Sleep(2 * time.Millisecond)
	})

	res := s.Run(context.Background())

	assert.Positive(t, calls.Load())
	assert.LessOrEqual(t, res.Peak, int64(4))
	assert.GreaterOrEqual(t, res.Peak, int64(3))
	assert.Zero(t, res.Abandoned)
	assert.Zero(t, s.Running())
	assert.Zero(t, s.Active())
	assert.Zero(t, s.Desired())
}

func TestRetirementNeverCancelsInFlightIteration(t *testing.T) {
	var completed, cancelled atomic.Int64

	s := New(Options{
		Stages: []config.Stage{
			{DurationSeconds: 0.02, TargetConcurrency: 1},
			{DurationSeconds: 0.03, TargetConcurrency: 1},
		},
		Tick:        5 * time.Millisecond,
		GracePeriod: 2 * time.Second,
	}, func(ctx context.Context) {
		select {
		case <-time.After(200 * time.Millisecond):
			completed.Add(1)
		case <-ctx.Done():
			cancelled.Add(1)
		}
	})

	res := s.Run(context.Background())

	assert.Equal(t, int64(1), completed.Load())
	assert.Zero(t, cancelled.Load())
	assert.Zero(t, res.Abandoned)
	assert.GreaterOrEqual(t, res.Elapsed, 200*time.Millisecond)
}

func TestRetirementCutsSleepShort(t *testing.T) {
	var calls atomic.Int64
	s := New(Options{
		Stages: []config.Stage{
			{DurationSeconds: 0.02, TargetConcurrency: 2},
			{DurationSeconds: 0.05, TargetConcurrency: 2},
		},
		Tick:        5 * time.Millisecond,
		GracePeriod: 5 * time.Second,
		Sleep:       time.Hour,
	}, func(context.Context) {
		calls.Add(1)
	})

	start := time.Now()
	s.Run(context.Background())

	assert.Less(t, time.Since(start), time.Second)
	assert.Positive(t, calls.Load())
}

func TestGraceExpiryAbandonsWorkers(t *testing.T) {
	var abandoned atomic.Bool
	var cancelled atomic.Int64

	s := New(Options{
		Stages: []config.Stage{
			{DurationSeconds: 0.02, TargetConcurrency: 2},
			{DurationSeconds: 0.05, TargetConcurrency: 2},
		},
		Tick:        5 * time.Millisecond,
		GracePeriod: 50 * time.Millisecond,
		OnAbandon:   func() { abandoned.Store(true) },
	}, func(ctx context.Context) {
		<-ctx.Done()
		cancelled.Add(1)
	})

	start := time.Now()
	res := s.Run(context.Background())

	assert.True(t, abandoned.Load())
	assert.Equal(t, int64(2), res.Abandoned)
	assert.Less(t, time.Since(start), time.Second)

	require.Eventually(t, func() bool { return s.Running() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(2), cancelled.Load())
}

func TestParentCancelDrainsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var inflightCancelled atomic.Int64

	s := New(Options{
		Stages: []config.Stage{
			{DurationSeconds: 0.01, TargetConcurrency: 3},
			{DurationSeconds: 60, TargetConcurrency: 3},
		},
		Tick:        5 * time.Millisecond,
		GracePeriod: time.Second,
		Sleep:       10 * time.Millisecond,
	}, func(ctx context.Context) {
		select {
		case <-time.After(20 * time.Millisecond):
		case <-ctx.Done():
			inflightCancelled.Add(1)
		}
	})

	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	res := s.Run(ctx)

	assert.True(t, res.Interrupted)
	assert.Equal(t, int64(3), res.Peak)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Zero(t, inflightCancelled.Load())
	assert.Zero(t, s.Running())
}

func TestMaxRPSCapsIterations(t *testing.T) {
	var calls atomic.Int64
	s := New(Options{
		Stages:      []config.Stage{{DurationSeconds: 0.5, TargetConcurrency: 5}},
		Tick:        5 * time.Millisecond,
		GracePeriod: time.Second,
		MaxRPS:      20,
	}, func(context.Context) {
		calls.Add(1)
	})

	s.Run(context.Background())

	// 0.5s at 20 rps plus the initial burst token
	assert.LessOrEqual(t, calls.Load(), int64(14))
	assert.Positive(t, calls.Load())
}
