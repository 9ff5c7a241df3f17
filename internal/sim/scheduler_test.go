package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) task(name, owner string, stage int, period time.Duration) Task {
	return Task{
		Name: name, Owner: owner, Stage: stage, Period: period,
		Run: func(_ context.Context, now time.Duration) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.calls = append(r.calls, fmt.Sprintf("%d:%s/%s", now.Milliseconds(), owner, name))
			return nil
		},
	}
}

func TestSchedulerReleasesByTimeThenStage(t *testing.T) {
	s := NewScheduler(0, zerolog.Nop())
	rec := &recorder{}
	require.NoError(t, s.Schedule(rec.task("ensemble", "all", StageEnsemble, 300*time.Millisecond)))
	require.NoError(t, s.Schedule(rec.task("sense", "r1", StageAgents, 100*time.Millisecond)))
	require.NoError(t, s.Schedule(rec.task("detect", "r1", StageAgents, 200*time.Millisecond)))
	require.NoError(t, s.Schedule(rec.task("step", "world", StagePhysics, 300*time.Millisecond)))

	require.NoError(t, s.Run(context.Background(), 300*time.Millisecond))

	assert.Equal(t, []string{
		"0:world/step", "0:r1/sense", "0:r1/detect", "0:all/ensemble",
		"100:r1/sense",
		"200:r1/sense", "200:r1/detect",
		"300:world/step", "300:r1/sense", "300:all/ensemble",
	}, rec.calls)
	assert.Equal(t, 300*time.Millisecond, s.Now())
}

func TestSchedulerOffset(t *testing.T) {
	s := NewScheduler(0, zerolog.Nop())
	rec := &recorder{}
	task := rec.task("late", "r1", StageAgents, time.Second)
	task.Offset = 500 * time.Millisecond
	require.NoError(t, s.Schedule(task))

	require.NoError(t, s.Run(context.Background(), 2*time.Second))
	assert.Equal(t, []string{"500:r1/late", "1500:r1/late"}, rec.calls)
}

func TestSchedulerRunsOwnersConcurrently(t *testing.T) {
	s := NewScheduler(0, zerolog.Nop())

	// both owners have to be inside Run at the same time to get past the barrier
	var barrier sync.WaitGroup
	barrier.Add(2)
	for _, owner := range []string{"r1", "r2"} {
		require.NoError(t, s.Schedule(Task{
			Name: "meet", Owner: owner, Stage: StageAgents, Period: time.Second,
			Run: func(ctx context.Context, _ time.Duration) error {
				barrier.Done()
				barrier.Wait()
				return nil
			},
		}))
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), 0) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("owners did not run concurrently")
	}
}

func TestSchedulerSerializesOneOwner(t *testing.T) {
	s := NewScheduler(0, zerolog.Nop())
	var running, overlaps atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Schedule(Task{
			Name: fmt.Sprintf("p%d", i), Owner: "r1", Stage: StageAgents, Period: 100 * time.Millisecond,
			Run: func(context.Context, time.Duration) error {
				if running.Add(1) > 1 {
					overlaps.Add(1)
				}
				time.Sleep(time.Millisecond)
				running.Add(-1)
				return nil
			},
		}))
	}
	require.NoError(t, s.Run(context.Background(), time.Second))
	assert.Zero(t, overlaps.Load())
}

func TestSchedulerStopsOnError(t *testing.T) {
	s := NewScheduler(0, zerolog.Nop())
	boom := errors.New("boom")
	require.NoError(t, s.Schedule(Task{
		Name: "fail", Owner: "r1", Stage: StageAgents, Period: time.Second,
		Run: func(_ context.Context, now time.Duration) error {
			if now == 2*time.Second {
				return boom
			}
			return nil
		},
	}))

	err := s.Run(context.Background(), time.Minute)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "r1/fail")
	assert.Equal(t, 2*time.Second, s.Now())
}

func TestSchedulerErrStop(t *testing.T) {
	s := NewScheduler(0, zerolog.Nop())
	require.NoError(t, s.Schedule(Task{
		Name: "done", Owner: "monitor", Stage: StageMonitor, Period: time.Second,
		Run: func(_ context.Context, now time.Duration) error {
			if now >= 3*time.Second {
				return ErrStop
			}
			return nil
		},
	}))

	require.NoError(t, s.Run(context.Background(), time.Minute))
	assert.Equal(t, 3*time.Second, s.Now())
}

func TestSchedulerRejectsBadTasks(t *testing.T) {
	s := NewScheduler(0, zerolog.Nop())
	assert.Error(t, s.Schedule(Task{Name: "x", Period: 0, Run: func(context.Context, time.Duration) error { return nil }}))
	assert.Error(t, s.Schedule(Task{Name: "x", Period: time.Second}))
}

func TestSchedulerPaceHonoursContext(t *testing.T) {
	s := NewScheduler(1, zerolog.Nop())
	rec := &recorder{}
	require.NoError(t, s.Schedule(rec.task("tick", "r1", StageAgents, time.Hour)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.Run(ctx, 2*time.Hour)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"0:r1/tick"}, rec.calls)
}
