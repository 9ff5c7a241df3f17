// Package sim runs the fleet in virtual time. Periodic processes are kept
// in a timer queue; everything due at the same instant runs stage by
// stage, with different owners of a stage running concurrently.
package sim

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrStop ends a run early without failing it.
var ErrStop = errors.New("stop simulation")

// Stages run in this order at a given instant.
const (
	StagePhysics  = 0
	StageAgents   = 1
	StageEnsemble = 2
	StageMonitor  = 3
)

// Task is a periodic process. Tasks of one owner never run concurrently
// and run in registration order within a stage.
type Task struct {
	Name   string
	Owner  string
	Stage  int
	Period time.Duration
	// Offset of the first release
	Offset time.Duration
	Run    func(ctx context.Context, now time.Duration) error
}

type timer struct {
	task  *Task
	at    time.Duration
	seq   int
	index int
}

type timerQueue []*timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	if q[i].task.Stage != q[j].task.Stage {
		return q[i].task.Stage < q[j].task.Stage
	}
	return q[i].seq < q[j].seq
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*timer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

// Scheduler owns the virtual clock. Schedule before Run; Now may be
// called from tasks at any time.
type Scheduler struct {
	now   atomic.Int64
	queue timerQueue
	seq   int
	pace  float64
	log   zerolog.Logger
}

// NewScheduler creates a scheduler at time zero. A pace above zero sleeps
// pace seconds of wall time per simulated second, zero runs flat out.
func NewScheduler(pace float64, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		pace: pace,
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Now is the current simulated time.
func (s *Scheduler) Now() time.Duration {
	return time.Duration(s.now.Load())
}

// Schedule registers a periodic task.
func (s *Scheduler) Schedule(t Task) error {
	if t.Period <= 0 {
		return fmt.Errorf("task %s/%s: period must be positive", t.Owner, t.Name)
	}
	if t.Run == nil {
		return fmt.Errorf("task %s/%s: nothing to run", t.Owner, t.Name)
	}
	s.seq++
	heap.Push(&s.queue, &timer{task: &t, at: s.Now() + t.Offset, seq: s.seq})
	return nil
}

// Run processes releases up to and including until. It returns the first
// task error, or nil when until was reached or a task returned ErrStop.
func (s *Scheduler) Run(ctx context.Context, until time.Duration) error {
	for s.queue.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		at := s.queue[0].at
		if at > until {
			break
		}
		if err := s.wait(ctx, at); err != nil {
			return err
		}
		s.now.Store(int64(at))

		var due []*timer
		for s.queue.Len() > 0 && s.queue[0].at == at {
			due = append(due, heap.Pop(&s.queue).(*timer))
		}
		err := s.release(ctx, at, due)
		for _, t := range due {
			t.at += t.task.Period
			heap.Push(&s.queue, t)
		}
		if errors.Is(err, ErrStop) {
			s.log.Info().Dur("at", at).Msg("stopped early")
			return nil
		}
		if err != nil {
			return err
		}
	}
	s.now.Store(int64(until))
	return nil
}

// release runs the due timers, already ordered by stage then registration.
func (s *Scheduler) release(ctx context.Context, now time.Duration, due []*timer) error {
	for start := 0; start < len(due); {
		stage := due[start].task.Stage
		end := start
		byOwner := map[string][]*Task{}
		var owners []string
		for end < len(due) && due[end].task.Stage == stage {
			t := due[end].task
			if _, ok := byOwner[t.Owner]; !ok {
				owners = append(owners, t.Owner)
			}
			byOwner[t.Owner] = append(byOwner[t.Owner], t)
			end++
		}
		sort.Strings(owners)

		g, gctx := errgroup.WithContext(ctx)
		for _, owner := range owners {
			tasks := byOwner[owner]
			g.Go(func() error {
				for _, t := range tasks {
					if err := t.Run(gctx, now); err != nil {
						if errors.Is(err, ErrStop) {
							return err
						}
						return fmt.Errorf("%s/%s at %v: %w", t.Owner, t.Name, now, err)
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		start = end
	}
	return nil
}

func (s *Scheduler) wait(ctx context.Context, at time.Duration) error {
	if s.pace <= 0 {
		return nil
	}
	d := time.Duration(float64(at-s.Now()) * s.pace)
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
