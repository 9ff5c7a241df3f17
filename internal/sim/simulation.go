package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	orb "github.com/paulmach/orb"
	"github.com/rs/zerolog"

	cleanerlogic "github.com/skovsen/D2D_CleanerLogic"
	"github.com/skovsen/D2D_CleanerLogic/internal/metrics"
	"github.com/skovsen/D2D_CleanerLogic/internal/monitor"
	"github.com/skovsen/D2D_CleanerLogic/internal/motion"
	"github.com/skovsen/D2D_CleanerLogic/internal/sampling"
)

// Periods of the robot processes and of the world
type Periods struct {
	Sense    time.Duration
	Detect   time.Duration
	Recover  time.Duration
	Drive    time.Duration
	Reach    time.Duration
	Status   time.Duration
	Ensemble time.Duration
	Physics  time.Duration
}

// DefaultPeriods are the process periods of the cleaning robots.
func DefaultPeriods() Periods {
	return Periods{
		Sense:    100 * time.Millisecond,
		Detect:   time.Second,
		Recover:  time.Second,
		Drive:    2 * time.Second,
		Reach:    500 * time.Millisecond,
		Status:   time.Second,
		Ensemble: 3 * time.Second,
		Physics:  100 * time.Millisecond,
	}
}

// Validate rejects non-positive periods.
func (p Periods) Validate() error {
	for name, d := range map[string]time.Duration{
		"sense": p.Sense, "detect": p.Detect, "recover": p.Recover, "drive": p.Drive,
		"reach": p.Reach, "status": p.Status, "ensemble": p.Ensemble, "physics": p.Physics,
	} {
		if d <= 0 {
			return fmt.Errorf("period %s must be positive, got %v", name, d)
		}
	}
	return nil
}

// Robot is where a robot starts
type Robot struct {
	ID    string
	Start orb.Point
}

// Setup is everything needed to build a run.
type Setup struct {
	Mission cleanerlogic.Mission
	Robots  []Robot
	// RandomGarbage locations are drawn for every robot the mission has no garbage for
	RandomGarbage int
	Params        cleanerlogic.Params
	Strategy      cleanerlogic.RecoveryStrategy
	Periods       Periods
	Motion        motion.Options
	Seed          int64
	Pace          float64
	// StopWhenDone ends the run once every location is reached
	StopWhenDone bool
	Logger       zerolog.Logger
	Metrics      *metrics.Metrics
}

// Simulation is one wired run of the fleet.
type Simulation struct {
	ID        string
	Scheduler *Scheduler
	World     *motion.World
	Ledger    *monitor.Ledger
	Sampler   *sampling.Generator
	Agents    []*cleanerlogic.Agent

	log zerolog.Logger
}

// New builds the world, the ledger and the agents and registers every
// process with the scheduler.
func New(setup Setup) (*Simulation, error) {
	if len(setup.Robots) == 0 {
		return nil, errors.New("no robots")
	}
	if err := setup.Params.Validate(); err != nil {
		return nil, err
	}
	if err := setup.Periods.Validate(); err != nil {
		return nil, err
	}
	if setup.Strategy == nil {
		setup.Strategy = cleanerlogic.SwapStrategy{}
	}

	regions := setup.Mission.Regions()
	sampler, err := sampling.FromBounds(regions)
	if err != nil {
		return nil, fmt.Errorf("building sampler: %w", err)
	}
	setup.Motion.Free = regions
	world, err := motion.NewWorld(setup.Motion)
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		ID:        uuid.NewString(),
		Scheduler: NewScheduler(setup.Pace, setup.Logger),
		World:     world,
		Sampler:   sampler,
	}
	s.log = setup.Logger.With().Str("run", s.ID).Logger()
	s.Ledger = monitor.NewLedger(s.Scheduler, setup.Params.SamePositionEpsilon, s.log)

	garbageRand := rand.New(rand.NewSource(setup.Seed))
	for i, r := range setup.Robots {
		nav, err := world.AddRobot(r.ID, r.Start)
		if err != nil {
			return nil, err
		}

		route := setup.Mission.Garbage[r.ID]
		if len(route) == 0 {
			for j := 0; j < setup.RandomGarbage; j++ {
				route = append(route, sampler.RandomPosition(garbageRand))
			}
		}
		for _, p := range route {
			s.Ledger.AddPosition(p, r.ID)
		}

		a := cleanerlogic.NewAgent(r.ID, route, setup.Params, cleanerlogic.Collaborators{
			Navigator: nav,
			Monitor:   s.Ledger,
			Sampler:   sampler,
			Rand:      rand.New(rand.NewSource(setup.Seed + int64(i) + 1)),
			Logger:    s.log,
			Metrics:   setup.Metrics,
		})
		s.Agents = append(s.Agents, a)
	}

	if err := s.schedule(setup); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulation) schedule(setup Setup) error {
	p := setup.Periods
	tasks := []Task{{
		Name: "physics", Owner: "world", Stage: StagePhysics, Period: p.Physics,
		Run: func(_ context.Context, _ time.Duration) error {
			s.World.Step(p.Physics)
			return nil
		},
	}}

	for _, a := range s.Agents {
		tasks = append(tasks,
			Task{Name: "sense", Owner: a.ID, Stage: StageAgents, Period: p.Sense,
				Run: func(context.Context, time.Duration) error { a.Sense(); return nil }},
			Task{Name: "detect", Owner: a.ID, Stage: StageAgents, Period: p.Detect,
				Run: func(ctx context.Context, _ time.Duration) error { a.DetectBlocked(ctx); return nil }},
			Task{Name: "recover", Owner: a.ID, Stage: StageAgents, Period: p.Recover,
				Run: func(ctx context.Context, _ time.Duration) error { a.AutoUnblock(ctx); return nil }},
			Task{Name: "drive", Owner: a.ID, Stage: StageAgents, Period: p.Drive,
				Run: func(context.Context, time.Duration) error { a.Drive(); return nil }},
			Task{Name: "reach", Owner: a.ID, Stage: StageAgents, Period: p.Reach,
				Run: func(ctx context.Context, _ time.Duration) error { a.UpdateDestination(ctx); return nil }},
			Task{Name: "status", Owner: a.ID, Stage: StageAgents, Period: p.Status,
				Run: func(_ context.Context, now time.Duration) error { a.ReportStatus(now); return nil }},
		)
	}

	for _, e := range []cleanerlogic.Ensemble{
		cleanerlogic.NewPeerRecovery(setup.Strategy, setup.Params),
		cleanerlogic.AdoptedCleanup{},
	} {
		tasks = append(tasks, Task{
			Name: e.Name(), Owner: "ensembles", Stage: StageEnsemble, Period: p.Ensemble,
			Run: EnsembleTask(e, s.Agents),
		})
	}

	if setup.StopWhenDone {
		tasks = append(tasks, Task{
			Name: "done", Owner: "monitor", Stage: StageMonitor, Period: time.Second,
			Run: func(context.Context, time.Duration) error {
				if sum := s.Ledger.Summary(); sum.Total > 0 && sum.Done() {
					return ErrStop
				}
				return nil
			},
		})
	}

	for _, t := range tasks {
		if err := s.Scheduler.Schedule(t); err != nil {
			return err
		}
	}
	return nil
}

// Run advances the fleet for d of simulated time and returns the ledger summary.
func (s *Simulation) Run(ctx context.Context, d time.Duration) (monitor.Summary, error) {
	started := time.Now()
	s.log.Info().Int("robots", len(s.Agents)).Dur("duration", d).Msg("simulation started")

	err := s.Scheduler.Run(ctx, s.Scheduler.Now()+d)
	sum := s.Ledger.Summary()
	if err != nil {
		return sum, fmt.Errorf("simulation %s: %w", s.ID, err)
	}

	s.log.Info().
		Int("reached", sum.Reached).
		Int("total", sum.Total).
		Dur("last_reach", sum.LastReach).
		Dur("sim_time", s.Scheduler.Now()).
		Dur("wall_time", time.Since(started)).
		Msg("simulation finished")
	return sum, nil
}

// Agent returns the robot with the given id.
func (s *Simulation) Agent(id string) (*cleanerlogic.Agent, bool) {
	for _, a := range s.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}
