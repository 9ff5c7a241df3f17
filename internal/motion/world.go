// Package motion is a small kinematic stand-in for the robots' navigation
// stack. Robots drive in straight lines towards their goal and stop when
// the next step would push them into another robot, which is enough to
// reproduce the corridor deadlocks the recovery protocol deals with.
package motion

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	orb "github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	cleanerlogic "github.com/skovsen/D2D_CleanerLogic"
)

// ErrDuplicateRobot is returned by AddRobot for a known id
var ErrDuplicateRobot = errors.New("robot already in world")

// Options configure the world
type Options struct {
	// Speed in m/s
	Speed float64
	// Radius of the robot body in m
	Radius float64
	// Tolerance is how close to the goal counts as arrived
	Tolerance float64
	// Free is the reachable space, goals outside are rejected. Empty means everywhere.
	Free []orb.Bound
}

// DefaultOptions resemble a small differential drive robot
func DefaultOptions() Options {
	return Options{Speed: 0.5, Radius: 0.3, Tolerance: 0.05}
}

type body struct {
	pos    orb.Point
	goal   *orb.Point
	result *cleanerlogic.MoveResult
}

// World holds all robot bodies. It is safe for concurrent use.
type World struct {
	mu     sync.Mutex
	opts   Options
	robots map[string]*body
	order  []string
}

// NewWorld creates an empty world.
func NewWorld(opts Options) (*World, error) {
	if opts.Speed <= 0 || opts.Radius < 0 || opts.Tolerance <= 0 {
		return nil, fmt.Errorf("invalid motion options: %+v", opts)
	}
	return &World{opts: opts, robots: map[string]*body{}}, nil
}

// AddRobot places a robot at start and returns its navigator.
func (w *World) AddRobot(id string, start orb.Point) (*Navigator, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.robots[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateRobot, id)
	}
	w.robots[id] = &body{pos: start}
	w.order = append(w.order, id)
	sort.Strings(w.order)
	return &Navigator{world: w, id: id}, nil
}

// Position returns where robot id is.
func (w *World) Position(id string) (orb.Point, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.robots[id]
	if !ok {
		return orb.Point{}, false
	}
	return b.pos, true
}

// Step advances every robot by dt.
func (w *World) Step(dt time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, id := range w.order {
		b := w.robots[id]
		if b.goal == nil {
			continue
		}
		goal := *b.goal
		dist := planar.Distance(b.pos, goal)
		if dist <= w.opts.Tolerance {
			w.arrive(b, goal)
			continue
		}

		stride := math.Min(w.opts.Speed*dt.Seconds(), dist)
		next := orb.Point{
			b.pos.X() + (goal.X()-b.pos.X())/dist*stride,
			b.pos.Y() + (goal.Y()-b.pos.Y())/dist*stride,
		}
		if w.obstructed(id, b.pos, next) {
			continue
		}
		b.pos = next
		if planar.Distance(next, goal) <= w.opts.Tolerance {
			w.arrive(b, goal)
		}
	}
}

func (w *World) arrive(b *body, goal orb.Point) {
	b.pos = goal
	b.goal = nil
	b.result = &cleanerlogic.MoveResult{
		Goal:   cleanerlogic.Vector{X: goal.X(), Y: goal.Y()},
		Status: cleanerlogic.StatusSucceeded,
	}
}

// obstructed tells whether moving from pos to next gets closer than the
// clearance to any other robot. Moving away is always allowed.
func (w *World) obstructed(id string, pos, next orb.Point) bool {
	clearance := 2 * w.opts.Radius
	for _, other := range w.order {
		if other == id {
			continue
		}
		o := w.robots[other].pos
		dNext := planar.Distance(next, o)
		if dNext < clearance && dNext < planar.Distance(pos, o) {
			return true
		}
	}
	return false
}

func (w *World) reachable(p orb.Point) bool {
	if len(w.opts.Free) == 0 {
		return true
	}
	for _, b := range w.opts.Free {
		if b.Contains(p) {
			return true
		}
	}
	return false
}

// Navigator is the navigation stack of one robot in the world.
type Navigator struct {
	world *World
	id    string
}

// Pose returns the current position, the world always knows it.
func (n *Navigator) Pose() (cleanerlogic.Vector, bool) {
	p, ok := n.world.Position(n.id)
	return cleanerlogic.Vector{X: p.X(), Y: p.Y()}, ok
}

// SetGoal starts driving towards goal. Re-sending the active goal is a
// no-op, a different goal cancels the active one.
func (n *Navigator) SetGoal(goal cleanerlogic.Vector, _ cleanerlogic.Orientation) {
	w := n.world
	w.mu.Lock()
	defer w.mu.Unlock()

	b := w.robots[n.id]
	target := goal.Point()
	if !w.reachable(target) {
		b.result = &cleanerlogic.MoveResult{Goal: goal, Status: cleanerlogic.StatusRejected}
		return
	}
	if b.goal != nil {
		if planar.Distance(*b.goal, target) < w.opts.Tolerance {
			return
		}
		b.result = &cleanerlogic.MoveResult{
			Goal:   cleanerlogic.Vector{X: b.goal.X(), Y: b.goal.Y()},
			Status: cleanerlogic.StatusCanceled,
		}
	}
	b.goal = &target
}

// Result returns how the last goal ended, nil before any goal ended.
func (n *Navigator) Result() *cleanerlogic.MoveResult {
	n.world.mu.Lock()
	defer n.world.mu.Unlock()
	r := n.world.robots[n.id].result
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
