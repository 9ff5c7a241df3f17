package cleanerlogic

import (
	"math/rand"
	"time"

	orb "github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rs/zerolog"

	"github.com/skovsen/D2D_CleanerLogic/internal/metrics"
)

// An Agent is a cleaning robot - it owns its knowledge and is the only writer of it
type Agent struct {
	ID       string
	Position orb.Point
	Sensed   bool
	State    State

	// Destination is nil when the robot has nothing left to do
	Destination *orb.Point
	Route       []orb.Point
	Adopted     []Adoption

	BlockedCounter          int
	NoPositionChangeCounter int
	LastOldPosition         *orb.Point

	LastAdoption         *time.Duration
	SwapBackoffRemaining int
	ExchangeDestination  *orb.Point

	// destination last handed to the navigator
	curDestination *orb.Point

	params  Params
	nav     Navigator
	monitor Monitor
	sampler PositionSampler
	rng     *rand.Rand
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// Adoption is a destination taken over from a peer and the time it happened
type Adoption struct {
	Position orb.Point
	At       time.Duration
}

// Vector - struct holding X Y Z values
type Vector struct {
	X, Y, Z float64
}

// Point drops the height, all protocol geometry is planar
func (v Vector) Point() orb.Point {
	return orb.Point{v.X, v.Y}
}

// State of the robot
type State int

const (
	// Free - robot can move at will
	Free State = iota
	// Blocked - robot wants to move but can't
	Blocked
)

func (s State) String() string {
	switch s {
	case Free:
		return "Free"
	case Blocked:
		return "Blocked"
	default:
		return "Unknown"
	}
}

// Collaborators are the external services an agent consumes.
type Collaborators struct {
	Navigator Navigator
	Monitor   Monitor
	Sampler   PositionSampler
	Rand      *rand.Rand
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
}

// NewAgent creates a free robot that heads for the first entry of route.
func NewAgent(id string, route []orb.Point, params Params, c Collaborators) *Agent {
	a := &Agent{
		ID:      id,
		State:   Free,
		Route:   append([]orb.Point(nil), route...),
		params:  params,
		nav:     c.Navigator,
		monitor: c.Monitor,
		sampler: c.Sampler,
		rng:     c.Rand,
		log:     c.Logger.With().Str("robot", id).Logger(),
		metrics: c.Metrics,
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewSource(1))
	}
	if len(a.Route) > 0 {
		a.Destination = pointRef(a.Route[0])
	}
	return a
}

// Params returns the tunables the agent was built with.
func (a *Agent) Params() Params {
	return a.params
}

// View takes a read-only snapshot of the knowledge peers are allowed to see.
func (a *Agent) View() PeerView {
	return PeerView{
		ID:                  a.ID,
		Position:            a.Position,
		State:               a.State,
		Destination:         clonePoint(a.Destination),
		ExchangeDestination: clonePoint(a.ExchangeDestination),
		Adopted:             append([]Adoption(nil), a.Adopted...),
	}
}

func (a *Agent) setDestination(p *orb.Point) {
	a.Destination = clonePoint(p)
}

// addToRoute appends p unless the route already holds it.
func (a *Agent) addToRoute(p orb.Point) {
	if indexOf(a.Route, p, a.params.SamePositionEpsilon) >= 0 {
		return
	}
	a.Route = append(a.Route, p)
}

// recordAdoption stores or refreshes the adoption record for p.
func (a *Agent) recordAdoption(p orb.Point, now time.Duration) {
	for i := range a.Adopted {
		if samePosition(a.Adopted[i].Position, p, a.params.SamePositionEpsilon) {
			a.Adopted[i].At = now
			return
		}
	}
	a.Adopted = append(a.Adopted, Adoption{Position: p, At: now})
}

func samePosition(a, b orb.Point, eps float64) bool {
	return planar.Distance(a, b) < eps
}

func indexOf(ps []orb.Point, p orb.Point, eps float64) int {
	for i, q := range ps {
		if samePosition(q, p, eps) {
			return i
		}
	}
	return -1
}

func pointRef(p orb.Point) *orb.Point {
	return &p
}

func clonePoint(p *orb.Point) *orb.Point {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
