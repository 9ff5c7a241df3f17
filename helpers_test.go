package cleanerlogic

import (
	"math/rand"
	"testing"

	orb "github.com/paulmach/orb"
	"github.com/rs/zerolog"
)

type fakeNavigator struct {
	pose   Vector
	sensed bool
	goals  []Vector
	result *MoveResult
}

func (n *fakeNavigator) Pose() (Vector, bool) { return n.pose, n.sensed }

func (n *fakeNavigator) SetGoal(goal Vector, _ Orientation) { n.goals = append(n.goals, goal) }

func (n *fakeNavigator) Result() *MoveResult { return n.result }

type reachReport struct {
	position orb.Point
	robot    string
}

type fakeMonitor struct {
	reports []reachReport
	seen    map[orb.Point]bool
}

func (m *fakeMonitor) ReportReached(p orb.Point, robotID string) bool {
	m.reports = append(m.reports, reachReport{p, robotID})
	if m.seen == nil {
		m.seen = map[orb.Point]bool{}
	}
	if m.seen[p] {
		return false
	}
	m.seen[p] = true
	return true
}

type fixedSampler struct {
	p     orb.Point
	calls int
}

func (s *fixedSampler) RandomPosition(*rand.Rand) orb.Point {
	s.calls++
	return s.p
}

type testAgent struct {
	*Agent
	nav     *fakeNavigator
	monitor *fakeMonitor
	sampler *fixedSampler
}

func newTestAgent(t *testing.T, id string, route ...orb.Point) testAgent {
	t.Helper()
	nav := &fakeNavigator{}
	mon := &fakeMonitor{}
	smp := &fixedSampler{p: orb.Point{99, 99}}
	a := NewAgent(id, route, DefaultParams(), Collaborators{
		Navigator: nav,
		Monitor:   mon,
		Sampler:   smp,
		Rand:      rand.New(rand.NewSource(42)),
		Logger:    zerolog.Nop(),
	})
	return testAgent{Agent: a, nav: nav, monitor: mon, sampler: smp}
}

// at places the robot as if sensed at p
func (ta testAgent) at(p orb.Point) testAgent {
	ta.nav.pose = Vector{X: p.X(), Y: p.Y()}
	ta.nav.sensed = true
	ta.Sense()
	return ta
}

func blockedView(id string, pos, dest orb.Point) PeerView {
	return PeerView{ID: id, Position: pos, State: Blocked, Destination: &dest}
}
