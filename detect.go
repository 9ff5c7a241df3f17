package cleanerlogic

import (
	"context"

	"github.com/paulmach/orb/planar"
)

// Sense copies the navigator pose into the agent knowledge.
// Without a pose the last known position stays in place.
func (a *Agent) Sense() {
	if a.nav == nil {
		return
	}
	pose, ok := a.nav.Pose()
	if !ok {
		return
	}
	a.Position = pose.Point()
	a.Sensed = true
}

// DetectBlocked compares the current position with the one seen on the
// previous cycle and moves the robot between Free and Blocked.
func (a *Agent) DetectBlocked(ctx context.Context) {
	if !a.Sensed {
		return
	}
	// Nowhere to go, standing still is fine
	if a.Destination == nil {
		if a.State == Blocked {
			a.log.Debug().Msg("no destination left, robot is free")
		}
		a.State = Free
		a.NoPositionChangeCounter = 0
		a.LastOldPosition = nil
		return
	}

	noMove := a.LastOldPosition != nil &&
		planar.Distance(*a.LastOldPosition, a.Position) < a.params.SamePositionEpsilon
	wantMove := planar.Distance(a.Position, *a.Destination) > a.params.ReachedEpsilon
	if wantMove && noMove {
		a.NoPositionChangeCounter++
	} else {
		a.NoPositionChangeCounter = 0
	}
	a.LastOldPosition = pointRef(a.Position)

	prev := a.State
	if a.NoPositionChangeCounter > a.params.NoChangeThreshold {
		a.State = Blocked
	} else {
		a.State = Free
	}

	if prev != a.State {
		a.log.Debug().
			Stringer("from", prev).
			Stringer("to", a.State).
			Int("still_cycles", a.NoPositionChangeCounter).
			Msg("state changed")
		if a.State == Blocked {
			a.metrics.RecordBlocked(ctx, a.ID)
		}
	}
}
