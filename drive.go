package cleanerlogic

import (
	"github.com/paulmach/orb/planar"
)

// Drive hands the destination to the navigation stack and looks at how
// the last goal ended.
func (a *Agent) Drive() {
	if a.nav == nil {
		return
	}
	if a.Destination == nil {
		a.log.Debug().Msg("no destination to set")
		return
	}
	dest := *a.Destination
	result := a.nav.Result()

	if a.curDestination == nil ||
		planar.Distance(dest, *a.curDestination) > a.params.SamePositionEpsilon ||
		result == nil {
		a.log.Debug().Interface("destination", dest).Msg("setting destination")
		a.nav.SetGoal(Vector{X: dest.X(), Y: dest.Y()}, NoRotation)
		a.curDestination = pointRef(dest)
	}

	if result == nil || planar.Distance(result.Goal.Point(), dest) > a.params.SamePositionEpsilon {
		return
	}
	switch result.Status {
	case StatusSucceeded:
		a.log.Debug().Interface("destination", dest).Msg("goal reached")
	case StatusRejected:
		// sent again on the next cycle
		a.log.Warn().Interface("destination", dest).Msg("goal rejected")
		a.curDestination = nil
	case StatusCanceled:
		a.log.Info().Interface("destination", dest).Msg("goal canceled")
	default:
		a.log.Warn().Stringer("result", result).Msg("unknown result")
	}
}
