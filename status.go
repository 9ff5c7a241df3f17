package cleanerlogic

import (
	"time"

	"github.com/paulmach/orb/planar"
)

// ReportStatus logs one status line for the robot.
func (a *Agent) ReportStatus(now time.Duration) {
	ev := a.log.Info().
		Int64("ms", now.Milliseconds()).
		Interface("pos", a.Position).
		Stringer("state", a.State).
		Int("remaining", len(a.Route))
	if a.Destination != nil {
		ev = ev.Interface("destination", *a.Destination).
			Float64("dist", planar.Distance(*a.Destination, a.Position))
	} else {
		ev = ev.Str("destination", "none")
	}
	if a.curDestination != nil {
		ev = ev.Interface("set", *a.curDestination)
	}
	ev.Msg("status")
}
