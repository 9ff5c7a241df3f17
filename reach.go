package cleanerlogic

import (
	"context"

	orb "github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// UpdateDestination reports every route entry the robot is standing on,
// removes them from the route and advances to the next one once the
// current destination is reached.
func (a *Agent) UpdateDestination(ctx context.Context) {
	if !a.Sensed {
		return
	}

	onRoute := a.Destination != nil && indexOf(a.Route, *a.Destination, a.params.SamePositionEpsilon) >= 0

	kept := a.Route[:0]
	for _, p := range a.Route {
		if planar.Distance(a.Position, p) < a.params.ReachedEpsilon {
			a.report(ctx, p, true)
			continue
		}
		kept = append(kept, p)
	}
	a.Route = kept

	if a.Destination != nil && planar.Distance(a.Position, *a.Destination) >= a.params.ReachedEpsilon {
		return
	}
	if a.Destination != nil {
		// destinations off the route (random recovery targets) are reported too,
		// the ledger ignores what it does not know
		if !onRoute {
			a.report(ctx, *a.Destination, false)
		}
		a.ExchangeDestination = nil
	}
	a.advance()
}

// advance points the robot at the first remaining route entry.
func (a *Agent) advance() {
	if len(a.Route) == 0 {
		if a.Destination != nil {
			a.log.Info().Msg("no more waypoints to reach")
		}
		a.Destination = nil
		return
	}
	a.log.Debug().Interface("destination", a.Route[0]).Msg("setting next waypoint as destination")
	a.Destination = pointRef(a.Route[0])
}

// report tells the monitor about p. Off-route targets are unknown to the
// ledger and are counted apart from duplicate reports.
func (a *Agent) report(ctx context.Context, p orb.Point, onRoute bool) {
	recorded := false
	if a.monitor != nil {
		recorded = a.monitor.ReportReached(p, a.ID)
	}
	a.log.Info().Interface("position", p).Bool("recorded", recorded).Msg("destination reached")
	if !onRoute && !recorded {
		a.metrics.RecordUnknownReach(ctx, a.ID)
		return
	}
	a.metrics.RecordReached(ctx, a.ID, !recorded)
}
