package cleanerlogic

import (
	"context"
	"time"
)

// AdoptionStrategy makes the member take over the coordinator's
// destination. The coordinator is left alone, the cleanup ensemble later
// removes the destination from its route.
type AdoptionStrategy struct{}

func (AdoptionStrategy) Name() string { return "adopt" }

func (AdoptionStrategy) Exchange(ctx context.Context, now time.Duration, coord PeerView, member *Agent) bool {
	return member.AdoptFrom(ctx, now, coord)
}

// AdoptFrom adopts coord's destination. It is a no-op while the robot is
// not blocked for long enough or inside the adoption backoff.
func (a *Agent) AdoptFrom(ctx context.Context, now time.Duration, coord PeerView) bool {
	if coord.Destination == nil {
		return false
	}
	if !a.remoteRecoveryAllowed(ctx, now) {
		return false
	}

	goal := *coord.Destination
	a.log.Info().
		Str("from", coord.ID).
		Interface("destination", goal).
		Msg("adopting destination")

	a.recordAdoption(goal, now)
	a.addToRoute(goal)
	a.setDestination(&goal)

	a.BlockedCounter = 0
	a.LastAdoption = &now
	a.metrics.RecordAdoption(ctx, a.ID)
	return true
}
