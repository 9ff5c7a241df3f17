package cleanerlogic

import (
	"context"
	"time"
)

// SwapStrategy trades destinations in two steps. The member first offers
// to take the coordinator's destination, and commits only once it sees
// the coordinator offering to take the member's destination in return.
type SwapStrategy struct{}

func (SwapStrategy) Name() string { return "swap" }

func (SwapStrategy) Exchange(ctx context.Context, now time.Duration, coord PeerView, member *Agent) bool {
	return member.SwapWith(ctx, now, coord)
}

// SwapWith runs one step of the swap handshake with coord and reports
// whether the destination changed.
func (a *Agent) SwapWith(ctx context.Context, now time.Duration, coord PeerView) bool {
	if coord.Destination == nil || a.Destination == nil {
		return false
	}
	if !a.remoteRecoveryAllowed(ctx, now) {
		return false
	}
	eps := a.params.SamePositionEpsilon
	theirs := *coord.Destination

	// Stage 1, signal the will to take coord's destination
	if a.ExchangeDestination == nil {
		a.ExchangeDestination = &theirs
		a.log.Debug().Str("to", coord.ID).Interface("offer", theirs).Msg("goal exchange offered")
		a.metrics.RecordSwapOffer(ctx, a.ID)
		return false
	}

	// Stage 2, coord is willing to take ours
	if !samePosition(*a.ExchangeDestination, theirs, eps) ||
		coord.ExchangeDestination == nil ||
		!samePosition(*coord.ExchangeDestination, *a.Destination, eps) {
		return false
	}

	a.log.Info().
		Str("with", coord.ID).
		Interface("gave", *a.Destination).
		Interface("took", theirs).
		Msg("goal exchange committed")

	a.recordAdoption(theirs, now)
	a.addToRoute(theirs)
	a.setDestination(&theirs)
	a.ExchangeDestination = nil
	a.BlockedCounter = 0
	a.State = Free
	a.SwapBackoffRemaining = a.params.SwapBackoffCycles
	a.metrics.RecordSwapCommit(ctx, a.ID)
	return true
}
