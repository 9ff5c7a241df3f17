package cleanerlogic

import (
	"context"
)

// AutoUnblock is the local adaptation to being stuck. Once the robot has
// been blocked long enough it picks another destination without asking
// anybody. The longer the route, the more likely a completely random
// position is chosen over another entry of the route.
func (a *Agent) AutoUnblock(ctx context.Context) {
	if a.State == Blocked {
		a.BlockedCounter++
	} else {
		a.BlockedCounter = 0
	}
	if a.SwapBackoffRemaining > 0 {
		a.SwapBackoffRemaining--
	}

	if a.BlockedCounter <= a.params.AutoRecoveryThreshold {
		return
	}
	// a finished robot has nothing to recover to
	if a.Destination == nil && len(a.Route) == 0 {
		a.State = Free
		a.BlockedCounter = 0
		return
	}

	random := len(a.Route) == 0 ||
		a.rng.Float64() > 1.0/(float64(len(a.Route))+1.0)
	if random && a.sampler != nil {
		a.setDestination(pointRef(a.sampler.RandomPosition(a.rng)))
	} else if len(a.Route) > 0 {
		random = false
		a.setDestination(pointRef(a.Route[a.rng.Intn(len(a.Route))]))
	}

	a.log.Info().
		Bool("random", random).
		Interface("destination", a.Destination).
		Int("blocked_cycles", a.BlockedCounter).
		Msg("auto unblocking")
	a.metrics.RecordAutoUnblock(ctx, a.ID, random)

	a.ExchangeDestination = nil
	a.State = Free
	a.BlockedCounter = 0
}
