package cleanerlogic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	orb "github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// PeerView is the part of a robot's knowledge other robots may read.
// It is a snapshot taken at the start of an ensemble cycle and may be
// one cycle old by the time it is used.
type PeerView struct {
	ID                  string
	Position            orb.Point
	State               State
	Destination         *orb.Point
	ExchangeDestination *orb.Point
	Adopted             []Adoption
}

// An Ensemble is a pairwise interaction evaluated for every ordered
// (coordinator, member) pair. Exchange only ever writes to the member.
type Ensemble interface {
	Name() string
	Membership(coord, member PeerView) bool
	Exchange(ctx context.Context, now time.Duration, coord PeerView, member *Agent)
}

// BlockedPeers is the deadlock predicate: two different blocked robots
// standing closer than maxDistance.
func BlockedPeers(coord, member PeerView, maxDistance float64) bool {
	return coord.State == Blocked && member.State == Blocked &&
		coord.ID != member.ID &&
		planar.Distance(coord.Position, member.Position) < maxDistance
}

// RecoveryStrategy resolves a deadlock between two blocked robots by
// changing the member's destination. It reports whether the member changed.
type RecoveryStrategy interface {
	Name() string
	Exchange(ctx context.Context, now time.Duration, coord PeerView, member *Agent) bool
}

// ErrUnknownStrategy is returned by ParseStrategy
var ErrUnknownStrategy = errors.New("unknown recovery strategy")

// ParseStrategy maps a configured name to a strategy.
func ParseStrategy(name string) (RecoveryStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "adopt", "adoption":
		return AdoptionStrategy{}, nil
	case "swap", "":
		return SwapStrategy{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// PeerRecovery is the deadlock resolution ensemble.
type PeerRecovery struct {
	Strategy    RecoveryStrategy
	MaxDistance float64
}

// NewPeerRecovery builds the ensemble with the peer distance from params.
func NewPeerRecovery(strategy RecoveryStrategy, params Params) PeerRecovery {
	return PeerRecovery{Strategy: strategy, MaxDistance: params.PeerDistance}
}

func (e PeerRecovery) Name() string {
	return "peer-recovery/" + e.Strategy.Name()
}

func (e PeerRecovery) Membership(coord, member PeerView) bool {
	return BlockedPeers(coord, member, e.MaxDistance)
}

func (e PeerRecovery) Exchange(ctx context.Context, now time.Duration, coord PeerView, member *Agent) {
	e.Strategy.Exchange(ctx, now, coord, member)
}

// remoteRecoveryAllowed holds the gates shared by both strategies: the
// member has to be blocked for a while and not inside a backoff window.
func (a *Agent) remoteRecoveryAllowed(ctx context.Context, now time.Duration) bool {
	if a.BlockedCounter < a.params.RemoteRecoveryThreshold {
		a.log.Debug().Int("blocked_cycles", a.BlockedCounter).Msg("not yet blocked for long enough")
		a.metrics.RecordRateLimited(ctx, a.ID, "dwell")
		return false
	}
	if a.LastAdoption != nil && now-*a.LastAdoption < a.params.AdoptionBackoff {
		a.log.Debug().Dur("since_last", now-*a.LastAdoption).Msg("adopt rate limiter prevents adoption")
		a.metrics.RecordRateLimited(ctx, a.ID, "backoff")
		return false
	}
	if a.SwapBackoffRemaining > 0 {
		a.log.Debug().Int("cycles_left", a.SwapBackoffRemaining).Msg("swap backoff prevents exchange")
		a.metrics.RecordRateLimited(ctx, a.ID, "backoff")
		return false
	}
	return true
}
