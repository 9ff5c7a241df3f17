package cleanerlogic

import (
	"errors"
	"fmt"
	"time"
)

// Params are the protocol tunables. None of them change behaviour, only timing.
type Params struct {
	// Positions closer than this are the same place
	SamePositionEpsilon float64
	// A destination closer than this is reached
	ReachedEpsilon float64
	// Detection cycles without movement before the robot is declared blocked
	NoChangeThreshold int
	// Blocked cycles before the robot picks a new destination on its own
	AutoRecoveryThreshold int
	// Blocked cycles before peers may help
	RemoteRecoveryThreshold int
	// Minimum time between two adoptions by the same robot
	AdoptionBackoff time.Duration
	// Recovery cycles a robot waits after a committed swap
	SwapBackoffCycles int
	// Blocked robots closer than this are in mutual deadlock
	PeerDistance float64
}

// DefaultParams are the values the office/corridor experiments ran with.
func DefaultParams() Params {
	return Params{
		SamePositionEpsilon:     0.01,
		ReachedEpsilon:          0.5,
		NoChangeThreshold:       3,
		AutoRecoveryThreshold:   6,
		RemoteRecoveryThreshold: 1,
		AdoptionBackoff:         10 * time.Second,
		SwapBackoffCycles:       10,
		PeerDistance:            5,
	}
}

// ErrInvalidParams is wrapped by every Validate failure.
var ErrInvalidParams = errors.New("invalid protocol parameters")

// Validate rejects parameter sets the protocol can not run with.
func (p Params) Validate() error {
	switch {
	case p.SamePositionEpsilon <= 0:
		return fmt.Errorf("%w: same position epsilon must be positive", ErrInvalidParams)
	case p.ReachedEpsilon < p.SamePositionEpsilon:
		return fmt.Errorf("%w: reached epsilon %v below same position epsilon %v",
			ErrInvalidParams, p.ReachedEpsilon, p.SamePositionEpsilon)
	case p.NoChangeThreshold < 0, p.AutoRecoveryThreshold < 0, p.RemoteRecoveryThreshold < 0:
		return fmt.Errorf("%w: thresholds must not be negative", ErrInvalidParams)
	case p.AdoptionBackoff < 0 || p.SwapBackoffCycles < 0:
		return fmt.Errorf("%w: backoffs must not be negative", ErrInvalidParams)
	case p.PeerDistance <= 0:
		return fmt.Errorf("%w: peer distance must be positive", ErrInvalidParams)
	}
	return nil
}
