package cleanerlogic

import (
	"fmt"
	"math/rand"

	orb "github.com/paulmach/orb"
)

// Navigator is the motion stack of a single robot.
// Results arrive asynchronously, the agent polls them once per cycle.
type Navigator interface {
	// Pose is the last sensed pose, ok is false until the first sample
	Pose() (pose Vector, ok bool)
	SetGoal(goal Vector, orientation Orientation)
	// Result of the last finished goal, nil while nothing has finished
	Result() *MoveResult
}

// Orientation is a quaternion as used by the navigation stack
type Orientation struct {
	X, Y, Z, W float64
}

// NoRotation keeps the robot heading as is
var NoRotation = Orientation{0, 0, 0, 1}

// MoveStatus is the outcome of a navigation goal
type MoveStatus int

const (
	StatusUnknown MoveStatus = iota
	StatusSucceeded
	StatusRejected
	StatusCanceled
)

func (s MoveStatus) String() string {
	switch s {
	case StatusSucceeded:
		return "Succeeded"
	case StatusRejected:
		return "Rejected"
	case StatusCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// MoveResult reports how a goal ended
type MoveResult struct {
	Goal   Vector
	Status MoveStatus
}

func (r MoveResult) String() string {
	return fmt.Sprintf("%s %v", r.Status, r.Goal)
}

// PositionSampler picks reachable random positions on the map.
type PositionSampler interface {
	RandomPosition(r *rand.Rand) orb.Point
}

// Monitor is the bookkeeping of which robot reached which destination.
type Monitor interface {
	// ReportReached returns false when the position was already reached or is unknown
	ReportReached(position orb.Point, robotID string) bool
}
