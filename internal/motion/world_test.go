package motion

import (
	"testing"
	"time"

	orb "github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cleanerlogic "github.com/skovsen/D2D_CleanerLogic"
)

func step(w *World, n int) {
	for i := 0; i < n; i++ {
		w.Step(100 * time.Millisecond)
	}
}

func TestNavigatorReachesGoal(t *testing.T) {
	w, err := NewWorld(DefaultOptions())
	require.NoError(t, err)
	nav, err := w.AddRobot("r1", orb.Point{0, 0})
	require.NoError(t, err)

	assert.Nil(t, nav.Result())
	nav.SetGoal(cleanerlogic.Vector{X: 2, Y: 0}, cleanerlogic.NoRotation)

	step(w, 10)
	pose, ok := nav.Pose()
	require.True(t, ok)
	assert.InDelta(t, 0.5, pose.X, 1e-9)
	assert.Nil(t, nav.Result())

	step(w, 40)
	pose, _ = nav.Pose()
	assert.Equal(t, cleanerlogic.Vector{X: 2, Y: 0}, pose)
	require.NotNil(t, nav.Result())
	assert.Equal(t, cleanerlogic.StatusSucceeded, nav.Result().Status)
}

func TestNavigatorRejectsUnreachableGoal(t *testing.T) {
	opts := DefaultOptions()
	opts.Free = []orb.Bound{{Min: orb.Point{0, 0}, Max: orb.Point{10, 2}}}
	w, err := NewWorld(opts)
	require.NoError(t, err)
	nav, err := w.AddRobot("r1", orb.Point{1, 1})
	require.NoError(t, err)

	nav.SetGoal(cleanerlogic.Vector{X: 20, Y: 20}, cleanerlogic.NoRotation)
	require.NotNil(t, nav.Result())
	assert.Equal(t, cleanerlogic.StatusRejected, nav.Result().Status)

	step(w, 5)
	pose, _ := nav.Pose()
	assert.Equal(t, cleanerlogic.Vector{X: 1, Y: 1}, pose)
}

func TestNavigatorCancelsOnNewGoal(t *testing.T) {
	w, err := NewWorld(DefaultOptions())
	require.NoError(t, err)
	nav, err := w.AddRobot("r1", orb.Point{0, 0})
	require.NoError(t, err)

	nav.SetGoal(cleanerlogic.Vector{X: 5}, cleanerlogic.NoRotation)
	nav.SetGoal(cleanerlogic.Vector{X: 5}, cleanerlogic.NoRotation)
	assert.Nil(t, nav.Result(), "same goal again is not a cancel")

	nav.SetGoal(cleanerlogic.Vector{Y: 5}, cleanerlogic.NoRotation)
	require.NotNil(t, nav.Result())
	assert.Equal(t, cleanerlogic.StatusCanceled, nav.Result().Status)
	assert.Equal(t, cleanerlogic.Vector{X: 5}, nav.Result().Goal)
}

func TestHeadOnRobotsDeadlockAndSeparate(t *testing.T) {
	w, err := NewWorld(DefaultOptions())
	require.NoError(t, err)
	a, err := w.AddRobot("a", orb.Point{0, 1})
	require.NoError(t, err)
	b, err := w.AddRobot("b", orb.Point{4, 1})
	require.NoError(t, err)

	a.SetGoal(cleanerlogic.Vector{X: 10, Y: 1}, cleanerlogic.NoRotation)
	b.SetGoal(cleanerlogic.Vector{X: -6, Y: 1}, cleanerlogic.NoRotation)
	step(w, 100)

	pa, _ := a.Pose()
	pb, _ := b.Pose()
	gap := pb.X - pa.X
	assert.Greater(t, gap, 0.0, "robots never pass through each other")
	assert.Less(t, gap, 0.7)
	before := pa

	step(w, 10)
	pa, _ = a.Pose()
	assert.Equal(t, before, pa, "deadlocked")

	// swapping goals lets both back away
	a.SetGoal(cleanerlogic.Vector{X: -6, Y: 1}, cleanerlogic.NoRotation)
	b.SetGoal(cleanerlogic.Vector{X: 10, Y: 1}, cleanerlogic.NoRotation)
	step(w, 10)
	pa, _ = a.Pose()
	assert.Less(t, pa.X, before.X)
}

func TestAddRobotTwice(t *testing.T) {
	w, err := NewWorld(DefaultOptions())
	require.NoError(t, err)
	_, err = w.AddRobot("r1", orb.Point{})
	require.NoError(t, err)
	_, err = w.AddRobot("r1", orb.Point{})
	assert.ErrorIs(t, err, ErrDuplicateRobot)

	_, err = NewWorld(Options{})
	assert.Error(t, err)
}
