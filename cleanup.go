package cleanerlogic

import (
	"context"
	"time"

	orb "github.com/paulmach/orb"
)

// AdoptedCleanup removes destinations adopted by the coordinator from
// the member's route so that no destination is pursued twice.
type AdoptedCleanup struct{}

func (AdoptedCleanup) Name() string { return "adopted-cleanup" }

// Membership only needs the coordinator to have adopted something, the
// exchange itself looks at the member's route.
func (AdoptedCleanup) Membership(coord, member PeerView) bool {
	return coord.ID != member.ID && len(coord.Adopted) > 0
}

func (AdoptedCleanup) Exchange(ctx context.Context, _ time.Duration, coord PeerView, member *Agent) {
	member.RemoveAdoptedBy(ctx, coord)
}

// RemoveAdoptedBy drops every route entry coord has adopted, unless this
// robot adopted the same destination later itself. Running it twice with
// the same view changes nothing the second time. It returns the number of
// removed entries.
func (a *Agent) RemoveAdoptedBy(ctx context.Context, coord PeerView) int {
	if coord.ID == a.ID {
		return 0
	}
	eps := a.params.SamePositionEpsilon

	removed := 0
	kept := a.Route[:0]
	for _, p := range a.Route {
		if a.yieldsTo(coord, p) {
			a.log.Debug().Str("adopted_by", coord.ID).Interface("position", p).Msg("removing adopted goal")
			a.dropAdoption(p)
			removed++
			continue
		}
		kept = append(kept, p)
	}
	a.Route = kept
	if removed == 0 {
		return 0
	}

	if a.Destination != nil && indexOf(a.Route, *a.Destination, eps) < 0 && a.yieldsTo(coord, *a.Destination) {
		a.advance()
	}
	a.metrics.RecordCleaned(ctx, a.ID, removed)
	return removed
}

// yieldsTo tells whether coord holds a stronger claim on p than this robot.
// The later adoption wins, on a tie the lower id keeps the destination.
func (a *Agent) yieldsTo(coord PeerView, p orb.Point) bool {
	eps := a.params.SamePositionEpsilon
	var theirs *Adoption
	for i := range coord.Adopted {
		if samePosition(coord.Adopted[i].Position, p, eps) {
			theirs = &coord.Adopted[i]
			break
		}
	}
	if theirs == nil {
		return false
	}
	for _, mine := range a.Adopted {
		if !samePosition(mine.Position, p, eps) {
			continue
		}
		if mine.At > theirs.At || (mine.At == theirs.At && a.ID < coord.ID) {
			return false
		}
	}
	return true
}

func (a *Agent) dropAdoption(p orb.Point) {
	kept := a.Adopted[:0]
	for _, ad := range a.Adopted {
		if samePosition(ad.Position, p, a.params.SamePositionEpsilon) {
			continue
		}
		kept = append(kept, ad)
	}
	a.Adopted = kept
}
