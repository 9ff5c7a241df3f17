package sim

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	cleanerlogic "github.com/skovsen/D2D_CleanerLogic"
)

// EnsembleTask evaluates e over every ordered (coordinator, member) pair.
// All views are taken before any exchange runs, then each member is
// updated from its own goroutine, so an exchange only ever writes to
// the member it was given.
func EnsembleTask(e cleanerlogic.Ensemble, agents []*cleanerlogic.Agent) func(ctx context.Context, now time.Duration) error {
	members := append([]*cleanerlogic.Agent(nil), agents...)
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })

	return func(ctx context.Context, now time.Duration) error {
		views := make([]cleanerlogic.PeerView, len(members))
		for i, a := range members {
			views[i] = a.View()
		}

		g, gctx := errgroup.WithContext(ctx)
		for i, member := range members {
			self := views[i]
			g.Go(func() error {
				for _, coord := range views {
					if err := gctx.Err(); err != nil {
						return err
					}
					if e.Membership(coord, self) {
						e.Exchange(gctx, now, coord, member)
					}
				}
				return nil
			})
		}
		return g.Wait()
	}
}
