package monitor

import (
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"
)

// FeatureCollection renders the ledger as points, ready for Q-GIS.
func (l *Ledger) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, e := range l.Entries() {
		f := geojson.NewFeature(e.Position)
		f.Properties["initialOwner"] = e.InitialOwner
		f.Properties["reached"] = e.Reached()
		if e.Reached() {
			f.Properties["reachedBy"] = e.ReachedBy
			f.Properties["timeMs"] = e.ReachedAt.Milliseconds()
		}
		fc.Append(f)
	}
	return fc
}

// WriteGeoJSON saves the feature collection to path.
func (l *Ledger) WriteGeoJSON(path string) error {
	rawJSON, err := l.FeatureCollection().MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	if err := os.WriteFile(path, rawJSON, 0644); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	return nil
}
