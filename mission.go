package cleanerlogic

import (
	"fmt"
	"os"

	orb "github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Mission is the map the fleet cleans: the reachable regions of the
// building and the garbage handed to every robot up front.
type Mission struct {
	Description string
	// Geometry holds the reachable space, one polygon per region
	Geometry orb.Geometry
	Garbage  map[string][]orb.Point
}

// Regions returns the bounding rectangle of every polygon in the mission geometry.
func (m *Mission) Regions() []orb.Bound {
	return regions(m.Geometry)
}

func regions(g orb.Geometry) []orb.Bound {
	switch v := g.(type) {
	case nil:
		return nil
	case orb.Bound:
		return []orb.Bound{v}
	case orb.Ring:
		return []orb.Bound{v.Bound()}
	case orb.Polygon:
		return []orb.Bound{v.Bound()}
	case orb.MultiPolygon:
		out := make([]orb.Bound, 0, len(v))
		for _, p := range v {
			out = append(out, p.Bound())
		}
		return out
	case orb.Collection:
		var out []orb.Bound
		for _, sub := range v {
			out = append(out, regions(sub)...)
		}
		return out
	default:
		return nil
	}
}

// SetRegions replaces the geometry with one rectangle per bound.
func (m *Mission) SetRegions(bounds []orb.Bound) {
	mp := make(orb.MultiPolygon, 0, len(bounds))
	for _, b := range bounds {
		mp = append(mp, b.ToPolygon())
	}
	m.Geometry = mp
}

// MissionArea returns the centre and the total surface of the reachable space
func (m *Mission) MissionArea() (centre orb.Point, area float64) {
	if m.Geometry == nil {
		return orb.Point{}, 0
	}
	return planar.CentroidArea(m.Geometry)
}

func (m Mission) String() string {
	return fmt.Sprintf("D - %s  Regions - %d  Robots - %d", m.Description, len(m.Regions()), len(m.Garbage))
}

// LoadFeatures loads the reachable regions from a GeoJSON file. A single
// feature, a feature collection or a bare geometry are all accepted.
func (m *Mission) LoadFeatures(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read file: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err == nil && len(fc.Features) > 0 {
		coll := make(orb.Collection, 0, len(fc.Features))
		for _, f := range fc.Features {
			coll = append(coll, f.Geometry)
		}
		m.Geometry = coll
		return nil
	}

	f, err := geojson.UnmarshalFeature(data)
	if err == nil && f.Geometry != nil {
		m.Geometry = f.Geometry
		return nil
	}

	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return fmt.Errorf("unable to unmarshal feature: %w", err)
	}
	m.Geometry = g.Geometry()
	return nil
}
