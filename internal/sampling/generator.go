// Package sampling draws random reachable positions from rectangular map regions.
package sampling

import (
	"errors"
	"fmt"
	"math/rand"

	orb "github.com/paulmach/orb"
)

var (
	// ErrInvalidRegion is returned for regions with no surface
	ErrInvalidRegion = errors.New("invalid region")
	// ErrNoRegions is returned when a generator is built without regions
	ErrNoRegions = errors.New("no regions defined")
)

// Region is a named rectangle of reachable space
type Region struct {
	Name  string
	Bound orb.Bound
}

// NewRegion checks the bounds and returns the region. Left must be below
// right and top below bottom.
func NewRegion(name string, left, right, top, bottom float64) (Region, error) {
	r := Region{
		Name:  name,
		Bound: orb.Bound{Min: orb.Point{left, top}, Max: orb.Point{right, bottom}},
	}
	if left >= right || top >= bottom {
		return Region{}, fmt.Errorf("%w: %s", ErrInvalidRegion, r)
	}
	return r, nil
}

// Area is the surface of the region
func (r Region) Area() float64 {
	return (r.Bound.Max.X() - r.Bound.Min.X()) * (r.Bound.Max.Y() - r.Bound.Min.Y())
}

func (r Region) String() string {
	return fmt.Sprintf("%s: [%f,%f]-[%f,%f]", r.Name,
		r.Bound.Min.X(), r.Bound.Min.Y(), r.Bound.Max.X(), r.Bound.Max.Y())
}

// Generator picks positions from its regions. The chance of a region is
// proportional to its surface, the position inside it is uniform.
// The random source is passed per call so a generator can be shared.
type Generator struct {
	regions []Region
	total   float64
}

// NewGenerator validates all regions up front.
func NewGenerator(regions ...Region) (*Generator, error) {
	if len(regions) == 0 {
		return nil, ErrNoRegions
	}
	g := &Generator{}
	for _, r := range regions {
		if r.Area() <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRegion, r)
		}
		g.regions = append(g.regions, r)
		g.total += r.Area()
	}
	return g, nil
}

// FromBounds builds a generator from plain bounds, e.g. mission regions.
func FromBounds(bounds []orb.Bound) (*Generator, error) {
	regions := make([]Region, 0, len(bounds))
	for i, b := range bounds {
		regions = append(regions, Region{Name: fmt.Sprintf("region-%d", i), Bound: b})
	}
	return NewGenerator(regions...)
}

// Regions returns a copy of the configured regions.
func (g *Generator) Regions() []Region {
	return append([]Region(nil), g.regions...)
}

// Bounds returns the rectangles of all regions.
func (g *Generator) Bounds() []orb.Bound {
	out := make([]orb.Bound, 0, len(g.regions))
	for _, r := range g.regions {
		out = append(out, r.Bound)
	}
	return out
}

// Contains reports whether p lies inside any region.
func (g *Generator) Contains(p orb.Point) bool {
	for _, r := range g.regions {
		if r.Bound.Contains(p) {
			return true
		}
	}
	return false
}

// RandomPosition returns a random position from a random region.
func (g *Generator) RandomPosition(rnd *rand.Rand) orb.Point {
	r := g.randomRegion(rnd)
	x := boundedRandom(rnd, r.Bound.Min.X(), r.Bound.Max.X())
	y := boundedRandom(rnd, r.Bound.Min.Y(), r.Bound.Max.Y())
	return orb.Point{x, y}
}

func (g *Generator) randomRegion(rnd *rand.Rand) Region {
	surface := rnd.Float64() * g.total
	for _, r := range g.regions {
		if surface < r.Area() {
			return r
		}
		surface -= r.Area()
	}
	return g.regions[len(g.regions)-1]
}

func boundedRandom(rnd *rand.Rand, from, to float64) float64 {
	return from + (to-from)*rnd.Float64()
}
