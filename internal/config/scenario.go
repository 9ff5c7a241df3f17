package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	orb "github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	cleanerlogic "github.com/skovsen/D2D_CleanerLogic"
	"github.com/skovsen/D2D_CleanerLogic/internal/motion"
	"github.com/skovsen/D2D_CleanerLogic/internal/sampling"
	"github.com/skovsen/D2D_CleanerLogic/internal/sim"
)

// Scenario describes the map, the robots and how long to run
type Scenario struct {
	Name string `toml:"name" yaml:"name"`
	Seed int64  `toml:"seed" yaml:"seed"`
	// DurationRaw is parsed into Duration after decoding, e.g. "300s"
	DurationRaw string        `toml:"duration" yaml:"duration"`
	Duration    time.Duration `toml:"-" yaml:"-"`
	// Speed and Radius of the robots, zero keeps the motion defaults
	Speed  float64 `toml:"speed,omitempty" yaml:"speed,omitempty"`
	Radius float64 `toml:"radius,omitempty" yaml:"radius,omitempty"`
	// GarbagePerRobot random locations for robots without explicit garbage
	GarbagePerRobot int `toml:"garbage_per_robot" yaml:"garbage_per_robot"`
	// RegionsGeoJSON replaces Regions with polygons from a GeoJSON file,
	// relative paths are resolved against the scenario file
	RegionsGeoJSON string         `toml:"regions_geojson,omitempty" yaml:"regions_geojson,omitempty"`
	Regions        []RegionConfig `toml:"regions" yaml:"regions"`
	Robots         []RobotConfig  `toml:"robots" yaml:"robots"`
}

// RegionConfig is a rectangle of reachable space, top is the smaller y
type RegionConfig struct {
	Name   string  `toml:"name" yaml:"name"`
	Left   float64 `toml:"left" yaml:"left"`
	Right  float64 `toml:"right" yaml:"right"`
	Top    float64 `toml:"top" yaml:"top"`
	Bottom float64 `toml:"bottom" yaml:"bottom"`
}

// RobotConfig is a robot, where it starts and optionally its garbage
type RobotConfig struct {
	ID      string       `toml:"id" yaml:"id"`
	X       float64      `toml:"x" yaml:"x"`
	Y       float64      `toml:"y" yaml:"y"`
	Garbage [][2]float64 `toml:"garbage,omitempty" yaml:"garbage,omitempty"`
}

// DefaultScenario is the office and corridor map of the garbage collection demo
func DefaultScenario() *Scenario {
	return &Scenario{
		Name:            "office",
		Seed:            42,
		DurationRaw:     "300s",
		Duration:        300 * time.Second,
		GarbagePerRobot: 10,
		Regions: []RegionConfig{
			{Name: "Office1", Left: 11.50, Right: 13.50, Top: 1.00, Bottom: 8.00},
			{Name: "Office2", Left: 16.50, Right: 18.25, Top: 1.00, Bottom: 8.00},
			{Name: "Corridor left", Left: 2.25, Right: 4.75, Top: 10.50, Bottom: 13.75},
			{Name: "Corridor center left", Left: 6.25, Right: 14.25, Top: 10.50, Bottom: 13.75},
			{Name: "Corridor center right", Left: 15.75, Right: 23.75, Top: 10.50, Bottom: 13.75},
			{Name: "Corridor right", Left: 25.25, Right: 28.75, Top: 10.50, Bottom: 13.75},
		},
		Robots: []RobotConfig{
			{ID: "Collector0", X: 12, Y: 5},
			{ID: "Collector1", X: 12, Y: 13},
		},
	}
}

// LoadScenario reads a TOML or YAML scenario, chosen by file extension.
func LoadScenario(path string) (*Scenario, error) {
	var s Scenario
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.DecodeFile(path, &s); err != nil {
			return nil, fmt.Errorf("decoding scenario %s: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading scenario: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decoding scenario %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported scenario format %q", ErrInvalidConfig, ext)
	}

	if s.RegionsGeoJSON != "" && !filepath.IsAbs(s.RegionsGeoJSON) {
		s.RegionsGeoJSON = filepath.Join(filepath.Dir(path), s.RegionsGeoJSON)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := s.parseDurations(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) parseDurations() error {
	if s.DurationRaw == "" {
		s.Duration = 300 * time.Second
		return nil
	}
	d, err := time.ParseDuration(s.DurationRaw)
	if err != nil {
		return fmt.Errorf("%w: duration: %v", ErrInvalidConfig, err)
	}
	s.Duration = d
	return nil
}

// Validate checks robots and regions
func (s *Scenario) Validate() error {
	if s.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidConfig)
	}
	if len(s.Robots) == 0 {
		return fmt.Errorf("%w: no robots", ErrInvalidConfig)
	}
	if len(s.Regions) == 0 && s.RegionsGeoJSON == "" {
		return fmt.Errorf("%w: no regions", ErrInvalidConfig)
	}
	if s.Speed < 0 || s.Radius < 0 || s.GarbagePerRobot < 0 {
		return fmt.Errorf("%w: speed, radius and garbage_per_robot must not be negative", ErrInvalidConfig)
	}

	seen := map[string]bool{}
	for _, r := range s.Robots {
		if r.ID == "" {
			return fmt.Errorf("%w: robot without id", ErrInvalidConfig)
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: duplicate robot %s", ErrInvalidConfig, r.ID)
		}
		seen[r.ID] = true
	}
	for _, r := range s.Regions {
		if _, err := sampling.NewRegion(r.Name, r.Left, r.Right, r.Top, r.Bottom); err != nil {
			return err
		}
	}
	return nil
}

// Mission builds the map and the explicit garbage of every robot.
func (s *Scenario) Mission() (cleanerlogic.Mission, error) {
	m := cleanerlogic.Mission{
		Description: s.Name,
		Garbage:     map[string][]orb.Point{},
	}

	if s.RegionsGeoJSON != "" {
		if err := m.LoadFeatures(s.RegionsGeoJSON); err != nil {
			return cleanerlogic.Mission{}, err
		}
	} else {
		bounds := make([]orb.Bound, 0, len(s.Regions))
		for _, rc := range s.Regions {
			r, err := sampling.NewRegion(rc.Name, rc.Left, rc.Right, rc.Top, rc.Bottom)
			if err != nil {
				return cleanerlogic.Mission{}, err
			}
			bounds = append(bounds, r.Bound)
		}
		m.SetRegions(bounds)
	}

	for _, r := range s.Robots {
		for _, g := range r.Garbage {
			m.Garbage[r.ID] = append(m.Garbage[r.ID], orb.Point{g[0], g[1]})
		}
	}
	return m, nil
}

// SimRobots lists the robots with their start positions.
func (s *Scenario) SimRobots() []sim.Robot {
	out := make([]sim.Robot, 0, len(s.Robots))
	for _, r := range s.Robots {
		out = append(out, sim.Robot{ID: r.ID, Start: orb.Point{r.X, r.Y}})
	}
	return out
}

// MotionOptions applies the scenario speed and radius to the defaults.
func (s *Scenario) MotionOptions() motion.Options {
	opts := motion.DefaultOptions()
	if s.Speed > 0 {
		opts.Speed = s.Speed
	}
	if s.Radius > 0 {
		opts.Radius = s.Radius
	}
	return opts
}

// WriteTOML encodes the scenario, e.g. as a starting point for a new one.
func (s *Scenario) WriteTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(s)
}
