// Package config holds the fleet simulator tunables (viper) and the
// scenario files describing the map and the robots.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	cleanerlogic "github.com/skovsen/D2D_CleanerLogic"
	"github.com/skovsen/D2D_CleanerLogic/internal/sim"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the complete simulator configuration
type Config struct {
	Protocol ProtocolConfig `mapstructure:"protocol"`
	Periods  PeriodsConfig  `mapstructure:"periods"`
	Log      LogConfig      `mapstructure:"log"`
	Output   OutputConfig   `mapstructure:"output"`
}

// ProtocolConfig are the blocked detection and recovery tunables
type ProtocolConfig struct {
	SamePositionEpsilon     float64       `mapstructure:"same_position_epsilon"`
	ReachedEpsilon          float64       `mapstructure:"reached_epsilon"`
	NoChangeThreshold       int           `mapstructure:"no_change_threshold"`
	AutoRecoveryThreshold   int           `mapstructure:"auto_recovery_threshold"`
	RemoteRecoveryThreshold int           `mapstructure:"remote_recovery_threshold"`
	AdoptionBackoff         time.Duration `mapstructure:"adoption_backoff"`
	SwapBackoffCycles       int           `mapstructure:"swap_backoff_cycles"`
	PeerDistance            float64       `mapstructure:"peer_distance"`
	// Strategy is the peer recovery policy
	// Options: "swap", "adopt"
	Strategy string `mapstructure:"strategy"`
}

// PeriodsConfig are the process periods in simulated time
type PeriodsConfig struct {
	Sense    time.Duration `mapstructure:"sense"`
	Detect   time.Duration `mapstructure:"detect"`
	Recover  time.Duration `mapstructure:"recover"`
	Drive    time.Duration `mapstructure:"drive"`
	Reach    time.Duration `mapstructure:"reach"`
	Status   time.Duration `mapstructure:"status"`
	Ensemble time.Duration `mapstructure:"ensemble"`
	Physics  time.Duration `mapstructure:"physics"`
}

// LogConfig controls logging
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error, disabled
	Level string `mapstructure:"level"`
	// Console switches from JSON lines to human readable output
	Console bool `mapstructure:"console"`
}

// OutputConfig controls where run artefacts go
type OutputConfig struct {
	// Dir receives the stats and GeoJSON files
	Dir string `mapstructure:"dir"`
	// Database is the SQLite run archive, empty disables archiving
	Database string `mapstructure:"database"`
}

// Default returns the configuration the cleaning robot experiments ran with
func Default() *Config {
	params := cleanerlogic.DefaultParams()
	periods := sim.DefaultPeriods()
	return &Config{
		Protocol: ProtocolConfig{
			SamePositionEpsilon:     params.SamePositionEpsilon,
			ReachedEpsilon:          params.ReachedEpsilon,
			NoChangeThreshold:       params.NoChangeThreshold,
			AutoRecoveryThreshold:   params.AutoRecoveryThreshold,
			RemoteRecoveryThreshold: params.RemoteRecoveryThreshold,
			AdoptionBackoff:         params.AdoptionBackoff,
			SwapBackoffCycles:       params.SwapBackoffCycles,
			PeerDistance:            params.PeerDistance,
			Strategy:                "swap",
		},
		Periods: PeriodsConfig(periods),
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
		Output: OutputConfig{
			Dir:      "out",
			Database: "out/runs.db",
		},
	}
}

// SetDefaults registers the defaults with the global viper instance
func SetDefaults() {
	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	// Protocol defaults
	v.SetDefault("protocol.same_position_epsilon", defaults.Protocol.SamePositionEpsilon)
	v.SetDefault("protocol.reached_epsilon", defaults.Protocol.ReachedEpsilon)
	v.SetDefault("protocol.no_change_threshold", defaults.Protocol.NoChangeThreshold)
	v.SetDefault("protocol.auto_recovery_threshold", defaults.Protocol.AutoRecoveryThreshold)
	v.SetDefault("protocol.remote_recovery_threshold", defaults.Protocol.RemoteRecoveryThreshold)
	v.SetDefault("protocol.adoption_backoff", defaults.Protocol.AdoptionBackoff)
	v.SetDefault("protocol.swap_backoff_cycles", defaults.Protocol.SwapBackoffCycles)
	v.SetDefault("protocol.peer_distance", defaults.Protocol.PeerDistance)
	v.SetDefault("protocol.strategy", defaults.Protocol.Strategy)

	// Period defaults
	v.SetDefault("periods.sense", defaults.Periods.Sense)
	v.SetDefault("periods.detect", defaults.Periods.Detect)
	v.SetDefault("periods.recover", defaults.Periods.Recover)
	v.SetDefault("periods.drive", defaults.Periods.Drive)
	v.SetDefault("periods.reach", defaults.Periods.Reach)
	v.SetDefault("periods.status", defaults.Periods.Status)
	v.SetDefault("periods.ensemble", defaults.Periods.Ensemble)
	v.SetDefault("periods.physics", defaults.Periods.Physics)

	// Logging defaults
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.console", defaults.Log.Console)

	// Output defaults
	v.SetDefault("output.dir", defaults.Output.Dir)
	v.SetDefault("output.database", defaults.Output.Database)
}

// Load reads the configuration from the global viper instance and validates it
func Load() (*Config, error) {
	return load(viper.GetViper())
}

func load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidLogLevels returns the accepted log levels
func ValidLogLevels() []string {
	return []string{"trace", "debug", "info", "warn", "error", "disabled"}
}

// Validate checks every section and reports all problems at once
func (c *Config) Validate() error {
	var problems []string

	if err := c.RobotParams().Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.Strategy(); err != nil {
		problems = append(problems, err.Error())
	}
	if err := c.SimPeriods().Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Log.Level)) {
		problems = append(problems, fmt.Sprintf("log.level: must be one of %s (got: %q)",
			strings.Join(ValidLogLevels(), ", "), c.Log.Level))
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}

// RobotParams converts the protocol section for the agents
func (c *Config) RobotParams() cleanerlogic.Params {
	p := c.Protocol
	return cleanerlogic.Params{
		SamePositionEpsilon:     p.SamePositionEpsilon,
		ReachedEpsilon:          p.ReachedEpsilon,
		NoChangeThreshold:       p.NoChangeThreshold,
		AutoRecoveryThreshold:   p.AutoRecoveryThreshold,
		RemoteRecoveryThreshold: p.RemoteRecoveryThreshold,
		AdoptionBackoff:         p.AdoptionBackoff,
		SwapBackoffCycles:       p.SwapBackoffCycles,
		PeerDistance:            p.PeerDistance,
	}
}

// Strategy resolves the configured peer recovery policy
func (c *Config) Strategy() (cleanerlogic.RecoveryStrategy, error) {
	return cleanerlogic.ParseStrategy(c.Protocol.Strategy)
}

// SimPeriods converts the periods section for the scheduler
func (c *Config) SimPeriods() sim.Periods {
	return sim.Periods(c.Periods)
}
