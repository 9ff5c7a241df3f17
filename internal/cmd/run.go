package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skovsen/D2D_CleanerLogic/internal/config"
	"github.com/skovsen/D2D_CleanerLogic/internal/metrics"
	"github.com/skovsen/D2D_CleanerLogic/internal/monitor"
	"github.com/skovsen/D2D_CleanerLogic/internal/sim"
	"github.com/skovsen/D2D_CleanerLogic/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation and report which garbage got collected",
	Long: `Run a scenario in simulated time. Every robot starts with its own list
of garbage locations. At the end the reach ledger is printed, written to
the output directory as text and GeoJSON and archived in the run database.

Without --scenario the office and corridor map of the original
experiments is used.`,
	RunE: runRun,
}

var (
	runScenario   string        // Scenario file, TOML or YAML
	runDuration   time.Duration // Overrides the scenario duration
	runSeed       int64         // Overrides the scenario seed
	runPace       float64       // Wall seconds per simulated second
	runStopOnDone bool          // Stop as soon as every location is reached
)

func init() {
	runCmd.Flags().StringVarP(&runScenario, "scenario", "s", "", "scenario file (.toml, .yaml)")
	runCmd.Flags().DurationVar(&runDuration, "duration", 0, "simulated time to run, overrides the scenario")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "random seed, overrides the scenario")
	runCmd.Flags().Float64Var(&runPace, "pace", 0, "wall seconds per simulated second, 0 runs as fast as possible")
	runCmd.Flags().BoolVar(&runStopOnDone, "stop-when-done", false, "stop once every location is reached")
	runCmd.Flags().String("strategy", "swap", "peer recovery strategy: swap or adopt")
	runCmd.Flags().String("out", "out", "directory for stats and GeoJSON files")
	runCmd.Flags().String("db", "out/runs.db", "SQLite run archive, empty to disable")
	_ = viper.BindPFlag("protocol.strategy", runCmd.Flags().Lookup("strategy"))
	_ = viper.BindPFlag("output.dir", runCmd.Flags().Lookup("out"))
	_ = viper.BindPFlag("output.database", runCmd.Flags().Lookup("db"))
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	scenario := config.DefaultScenario()
	if runScenario != "" {
		if scenario, err = config.LoadScenario(runScenario); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("duration") {
		scenario.Duration = runDuration
	}
	if cmd.Flags().Changed("seed") {
		scenario.Seed = runSeed
	}

	mission, err := scenario.Mission()
	if err != nil {
		return err
	}
	strategy, err := cfg.Strategy()
	if err != nil {
		return err
	}
	m, err := metrics.NewMetrics()
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}

	s, err := sim.New(sim.Setup{
		Mission:       mission,
		Robots:        scenario.SimRobots(),
		RandomGarbage: scenario.GarbagePerRobot,
		Params:        cfg.RobotParams(),
		Strategy:      strategy,
		Periods:       cfg.SimPeriods(),
		Motion:        scenario.MotionOptions(),
		Seed:          scenario.Seed,
		Pace:          runPace,
		StopWhenDone:  runStopOnDone,
		Logger:        logger,
		Metrics:       m,
	})
	if err != nil {
		return fmt.Errorf("setting up simulation: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	started := time.Now()
	sum, runErr := s.Run(ctx, scenario.Duration)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if runErr != nil {
		logger.Warn().Err(runErr).Msg("interrupted, keeping the partial ledger")
	}

	out := cmd.OutOrStdout()
	s.Ledger.PrintStatus(out)

	if err := writeArtefacts(s, scenario.Name, cfg.Output.Dir, logger); err != nil {
		return err
	}
	if cfg.Output.Database != "" {
		run := store.Run{
			ID:        s.ID,
			Scenario:  scenario.Name,
			Strategy:  strategy.Name(),
			Seed:      scenario.Seed,
			Robots:    len(s.Agents),
			Duration:  s.Scheduler.Now(),
			StartedAt: started,
		}
		if err := archiveRun(ctx, cfg.Output.Database, run, s.Ledger.Entries(), logger); err != nil {
			return err
		}
	}

	printOutcome(out, s.ID, sum)
	return runErr
}

func writeArtefacts(s *sim.Simulation, name, dir string, logger zerolog.Logger) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	base := filepath.Join(dir, fmt.Sprintf("%s-%s", name, s.ID))
	if err := s.Ledger.WriteStats(base + ".txt"); err != nil {
		return err
	}
	if err := s.Ledger.WriteGeoJSON(base + ".geojson"); err != nil {
		return err
	}
	logger.Info().Str("stats", base+".txt").Str("geojson", base+".geojson").Msg("ledger written")
	return nil
}

func archiveRun(ctx context.Context, path string, run store.Run, entries []monitor.Entry, logger zerolog.Logger) error {
	st, err := store.NewSQLiteStore(path, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	// the run context may already be canceled by an interrupt, archive anyway
	return st.SaveRun(context.WithoutCancel(ctx), run, entries)
}

func printOutcome(w io.Writer, id string, sum monitor.Summary) {
	c := color.New(color.FgGreen, color.Bold)
	if !sum.Done() {
		c = color.New(color.FgYellow, color.Bold)
	}
	c.Fprintf(w, "run %s: %d/%d reached, last at %s\n", id, sum.Reached, sum.Total, sum.LastReach)
}
