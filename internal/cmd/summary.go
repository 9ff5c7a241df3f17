package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/skovsen/D2D_CleanerLogic/internal/config"
	"github.com/skovsen/D2D_CleanerLogic/internal/store"
)

var summaryCmd = &cobra.Command{
	Use:   "summary [run-id]",
	Short: "Compare archived runs",
	Long: `List archived runs with how many locations were reached and when the
last one was reached. With a run id the full ledger of that run is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummary,
}

var (
	summaryLimit int // Number of runs to list
)

func init() {
	summaryCmd.Flags().IntVarP(&summaryLimit, "limit", "n", 20, "number of runs to list, 0 for all")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Output.Database == "" {
		return fmt.Errorf("no run database configured")
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(cfg.Output.Database, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		entries, err := st.Entries(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintln(out, e.String())
		}
		return nil
	}

	sums, err := st.RunSummaries(cmd.Context(), summaryLimit)
	if err != nil {
		return err
	}
	printSummaries(out, sums)
	return nil
}

func printSummaries(w io.Writer, sums []store.RunSummary) {
	if len(sums) == 0 {
		fmt.Fprintln(w, "No runs archived")
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "RUNS")
	fmt.Fprintln(w, strings.Repeat("─", 96))
	fmt.Fprintf(w, "%-36s  %-12s  %-6s  %6s  %9s  %12s  %s\n",
		"ID", "SCENARIO", "POLICY", "SEED", "REACHED", "LAST", "STARTED")
	for _, s := range sums {
		reached := fmt.Sprintf("%d/%d", s.Reached, s.Total)
		line := fmt.Sprintf("%-36s  %-12s  %-6s  %6d  %9s  %12s  %s",
			s.ID, s.Scenario, s.Strategy, s.Seed, reached, s.LastReach, s.StartedAt.Local().Format("2006-01-02 15:04:05"))
		if s.Total > 0 && s.Reached == s.Total {
			color.New(color.FgGreen).Fprintln(w, line)
		} else {
			fmt.Fprintln(w, line)
		}
	}
}
