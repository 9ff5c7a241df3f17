package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skovsen/D2D_CleanerLogic/internal/config"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Print the default office scenario as TOML",
	Long: `Print the office and corridor map of the original experiments as a
TOML scenario. Use it as a starting point for your own maps.`,
	RunE: runScenarioCmd,
}

var (
	scenarioOutput string // File to write instead of stdout
)

func init() {
	scenarioCmd.Flags().StringVarP(&scenarioOutput, "output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(scenarioCmd)
}

func runScenarioCmd(cmd *cobra.Command, args []string) error {
	s := config.DefaultScenario()
	if scenarioOutput == "" {
		return s.WriteTOML(cmd.OutOrStdout())
	}

	f, err := os.Create(scenarioOutput)
	if err != nil {
		return fmt.Errorf("creating scenario file: %w", err)
	}
	defer f.Close()
	if err := s.WriteTOML(f); err != nil {
		return fmt.Errorf("writing scenario: %w", err)
	}
	return f.Close()
}
