package cmd

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skovsen/D2D_CleanerLogic/internal/config"
	"github.com/skovsen/D2D_CleanerLogic/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "fleetsim",
	Short: "Simulate a fleet of cleaning robots recovering from deadlocks",
	Long: `fleetsim drives a fleet of cleaning robots through an office map in
simulated time. Robots that block each other in a corridor either give up
on their own after a while or resolve the deadlock with a nearby peer by
adopting or swapping destinations.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./fleetsim.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: trace, debug, info, warn, error, disabled")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("fleetsim")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("FLEETSIM")
	// e.g. FLEETSIM_PROTOCOL_PEER_DISTANCE for protocol.peer_distance
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// newLogger builds the logger all commands log through, on stderr so
// command output stays clean.
func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	return logging.New(os.Stderr, "fleetsim", cfg.Log.Level, cfg.Log.Console)
}
