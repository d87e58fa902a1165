package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kebairia/reseed/internal/logger"
)

// ConfigFile is the path to the YAML configuration.
var (
	ConfigFile string
	// rootCmd is the base command for reseed.
	rootCmd = &cobra.Command{
		Use:   "reseed",
		Short: "CLI tool for restoring database dumps",
		Long: `reseed restores SQL dumps into PostgreSQL and MySQL instances
based on your YAML configuration file.`,
		SilenceUsage: true,
	}
)

// Execute runs the root command.
func Execute() {
	log, err := logger.Init()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		log.Error("command failed", "error", err)
		logger.Cleanup()
		os.Exit(1)
	}
	logger.Cleanup()
}

func init() {
	rootCmd.PersistentFlags().
		StringVarP(&ConfigFile, "config", "c", "./configs/config.yaml", "path to YAML config file")
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}
