package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kebairia/reseed/internal/config"
	"github.com/kebairia/reseed/internal/destination"
)

var checkPrint bool

// checkCmd validates the configuration and resolves the restore tools
// without running a single process against any database.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate config and restore tools without touching any database",
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg config.Config
		if err := cfg.Load(ConfigFile); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := destination.CheckTools(cfg); err != nil {
			return err
		}
		if checkPrint {
			// Effective config after includes and defaults.
			data, err := yaml.Marshal(&cfg)
			if err != nil {
				return fmt.Errorf("marshal effective config: %w", err)
			}
			fmt.Print(string(data))
			return nil
		}
		for _, inst := range cfg.Postgres.Instances {
			printInstance(destination.EnginePostgres, cfg.Postgres.Tool, inst)
		}
		for _, inst := range cfg.MySQL.Instances {
			printInstance(destination.EngineMySQL, cfg.MySQL.Tool, inst)
		}
		fmt.Printf("config %s is valid, restore tools resolved\n", ConfigFile)
		return nil
	},
}

func printInstance(engine, tool string, inst config.DBInstance) {
	source := inst.Artifact.Source
	if source == "" {
		source = "local"
	}
	fmt.Printf("  %s/%s: database=%s tool=%s artifact=%s wipe=%t\n",
		engine, inst.Name, inst.Database, tool, source, inst.Wipe)
}

func init() {
	checkCmd.Flags().
		BoolVar(&checkPrint, "print", false, "print the effective configuration as YAML")
}
