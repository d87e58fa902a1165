package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// starterConfig is written by `reseed init`. A template keeps the comments
// that yaml.Marshal would drop.
const starterConfig = `# reseed configuration
restore:
  timeout: 10m
  run_dir: ./runs

# vault:
#   address: https://vault.example.com:8200
#   approle_name: reseed

postgres:
  host: localhost
  port: 5432
  instances:
    - name: app
      database: app
      username: app_user
      password_env: RESEED_PG_PASSWORD
      wipe: true
      artifact:
        source: local
        local:
          path: ./dumps/app.sql

mysql:
  instances: []
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(ConfigFile); err == nil {
			return fmt.Errorf("a config file already exists at %s", ConfigFile)
		}
		if dir := filepath.Dir(ConfigFile); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %s: %w", dir, err)
			}
		}
		if err := os.WriteFile(ConfigFile, []byte(starterConfig), 0o644); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}
		fmt.Printf("wrote starter config to %s\n", ConfigFile)
		return nil
	},
}
