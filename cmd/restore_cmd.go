package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kebairia/reseed/internal/operations"
)

var restoreName string

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore all databases based on config",
	RunE: func(cmd *cobra.Command, args []string) error {
		if restoreName != "" {
			return operations.RestoreOne(cmd.Context(), ConfigFile, restoreName)
		}
		return operations.RestoreAll(cmd.Context(), ConfigFile)
	},
}

func init() {
	restoreCmd.Flags().
		StringVarP(&restoreName, "name", "n", "", "restore only the named database instance")
}
