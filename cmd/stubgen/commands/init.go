package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/basalt-data/stubgen/config"
)

// InitCmd seeds a project-local config file.
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default stubgen.toml",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "stubgen.toml"
		if flagConfig != "" {
			path = flagConfig
		}
		if err := config.WriteFile(config.Default(), path); err != nil {
			return err
		}
		pterm.Success.Printf("wrote %s\n", path)
		return nil
	},
}
