// Package commands defines the stubgen CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/basalt-data/stubgen/config"
	"github.com/basalt-data/stubgen/logger"
)

var (
	flagConfig  string
	flagJSON    bool
	flagVerbose bool
)

// RootCmd is the stubgen entry point.
var RootCmd = &cobra.Command{
	Use:   "stubgen",
	Short: "Generate and merge type stubs for a compiled extension module",
	Long: `stubgen turns an introspection dump of a compiled extension module into
Python type stub (.pyi) files, one per submodule.

Introspection is lossy, so stubs are expected to be refined by hand after
generation. Regenerating merges the fresh stubs with the previous ones:
new members are added, vanished members are removed, and hand-refined
types and docstrings are preserved instead of regressing to placeholders.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Initialize(flagJSON, flagVerbose)
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file (default: ./stubgen.toml)")
	RootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	RootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")

	RootCmd.AddCommand(GenerateCmd)
	RootCmd.AddCommand(CheckCmd)
	RootCmd.AddCommand(WatchCmd)
	RootCmd.AddCommand(InitCmd)
	RootCmd.AddCommand(VersionCmd)
}

// loadConfig loads the configured or default config file.
func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.LoadFromFile(flagConfig)
	}
	return config.Load()
}
