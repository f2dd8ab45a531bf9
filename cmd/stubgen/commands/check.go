package commands

import (
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/basalt-data/stubgen/errors"
	"github.com/basalt-data/stubgen/logger"
	"github.com/basalt-data/stubgen/pipeline"
)

// CheckCmd regenerates into a scratch directory and compares the result with
// the persisted stub files.
var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether the stub files are up to date",
	Long: `Check if the persisted stub files match what a fresh run would produce.

Stubs are generated into a temporary directory, merged against the current
files as usual, and compared byte for byte. Because merging preserves hand
refinements, a refined file still checks clean; only real upstream changes
make it stale.

Exit codes:
  0 - stub files are up to date
  1 - stub files are stale or a module failed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		scratch, err := os.MkdirTemp("", "stubgen-check-*")
		if err != nil {
			return errors.Wrap(err, "create scratch directory")
		}
		defer os.RemoveAll(scratch)

		rep, err := pipeline.Run(cmd.Context(), cfg, logger.Named("pipeline"), pipeline.Options{WriteDir: scratch})
		if err != nil {
			return err
		}
		if rep.Fatal() {
			rep.Print()
			return errors.New("one or more modules failed")
		}

		entries, err := os.ReadDir(scratch)
		if err != nil {
			return errors.Wrap(err, "read scratch directory")
		}

		var stale []string
		for _, entry := range entries {
			fresh, err := os.ReadFile(filepath.Join(scratch, entry.Name()))
			if err != nil {
				return errors.Wrapf(err, "read %s", entry.Name())
			}
			current, err := os.ReadFile(filepath.Join(cfg.OutputDir, entry.Name()))
			if err != nil || string(current) != string(fresh) {
				stale = append(stale, entry.Name())
			}
		}

		if len(stale) > 0 {
			for _, name := range stale {
				pterm.Warning.Printf("stale: %s\n", name)
			}
			return errors.Newf("%d stub file(s) out of date; run `stubgen generate`", len(stale))
		}
		pterm.Success.Println("stub files are up to date")
		return nil
	},
}
