package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/basalt-data/stubgen/errors"
	"github.com/basalt-data/stubgen/logger"
	"github.com/basalt-data/stubgen/pipeline"
)

var generateDryRun bool

// GenerateCmd runs the full pipeline once.
var GenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate stub files from the introspection feed",
	Long: `Run the full pipeline: read the introspection feed, map native types to
target types, resolve cross-module references, merge with the existing
stub files, and write the result atomically.

Per-module failures (a reference conflict, an unreadable snapshot) skip
that module and leave its stub file untouched; the run continues with the
remaining modules and exits non-zero at the end.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		rep, err := pipeline.Run(cmd.Context(), cfg, logger.Named("pipeline"), pipeline.Options{DryRun: generateDryRun})
		if err != nil {
			return err
		}

		if flagJSON {
			out, err := rep.JSON()
			if err != nil {
				return err
			}
			fmt.Println(string(out))
		} else {
			rep.Print()
		}

		if rep.Fatal() {
			return errors.New("one or more modules failed")
		}
		return nil
	},
}

func init() {
	GenerateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Run the pipeline without writing stub files")
}
