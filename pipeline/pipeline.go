// Package pipeline wires the stages together: feed load, extraction, type
// mapping, reference resolution, merge against the prior snapshot, and
// atomic write. One run is a pure batch transformation from (feed, previous
// snapshot) to (new snapshot, change report).
package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/basalt-data/stubgen/config"
	"github.com/basalt-data/stubgen/errors"
	"github.com/basalt-data/stubgen/introspect"
	"github.com/basalt-data/stubgen/merge"
	"github.com/basalt-data/stubgen/pyi"
	"github.com/basalt-data/stubgen/report"
	"github.com/basalt-data/stubgen/resolve"
	"github.com/basalt-data/stubgen/snapshot"
	"github.com/basalt-data/stubgen/stub"
	"github.com/basalt-data/stubgen/typemap"
)

// Options tune one run beyond the configuration file.
type Options struct {
	// WriteDir overrides where new snapshots are written. Prior snapshots
	// are still read from the configured output directory; `stubgen check`
	// uses this to generate into a scratch directory for comparison.
	WriteDir string
	// DryRun skips writing entirely.
	DryRun bool
}

// Run executes the full pipeline for every module in the feed. Per-module
// failures are recorded in the report and never abort the run; the returned
// error is reserved for run-level problems such as an unreadable feed.
func Run(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, opts Options) (*report.RunReport, error) {
	feed, err := introspect.ReadFeedFile(cfg.Feed)
	if err != nil {
		return nil, err
	}
	return RunFeed(ctx, cfg, log, opts, feed)
}

// RunFeed is Run with an already loaded feed, for callers that stream the
// feed from elsewhere (tests, watch mode).
func RunFeed(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, opts Options, feed *introspect.Feed) (*report.RunReport, error) {
	rep := &report.RunReport{Package: feed.Package}

	intermediate, warnings := introspect.Extract(feed)
	for _, w := range warnings {
		rep.Module(w.Module).Warnings = append(rep.Module(w.Module).Warnings, w.String())
		log.Debugw("extraction warning", "module", w.Module, "decl", w.Decl, "message", w.Message)
	}

	// Mapping is cheap and the resolver needs the full module set for its
	// index, so map everything up front.
	mapper := typemap.New(cfg.WellKnown)
	modules := make([]*stub.Module, 0, len(intermediate))
	for _, im := range intermediate {
		mod, diags := mapper.MapModule(im)
		mr := rep.Module(mod.Name)
		for _, d := range diags {
			mr.Unmapped = append(mr.Unmapped, d.String())
		}
		modules = append(modules, mod)
	}

	resolver := resolve.New(modules, cfg.PolicyTable())

	readStore := &snapshot.Store{Dir: cfg.OutputDir, RootModule: feed.Package}
	writeStore := readStore
	if opts.WriteDir != "" {
		writeStore = &snapshot.Store{Dir: opts.WriteDir, RootModule: feed.Package}
	}

	// Modules are independent; process them across a bounded worker pool.
	// The mapper table and resolver index are read-only by now, and each
	// worker only touches its own module and report entry.
	workers := cfg.Workers
	if workers > len(modules) {
		workers = len(modules)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan *stub.Module)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for mod := range jobs {
				mr := rep.Module(mod.Name)
				if err := processModule(mod, resolver, readStore, writeStore, opts, log, mr); err != nil {
					mr.Error = err.Error()
					log.Errorw("module failed", "module", mod.Name, "error", err)
				}
			}
		}()
	}

	for _, mod := range modules {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return rep, errors.Wrap(ctx.Err(), "run cancelled")
		case jobs <- mod:
		}
	}
	close(jobs)
	wg.Wait()

	rep.Sort()
	return rep, nil
}

// processModule runs stages 3..4 plus IO for a single module. Any returned
// error is fatal for this module only and leaves its old snapshot untouched.
func processModule(mod *stub.Module, resolver *resolve.Resolver,
	readStore, writeStore *snapshot.Store, opts Options,
	log *zap.SugaredLogger, mr *report.ModuleReport) error {

	warnings, err := resolver.ResolveModule(mod)
	for _, w := range warnings {
		mr.Warnings = append(mr.Warnings, w.String())
	}
	if err != nil {
		return err
	}

	var oldMod *stub.Module
	oldText, found, err := readStore.Load(mod.Name)
	if err != nil {
		return err
	}
	if found {
		oldMod, err = pyi.Parse(oldText, mod.Name, mod.Package)
		if err != nil {
			return err
		}
	}

	merged := merge.Modules(mod, oldMod, mr)

	for _, d := range merged.Decls {
		d.WalkTypes(func(t stub.TypeExpr) {
			if t.IsUnknown() {
				mr.UnknownCount++
			}
		})
	}

	rendered := pyi.Render(merged)
	if opts.DryRun {
		return nil
	}
	if err := writeStore.Write(mod.Name, rendered); err != nil {
		return err
	}

	log.Infow("module written",
		"module", mod.Name,
		"path", writeStore.Path(mod.Name),
		"added", len(mr.Added),
		"removed", len(mr.Removed),
		"preserved", len(mr.Preserved),
		"unknown", mr.UnknownCount,
	)
	return nil
}
