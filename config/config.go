// Package config loads stubgen's TOML configuration: where the introspection
// feed and the stub files live, how cross-module references are treated, and
// any extensions to the well-known type table.
package config

import (
	"github.com/basalt-data/stubgen/errors"
	"github.com/basalt-data/stubgen/resolve"
)

// Config is the full stubgen configuration.
type Config struct {
	// Feed is the path to the introspection JSON dump.
	Feed string `mapstructure:"feed" toml:"feed"`

	// OutputDir is the directory the stub files are read from and written
	// back to.
	OutputDir string `mapstructure:"output_dir" toml:"output_dir"`

	// Workers bounds how many modules are processed concurrently. Modules
	// are independent; this is throughput only.
	Workers int `mapstructure:"workers" toml:"workers"`

	// Policies maps referencing module -> defining module -> "import" or
	// "re-export". Unlisted pairs default to "import".
	Policies map[string]map[string]string `mapstructure:"policies" toml:"policies"`

	// WellKnown extends the type mapper's well-known table: native type head
	// -> dotted target name, e.g. JobId = "uuid.UUID".
	WellKnown map[string]string `mapstructure:"well_known" toml:"well_known"`
}

// Validate checks the configuration for values the pipeline cannot use.
func (c *Config) Validate() error {
	if c.Feed == "" {
		return errors.New("config: feed path is required")
	}
	if c.OutputDir == "" {
		return errors.New("config: output_dir is required")
	}
	if c.Workers < 1 {
		return errors.Newf("config: workers must be positive, got %d", c.Workers)
	}
	for referencing, byDef := range c.Policies {
		for defining, policy := range byDef {
			switch resolve.Policy(policy) {
			case resolve.PolicyImport, resolve.PolicyReexport:
			default:
				return errors.Newf("config: policies.%s.%s: unknown policy %q",
					referencing, defining, policy)
			}
		}
	}
	return nil
}

// PolicyTable converts the raw policy strings into the resolver's form.
// Call Validate first.
func (c *Config) PolicyTable() map[string]map[string]resolve.Policy {
	out := make(map[string]map[string]resolve.Policy, len(c.Policies))
	for referencing, byDef := range c.Policies {
		m := make(map[string]resolve.Policy, len(byDef))
		for defining, policy := range byDef {
			m[defining] = resolve.Policy(policy)
		}
		out[referencing] = m
	}
	return out
}
