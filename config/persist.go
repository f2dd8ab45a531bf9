package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/basalt-data/stubgen/errors"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Feed:      "introspection.json",
		OutputDir: "stubs",
		Workers:   4,
	}
}

// WriteFile persists a configuration as TOML. Used by `stubgen init` to seed
// a project-local stubgen.toml; refuses to clobber an existing file.
func WriteFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Newf("%s already exists", path)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
