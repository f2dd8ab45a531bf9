package config

import (
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/basalt-data/stubgen/errors"
)

// SetDefaults installs the default configuration values on a Viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("feed", "introspection.json")
	v.SetDefault("output_dir", "stubs")
	v.SetDefault("workers", 4)
}

func initViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("stubgen")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	SetDefaults(v)

	v.SetEnvPrefix("STUBGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the configuration from ./stubgen.toml if present, falling back
// to defaults and STUBGEN_* environment variables.
func Load() (*Config, error) {
	v := initViper()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	return LoadWithViper(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read config file %s", path)
	}
	return LoadWithViper(v)
}

// LoadWithViper unmarshals and validates configuration from a prepared Viper
// instance.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := reloadKeyedTables(v, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// reloadKeyedTables re-decodes the well_known and policies tables straight
// from the config file. Viper lowercases every map key, which would break
// lookups keyed on capitalized native type heads ("JobId") and any
// capitalized module name.
func reloadKeyedTables(v *viper.Viper, cfg *Config) error {
	path := v.ConfigFileUsed()
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reread config file %s", path)
	}

	var tables struct {
		Policies  map[string]map[string]string `toml:"policies"`
		WellKnown map[string]string            `toml:"well_known"`
	}
	if err := toml.Unmarshal(data, &tables); err != nil {
		return errors.Wrapf(err, "decode config file %s", path)
	}
	if tables.Policies != nil {
		cfg.Policies = tables.Policies
	}
	if tables.WellKnown != nil {
		cfg.WellKnown = tables.WellKnown
	}
	return nil
}
