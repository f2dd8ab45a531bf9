package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basalt-data/stubgen/resolve"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stubgen.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
feed = "build/introspection.json"
output_dir = "python/basalt"
workers = 2

[policies.state]
schema = "re-export"

[well_known]
JobId = "uuid.UUID"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "build/introspection.json", cfg.Feed)
	assert.Equal(t, "python/basalt", cfg.OutputDir)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "re-export", cfg.Policies["state"]["schema"])
	assert.Equal(t, "uuid.UUID", cfg.WellKnown["JobId"])
}

func TestLoadFromFileKeepsTableKeyCase(t *testing.T) {
	path := writeConfig(t, `
feed = "dump.json"

[policies.State]
Schema = "re-export"

[well_known]
JobId = "uuid.UUID"
NaiveDate = "datetime.date"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "uuid.UUID", cfg.WellKnown["JobId"])
	assert.Equal(t, "datetime.date", cfg.WellKnown["NaiveDate"])
	assert.NotContains(t, cfg.WellKnown, "jobid")

	assert.Equal(t, "re-export", cfg.Policies["State"]["Schema"])
	assert.NotContains(t, cfg.Policies, "state")
}

func TestLoadFromFileDefaults(t *testing.T) {
	path := writeConfig(t, `feed = "dump.json"`+"\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "stubs", cfg.OutputDir)
	assert.Equal(t, 4, cfg.Workers)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
		want string
	}{
		{"missing feed", func(c *Config) { c.Feed = "" }, "feed"},
		{"missing output", func(c *Config) { c.OutputDir = "" }, "output_dir"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"bad policy", func(c *Config) {
			c.Policies = map[string]map[string]string{"a": {"b": "inline"}}
		}, "unknown policy"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mut(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestPolicyTable(t *testing.T) {
	cfg := Default()
	cfg.Policies = map[string]map[string]string{
		"state": {"schema": "re-export", "basalt": "import"},
	}
	require.NoError(t, cfg.Validate())

	table := cfg.PolicyTable()
	assert.Equal(t, resolve.PolicyReexport, table["state"]["schema"])
	assert.Equal(t, resolve.PolicyImport, table["state"]["basalt"])
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stubgen.toml")

	require.NoError(t, WriteFile(Default(), path))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestWriteFileRefusesExisting(t *testing.T) {
	path := writeConfig(t, "feed = \"x.json\"\n")
	err := WriteFile(Default(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
