package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/basalt-data/stubgen/config"
	"github.com/basalt-data/stubgen/introspect"
	"github.com/basalt-data/stubgen/report"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Feed:      "unused.json",
		OutputDir: t.TempDir(),
		Workers:   2,
	}
}

// testFeed mirrors the shape of a real extension: a root module that pulls
// classes from submodules, a schema module, and a state module with an
// enum-like group.
func testFeed() *introspect.Feed {
	return &introspect.Feed{
		Package: "basalt",
		Modules: []introspect.FeedModule{
			{Name: "basalt", Symbols: []introspect.Symbol{
				{Name: "connect", Kind: "function", Returns: "Client",
					Params: []introspect.FeedParam{
						{Name: "profile", Type: "Option<String>", Default: "None", KeywordOnly: true},
					}},
				{Name: "Client", Kind: "class", Doc: "A connection to the runtime.",
					Members: []introspect.Symbol{
						{Name: "tables", Kind: "function", Returns: "Vec<schema::Table>"},
						{Name: "mystery", Kind: "function", Unresolvable: true},
					}},
			}},
			{Name: "schema", Symbols: []introspect.Symbol{
				{Name: "Table", Kind: "class", Members: []introspect.Symbol{
					{Name: "name", Kind: "property", Type: "String"},
				}},
			}},
			{Name: "state", Symbols: []introspect.Symbol{
				{Name: "JobState", Kind: "enum", Members: []introspect.Symbol{
					{Name: "PENDING"}, {Name: "RUNNING"}, {Name: "FAILED"},
				}},
			}},
			{Name: "exceptions", Symbols: []introspect.Symbol{
				{Name: "BasaltError", Kind: "class", Extends: "Exception"},
				{Name: "JobError", Kind: "class", Extends: "BasaltError"},
			}},
		},
	}
}

func run(t *testing.T, cfg *config.Config, opts Options, feed *introspect.Feed) *report.RunReport {
	t.Helper()
	rep, err := RunFeed(context.Background(), cfg, zap.NewNop().Sugar(), opts, feed)
	require.NoError(t, err)
	return rep
}

func readStub(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func TestFirstRun(t *testing.T) {
	cfg := testConfig(t)
	rep := run(t, cfg, Options{}, testFeed())
	require.False(t, rep.Fatal())

	root := readStub(t, cfg.OutputDir, "__init__.pyi")
	assert.Contains(t, root, "from basalt.schema import Table")
	assert.Contains(t, root, "from _typeshed import Incomplete")
	assert.Contains(t, root, "def connect(*, profile: str | None = None) -> Client: ...")
	assert.Contains(t, root, "class Client:")
	assert.Contains(t, root, "def tables(self) -> list[Table]: ...")
	assert.Contains(t, root, "def mystery(self) -> Incomplete: ...")

	schema := readStub(t, cfg.OutputDir, "schema.pyi")
	assert.Contains(t, schema, "class Table:")
	assert.Contains(t, schema, "name: str")

	state := readStub(t, cfg.OutputDir, "state.pyi")
	assert.Contains(t, state, "class JobState:")
	assert.Contains(t, state, "PENDING: JobState")
	assert.Contains(t, state, "def __int__(self) -> int: ...")

	exc := readStub(t, cfg.OutputDir, "exceptions.pyi")
	assert.Contains(t, exc, "class BasaltError(Exception): ...")
	assert.Contains(t, exc, "class JobError(BasaltError): ...")
	assert.NotContains(t, exc, "import")
}

func TestSecondRunIsStable(t *testing.T) {
	cfg := testConfig(t)
	run(t, cfg, Options{}, testFeed())
	first := readStub(t, cfg.OutputDir, "__init__.pyi")

	run(t, cfg, Options{}, testFeed())
	second := readStub(t, cfg.OutputDir, "__init__.pyi")

	assert.Equal(t, first, second)
}

func TestHandRefinementSurvives(t *testing.T) {
	cfg := testConfig(t)
	run(t, cfg, Options{}, testFeed())

	// Refine the unresolved return type and add a stub-only helper, the way
	// a maintainer would edit the generated file.
	path := filepath.Join(cfg.OutputDir, "__init__.pyi")
	text := readStub(t, cfg.OutputDir, "__init__.pyi")
	text = strings.Replace(text,
		"def mystery(self) -> Incomplete: ...",
		"def mystery(self) -> dict[str, str]: ...", 1)
	text += "\n# stubgen: stub-only\ndef helper(client: Client) -> str: ...\n"
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	rep := run(t, cfg, Options{}, testFeed())
	require.False(t, rep.Fatal())

	after := readStub(t, cfg.OutputDir, "__init__.pyi")
	assert.Contains(t, after, "def mystery(self) -> dict[str, str]: ...")
	assert.Contains(t, after, "# stubgen: merged")
	assert.Contains(t, after, "# stubgen: stub-only\ndef helper(client: Client) -> str: ...")
	assert.NotContains(t, after, "def mystery(self) -> Incomplete")

	// And the refinement keeps surviving on the run after that.
	run(t, cfg, Options{}, testFeed())
	again := readStub(t, cfg.OutputDir, "__init__.pyi")
	assert.Equal(t, after, again)
}

func TestModuleFailureIsIsolated(t *testing.T) {
	feed := testFeed()
	// Make the root module define Table locally while also referencing
	// schema's Table: a reference conflict fatal for basalt only.
	feed.Modules[0].Symbols = append(feed.Modules[0].Symbols,
		introspect.Symbol{Name: "Table", Kind: "class"})

	cfg := testConfig(t)
	rep := run(t, cfg, Options{}, feed)
	require.True(t, rep.Fatal())

	rootReport := rep.Module("basalt")
	assert.Contains(t, rootReport.Error, "reference conflict")

	_, err := os.Stat(filepath.Join(cfg.OutputDir, "__init__.pyi"))
	assert.True(t, os.IsNotExist(err), "failed module must not be written")

	assert.FileExists(t, filepath.Join(cfg.OutputDir, "schema.pyi"))
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "state.pyi"))
}

func TestFailedModuleKeepsOldSnapshot(t *testing.T) {
	cfg := testConfig(t)
	run(t, cfg, Options{}, testFeed())
	before := readStub(t, cfg.OutputDir, "__init__.pyi")

	bad := testFeed()
	bad.Modules[0].Symbols = append(bad.Modules[0].Symbols,
		introspect.Symbol{Name: "Table", Kind: "class"})
	rep := run(t, cfg, Options{}, bad)
	require.True(t, rep.Fatal())

	assert.Equal(t, before, readStub(t, cfg.OutputDir, "__init__.pyi"))
}

func TestDryRunWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	rep := run(t, cfg, Options{DryRun: true}, testFeed())
	require.False(t, rep.Fatal())

	entries, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteDirRedirect(t *testing.T) {
	cfg := testConfig(t)
	run(t, cfg, Options{}, testFeed())

	scratch := t.TempDir()
	run(t, cfg, Options{WriteDir: scratch}, testFeed())

	assert.Equal(t,
		readStub(t, cfg.OutputDir, "schema.pyi"),
		readStub(t, scratch, "schema.pyi"))
}

func TestReexportPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Policies = map[string]map[string]string{
		"basalt": {"schema": "re-export"},
	}

	run(t, cfg, Options{}, testFeed())
	root := readStub(t, cfg.OutputDir, "__init__.pyi")
	assert.Contains(t, root, "def tables(self) -> list[basalt.Table]: ...")
	assert.Contains(t, root, "import basalt\n")
	assert.NotContains(t, root, "from basalt.schema import Table")
}

func TestWellKnownOverride(t *testing.T) {
	feed := testFeed()
	feed.Modules[0].Symbols = append(feed.Modules[0].Symbols,
		introspect.Symbol{Name: "run", Kind: "function", Returns: "JobId"})

	cfg := testConfig(t)
	cfg.WellKnown = map[string]string{"JobId": "uuid.UUID"}

	run(t, cfg, Options{}, feed)
	root := readStub(t, cfg.OutputDir, "__init__.pyi")
	assert.Contains(t, root, "def run() -> uuid.UUID: ...")
	assert.Contains(t, root, "import uuid\n")
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := testConfig(t)
	_, err := RunFeed(ctx, cfg, zap.NewNop().Sugar(), Options{}, testFeed())
	require.Error(t, err)
}
