package introspect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basalt-data/stubgen/errors"
	"github.com/basalt-data/stubgen/stub"
)

func TestLoadFeed(t *testing.T) {
	feed, err := LoadFeed(strings.NewReader(`{
		"package": "basalt",
		"modules": [
			{"name": "basalt", "symbols": [
				{"name": "connect", "kind": "function", "returns": "Client"}
			]}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "basalt", feed.Package)
	require.Len(t, feed.Modules, 1)
	require.Len(t, feed.Modules[0].Symbols, 1)
	assert.Equal(t, "connect", feed.Modules[0].Symbols[0].Name)
}

func TestLoadFeedBadJSON(t *testing.T) {
	_, err := LoadFeed(strings.NewReader("{not json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadFeed))
}

func TestExtractPreservesOrder(t *testing.T) {
	feed := &Feed{Package: "basalt", Modules: []FeedModule{{
		Name: "basalt",
		Symbols: []Symbol{
			{Name: "b", Kind: "function", Returns: "String"},
			{Name: "a", Kind: "constant", Type: "i64"},
		},
	}}}

	modules, warnings := Extract(feed)
	require.Len(t, modules, 1)
	assert.Empty(t, warnings)
	require.Len(t, modules[0].Decls, 2)
	assert.Equal(t, "b", modules[0].Decls[0].Name)
	assert.Equal(t, "a", modules[0].Decls[1].Name)
}

func TestExtractDuplicateKeepsFirst(t *testing.T) {
	feed := &Feed{Package: "basalt", Modules: []FeedModule{{
		Name: "basalt",
		Symbols: []Symbol{
			{Name: "f", Kind: "function", Returns: "String"},
			{Name: "f", Kind: "function", Returns: "i64"},
		},
	}}}

	modules, warnings := Extract(feed)
	require.Len(t, modules[0].Decls, 1)
	assert.Equal(t, "String", modules[0].Decls[0].Result.Head())
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "duplicate")
}

func TestExtractUnknownKindSkipped(t *testing.T) {
	feed := &Feed{Package: "basalt", Modules: []FeedModule{{
		Name:    "basalt",
		Symbols: []Symbol{{Name: "x", Kind: "macro"}},
	}}}

	modules, warnings := Extract(feed)
	assert.Empty(t, modules[0].Decls)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "unrecognized kind")
}

func TestExtractVoidReturn(t *testing.T) {
	feed := &Feed{Package: "basalt", Modules: []FeedModule{{
		Name:    "basalt",
		Symbols: []Symbol{{Name: "close", Kind: "function"}},
	}}}

	modules, warnings := Extract(feed)
	assert.Empty(t, warnings)
	d := modules[0].Decls[0]
	require.True(t, d.HasResult)
	assert.Equal(t, "()", d.Result.Head())
}

func TestExtractUnresolvable(t *testing.T) {
	feed := &Feed{Package: "basalt", Modules: []FeedModule{{
		Name:    "basalt",
		Symbols: []Symbol{{Name: "run", Kind: "function", Unresolvable: true}},
	}}}

	modules, warnings := Extract(feed)
	d := modules[0].Decls[0]
	assert.True(t, d.Unresolvable)
	assert.False(t, d.HasResult)
	require.Len(t, warnings, 1)
	assert.Equal(t, "run", warnings[0].Decl)
}

func TestExtractClassMembers(t *testing.T) {
	feed := &Feed{Package: "basalt", Modules: []FeedModule{{
		Name: "schema",
		Symbols: []Symbol{{
			Name: "Table", Kind: "class", Extends: "Entity",
			Members: []Symbol{
				{Name: "name", Kind: "property", Type: "String"},
				{Name: "columns", Kind: "function", Returns: "Vec<Column>"},
				{Name: "columns", Kind: "function", Returns: "i64"},
			},
		}},
	}}}

	modules, warnings := Extract(feed)
	d := modules[0].Decls[0]
	assert.Equal(t, stub.Class, d.Kind)
	require.NotNil(t, d.Extends)
	assert.Equal(t, "Entity", d.Extends.Head())
	require.Len(t, d.Members, 2)
	assert.Equal(t, "name", d.Members[0].Name)
	require.Len(t, warnings, 1)
	assert.Equal(t, "Table.columns", warnings[0].Decl)
}

func TestExtractInjectsSelf(t *testing.T) {
	feed := &Feed{Package: "basalt", Modules: []FeedModule{{
		Name: "basalt",
		Symbols: []Symbol{
			{Name: "connect", Kind: "function", Returns: "Client"},
			{Name: "Client", Kind: "class", Members: []Symbol{
				{Name: "tables", Kind: "function", Returns: "Vec<Table>"},
				{Name: "query", Kind: "function", Returns: "Vec<Row>",
					Params: []FeedParam{{Name: "q", Type: "String"}}},
				{Name: "explicit", Kind: "function", Returns: "()",
					Params: []FeedParam{{Name: "self"}}},
			}},
		},
	}}}

	modules, warnings := Extract(feed)
	assert.Empty(t, warnings)

	// Top-level functions are unbound.
	assert.Empty(t, modules[0].Decls[0].Params)

	members := modules[0].Decls[1].Members
	require.Len(t, members[0].Params, 1)
	assert.Equal(t, "self", members[0].Params[0].Name)
	assert.False(t, members[0].Params[0].HasType)

	require.Len(t, members[1].Params, 2)
	assert.Equal(t, "self", members[1].Params[0].Name)
	assert.Equal(t, "q", members[1].Params[1].Name)

	// A feed that already carries self does not get a second one.
	require.Len(t, members[2].Params, 1)
	assert.Equal(t, "self", members[2].Params[0].Name)
}

func TestExtractEnumValues(t *testing.T) {
	three := 3
	feed := &Feed{Package: "basalt", Modules: []FeedModule{{
		Name: "state",
		Symbols: []Symbol{{
			Name: "JobState", Kind: "enum",
			Members: []Symbol{
				{Name: "PENDING"},
				{Name: "RUNNING"},
				{Name: "FAILED", Value: &three},
			},
		}},
	}}}

	modules, _ := Extract(feed)
	d := modules[0].Decls[0]
	assert.Equal(t, stub.EnumGroup, d.Kind)
	require.Len(t, d.EnumMembers, 3)
	assert.Equal(t, 0, d.EnumMembers[0].Value)
	assert.Equal(t, 1, d.EnumMembers[1].Value)
	assert.Equal(t, 3, d.EnumMembers[2].Value)
}
