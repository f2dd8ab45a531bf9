package stub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	cases := []struct {
		expr TypeExpr
		want string
	}{
		{Str(), "str"},
		{None(), "None"},
		{Unknown("whatever"), "Incomplete"},
		{Optional(Str()), "str | None"},
		{Sequence(Named("", "Table")), "list[Table]"},
		{Mapping(Str(), Int()), "dict[str, int]"},
		{Iterator(Named("schema", "Row")), "Iterator[schema.Row]"},
		{Union(Str(), Int()), "str | int"},
		{Optional(Sequence(Named("datetime", "datetime"))), "list[datetime.datetime] | None"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.expr.String())
	}
}

func TestOptionalIdempotent(t *testing.T) {
	once := Optional(Str())
	twice := Optional(once)
	assert.True(t, once.Equal(twice))
	assert.Equal(t, "str | None", twice.String())
}

func TestContainsUnknown(t *testing.T) {
	assert.True(t, Sequence(Unknown("")).ContainsUnknown())
	assert.True(t, Mapping(Str(), Optional(Unknown(""))).ContainsUnknown())
	assert.False(t, Sequence(Str()).ContainsUnknown())
	assert.False(t, TypeExpr{}.ContainsUnknown())
}

func TestRewriteBottomUp(t *testing.T) {
	in := Sequence(Named("schema", "Table"))
	out := in.Rewrite(func(t TypeExpr) TypeExpr {
		if t.Kind == KindNamed {
			t.Module = ""
		}
		return t
	})
	assert.Equal(t, "list[Table]", out.String())
	// The input is untouched.
	assert.Equal(t, "list[schema.Table]", in.String())
}

func TestCloneIsDeep(t *testing.T) {
	d := &Decl{
		Name: "Client", Kind: Class, Provenance: Generated,
		Members: []*Decl{
			{Name: "query", Kind: Function, Provenance: Generated,
				Params: []Param{{Name: "q", Type: Str()}},
				Result: Sequence(Named("", "Row"))},
		},
	}

	c := d.Clone()
	c.Members[0].Name = "mutated"
	c.Members[0].Params[0].Type = Int()

	assert.Equal(t, "query", d.Members[0].Name)
	assert.Equal(t, "str", d.Members[0].Params[0].Type.String())
}
