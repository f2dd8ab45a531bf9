package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleFindOrCreate(t *testing.T) {
	r := &RunReport{Package: "basalt"}

	a := r.Module("schema")
	a.Added = append(a.Added, "Table")

	b := r.Module("schema")
	assert.Same(t, a, b)
	assert.Len(t, r.Modules, 1)
}

func TestFatal(t *testing.T) {
	r := &RunReport{Package: "basalt"}
	r.Module("schema")
	assert.False(t, r.Fatal())

	r.Module("state").Error = "reference conflict"
	assert.True(t, r.Fatal())
}

func TestSort(t *testing.T) {
	r := &RunReport{Package: "basalt"}
	r.Module("state")
	r.Module("basalt")
	r.Module("schema")
	r.Sort()

	names := make([]string, len(r.Modules))
	for i, m := range r.Modules {
		names[i] = m.Module
	}
	assert.Equal(t, []string{"basalt", "schema", "state"}, names)
}

func TestJSON(t *testing.T) {
	r := &RunReport{Package: "basalt"}
	mr := r.Module("basalt")
	mr.Added = []string{"connect"}
	mr.UnknownCount = 2

	data, err := r.JSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "basalt", decoded["package"])
}
