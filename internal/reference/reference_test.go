package reference

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
aliases:
  Basis: [SKU, Item Number]
  Date: [date, Week Ending, $yyyy-mm-dd, $mm/dd/yyyy]
  Ignore: [notes]
  Units Sold: [units sold, UnitsSold]
  Balance On Hand: [on hand]
products:
  WIDGET-1: [ABC123, ABC124]
  GADGET-2: [XYZ]
`

func TestParse(t *testing.T) {
	ref, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	tests := []struct {
		alias string
		want  string
	}{
		{alias: "sku", want: "Basis"},
		{alias: "item number", want: "Basis"},
		{alias: "week ending", want: "Date"},
		{alias: "unitssold", want: "Units Sold"},
		{alias: "units sold", want: "Units Sold"},
		{alias: "balance on hand", want: "Balance On Hand"},
		{alias: "NOTES", want: "Ignore"},
	}
	for _, tt := range tests {
		got, ok := ref.LookupAlias(tt.alias)
		assert.True(t, ok, tt.alias)
		assert.Equal(t, tt.want, got, tt.alias)
	}

	_, ok := ref.LookupAlias("$yyyy-mm-dd")
	assert.False(t, ok, "templates are not header aliases")
	assert.Equal(t, []string{"$yyyy-mm-dd", "$mm/dd/yyyy"}, ref.DateTemplates())
	assert.Equal(t, []string{"Balance On Hand", "Units Sold"}, ref.Variables())

	product, ok := ref.LookupProduct("ABC124")
	assert.True(t, ok)
	assert.Equal(t, "WIDGET-1", product)

	product, ok = ref.LookupProduct("GADGET-2")
	assert.True(t, ok, "product keys resolve to themselves")
	assert.Equal(t, "GADGET-2", product)

	_, ok = ref.LookupProduct("NOPE")
	assert.False(t, ok)
}

func TestParse_Conflicts(t *testing.T) {
	_, err := Parse(strings.NewReader(`
aliases:
  Units Sold: [sales]
  Revenue: [sales]
`))
	assert.ErrorIs(t, err, ErrConflict)

	_, err = Parse(strings.NewReader(`
products:
  WIDGET-1: [ABC123]
  WIDGET-2: [ABC123]
`))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestParse_Empty(t *testing.T) {
	ref, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	_, ok := ref.LookupAlias("sku")
	assert.False(t, ok)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	ref, err := Load(path)
	require.NoError(t, err)
	_, ok := ref.LookupProduct("XYZ")
	assert.True(t, ok)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWithResolved(t *testing.T) {
	ref, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	lookup := ref.WithResolved(map[string]string{"LEGACY-9": "WIDGET-1"})
	product, ok := lookup.LookupProduct("LEGACY-9")
	assert.True(t, ok)
	assert.Equal(t, "WIDGET-1", product)

	product, ok = lookup.LookupProduct("XYZ")
	assert.True(t, ok)
	assert.Equal(t, "GADGET-2", product)
}
