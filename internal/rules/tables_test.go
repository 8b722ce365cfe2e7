// internal/rules/tables_test.go
package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTables(t *testing.T) {
	tables := DefaultTables()

	assert.Len(t, tables.ProhibitedTerms, 24)
	assert.Contains(t, tables.FragranceComponents, "limonene")
	assert.Equal(t, []string{"fragrance", "parfum", "aroma", "may contain", "allergen"}, tables.DisclosureKeywords)
	assert.Equal(t, []string{"benzene", "lead", "mercury", "cadmium", "arsenic", "pfas", "pfoa", "pfos", "formaldehyde", "1,4-dioxane"}, tables.Contaminants)

	// callers get a copy
	tables.ProhibitedTerms[0] = "changed"
	assert.Equal(t, "toxic", DefaultTables().ProhibitedTerms[0])
}

func TestLoadTablesMergesWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prohibited_terms:\n  - \" Awful \"\n  - awful\n"), 0o600))

	tables, err := LoadTables(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"awful"}, tables.ProhibitedTerms)
	assert.Equal(t, DefaultTables().Contaminants, tables.Contaminants)
}

func TestLoadTablesErrors(t *testing.T) {
	_, err := LoadTables(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseTables([]byte("prohibited_terms: [unclosed"))
	assert.Error(t, err)

	tables, err := LoadTables("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTables(), tables)
}
