package excel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/c360studio/semgraph/source"
)

// writeWorkbook builds an xlsx fixture with one sheet per entry.
func writeWorkbook(t *testing.T, sheets map[string][][]string) string {
	t.Helper()

	f := excelize.NewFile()
	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	path := filepath.Join(t.TempDir(), "annotations.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestLoader_Disabled(t *testing.T) {
	l := NewLoader(false, nil)

	annotations, err := l.Load("whatever.xlsx", nil)
	assert.ErrorIs(t, err, source.ErrDependencyMissing)
	assert.Empty(t, annotations)
}

func TestLoader_NameColumn(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"Diseases": {
			{"Name", "Severity", "Prevalence"},
			{"Diabetes", "chronic", "common"},
			{"Influenza", "acute", ""},
		},
	})

	l := NewLoader(true, nil)
	annotations, err := l.Load(path, nil)
	require.NoError(t, err)

	require.Len(t, annotations, 2)
	assert.Equal(t, "chronic", annotations["Diabetes"]["Severity"])
	assert.Equal(t, "common", annotations["Diabetes"]["Prevalence"])
	assert.Equal(t, "acute", annotations["Influenza"]["Severity"])

	// Empty cells never produce fields.
	_, ok := annotations["Influenza"]["Prevalence"]
	assert.False(t, ok)
}

func TestLoader_KeywordColumn(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"Sheet": {
			{"Notes", "Concept Label", "Code"},
			{"seen in clinic", "Diabetes", "E11"},
		},
	})

	l := NewLoader(true, nil)
	annotations, err := l.Load(path, nil)
	require.NoError(t, err)

	require.Contains(t, annotations, "Diabetes")
	assert.Equal(t, "E11", annotations["Diabetes"]["Code"])
	assert.Equal(t, "seen in clinic", annotations["Diabetes"]["Notes"])
}

func TestLoader_KnownNameFallback(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"Sheet": {
			{"Col A", "Col B"},
			{"irrelevant", "Diabetes"},
			{"text", "Influenza"},
		},
	})

	known := map[string]bool{"Diabetes": true, "Influenza": true}
	l := NewLoader(true, nil)
	annotations, err := l.Load(path, func(name string) bool { return known[name] })
	require.NoError(t, err)

	require.Len(t, annotations, 2)
	assert.Equal(t, "irrelevant", annotations["Diabetes"]["Col A"])
}

func TestLoader_NoKeyColumnSkipsSheet(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"Sheet": {
			{"Col A", "Col B"},
			{"x", "y"},
		},
	})

	l := NewLoader(true, nil)
	annotations, err := l.Load(path, nil)
	require.NoError(t, err)
	assert.Empty(t, annotations)
}

func TestLoader_MultipleSheets(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"Diseases": {
			{"Name", "Severity"},
			{"Diabetes", "chronic"},
		},
		"Codes": {
			{"Name", "ICD"},
			{"Diabetes", "E11"},
		},
	})

	l := NewLoader(true, nil)
	annotations, err := l.Load(path, nil)
	require.NoError(t, err)

	// Fields from both sheets merge under the same key.
	require.Contains(t, annotations, "Diabetes")
	assert.Equal(t, "chronic", annotations["Diabetes"]["Severity"])
	assert.Equal(t, "E11", annotations["Diabetes"]["ICD"])
}

func TestLoader_MalformedWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0644))

	l := NewLoader(true, nil)
	_, err := l.Load(path, nil)
	require.Error(t, err)
	assert.True(t, source.IsParseError(err))
}
