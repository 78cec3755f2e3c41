package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRendersSemicolonSeparated(t *testing.T) {
	exporter := NewCSVExporter()

	data, err := exporter.Render(Dataset{
		Headers: []string{"email", "nom", "progression"},
		Rows: []map[string]string{
			{"email": "marie@formacademy.fr", "nom": "Marie Dupont", "progression": "75%"},
			{"email": "rene@formacademy.fr", "nom": "René Müller", "progression": "100%"},
		},
	})
	require.NoError(t, err)

	out := string(data)
	assert.True(t, strings.HasPrefix(out, utf8BOM), "missing UTF-8 BOM")

	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(out, utf8BOM)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "email;nom;progression", lines[0])
	assert.Equal(t, "marie@formacademy.fr;Marie Dupont;75%", lines[1])
	assert.Equal(t, "rene@formacademy.fr;René Müller;100%", lines[2])
}

func TestCSVExporterMissingCellsStayEmpty(t *testing.T) {
	exporter := NewCSVExporter()

	data, err := exporter.Render(Dataset{
		Headers: []string{"email", "nom"},
		Rows:    []map[string]string{{"email": "paul@formacademy.fr"}},
	})
	require.NoError(t, err)
	assert.Contains(t, string(data), "paul@formacademy.fr;\n")
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}
