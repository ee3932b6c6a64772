package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilename(t *testing.T) {
	now := time.Date(2025, time.April, 30, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "applications-report-2025-04-30.csv", Filename("applications", now))
	assert.Equal(t, "students-report-2025-04-30.csv", Filename("students", now))
}

func TestCSVRenderHeaderOnly(t *testing.T) {
	exporter := NewCSVExporter()

	out, err := exporter.Render(Dataset{Headers: []string{"ID", "Name"}})
	require.NoError(t, err)
	assert.Equal(t, "ID,Name\n", string(out))
}

func TestCSVRenderQuotesAndCommas(t *testing.T) {
	exporter := NewCSVExporter()

	out, err := exporter.Render(Dataset{
		Headers: []string{"Name", "Note"},
		Rows: []map[string]string{
			{"Name": `Acme "International" College`, "Note": "offers, deferred"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Name,Note\n\"Acme \"\"International\"\" College\",\"offers, deferred\"\n", string(out))

	// Round-trip through a standard parser recovers the original values.
	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, `Acme "International" College`, records[1][0])
	assert.Equal(t, "offers, deferred", records[1][1])
}

func TestCSVRenderMissingCellsBecomeEmpty(t *testing.T) {
	exporter := NewCSVExporter()

	out, err := exporter.Render(Dataset{
		Headers: []string{"ID", "Email", "Country"},
		Rows: []map[string]string{
			{"ID": "1", "Email": "a@example.com"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "ID,Email,Country\n1,a@example.com,\n", string(out))
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{})
	assert.Error(t, err)
}
