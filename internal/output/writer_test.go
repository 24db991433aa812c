package output

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/census-geocode/pkg/geocode"
)

func sampleResults() []geocode.Result {
	return []geocode.Result{
		{
			InputAddress: "425 E 61 ST, New York, NY 10065 ",
			Match: &geocode.Match{
				FormattedAddress: "425 E 61ST ST, NEW YORK, NY, 10065",
				Latitude:         40.5,
				Longitude:        -73.25,
				Postcode:         "10065",
				StateCode:        "36",
				CountyCode:       "061",
				TractCode:        "010602",
			},
		},
		{InputAddress: "123 Nowhere St"},
	}
}

func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"out.csv":         FormatCSV,
		"out.CSV":         FormatCSV,
		"out":             FormatCSV,
		"out.txt":         FormatCSV,
		"out.xlsx":        FormatXLSX,
		"dir/out.geojson": FormatGeoJSON,
		"out.json":        FormatGeoJSON,
	}
	for path, want := range tests {
		assert.Equal(t, want, FormatFromPath(path), path)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("parquet")
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, NewWriter(FormatCSV).Write(path, sampleResults()))

	records := readCSVFile(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, []string{
		"425 E 61ST ST, NEW YORK, NY, 10065", "40.5", "-73.25", "10065", "36", "061", "010602",
		"425 E 61 ST, New York, NY 10065 ",
	}, records[1])
	assert.Equal(t, []string{"", "", "", "", "", "", "", "123 Nowhere St"}, records[2])
}

func TestWriteCSV_EmptyResultsWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, NewWriter(FormatCSV).Write(path, nil))

	records := readCSVFile(t, path)
	require.Len(t, records, 1)
	assert.Equal(t, Columns, records[0])
}

func TestWrite_OverwritesWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := NewWriter(FormatCSV)

	require.NoError(t, w.Write(path, sampleResults()))
	require.NoError(t, w.Write(path, sampleResults()[:1]))

	records := readCSVFile(t, path)
	assert.Len(t, records, 2)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWrite_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.csv")

	err := NewWriter(FormatCSV).Write(path, sampleResults())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create temp file")
}

func TestWrite_BackupPathKeepsFormat(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(FormatFromPath(filepath.Join(dir, "out.xlsx")))

	bak := filepath.Join(dir, "out.xlsx_bak")
	require.NoError(t, w.Write(bak, sampleResults()))

	f, err := xlsx.OpenFile(bak)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")

	require.NoError(t, NewWriter(FormatXLSX).Write(path, sampleResults()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet[xlsxSheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)

	header := make([]string, 0, len(Columns))
	for _, c := range sheet.Rows[0].Cells {
		header = append(header, c.String())
	}
	assert.Equal(t, Columns, header)

	matched := sheet.Rows[1].Cells
	assert.Equal(t, "425 E 61ST ST, NEW YORK, NY, 10065", matched[0].String())
	lat, err := matched[1].Float()
	require.NoError(t, err)
	assert.InDelta(t, 40.5, lat, 0.0001)
	assert.Equal(t, "010602", matched[6].String())

	unmatched := sheet.Rows[2].Cells
	assert.Equal(t, "", unmatched[0].String())
	assert.Equal(t, "123 Nowhere St", unmatched[7].String())
}

func TestWriteGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.geojson")

	require.NoError(t, NewWriter(FormatGeoJSON).Write(path, sampleResults()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			Geometry *struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))

	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)

	first := fc.Features[0]
	require.NotNil(t, first.Geometry)
	assert.Equal(t, "Point", first.Geometry.Type)
	assert.Equal(t, []float64{-73.25, 40.5}, first.Geometry.Coordinates)
	assert.Equal(t, "36", first.Properties["state_code"])
	assert.Equal(t, "425 E 61 ST, New York, NY 10065 ", first.Properties["input_address"])

	second := fc.Features[1]
	assert.Nil(t, second.Geometry)
	assert.Nil(t, second.Properties["state_code"])
	assert.Equal(t, "123 Nowhere St", second.Properties["input_address"])
}

func TestRows_UnmatchedHasNilFields(t *testing.T) {
	rows := Rows(sampleResults())
	require.Len(t, rows, 2)

	assert.NotNil(t, rows[0].Latitude)
	assert.Equal(t, "36", *rows[0].StateCode)

	assert.Nil(t, rows[1].FormattedAddress)
	assert.Nil(t, rows[1].Latitude)
	assert.Nil(t, rows[1].Longitude)
	assert.Nil(t, rows[1].Postcode)
	assert.Nil(t, rows[1].StateCode)
	assert.Nil(t, rows[1].CountyCode)
	assert.Nil(t, rows[1].TractCode)
}
