// Package output persists geocode results as CSV, XLSX, or GeoJSON. Every
// write replaces the target file as a whole.
package output

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/census-geocode/pkg/geocode"
)

// Format identifies an output encoding.
type Format string

// Supported output formats.
const (
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatGeoJSON Format = "geojson"
)

// Columns is the output header, in order.
var Columns = []string{
	"formatted_address",
	"latitude",
	"longitude",
	"postcode",
	"state_code",
	"county_code",
	"tract_code",
	"input_address",
}

// FormatFromPath picks a format from the file extension, defaulting to CSV.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return FormatXLSX
	case ".geojson", ".json":
		return FormatGeoJSON
	default:
		return FormatCSV
	}
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatGeoJSON:
		return f, nil
	default:
		return "", eris.Errorf("output: unsupported format %q", s)
	}
}

// Writer writes a full result set to a path.
type Writer struct {
	format Format
}

// NewWriter returns a Writer for format.
func NewWriter(format Format) *Writer {
	return &Writer{format: format}
}

// Format returns the writer's encoding.
func (w *Writer) Format() Format {
	return w.format
}

// Write replaces path with results. The data goes to a temp file in the same
// directory first, so readers never see a partially written file.
func (w *Writer) Write(path string, results []geocode.Result) error {
	var encode func(io.Writer, []geocode.Result) error
	switch w.format {
	case FormatXLSX:
		encode = encodeXLSX
	case FormatGeoJSON:
		encode = encodeGeoJSON
	default:
		encode = encodeCSV
	}
	return writeAtomic(path, func(out io.Writer) error {
		return encode(out, results)
	})
}

func writeAtomic(path string, fill func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "output: create temp file for %s", path)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "output: encode %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "output: close temp file for %s", path)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return eris.Wrapf(err, "output: chmod %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return eris.Wrapf(err, "output: replace %s", path)
	}
	return nil
}

// Row is the flat, tabular form of a geocode.Result. Pointer fields are nil
// for unmatched results.
type Row struct {
	FormattedAddress *string  `csv:"formatted_address" json:"formatted_address"`
	Latitude         *float64 `csv:"latitude" json:"latitude"`
	Longitude        *float64 `csv:"longitude" json:"longitude"`
	Postcode         *string  `csv:"postcode" json:"postcode"`
	StateCode        *string  `csv:"state_code" json:"state_code"`
	CountyCode       *string  `csv:"county_code" json:"county_code"`
	TractCode        *string  `csv:"tract_code" json:"tract_code"`
	InputAddress     string   `csv:"input_address" json:"input_address"`
}

// NewRow flattens r.
func NewRow(r geocode.Result) Row {
	row := Row{InputAddress: r.InputAddress}
	if m := r.Match; m != nil {
		row.FormattedAddress = &m.FormattedAddress
		row.Latitude = &m.Latitude
		row.Longitude = &m.Longitude
		row.Postcode = &m.Postcode
		row.StateCode = &m.StateCode
		row.CountyCode = &m.CountyCode
		row.TractCode = &m.TractCode
	}
	return row
}

// Rows flattens results, preserving order.
func Rows(results []geocode.Result) []Row {
	rows := make([]Row, len(results))
	for i := range results {
		rows[i] = NewRow(results[i])
	}
	return rows
}
