// Package loader reads the address column out of a CSV or XLSX table.
package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// SchemaError reports that the requested column is not in the table header.
type SchemaError struct {
	Path    string
	Column  string
	Columns []string // header of the table as read
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("loader: missing %q column in input data %s (columns: %s)",
		e.Column, e.Path, strings.Join(e.Columns, ", "))
}

// Option configures LoadAddresses.
type Option func(*options)

type options struct {
	encoding string
	sheet    string
}

// WithEncoding decodes CSV input from the named character set (any WHATWG
// label such as "windows-1252"). UTF-8 is assumed when empty.
func WithEncoding(name string) Option {
	return func(o *options) {
		o.encoding = name
	}
}

// WithSheet selects an XLSX sheet by name instead of the first sheet.
func WithSheet(name string) Option {
	return func(o *options) {
		o.sheet = name
	}
}

// LoadAddresses returns the values of column, in row order, from the table at
// path. Cell text is returned exactly as stored.
func LoadAddresses(path, column string, opts ...Option) ([]string, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	rows, err := readTable(path, o)
	if err != nil {
		return nil, err
	}

	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}

	idx := columnIndex(header, column)
	if idx < 0 {
		return nil, &SchemaError{Path: path, Column: column, Columns: header}
	}

	addresses := make([]string, 0, len(rows))
	for _, row := range rows[1:] {
		if idx < len(row) {
			addresses = append(addresses, row[idx])
		} else {
			addresses = append(addresses, "")
		}
	}
	return addresses, nil
}

func readTable(path string, o options) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err := readXLSX(path, o.sheet)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: read %s", path)
		}
		return rows, nil
	default:
		rows, err := readCSV(path, o.encoding)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: read %s", path)
		}
		return rows, nil
	}
}

// columnIndex returns the first header position named column, or -1.
func columnIndex(header []string, column string) int {
	for i, name := range header {
		if name == column {
			return i
		}
	}
	return -1
}
