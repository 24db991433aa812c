package output

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/census-geocode/pkg/geocode"
)

const xlsxSheetName = "results"

// encodeXLSX writes a single-sheet workbook: a header row, then one row per
// result. Absent fields are left as empty cells.
func encodeXLSX(w io.Writer, results []geocode.Result) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(xlsxSheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, name := range Columns {
		header.AddCell().SetString(name)
	}

	for _, r := range Rows(results) {
		row := sheet.AddRow()
		addStringCell(row, r.FormattedAddress)
		addFloatCell(row, r.Latitude)
		addFloatCell(row, r.Longitude)
		addStringCell(row, r.Postcode)
		addStringCell(row, r.StateCode)
		addStringCell(row, r.CountyCode)
		addStringCell(row, r.TractCode)
		row.AddCell().SetString(r.InputAddress)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write workbook")
	}
	return nil
}

func addStringCell(row *xlsx.Row, v *string) {
	cell := row.AddCell()
	if v != nil {
		cell.SetString(*v)
	}
}

func addFloatCell(row *xlsx.Row, v *float64) {
	cell := row.AddCell()
	if v != nil {
		cell.SetFloat(*v)
	}
}
