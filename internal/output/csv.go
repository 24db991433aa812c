package output

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/census-geocode/pkg/geocode"
)

// encodeCSV writes the header followed by one record per result. The header
// is written even when results is empty.
func encodeCSV(w io.Writer, results []geocode.Result) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false

	if err := enc.EncodeHeader(Row{}); err != nil {
		return eris.Wrap(err, "csv: encode header")
	}
	for _, row := range Rows(results) {
		if err := enc.Encode(row); err != nil {
			return eris.Wrap(err, "csv: encode row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "csv: flush")
	}
	return nil
}
