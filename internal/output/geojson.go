package output

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/census-geocode/pkg/geocode"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

// feature keeps Geometry as a pointer so unmatched rows encode "geometry": null.
type feature struct {
	Type       string            `json:"type"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties Row               `json:"properties"`
}

// encodeGeoJSON writes a FeatureCollection with one Point (WGS84 lon/lat) per
// matched result and a null geometry for unmatched ones.
func encodeGeoJSON(w io.Writer, results []geocode.Result) error {
	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, 0, len(results))}

	for _, r := range results {
		f := feature{Type: "Feature", Properties: NewRow(r)}
		if r.Match != nil {
			pt := geom.NewPointFlat(geom.XY, []float64{r.Match.Longitude, r.Match.Latitude})
			g, err := geojson.Encode(pt)
			if err != nil {
				return eris.Wrapf(err, "geojson: encode point for %q", r.InputAddress)
			}
			f.Geometry = g
		}
		fc.Features = append(fc.Features, f)
	}

	if err := json.NewEncoder(w).Encode(fc); err != nil {
		return eris.Wrap(err, "geojson: encode collection")
	}
	return nil
}
