package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	censusGeographiesURL = "https://geocoding.geo.census.gov/geocoder/geographies/onelineaddress"
	censusBenchmark      = "Public_AR_Census2010"
	censusVintage        = "Census2010_Census2010"
	censusLayers         = "14"
	censusBlocksLayer    = "Census Blocks"
)

// censusOneLineResponse is the JSON response from the Census geographies API.
// Result is a pointer so a missing "result" key can be told apart from an
// empty one.
type censusOneLineResponse struct {
	Result *struct {
		AddressMatches []censusAddressMatch `json:"addressMatches"`
	} `json:"result"`
}

type censusAddressMatch struct {
	MatchedAddress string `json:"matchedAddress"`
	Coordinates    struct {
		X float64 `json:"x"` // longitude
		Y float64 `json:"y"` // latitude
	} `json:"coordinates"`
	AddressComponents struct {
		Zip string `json:"zip"`
	} `json:"addressComponents"`
	Geographies map[string][]censusGeography `json:"geographies"`
}

type censusGeography struct {
	State  string `json:"STATE"`
	County string `json:"COUNTY"`
	Tract  string `json:"TRACT"`
}

// geocodeCensus geocodes a single address using the Census one-line geographies API.
func (g *geocoder) geocodeCensus(ctx context.Context, address string) (*Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Address: address, Err: eris.Wrap(err, "geocode: census rate limit")}
	}

	reqURL := g.requestURL(address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &TransportError{Address: address, Err: eris.Wrap(err, "geocode: census build request")}
	}

	g.log.Debug("census request", zap.String("address", address))

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Address: address, Err: eris.Wrap(err, "geocode: census request")}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			Address:    address,
			StatusCode: resp.StatusCode,
			Err:        eris.Errorf("geocode: census returned status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Address: address, Err: eris.Wrap(err, "geocode: census read body")}
	}

	return parseCensusResponse(address, body)
}

// requestURL builds the GET URL for address with the fixed 2010 geography parameters.
func (g *geocoder) requestURL(address string) string {
	params := url.Values{
		"address":   {address},
		"benchmark": {g.benchmark},
		"vintage":   {g.vintage},
		"layers":    {censusLayers},
		"format":    {"json"},
	}
	return g.baseURL + "?" + params.Encode()
}

// parseCensusResponse maps a Census geographies body to a Result. Only the
// first address match is considered.
func parseCensusResponse(address string, body []byte) (*Result, error) {
	var censusResp censusOneLineResponse
	if err := json.Unmarshal(body, &censusResp); err != nil {
		return nil, &ParseError{Address: address, Err: eris.Wrap(err, "geocode: census parse response")}
	}
	if censusResp.Result == nil {
		return nil, &ParseError{Address: address, Err: eris.New("geocode: census response has no result")}
	}

	matches := censusResp.Result.AddressMatches
	if len(matches) == 0 {
		return &Result{InputAddress: address}, nil
	}

	first := matches[0]
	blocks := first.Geographies[censusBlocksLayer]
	if len(blocks) == 0 {
		return nil, &ParseError{Address: address, Err: eris.Errorf("geocode: census match has no %q geography", censusBlocksLayer)}
	}
	block := blocks[0]

	return &Result{
		InputAddress: address,
		Match: &Match{
			FormattedAddress: first.MatchedAddress,
			Latitude:         first.Coordinates.Y,
			Longitude:        first.Coordinates.X,
			Postcode:         first.AddressComponents.Zip,
			StateCode:        block.State,
			CountyCode:       block.County,
			TractCode:        block.Tract,
		},
	}, nil
}
