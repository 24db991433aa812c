package geocode

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// newTestLimiter creates a rate limiter that effectively does not limit for tests.
func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// newTestGeocoder returns a geocoder whose default Census URL is rewritten to srv.
func newTestGeocoder(t *testing.T, srv *httptest.Server) *geocoder {
	t.Helper()
	return &geocoder{
		httpClient: newRewriteClient(srv.URL, censusGeographiesURL),
		limiter:    newTestLimiter(),
		log:        zap.NewNop(),
		baseURL:    censusGeographiesURL,
		benchmark:  censusBenchmark,
		vintage:    censusVintage,
	}
}

// jsonHandler serves body with a JSON content type.
func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

// newRewriteClient creates an HTTP client that rewrites requests to a test server URL.
// All requests matching the target prefix are redirected to the test server.
func newRewriteClient(testServerURL, targetPrefix string) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:         http.DefaultTransport,
			testServer:   testServerURL,
			targetPrefix: targetPrefix,
		},
	}
}

type rewriteTransport struct {
	base         http.RoundTripper
	testServer   string
	targetPrefix string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	origURL := req.URL.String()
	if strings.HasPrefix(origURL, t.targetPrefix) {
		suffix := origURL[len(t.targetPrefix):]
		newURL := t.testServer + suffix
		newReq := req.Clone(req.Context())
		parsed, err := req.URL.Parse(newURL)
		if err != nil {
			return nil, err
		}
		newReq.URL = parsed
		newReq.Host = parsed.Host
		return t.base.RoundTrip(newReq)
	}
	return t.base.RoundTrip(req)
}

const manhattanResponse = `{
	"result": {
		"input": {"address": {"address": "425 E 61 ST, New York, NY 10065 "}},
		"addressMatches": [{
			"matchedAddress": "425 E 61ST ST, NEW YORK, NY, 10065",
			"coordinates": {"x": -73.95878, "y": 40.760574},
			"addressComponents": {"zip": "10065", "city": "NEW YORK", "state": "NY"},
			"geographies": {
				"Census Blocks": [{"STATE": "36", "COUNTY": "061", "TRACT": "010602", "BLOCK": "1000"}]
			}
		}, {
			"matchedAddress": "425 E 61ST ST, BROOKLYN, NY, 11203",
			"coordinates": {"x": -73.9, "y": 40.6},
			"addressComponents": {"zip": "11203"},
			"geographies": {
				"Census Blocks": [{"STATE": "36", "COUNTY": "047", "TRACT": "086400"}]
			}
		}]
	}
}`
