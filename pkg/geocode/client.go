// Package geocode resolves one-line US addresses to coordinates and 2010 census
// geography codes through the Census Bureau geocoder.
package geocode

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client geocodes a single address.
type Client interface {
	// Geocode returns the first Census match for address, or an unmatched
	// Result when the service finds nothing. Transport and decoding failures
	// are returned as *TransportError and *ParseError.
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Result is the outcome of one geocode attempt. Match is nil when the Census
// geocoder returned no candidates.
type Result struct {
	InputAddress string
	Match        *Match
}

// Match holds the fields taken from the first address match.
type Match struct {
	FormattedAddress string
	Latitude         float64
	Longitude        float64
	Postcode         string
	StateCode        string
	CountyCode       string
	TractCode        string
}

// Matched reports whether the result carries a match.
func (r *Result) Matched() bool {
	return r != nil && r.Match != nil
}

// StateCode returns the matched state code, or "" when unmatched.
func (r *Result) StateCode() string {
	if !r.Matched() {
		return ""
	}
	return r.Match.StateCode
}

// FIPS returns the state+county+tract code of a match, or "" when unmatched.
func (r *Result) FIPS() string {
	if !r.Matched() {
		return ""
	}
	return r.Match.StateCode + r.Match.CountyCode + r.Match.TractCode
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets a custom HTTP client for Census requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithBaseURL overrides the Census one-line geographies endpoint.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		if u != "" {
			g.baseURL = u
		}
	}
}

// WithBenchmark overrides the benchmark parameter.
func WithBenchmark(b string) Option {
	return func(g *geocoder) {
		if b != "" {
			g.benchmark = b
		}
	}
}

// WithVintage overrides the vintage parameter.
func WithVintage(v string) Option {
	return func(g *geocoder) {
		if v != "" {
			g.vintage = v
		}
	}
}

// WithRateLimit sets the requests-per-second rate limit for Census API calls.
// A non-positive value disables client-side throttling.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		if rps <= 0 {
			g.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log *zap.Logger) Option {
	return func(g *geocoder) {
		if log != nil {
			g.log = log
		}
	}
}

type geocoder struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger
	baseURL    string
	benchmark  string
	vintage    string
}

// NewClient creates a Census geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(50, 50), // Census default: 50 req/s
		log:        zap.NewNop(),
		baseURL:    censusGeographiesURL,
		benchmark:  censusBenchmark,
		vintage:    censusVintage,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode implements Client.
func (g *geocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	return g.geocodeCensus(ctx, address)
}
