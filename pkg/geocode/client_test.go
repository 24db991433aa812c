package geocode

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient()
	g, ok := c.(*geocoder)
	require.True(t, ok)

	assert.Equal(t, 30*time.Second, g.httpClient.Timeout)
	assert.Equal(t, rate.Limit(50), g.limiter.Limit())
	assert.Equal(t, censusGeographiesURL, g.baseURL)
	assert.Equal(t, "Public_AR_Census2010", g.benchmark)
	assert.Equal(t, "Census2010_Census2010", g.vintage)
	assert.NotNil(t, g.log)
}

func TestNewClient_Options(t *testing.T) {
	hc := &http.Client{Timeout: time.Second}
	log := zap.NewExample()

	g := NewClient(
		WithHTTPClient(hc),
		WithRateLimit(2.5),
		WithLogger(log),
		WithBaseURL("http://localhost:1234/geo"),
	).(*geocoder)

	assert.Same(t, hc, g.httpClient)
	assert.Equal(t, rate.Limit(2.5), g.limiter.Limit())
	assert.Equal(t, 2, g.limiter.Burst())
	assert.Same(t, log, g.log)
	assert.Equal(t, "http://localhost:1234/geo", g.baseURL)
}

func TestNewClient_EmptyOverridesKeepDefaults(t *testing.T) {
	g := NewClient(WithBaseURL(""), WithBenchmark(""), WithVintage(""), WithLogger(nil)).(*geocoder)

	assert.Equal(t, censusGeographiesURL, g.baseURL)
	assert.Equal(t, censusBenchmark, g.benchmark)
	assert.Equal(t, censusVintage, g.vintage)
	assert.NotNil(t, g.log)
}

func TestWithRateLimit_Fractional(t *testing.T) {
	g := NewClient(WithRateLimit(0.5)).(*geocoder)
	assert.Equal(t, 1, g.limiter.Burst())

	g = NewClient(WithRateLimit(-1)).(*geocoder)
	assert.Equal(t, rate.Inf, g.limiter.Limit())
}

func TestResult_Helpers(t *testing.T) {
	var nilResult *Result
	assert.False(t, nilResult.Matched())
	assert.Empty(t, nilResult.StateCode())

	unmatched := &Result{InputAddress: "x"}
	assert.False(t, unmatched.Matched())
	assert.Empty(t, unmatched.FIPS())

	matched := &Result{InputAddress: "x", Match: &Match{StateCode: "36", CountyCode: "061", TractCode: "010602"}}
	assert.True(t, matched.Matched())
	assert.Equal(t, "36", matched.StateCode())
	assert.Equal(t, "36061010602", matched.FIPS())
}
