package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/census-geocode/pkg/geocode"
)

func matchedResult(address string) *geocode.Result {
	return &geocode.Result{
		InputAddress: address,
		Match: &geocode.Match{
			FormattedAddress: "425 E 61ST ST, NEW YORK, NY, 10065",
			Latitude:         40.760574,
			Longitude:        -73.95878,
			Postcode:         "10065",
			StateCode:        "36",
			CountyCode:       "061",
			TractCode:        "010602",
		},
	}
}

func TestKey(t *testing.T) {
	k := Key("425 E 61 ST")
	assert.Len(t, k, 64)
	assert.Equal(t, k, Key("425 E 61 ST"))
	assert.NotEqual(t, k, Key("425 E 61 ST "), "whitespace is significant")
	assert.NotEqual(t, k, Key("425 e 61 st"), "case is significant")
}

func TestNew_Disabled(t *testing.T) {
	c, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNew_MissingDSN(t *testing.T) {
	_, err := New(context.Background(), Config{Driver: "sqlite"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a dsn")
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New(context.Background(), Config{Driver: "redis", DSN: "localhost:6379"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestNew_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "cache.db")
	c, err := New(context.Background(), Config{Driver: " SQLite ", DSN: dsn})
	require.NoError(t, err)
	require.NotNil(t, c)
	t.Cleanup(func() { _ = c.Close() })

	_, ok := c.(*SQLite)
	assert.True(t, ok)
}
