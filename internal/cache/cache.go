// Package cache stores finished geocode results keyed by the exact input
// address, so reruns over the same file skip the network for known rows.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/census-geocode/internal/db"
	"github.com/sells-group/census-geocode/pkg/geocode"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Cache is a result store. Get reports ok=false on a miss.
type Cache interface {
	Get(ctx context.Context, address string) (*geocode.Result, bool, error)
	Put(ctx context.Context, result *geocode.Result) error
	Close() error
}

// Config selects and configures a driver. An empty Driver disables caching.
type Config struct {
	Driver string        `yaml:"driver" mapstructure:"driver"`
	DSN    string        `yaml:"dsn" mapstructure:"dsn"`
	Pool   db.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// Enabled reports whether a driver is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Driver) != ""
}

// New opens the configured cache. It returns (nil, nil) when caching is
// disabled.
func New(ctx context.Context, cfg Config) (Cache, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if cfg.DSN == "" {
		return nil, eris.Errorf("cache: %s driver requires a dsn", cfg.Driver)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverSQLite:
		c, err := NewSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return c, nil
	case DriverPostgres, "postgresql", "pgx":
		pool, err := db.Open(ctx, cfg.DSN, cfg.Pool)
		if err != nil {
			return nil, eris.Wrap(err, "cache: open postgres")
		}
		c, err := NewPostgres(ctx, pool)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, eris.Errorf("cache: unsupported driver %q", cfg.Driver)
	}
}

// Key returns the SHA-256 hex digest of address. The text is hashed as-is.
func Key(address string) string {
	h := sha256.Sum256([]byte(address))
	return fmt.Sprintf("%x", h)
}

// record is the column form shared by both drivers.
type record struct {
	matched          bool
	formattedAddress string
	latitude         float64
	longitude        float64
	postcode         string
	stateCode        string
	countyCode       string
	tractCode        string
}

func toRecord(r *geocode.Result) record {
	if r.Match == nil {
		return record{}
	}
	m := r.Match
	return record{
		matched:          true,
		formattedAddress: m.FormattedAddress,
		latitude:         m.Latitude,
		longitude:        m.Longitude,
		postcode:         m.Postcode,
		stateCode:        m.StateCode,
		countyCode:       m.CountyCode,
		tractCode:        m.TractCode,
	}
}

func (rec record) result(address string) *geocode.Result {
	r := &geocode.Result{InputAddress: address}
	if rec.matched {
		r.Match = &geocode.Match{
			FormattedAddress: rec.formattedAddress,
			Latitude:         rec.latitude,
			Longitude:        rec.longitude,
			Postcode:         rec.postcode,
			StateCode:        rec.stateCode,
			CountyCode:       rec.countyCode,
			TractCode:        rec.tractCode,
		}
	}
	return r
}
