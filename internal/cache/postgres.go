package cache

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/census-geocode/internal/db"
	"github.com/sells-group/census-geocode/pkg/geocode"
)

// Postgres is a Cache backed by a shared Postgres table.
type Postgres struct {
	pool db.Pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash      TEXT PRIMARY KEY,
	input_address     TEXT NOT NULL,
	matched           BOOLEAN NOT NULL,
	formatted_address TEXT,
	latitude          DOUBLE PRECISION,
	longitude         DOUBLE PRECISION,
	postcode          TEXT,
	state_code        TEXT,
	county_code       TEXT,
	tract_code        TEXT,
	cached_at         TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPostgres creates the cache table if needed and returns a cache that owns
// pool.
func NewPostgres(ctx context.Context, pool db.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, postgresMigration); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "cache: postgres migrate")
	}
	return &Postgres{pool: pool}, nil
}

// Get implements Cache.
func (p *Postgres) Get(ctx context.Context, address string) (*geocode.Result, bool, error) {
	var matched bool
	var formatted, postcode, stateCode, countyCode, tractCode *string
	var lat, lon *float64
	err := p.pool.QueryRow(ctx, `
		SELECT matched, formatted_address, latitude, longitude, postcode, state_code, county_code, tract_code
		FROM geocode_cache WHERE address_hash = $1`, Key(address),
	).Scan(&matched, &formatted, &lat, &lon, &postcode, &stateCode, &countyCode, &tractCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "cache: postgres get")
	}

	rec := record{
		matched:          matched,
		formattedAddress: deref(formatted),
		postcode:         deref(postcode),
		stateCode:        deref(stateCode),
		countyCode:       deref(countyCode),
		tractCode:        deref(tractCode),
	}
	if lat != nil {
		rec.latitude = *lat
	}
	if lon != nil {
		rec.longitude = *lon
	}
	return rec.result(address), true, nil
}

// Put implements Cache. Unmatched results store NULL for every match column.
func (p *Postgres) Put(ctx context.Context, result *geocode.Result) error {
	rec := toRecord(result)
	args := []any{Key(result.InputAddress), result.InputAddress, rec.matched, nil, nil, nil, nil, nil, nil, nil}
	if rec.matched {
		args[3] = rec.formattedAddress
		args[4] = rec.latitude
		args[5] = rec.longitude
		args[6] = rec.postcode
		args[7] = rec.stateCode
		args[8] = rec.countyCode
		args[9] = rec.tractCode
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO geocode_cache (address_hash, input_address, matched, formatted_address, latitude, longitude,
			postcode, state_code, county_code, tract_code, cached_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (address_hash) DO UPDATE SET
			matched = EXCLUDED.matched,
			formatted_address = EXCLUDED.formatted_address,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			postcode = EXCLUDED.postcode,
			state_code = EXCLUDED.state_code,
			county_code = EXCLUDED.county_code,
			tract_code = EXCLUDED.tract_code,
			cached_at = now()`,
		args...,
	)
	if err != nil {
		return eris.Wrap(err, "cache: postgres put")
	}
	return nil
}

// Close implements Cache.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
