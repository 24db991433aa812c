package cache

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/census-geocode/pkg/geocode"
)

// SQLite is a Cache backed by a local modernc.org/sqlite database.
type SQLite struct {
	db *sql.DB
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash      TEXT PRIMARY KEY,
	input_address     TEXT NOT NULL,
	matched           INTEGER NOT NULL,
	formatted_address TEXT NOT NULL DEFAULT '',
	latitude          REAL NOT NULL DEFAULT 0,
	longitude         REAL NOT NULL DEFAULT 0,
	postcode          TEXT NOT NULL DEFAULT '',
	state_code        TEXT NOT NULL DEFAULT '',
	county_code       TEXT NOT NULL DEFAULT '',
	tract_code        TEXT NOT NULL DEFAULT '',
	cached_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// NewSQLite opens (or creates) the database at path, enables WAL mode, and
// creates the cache table.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "cache: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "cache: sqlite exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteMigration); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "cache: sqlite migrate")
	}
	return &SQLite{db: db}, nil
}

// Get implements Cache.
func (s *SQLite) Get(ctx context.Context, address string) (*geocode.Result, bool, error) {
	var rec record
	err := s.db.QueryRowContext(ctx, `
		SELECT matched, formatted_address, latitude, longitude, postcode, state_code, county_code, tract_code
		FROM geocode_cache WHERE address_hash = ?`, Key(address),
	).Scan(&rec.matched, &rec.formattedAddress, &rec.latitude, &rec.longitude,
		&rec.postcode, &rec.stateCode, &rec.countyCode, &rec.tractCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "cache: sqlite get")
	}
	return rec.result(address), true, nil
}

// Put implements Cache. An existing entry for the same address is replaced.
func (s *SQLite) Put(ctx context.Context, result *geocode.Result) error {
	rec := toRecord(result)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (address_hash, input_address, matched, formatted_address, latitude, longitude,
			postcode, state_code, county_code, tract_code, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (address_hash) DO UPDATE SET
			matched = excluded.matched,
			formatted_address = excluded.formatted_address,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			postcode = excluded.postcode,
			state_code = excluded.state_code,
			county_code = excluded.county_code,
			tract_code = excluded.tract_code,
			cached_at = excluded.cached_at`,
		Key(result.InputAddress), result.InputAddress, rec.matched, rec.formattedAddress, rec.latitude, rec.longitude,
		rec.postcode, rec.stateCode, rec.countyCode, rec.tractCode,
	)
	if err != nil {
		return eris.Wrap(err, "cache: sqlite put")
	}
	return nil
}

// Close implements Cache.
func (s *SQLite) Close() error {
	return s.db.Close()
}
