package pagestore

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

// memoryPath is the SQLite name for a private in-memory database.
const memoryPath = ":memory:"

// maxBoundIDs caps the number of ids bound into one IN (...) clause.
// SQLite builds older than 3.32 allow at most 999 host parameters.
const maxBoundIDs = 500

const defaultBusyTimeout = 10 * time.Second

// txlockParam makes transactions start with BEGIN IMMEDIATE so a writer
// takes the lock up front instead of failing on upgrade.
const txlockParam = "_txlock=immediate"

// dsn builds the go-sqlite3 data source name. File paths become file: URIs
// with the path escaped, so a '?' or '#' in a file name stays part of the
// name instead of starting the query. path must be absolute.
func dsn(path string) string {
	if path == memoryPath {
		return memoryPath + "?" + txlockParam
	}

	slashed := filepath.ToSlash(path)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed // Windows drive paths
	}

	u := url.URL{Scheme: "file", Path: slashed, RawQuery: txlockParam}

	return u.String()
}

// openSQLite opens the database and applies connection pragmas.
func openSQLite(ctx context.Context, path string, busyTimeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection: pragmas are per connection, and an in-memory
	// database only exists on the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	err = applyPragmas(ctx, db, busyTimeout)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return db, nil
}

// applyPragmas configures the connection. auto_vacuum only takes effect
// before the first table exists or after a VACUUM; the last migration
// step covers databases created before it was set.
func applyPragmas(ctx context.Context, db *sql.DB, busyTimeout time.Duration) error {
	statements := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
		"PRAGMA auto_vacuum = INCREMENTAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, stmt := range statements {
		_, err := db.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}

	return nil
}

// toSeconds converts t to floating-point seconds since the epoch.
func toSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// fromSeconds is the inverse of toSeconds, to float64 precision.
func fromSeconds(f float64) time.Time {
	sec, frac := math.Modf(f)
	if frac < 0 {
		sec--
		frac++
	}

	return time.Unix(int64(sec), int64(math.Round(frac*1e9)))
}

// nullIfEmpty stores empty strings as NULL.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}

	return s
}

// uniqueIDs returns ids sorted and without duplicates.
func uniqueIDs(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)

	return slices.Compact(out)
}

// chunkIDs splits ids into slices of at most maxBoundIDs.
func chunkIDs(ids []int64) [][]int64 {
	chunks := make([][]int64, 0, (len(ids)+maxBoundIDs-1)/maxBoundIDs)
	for len(ids) > maxBoundIDs {
		chunks = append(chunks, ids[:maxBoundIDs])
		ids = ids[maxBoundIDs:]
	}

	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}

	return chunks
}

// inClause returns "(?,?,?)" and the matching argument slice.
func inClause(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	return "(" + strings.TrimRight(strings.Repeat("?,", len(ids)), ",") + ")", args
}
