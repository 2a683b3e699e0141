package pagestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/calvinalkan/netskip/internal/logging"
)

const schemaVersionTable = "schema_version"

// migration is one additive schema step. Steps are never edited, removed
// or reordered once released; new steps are appended with a higher version.
type migration struct {
	version int64
	name    string
	stmts   []string

	// noTx runs the step outside a transaction. Only for statements that
	// cannot run inside one (VACUUM); such steps must be idempotent.
	noTx bool
}

// MigrationInfo describes a schema step for diagnostics.
type MigrationInfo struct {
	Version       int64
	Name          string
	Transactional bool
}

var migrations = []migration{
	{version: 1, name: "create history", stmts: []string{createTableSQL(tableHistory)}},
	{version: 2, name: "create favorite", stmts: []string{createTableSQL(tableFavorite)}},
	{version: 3, name: "create active", stmts: []string{createTableSQL(tableActive)}},
	{version: 4, name: "index url, title, date", stmts: indexSQL(tableHistory, tableFavorite, tableActive)},
	{version: 5, name: "vacuum", stmts: []string{"VACUUM"}, noTx: true},
}

// Migrations lists the schema steps in the order they are applied.
func Migrations() []MigrationInfo {
	out := make([]MigrationInfo, len(migrations))
	for i, m := range migrations {
		out[i] = MigrationInfo{Version: m.version, Name: m.name, Transactional: !m.noTx}
	}

	return out
}

// LatestSchemaVersion is the version a fully migrated store reports.
func LatestSchemaVersion() int64 {
	return migrations[len(migrations)-1].version
}

func createTableSQL(table string) string {
	return "CREATE TABLE " + table + " (" +
		"id INTEGER PRIMARY KEY AUTOINCREMENT, " +
		"url TEXT NOT NULL, " +
		"title TEXT, " +
		"date REAL NOT NULL)"
}

// indexSQL builds the url, title and date indexes for each table.
// Index names carry the table name: SQLite index names are database-wide.
func indexSQL(tables ...string) []string {
	var stmts []string

	for _, table := range tables {
		for _, col := range []string{"url", "title", "date"} {
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX idx_%s_%s ON %s(%s)", table, col, table, col))
		}
	}

	return stmts
}

// bootstrapSchemaVersion creates the version table with its single row
// (0) when missing and returns the stored version.
func bootstrapSchemaVersion(ctx context.Context, db *sql.DB) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bootstrap txn: %w", err)
	}

	committed := false

	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	statements := []string{
		"CREATE TABLE IF NOT EXISTS " + schemaVersionTable + " (id INTEGER PRIMARY KEY, version INTEGER NOT NULL)",
		"INSERT OR IGNORE INTO " + schemaVersionTable + " (id, version) VALUES (0, 0)",
	}

	for _, stmt := range statements {
		_, err = tx.ExecContext(ctx, stmt)
		if err != nil {
			return 0, fmt.Errorf("bootstrap %q: %w", stmt, err)
		}
	}

	version, err := readSchemaVersion(ctx, tx)
	if err != nil {
		return 0, err
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("commit bootstrap txn: %w", err)
	}

	committed = true

	return version, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readSchemaVersion(ctx context.Context, q queryRower) (int64, error) {
	var version int64

	err := q.QueryRowContext(ctx, "SELECT version FROM "+schemaVersionTable+" WHERE id = 0").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}

	return version, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// runMigrations applies every step newer than current and returns the
// resulting version. A stopped run leaves the version at the last step
// that fully committed.
func runMigrations(ctx context.Context, db *sql.DB, steps []migration, current int64, log logging.Logger) (int64, error) {
	for _, m := range steps {
		if current >= m.version {
			continue
		}

		start := time.Now()

		var err error
		if m.noTx {
			err = applyStep(ctx, db, m)
		} else {
			err = applyStepInTxn(ctx, db, m)
		}

		if err != nil {
			return current, fmt.Errorf("migrate to %d (%s): %w", m.version, m.name, err)
		}

		current = m.version

		log.Info("schema migrated",
			logging.Int64("version", m.version),
			logging.String("step", m.name),
			logging.Duration("took", time.Since(start)),
		)
	}

	return current, nil
}

func applyStepInTxn(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration txn: %w", err)
	}

	committed := false

	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	err = applyStep(ctx, tx, m)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit migration txn: %w", err)
	}

	committed = true

	return nil
}

// applyStep runs the statements of m followed by the version update.
func applyStep(ctx context.Context, ex execer, m migration) error {
	for _, stmt := range m.stmts {
		_, err := ex.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}

	_, err := ex.ExecContext(ctx, "UPDATE "+schemaVersionTable+" SET version = ? WHERE id = 0", m.version)
	if err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}

	return nil
}
