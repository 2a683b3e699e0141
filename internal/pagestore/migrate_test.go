package pagestore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/calvinalkan/netskip/internal/logging"
)

func openRaw(t *testing.T) *sql.DB {
	t.Helper()

	db, err := openSQLite(t.Context(), memoryPath, time.Second)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

func tableNames(t *testing.T, db *sql.DB) map[string]bool {
	t.Helper()

	rows, err := db.QueryContext(t.Context(), "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}

	defer func() { _ = rows.Close() }()

	names := map[string]bool{}

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}

		names[name] = true
	}

	return names
}

func Test_Migrations_Have_Strictly_Increasing_Versions_When_Listed(t *testing.T) {
	t.Parallel()

	var prev int64

	for i, m := range migrations {
		if m.version <= prev {
			t.Fatalf("step %d (%s): version %d not greater than %d", i, m.name, m.version, prev)
		}

		if m.noTx && i != len(migrations)-1 {
			t.Fatalf("step %d (%s) runs outside a transaction but is not last", i, m.name)
		}

		prev = m.version
	}

	infos := Migrations()
	if len(infos) != len(migrations) || infos[len(infos)-1].Transactional {
		t.Fatalf("Migrations() = %+v", infos)
	}
}

func Test_BootstrapSchemaVersion_Seeds_Zero_Once_When_Called_Repeatedly(t *testing.T) {
	t.Parallel()

	db := openRaw(t)

	for range 3 {
		v, err := bootstrapSchemaVersion(t.Context(), db)
		if err != nil {
			t.Fatalf("bootstrap: %v", err)
		}

		if v != 0 {
			t.Fatalf("version = %d, want 0", v)
		}
	}

	var rows int
	if err := db.QueryRowContext(t.Context(), "SELECT COUNT(*) FROM schema_version").Scan(&rows); err != nil || rows != 1 {
		t.Fatalf("rows = %d (err %v), want 1", rows, err)
	}
}

func Test_RunMigrations_Stops_At_Last_Good_Step_When_A_Step_Fails(t *testing.T) {
	t.Parallel()

	db := openRaw(t)

	_, err := bootstrapSchemaVersion(t.Context(), db)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	steps := []migration{
		{version: 1, name: "good", stmts: []string{"CREATE TABLE good (id INTEGER)"}},
		{version: 2, name: "half", stmts: []string{
			"CREATE TABLE half (id INTEGER)",
			"CREATE TABLE good (id INTEGER)", // already exists
		}},
		{version: 3, name: "never", stmts: []string{"CREATE TABLE never (id INTEGER)"}},
	}

	got, err := runMigrations(t.Context(), db, steps, 0, logging.NewNop())
	if err == nil {
		t.Fatal("migrations succeeded, want error")
	}

	if got != 1 {
		t.Fatalf("returned version = %d, want 1", got)
	}

	stored, err := readSchemaVersion(t.Context(), db)
	if err != nil || stored != 1 {
		t.Fatalf("stored version = %d (err %v), want 1", stored, err)
	}

	names := tableNames(t, db)
	if !names["good"] || names["half"] || names["never"] {
		t.Fatalf("tables = %v, want good only (half rolled back)", names)
	}
}

func Test_RunMigrations_Is_NoOp_When_Already_Current(t *testing.T) {
	t.Parallel()

	db := openRaw(t)

	_, err := bootstrapSchemaVersion(t.Context(), db)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	v, err := runMigrations(t.Context(), db, migrations, 0, logging.NewNop())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	again, err := runMigrations(t.Context(), db, migrations, v, logging.NewNop())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if v != LatestSchemaVersion() || again != v {
		t.Fatalf("versions = %d, %d; want %d", v, again, LatestSchemaVersion())
	}

	names := tableNames(t, db)
	for _, table := range []string{tableHistory, tableFavorite, tableActive, schemaVersionTable} {
		if !names[table] {
			t.Errorf("missing table %s", table)
		}
	}
}

func Test_RunMigrations_Applies_Only_Newer_Steps_When_Store_Is_Behind(t *testing.T) {
	t.Parallel()

	db := openRaw(t)
	ctx := context.Background()

	_, err := bootstrapSchemaVersion(ctx, db)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	// An older release shipped only the first three steps.
	v, err := runMigrations(ctx, db, migrations[:3], 0, logging.NewNop())
	if err != nil || v != 3 {
		t.Fatalf("old release migrate = %d (err %v), want 3", v, err)
	}

	_, err = db.ExecContext(ctx, "INSERT INTO history (url, title, date) VALUES ('https://old.example', NULL, 1)")
	if err != nil {
		t.Fatalf("seed row: %v", err)
	}

	v, err = runMigrations(ctx, db, migrations, v, logging.NewNop())
	if err != nil || v != LatestSchemaVersion() {
		t.Fatalf("upgrade = %d (err %v)", v, err)
	}

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM history").Scan(&n); err != nil || n != 1 {
		t.Fatalf("history rows after upgrade = %d (err %v), want 1", n, err)
	}

	var indexes int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND tbl_name = 'history'").Scan(&indexes); err != nil || indexes != 3 {
		t.Fatalf("history indexes = %d (err %v), want 3", indexes, err)
	}
}

func Test_DSN_Escapes_Path_When_Building_File_URI(t *testing.T) {
	t.Parallel()

	for path, want := range map[string]string{
		memoryPath:            ":memory:?_txlock=immediate",
		"/data/pages.sqlite":  "file:///data/pages.sqlite?_txlock=immediate",
		"/data/pages?v1.db":   "file:///data/pages%3Fv1.db?_txlock=immediate",
		"/data/a#b c%.sqlite": "file:///data/a%23b%20c%25.sqlite?_txlock=immediate",
	} {
		if got := dsn(path); got != want {
			t.Errorf("dsn(%q) = %q, want %q", path, got, want)
		}
	}
}

func Test_FromSeconds_Inverts_ToSeconds_When_Date_Is_Before_Epoch(t *testing.T) {
	t.Parallel()

	for _, want := range []time.Time{
		time.Date(1969, 7, 20, 20, 17, 40, 250_000_000, time.UTC),
		time.Date(2026, 10, 14, 9, 30, 0, 125_000_000, time.UTC),
		time.Unix(0, 0),
	} {
		got := fromSeconds(toSeconds(want))
		if d := got.Sub(want); d > time.Microsecond || d < -time.Microsecond {
			t.Errorf("round trip of %v = %v (off by %v)", want, got, d)
		}
	}
}
