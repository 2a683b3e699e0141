// Package pagestore persists browsing state: open tabs, history and
// favorites, each in its own SQLite table, with additive versioned schema
// migration applied on open.
package pagestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/calvinalkan/netskip/internal/logging"
)

// Options configures [Open].
type Options struct {
	// Path is the SQLite file. Empty or ":memory:" opens a private
	// in-memory database that disappears on Close. A relative path is
	// resolved against the working directory.
	Path string

	// Logger receives migration and operation logs. Nil discards them.
	Logger logging.Logger

	// Now stamps pages saved with a zero Date. Nil means time.Now.
	Now func() time.Time

	// BusyTimeout bounds waits on SQLite locks and on the open lock file.
	// Zero means 10s.
	BusyTimeout time.Duration
}

// Store is a handle on one page database.
//
// Every method runs as one unit of work: calls on the same Store are
// serialized, and a SaveItems or RemoveItems call commits all of its rows
// or none. The store is meant to be driven by one writer at a time; several
// handles may open the same file one after another (for example across
// restarts).
type Store struct {
	path string
	log  logging.Logger
	now  func() time.Time

	mu sync.Mutex
	db *sql.DB // nil after Close
}

// Open opens or creates the database at opts.Path and brings its schema up
// to [LatestSchemaVersion]. Opening an already migrated store changes nothing.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if ctx == nil {
		return nil, errors.New("open store: context is nil")
	}

	log := opts.Logger
	if log == nil {
		log = logging.NewNop()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	busyTimeout := opts.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	path := opts.Path
	if path == "" {
		path = memoryPath
	}

	handle, err := uuid.NewV7()
	if err != nil {
		handle = uuid.New()
	}

	log = log.With(logging.String("store", handle.String()), logging.String("path", path))

	if path != memoryPath {
		path, err = filepath.Abs(path)
		if err != nil {
			return nil, storageErr("open", fmt.Errorf("resolve path: %w", err))
		}

		err = os.MkdirAll(filepath.Dir(path), 0o750)
		if err != nil {
			return nil, storageErr("open", fmt.Errorf("create directory: %w", err))
		}

		lockCtx, cancel := context.WithTimeout(ctx, busyTimeout)
		defer cancel()

		release, lockErr := lockFile(lockCtx, path+".lock")
		if lockErr != nil {
			return nil, storageErr("open", lockErr)
		}

		defer func() {
			releaseErr := release()
			if releaseErr != nil {
				log.Warn("release open lock", logging.Error(releaseErr))
			}
		}()
	}

	db, err := openSQLite(ctx, path, busyTimeout)
	if err != nil {
		return nil, storageErr("open", err)
	}

	version, err := bootstrapSchemaVersion(ctx, db)
	if err != nil {
		return nil, errors.Join(storageErr("open", err), db.Close())
	}

	migrated, err := runMigrations(ctx, db, migrations, version, log)
	if err != nil {
		return nil, errors.Join(storageErr("migrate", err), db.Close())
	}

	log.Debug("store opened", logging.Int64("from_version", version), logging.Int64("version", migrated))

	return &Store{path: path, log: log, now: now, db: db}, nil
}

// Path returns the database path, ":memory:" for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database. Calling Close again returns nil.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil

	return storageErr("close", err)
}

// SaveItems writes pages into the category and returns their ids in input
// order.
//
// A page with ID 0 is inserted and gets a fresh id; ids are never reused,
// even after the row is removed. A page with a non-zero ID updates the row
// with that id. If no such row exists the update matches nothing, nothing is
// created, and the id is still returned.
func (s *Store) SaveItems(ctx context.Context, c Category, pages []Page) ([]int64, error) {
	table, err := c.table()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, categoryErr("save", c, ErrClosed)
	}

	ids := make([]int64, 0, len(pages))
	if len(pages) == 0 {
		return ids, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, categoryErr("save", c, fmt.Errorf("begin txn: %w", err))
	}

	committed := false

	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	insert, err := tx.PrepareContext(ctx, "INSERT INTO "+table+" (url, title, date) VALUES (?, ?, ?)")
	if err != nil {
		return nil, categoryErr("save", c, fmt.Errorf("prepare insert: %w", err))
	}

	defer func() { _ = insert.Close() }()

	update, err := tx.PrepareContext(ctx, "UPDATE "+table+" SET url = ?, title = ?, date = ? WHERE id = ?")
	if err != nil {
		return nil, categoryErr("save", c, fmt.Errorf("prepare update: %w", err))
	}

	defer func() { _ = update.Close() }()

	inserted := 0

	for i := range pages {
		page := &pages[i]

		date := page.Date
		if date.IsZero() {
			date = s.now()
		}

		if page.ID == 0 {
			res, execErr := insert.ExecContext(ctx, page.URL, nullIfEmpty(page.Title), toSeconds(date))
			if execErr != nil {
				return nil, categoryErr("save", c, fmt.Errorf("insert page %d: %w", i, execErr))
			}

			id, idErr := res.LastInsertId()
			if idErr != nil {
				return nil, categoryErr("save", c, fmt.Errorf("insert page %d: last insert id: %w", i, idErr))
			}

			ids = append(ids, id)
			inserted++

			continue
		}

		_, err = update.ExecContext(ctx, page.URL, nullIfEmpty(page.Title), toSeconds(date), page.ID)
		if err != nil {
			return nil, categoryErr("save", c, fmt.Errorf("update page %d: %w", page.ID, err))
		}

		ids = append(ids, page.ID)
	}

	err = tx.Commit()
	if err != nil {
		return nil, categoryErr("save", c, fmt.Errorf("commit txn: %w", err))
	}

	committed = true

	s.log.Debug("saved pages",
		logging.String("category", table),
		logging.Int("inserted", inserted),
		logging.Int("updated", len(pages)-inserted),
		logging.Int64s("ids", ids),
	)

	return ids, nil
}

// LoadItems returns the pages with the given ids, newest Date first (ties
// by id, highest first). No ids means every page in the category. Ids that
// do not exist are left out of the result; that is not an error.
func (s *Store) LoadItems(ctx context.Context, c Category, ids []int64) ([]Page, error) {
	table, err := c.table()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, categoryErr("load", c, ErrClosed)
	}

	const columns = "SELECT id, url, title, date FROM "
	const order = " ORDER BY date DESC, id DESC"

	if len(ids) == 0 {
		pages, loadErr := queryPages(ctx, s.db, columns+table+order)
		if loadErr != nil {
			return nil, categoryErr("load", c, loadErr)
		}

		s.log.Debug("loaded pages", logging.String("category", table), logging.Int("count", len(pages)))

		return pages, nil
	}

	var pages []Page

	chunks := chunkIDs(uniqueIDs(ids))
	for _, chunk := range chunks {
		in, args := inClause(chunk)

		batch, loadErr := queryPages(ctx, s.db, columns+table+" WHERE id IN "+in+order, args...)
		if loadErr != nil {
			return nil, categoryErr("load", c, loadErr)
		}

		pages = append(pages, batch...)
	}

	if len(chunks) > 1 {
		slices.SortFunc(pages, comparePages)
	}

	if pages == nil {
		pages = []Page{}
	}

	s.log.Debug("loaded pages",
		logging.String("category", table),
		logging.Int("requested", len(ids)),
		logging.Int("count", len(pages)),
	)

	return pages, nil
}

// comparePages orders like the load query: date desc, then id desc.
func comparePages(a, b Page) int {
	if c := b.Date.Compare(a.Date); c != 0 {
		return c
	}

	switch {
	case a.ID > b.ID:
		return -1
	case a.ID < b.ID:
		return 1
	default:
		return 0
	}
}

func queryPages(ctx context.Context, db *sql.DB, query string, args ...any) ([]Page, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	defer func() { _ = rows.Close() }()

	pages := []Page{}

	for rows.Next() {
		var (
			page  Page
			title sql.NullString
			date  float64
		)

		err = rows.Scan(&page.ID, &page.URL, &title, &date)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		page.Title = title.String
		page.Date = fromSeconds(date)
		pages = append(pages, page)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return pages, nil
}

// RemoveItems deletes the pages with the given ids. No ids clears the
// whole category. Removing ids that do not exist is not an error.
func (s *Store) RemoveItems(ctx context.Context, c Category, ids []int64) error {
	table, err := c.table()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return categoryErr("remove", c, ErrClosed)
	}

	if len(ids) == 0 {
		res, execErr := s.db.ExecContext(ctx, "DELETE FROM "+table)
		if execErr != nil {
			return categoryErr("remove", c, fmt.Errorf("clear: %w", execErr))
		}

		n, _ := res.RowsAffected()
		s.log.Debug("cleared pages", logging.String("category", table), logging.Int64("removed", n))

		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return categoryErr("remove", c, fmt.Errorf("begin txn: %w", err))
	}

	committed := false

	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var removed int64

	for _, chunk := range chunkIDs(uniqueIDs(ids)) {
		in, args := inClause(chunk)

		res, execErr := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE id IN "+in, args...)
		if execErr != nil {
			return categoryErr("remove", c, fmt.Errorf("delete: %w", execErr))
		}

		n, _ := res.RowsAffected()
		removed += n
	}

	err = tx.Commit()
	if err != nil {
		return categoryErr("remove", c, fmt.Errorf("commit txn: %w", err))
	}

	committed = true

	s.log.Debug("removed pages", logging.String("category", table), logging.Int64("removed", removed))

	return nil
}

// Count returns the number of pages in the category.
func (s *Store) Count(ctx context.Context, c Category) (int, error) {
	table, err := c.table()
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, categoryErr("count", c, ErrClosed)
	}

	var n int

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	if err != nil {
		return 0, categoryErr("count", c, err)
	}

	return n, nil
}

// SchemaVersion returns the persisted schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, storageErr("version", ErrClosed)
	}

	version, err := readSchemaVersion(ctx, s.db)
	if err != nil {
		return 0, storageErr("version", err)
	}

	return version, nil
}
