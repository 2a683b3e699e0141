// Package browser holds the page-state policy of the browser shell: which
// records are written when tabs open, navigate, load and close, and what
// the UI falls back to when the store fails.
//
// Store failures never reach the caller. They are logged and the method
// returns its fallback (nil, 0, or nothing) so a broken database degrades
// to an empty tab list instead of a crash.
package browser

import (
	"context"

	"github.com/calvinalkan/netskip/internal/logging"
	"github.com/calvinalkan/netskip/internal/pagestore"
)

// PageStore is the storage contract the session needs.
// [*pagestore.Store] implements it.
type PageStore interface {
	SaveItems(ctx context.Context, c pagestore.Category, pages []pagestore.Page) ([]int64, error)
	LoadItems(ctx context.Context, c pagestore.Category, ids []int64) ([]pagestore.Page, error)
	RemoveItems(ctx context.Context, c pagestore.Category, ids []int64) error
}

// Session applies browsing events to a PageStore.
type Session struct {
	store   PageStore
	log     logging.Logger
	homeURL string
}

// NewSession creates a Session. A nil logger discards logs. homeURL is
// used for the tab opened when there is nothing to restore.
func NewSession(store PageStore, log logging.Logger, homeURL string) *Session {
	if log == nil {
		log = logging.NewNop()
	}

	return &Session{store: store, log: log, homeURL: homeURL}
}

// RestoreTabs returns the persisted tabs, newest first. Each restored tab
// is saved again under its id. With nothing to restore, one tab is opened
// at the home URL.
func (s *Session) RestoreTabs(ctx context.Context) []pagestore.Page {
	tabs, err := s.store.LoadItems(ctx, pagestore.Active, nil)
	if err != nil {
		s.warn("restore tabs", pagestore.Active, err)
	}

	restored := make([]pagestore.Page, 0, len(tabs))

	for _, tab := range tabs {
		s.log.Info("restoring tab", logging.Int64("id", tab.ID), logging.String("url", tab.URL), logging.String("title", tab.Title))

		ids, saveErr := s.store.SaveItems(ctx, pagestore.Active, []pagestore.Page{tab})
		if saveErr != nil {
			s.warn("resave tab", pagestore.Active, saveErr, logging.Int64("id", tab.ID))
		} else if len(ids) == 1 {
			tab.ID = ids[0]
		}

		restored = append(restored, tab)
	}

	if len(restored) > 0 {
		return restored
	}

	page := pagestore.NewPage(s.homeURL, "")
	page.ID = s.save(ctx, "open home tab", pagestore.Active, page)

	return []pagestore.Page{page}
}

// OpenTab records a new tab at url and returns its id, or 0 if the store
// could not persist it.
func (s *Session) OpenTab(ctx context.Context, url string) int64 {
	return s.save(ctx, "open tab", pagestore.Active, pagestore.NewPage(url, ""))
}

// NavigateTab stores the new URL of tab id. An unknown id is ignored.
func (s *Session) NavigateTab(ctx context.Context, id int64, url string) {
	tab, ok := s.loadOne(ctx, pagestore.Active, id)
	if !ok {
		return
	}

	tab.URL = url
	s.save(ctx, "navigate tab", pagestore.Active, tab)
}

// TitleLoaded is called when tab id finishes loading a page. The tab
// record gets the title. The visit is added to history only when both url
// and title are non-empty, so blank pages and untitled loads are skipped.
func (s *Session) TitleLoaded(ctx context.Context, id int64, url, title string) {
	if url != "" && title != "" {
		s.save(ctx, "record history", pagestore.History, pagestore.NewPage(url, title))
	}

	tab, ok := s.loadOne(ctx, pagestore.Active, id)
	if !ok {
		return
	}

	tab.Title = title
	s.save(ctx, "title tab", pagestore.Active, tab)
}

// CloseTabs removes the tab records. No ids removes nothing; use
// [Session.Clear] to close every tab.
func (s *Session) CloseTabs(ctx context.Context, ids ...int64) {
	if len(ids) == 0 {
		return
	}

	err := s.store.RemoveItems(ctx, pagestore.Active, ids)
	if err != nil {
		s.warn("close tabs", pagestore.Active, err, logging.Int64s("ids", ids))
	}
}

// AddFavorite bookmarks url and returns the new id, or 0 on failure.
// An empty url is not bookmarked.
func (s *Session) AddFavorite(ctx context.Context, url, title string) int64 {
	if url == "" {
		return 0
	}

	return s.save(ctx, "add favorite", pagestore.Favorite, pagestore.NewPage(url, title))
}

// List returns every record in c, newest first, or nil on failure.
func (s *Session) List(ctx context.Context, c pagestore.Category) []pagestore.Page {
	pages, err := s.store.LoadItems(ctx, c, nil)
	if err != nil {
		s.warn("list", c, err)

		return nil
	}

	return pages
}

// Remove deletes the given records from c. No ids removes nothing.
func (s *Session) Remove(ctx context.Context, c pagestore.Category, ids ...int64) {
	if len(ids) == 0 {
		return
	}

	err := s.store.RemoveItems(ctx, c, ids)
	if err != nil {
		s.warn("remove", c, err, logging.Int64s("ids", ids))
	}
}

// Clear deletes every record in c.
func (s *Session) Clear(ctx context.Context, c pagestore.Category) {
	err := s.store.RemoveItems(ctx, c, nil)
	if err != nil {
		s.warn("clear", c, err)
	}
}

func (s *Session) loadOne(ctx context.Context, c pagestore.Category, id int64) (pagestore.Page, bool) {
	if id == 0 {
		return pagestore.Page{}, false
	}

	pages, err := s.store.LoadItems(ctx, c, []int64{id})
	if err != nil {
		s.warn("load", c, err, logging.Int64("id", id))

		return pagestore.Page{}, false
	}

	if len(pages) == 0 {
		return pagestore.Page{}, false
	}

	return pages[0], true
}

func (s *Session) save(ctx context.Context, op string, c pagestore.Category, page pagestore.Page) int64 {
	ids, err := s.store.SaveItems(ctx, c, []pagestore.Page{page})
	if err != nil {
		s.warn(op, c, err)

		return 0
	}

	if len(ids) != 1 {
		return 0
	}

	return ids[0]
}

func (s *Session) warn(op string, c pagestore.Category, err error, fields ...logging.Field) {
	fields = append(fields, logging.String("op", op), logging.String("category", c.String()), logging.Error(err))
	s.log.Warn("page store call failed", fields...)
}
