package browser_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/calvinalkan/netskip/internal/browser"
	"github.com/calvinalkan/netskip/internal/logging"
	"github.com/calvinalkan/netskip/internal/pagestore"
)

const home = "https://home.example"

func newSession(t *testing.T) (*browser.Session, *pagestore.Store) {
	t.Helper()

	store, err := pagestore.Open(t.Context(), pagestore.Options{})
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return browser.NewSession(store, nil, home), store
}

func Test_RestoreTabs_Opens_Home_Tab_When_Nothing_Persisted(t *testing.T) {
	t.Parallel()

	session, store := newSession(t)

	tabs := session.RestoreTabs(t.Context())
	require.Len(t, tabs, 1)
	require.Equal(t, home, tabs[0].URL)
	require.NotZero(t, tabs[0].ID)

	persisted, err := store.LoadItems(t.Context(), pagestore.Active, nil)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	require.Equal(t, tabs[0].ID, persisted[0].ID)
}

func Test_RestoreTabs_Keeps_IDs_When_Tabs_Persisted(t *testing.T) {
	t.Parallel()

	session, store := newSession(t)

	first := session.OpenTab(t.Context(), "https://a.example")
	second := session.OpenTab(t.Context(), "https://b.example")

	tabs := session.RestoreTabs(t.Context())
	require.Len(t, tabs, 2)

	ids := []int64{tabs[0].ID, tabs[1].ID}
	require.ElementsMatch(t, []int64{first, second}, ids)

	n, err := store.Count(t.Context(), pagestore.Active)
	require.NoError(t, err)
	require.Equal(t, 2, n, "restore must not duplicate tabs")
}

func Test_TitleLoaded_Records_History_And_Titles_Tab_When_Title_Arrives(t *testing.T) {
	t.Parallel()

	session, store := newSession(t)
	ctx := t.Context()

	id := session.OpenTab(ctx, "")
	session.NavigateTab(ctx, id, "https://news.example")
	session.TitleLoaded(ctx, id, "https://news.example", "News")

	tab, err := store.LoadItems(ctx, pagestore.Active, []int64{id})
	require.NoError(t, err)
	require.Len(t, tab, 1)
	require.Equal(t, "https://news.example", tab[0].URL)
	require.Equal(t, "News", tab[0].Title)

	history := session.List(ctx, pagestore.History)
	require.Len(t, history, 1)
	require.Equal(t, "https://news.example", history[0].URL)
	require.Equal(t, "News", history[0].Title)
}

func Test_TitleLoaded_Skips_History_When_URL_Or_Title_Empty(t *testing.T) {
	t.Parallel()

	session, store := newSession(t)
	ctx := t.Context()

	id := session.OpenTab(ctx, "")
	session.TitleLoaded(ctx, id, "", "New Tab")
	session.TitleLoaded(ctx, id, "https://slow.example", "")

	require.Empty(t, session.List(ctx, pagestore.History))

	tab, err := store.LoadItems(ctx, pagestore.Active, []int64{id})
	require.NoError(t, err)
	require.Len(t, tab, 1)
	require.Empty(t, tab[0].Title, "the last load cleared the title")
}

func Test_NavigateTab_Ignores_Unknown_Tab_When_ID_Missing(t *testing.T) {
	t.Parallel()

	session, store := newSession(t)

	session.NavigateTab(t.Context(), 404, "https://nowhere.example")
	session.TitleLoaded(t.Context(), 0, "", "")

	n, err := store.Count(t.Context(), pagestore.Active)
	require.NoError(t, err)
	require.Zero(t, n)
}

func Test_CloseTabs_Removes_Only_Named_Tabs_When_Called(t *testing.T) {
	t.Parallel()

	session, _ := newSession(t)
	ctx := t.Context()

	a := session.OpenTab(ctx, "https://a.example")
	b := session.OpenTab(ctx, "https://b.example")

	session.CloseTabs(ctx)
	require.Len(t, session.List(ctx, pagestore.Active), 2)

	session.CloseTabs(ctx, a)

	tabs := session.List(ctx, pagestore.Active)
	require.Len(t, tabs, 1)
	require.Equal(t, b, tabs[0].ID)
}

func Test_Favorites_Add_Remove_And_Clear_When_Managed(t *testing.T) {
	t.Parallel()

	session, _ := newSession(t)
	ctx := t.Context()

	require.Zero(t, session.AddFavorite(ctx, "", "nothing"))

	a := session.AddFavorite(ctx, "https://a.example", "A")
	session.AddFavorite(ctx, "https://b.example", "B")
	require.NotZero(t, a)
	require.Len(t, session.List(ctx, pagestore.Favorite), 2)

	session.Remove(ctx, pagestore.Favorite, a)
	require.Len(t, session.List(ctx, pagestore.Favorite), 1)

	session.Clear(ctx, pagestore.Favorite)
	require.Empty(t, session.List(ctx, pagestore.Favorite))
}

type failingStore struct {
	calls int
}

var errBroken = errors.New("disk on fire")

func (f *failingStore) SaveItems(context.Context, pagestore.Category, []pagestore.Page) ([]int64, error) {
	f.calls++

	return nil, &pagestore.StorageError{Op: "save", Err: errBroken}
}

func (f *failingStore) LoadItems(context.Context, pagestore.Category, []int64) ([]pagestore.Page, error) {
	f.calls++

	return nil, &pagestore.StorageError{Op: "load", Err: errBroken}
}

func (f *failingStore) RemoveItems(context.Context, pagestore.Category, []int64) error {
	f.calls++

	return &pagestore.StorageError{Op: "remove", Err: errBroken}
}

func Test_Session_Degrades_And_Logs_When_Store_Fails(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	store := &failingStore{}
	session := browser.NewSession(store, logging.FromZap(zap.New(core)), home)
	ctx := t.Context()

	tabs := session.RestoreTabs(ctx)
	require.Len(t, tabs, 1, "falls back to an unsaved home tab")
	require.Zero(t, tabs[0].ID)
	require.Equal(t, home, tabs[0].URL)

	require.Zero(t, session.OpenTab(ctx, "https://a.example"))
	require.Zero(t, session.AddFavorite(ctx, "https://a.example", "A"))
	require.Nil(t, session.List(ctx, pagestore.History))

	session.NavigateTab(ctx, 1, "https://b.example")
	session.TitleLoaded(ctx, 1, "https://b.example", "B")
	session.CloseTabs(ctx, 1)
	session.Remove(ctx, pagestore.History, 1)
	session.Clear(ctx, pagestore.History)

	require.Equal(t, store.calls, logs.Len(), "every failed call is logged once")

	entry := logs.All()[0]
	require.Equal(t, "page store call failed", entry.Message)
	require.Equal(t, "restore tabs", entry.ContextMap()["op"])
	require.Equal(t, "active", entry.ContextMap()["category"])
	require.Contains(t, entry.ContextMap()["error"], errBroken.Error())
}
