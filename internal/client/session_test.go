package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"libraryclient/internal/catalog"
	"libraryclient/internal/comments"
	"libraryclient/internal/favorites"
	"libraryclient/internal/metrics"
	"libraryclient/internal/models"
	"libraryclient/internal/remote"
	"libraryclient/internal/remote/stubs"
	archivestubs "libraryclient/internal/storage/stubs"
	"libraryclient/internal/stats"
)

var seedTime = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newBackend(t *testing.T) (*stubs.MockBackend, map[string]string) {
	t.Helper()
	m := stubs.NewMockBackend()
	m.SetClock(func() time.Time { return seedTime.Add(time.Hour) })
	return m, m.Seed(seedTime)
}

func newSession(backend remote.Backend, token string) *Session {
	return NewSession(Options{
		Backend:  backend,
		Logger:   zap.NewNop(),
		Metrics:  metrics.New(),
		PageSize: 2,
		Token:    token,
		Now:      func() time.Time { return seedTime },
	})
}

func favoriteIDs(items []models.CatalogItem) []int64 {
	var out []int64
	for _, it := range items {
		if it.IsFavorite {
			out = append(out, it.ID)
		}
	}
	return out
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

func TestSession_RefreshReconcilesFavorites(t *testing.T) {
	backend, tokens := newBackend(t)
	s := newSession(backend, tokens[stubs.DemoReader])

	require.NoError(t, s.Refresh(context.Background()))

	items := s.Items()
	assert.Len(t, items, 6)
	assert.Equal(t, []int64{4}, favoriteIDs(items))
	assert.Len(t, s.Favorites(), 1)
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, stubs.DemoReader, s.Claim().Username)
}

func TestSession_AnonymousHasNoFavorites(t *testing.T) {
	backend, _ := newBackend(t)
	s := newSession(backend, "")

	require.NoError(t, s.Refresh(context.Background()))

	assert.Empty(t, favoriteIDs(s.Items()))
	assert.Equal(t, 0, backend.Calls("list_favorites"))
	assert.True(t, s.Claim().IsEmpty())
}

func TestSession_ToggleFavorite(t *testing.T) {
	backend, tokens := newBackend(t)
	s := newSession(backend, tokens[stubs.DemoReader])
	ctx := context.Background()
	require.NoError(t, s.Refresh(ctx))

	action, err := s.ToggleFavorite(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, favorites.ActionAdd, action)
	assert.ElementsMatch(t, []int64{1, 4}, favoriteIDs(s.Items()))

	action, err = s.ToggleFavorite(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, favorites.ActionRemove, action)
	assert.Equal(t, []int64{4}, favoriteIDs(s.Items()))

	assert.Equal(t, 1, backend.Calls("add_favorite"))
	assert.Equal(t, 1, backend.Calls("delete_favorite"))
}

func TestSession_ToggleFavoriteRequiresAuth(t *testing.T) {
	backend, _ := newBackend(t)
	s := newSession(backend, "")
	ctx := context.Background()
	require.NoError(t, s.Refresh(ctx))

	_, err := s.ToggleFavorite(ctx, 1)
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.Equal(t, 0, backend.Calls("add_favorite"))
	assert.Equal(t, 0, backend.Calls("delete_favorite"))
}

func TestSession_ToggleFavoriteUnknownBook(t *testing.T) {
	backend, tokens := newBackend(t)
	s := newSession(backend, tokens[stubs.DemoReader])
	require.NoError(t, s.Refresh(context.Background()))

	_, err := s.ToggleFavorite(context.Background(), 999)
	assert.ErrorIs(t, err, ErrUnknownBook)
}

// flagWithoutEntry marks bookID as favorite without a backing entry
func flagWithoutEntry(s *Session, bookID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == bookID {
			s.items[i].IsFavorite = true
		}
	}
}

func TestSession_ToggleFavoriteDriftResyncs(t *testing.T) {
	backend, tokens := newBackend(t)
	s := newSession(backend, tokens[stubs.DemoReader])
	ctx := context.Background()
	require.NoError(t, s.Refresh(ctx))
	syncs := backend.Calls("list_favorites")

	flagWithoutEntry(s, 1)
	require.ElementsMatch(t, []int64{1, 4}, favoriteIDs(s.Items()))

	action, err := s.ToggleFavorite(ctx, 1)
	assert.ErrorIs(t, err, favorites.ErrFavoriteEntryMissing)
	assert.Empty(t, action)
	assert.Equal(t, syncs+1, backend.Calls("list_favorites"))
	assert.Equal(t, 0, backend.Calls("add_favorite"))
	assert.Equal(t, 0, backend.Calls("delete_favorite"))
	assert.Equal(t, []int64{4}, favoriteIDs(s.Items()))

	// the refreshed state toggles normally
	action, err = s.ToggleFavorite(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, favorites.ActionAdd, action)
	assert.ElementsMatch(t, []int64{1, 4}, favoriteIDs(s.Items()))
}

func TestSession_ToggleFavoriteDriftResyncFails(t *testing.T) {
	backend, tokens := newBackend(t)
	s := newSession(backend, tokens[stubs.DemoReader])
	ctx := context.Background()
	require.NoError(t, s.Refresh(ctx))

	flagWithoutEntry(s, 1)
	offline := errors.New("offline")
	backend.SetFailure("list_favorites", offline)

	_, err := s.ToggleFavorite(ctx, 1)
	assert.ErrorIs(t, err, favorites.ErrFavoriteEntryMissing)
	assert.ErrorIs(t, err, offline)
	assert.Equal(t, 0, backend.Calls("delete_favorite"))
	assert.ElementsMatch(t, []int64{1, 4}, favoriteIDs(s.Items()))
}

func TestSession_ToggleFailureKeepsState(t *testing.T) {
	backend, tokens := newBackend(t)
	s := newSession(backend, tokens[stubs.DemoReader])
	ctx := context.Background()
	require.NoError(t, s.Refresh(ctx))

	backend.SetFailure("add_favorite", &remote.Error{Op: "add_favorite", StatusCode: 500, Message: "db down"})
	_, err := s.ToggleFavorite(ctx, 1)

	var rerr *remote.Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "db down", rerr.Message)
	assert.Equal(t, []int64{4}, favoriteIDs(s.Items()))
}

func TestSession_FailedFetchKeepsCollections(t *testing.T) {
	backend, tokens := newBackend(t)
	s := newSession(backend, tokens[stubs.DemoReader])
	ctx := context.Background()
	require.NoError(t, s.Refresh(ctx))

	boom := errors.New("boom")
	backend.SetFailure("list_catalog", boom)
	backend.SetFailure("list_favorites", boom)

	assert.ErrorIs(t, s.LoadCatalog(ctx), boom)
	assert.ErrorIs(t, s.SyncFavorites(ctx), boom)

	assert.Len(t, s.Items(), 6)
	assert.Equal(t, []int64{4}, favoriteIDs(s.Items()))
}

func TestSession_SetTokenDropsFavorites(t *testing.T) {
	backend, tokens := newBackend(t)
	s := newSession(backend, tokens[stubs.DemoReader])
	require.NoError(t, s.Refresh(context.Background()))

	s.SetToken("")

	assert.Empty(t, favoriteIDs(s.Items()))
	assert.Empty(t, s.Favorites())
	assert.Len(t, s.Items(), 6)
	assert.False(t, s.IsAuthenticated())
}

func TestSession_UndecodableTokenStillAuthenticates(t *testing.T) {
	backend, _ := newBackend(t)
	s := newSession(backend, "opaque")

	assert.True(t, s.IsAuthenticated())
	assert.True(t, s.Claim().IsEmpty())
}

// slowCatalog returns the catalog as it was when the first call started, but
// only after release is closed
type slowCatalog struct {
	*stubs.MockBackend
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (b *slowCatalog) ListCatalog(ctx context.Context) ([]models.CatalogItem, error) {
	items, err := b.MockBackend.ListCatalog(ctx)
	if b.calls.Add(1) == 1 {
		close(b.entered)
		<-b.release
	}
	return items, err
}

func TestSession_StaleCatalogResponseDiscarded(t *testing.T) {
	mock, _ := newBackend(t)
	backend := &slowCatalog{MockBackend: mock, entered: make(chan struct{}), release: make(chan struct{})}
	m := metrics.New()
	s := NewSession(Options{Backend: backend, Metrics: m})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- s.LoadCatalog(ctx) }()
	<-backend.entered

	mock.AddBook(models.CatalogItem{ID: 7, Name: "New Arrival"})
	require.NoError(t, s.LoadCatalog(ctx))
	assert.Len(t, s.Items(), 7)

	close(backend.release)
	require.NoError(t, <-done)

	// the older response did not overwrite the newer one
	assert.Len(t, s.Items(), 7)
	assert.Contains(t, scrape(t, m), `libraryclient_stale_responses_total{kind="catalog"} 1`)
}

func TestSession_Navigation(t *testing.T) {
	backend, _ := newBackend(t)
	s := newSession(backend, "")
	require.NoError(t, s.LoadCatalog(context.Background()))

	view := s.View()
	assert.Equal(t, 3, view.TotalPages)
	assert.Equal(t, 1, view.Page)

	view, ok := s.GoToPage(3)
	require.True(t, ok)
	assert.Equal(t, 3, view.Page)

	view, ok = s.GoToPage(4)
	assert.False(t, ok)
	assert.Equal(t, 3, view.Page)

	view = s.SelectFacet("Science")
	assert.Equal(t, 1, view.Page)
	assert.Equal(t, 2, view.TotalItems)

	view = s.Search("cos")
	assert.Equal(t, 1, view.TotalItems)
	assert.Equal(t, "Cosmos", view.Items[0].Name)
	assert.Equal(t, "Science", s.Criteria().Facet)

	view = s.ResetCriteria()
	assert.Equal(t, catalog.NewCriteria(), s.Criteria())
	assert.Equal(t, 6, view.TotalItems)

	assert.Equal(t, []string{"All", "Fiction", "History", "Science"}, s.Facets())
	assert.Equal(t, 2, s.Project("", "Fiction", 1).TotalItems)
}

func TestSession_Comments(t *testing.T) {
	backend, tokens := newBackend(t)
	s := newSession(backend, tokens[stubs.DemoReader])

	views, err := s.Comments(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, views, 2)

	// newest first
	assert.Equal(t, int64(101), views[0].ID)
	assert.False(t, views[0].CanDelete)
	assert.Equal(t, "anonymous", views[0].DisplayName)
	assert.Equal(t, int64(100), views[1].ID)
	assert.True(t, views[1].CanDelete)
	assert.Equal(t, "Rui Reader", views[1].DisplayName)
}

func TestSession_AddComment(t *testing.T) {
	backend, tokens := newBackend(t)
	ctx := context.Background()

	anon := newSession(backend, "")
	_, err := anon.AddComment(ctx, 1, "hi", 5)
	assert.ErrorIs(t, err, ErrAuthRequired)

	s := newSession(backend, tokens[stubs.DemoReader])
	_, err = s.AddComment(ctx, 1, "hi", 6)
	assert.ErrorIs(t, err, comments.ErrInvalidRating)
	_, err = s.AddComment(ctx, 1, "   ", 4)
	assert.ErrorIs(t, err, ErrEmptyComment)
	assert.Equal(t, 0, backend.Calls("add_comment"))

	views, err := s.AddComment(ctx, 1, " Loved it ", 4)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "Loved it", views[0].Content)
	assert.Equal(t, 4, views[0].Rating)
	assert.True(t, views[0].CanDelete)
}

func TestSession_DeleteComment(t *testing.T) {
	backend, tokens := newBackend(t)
	ctx := context.Background()

	reader := newSession(backend, tokens[stubs.DemoReader])
	_, _, err := reader.DeleteComment(ctx, 1, 101)
	assert.ErrorIs(t, err, comments.ErrNotPermitted)
	assert.Equal(t, 0, backend.Calls("delete_comment"))
	assert.Equal(t, 0, backend.Calls("delete_comment_admin"))

	_, _, err = reader.DeleteComment(ctx, 1, 555)
	assert.ErrorIs(t, err, ErrCommentNotFound)

	route, views, err := reader.DeleteComment(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, comments.RouteSelf, route)
	require.Len(t, views, 1)

	admin := newSession(backend, tokens[stubs.DemoAdmin])
	route, views, err = admin.DeleteComment(ctx, 1, 101)
	require.NoError(t, err)
	assert.Equal(t, comments.RouteAdmin, route)
	assert.Empty(t, views)
}

func TestSession_Borrows(t *testing.T) {
	backend, tokens := newBackend(t)
	ctx := context.Background()

	reader := newSession(backend, tokens[stubs.DemoReader])
	mine, err := reader.MyBorrows(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, int64(301), mine[0].ID)
	assert.False(t, mine[0].Returned)

	_, err = newSession(backend, "").MyBorrows(ctx)
	assert.ErrorIs(t, err, ErrAuthRequired)

	librarian := newSession(backend, tokens[stubs.DemoLibrarian])
	records, err := librarian.ReturnBook(ctx, 301, 3)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(301), records[0].ID)
	assert.True(t, records[0].Returned)
	assert.True(t, records[1].Returned)

	_, err = librarian.ReturnBook(ctx, 301, 3)
	assert.ErrorIs(t, err, remote.ErrConflict)
}

// flakyMonths fails the listed months
type flakyMonths struct {
	*stubs.MockBackend
	fail map[int]bool
}

func (b *flakyMonths) MonthlyStatistic(ctx context.Context, token string, month, year int) (string, error) {
	if b.fail[month] {
		return "", errors.New("timeout")
	}
	return b.MockBackend.MonthlyStatistic(ctx, token, month, year)
}

func TestSession_MonthlyStatistics(t *testing.T) {
	mock, tokens := newBackend(t)
	backend := &flakyMonths{MockBackend: mock, fail: map[int]bool{3: true, 7: true}}
	archive := archivestubs.NewMockArchive()
	m := metrics.New()
	s := NewSession(Options{
		Backend: backend,
		Archive: archive,
		Metrics: m,
		Token:   tokens[stubs.DemoAdmin],
		Now:     func() time.Time { return seedTime },
	})
	ctx := context.Background()

	values, err := s.MonthlyStatistics(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, values, 12)
	for month := 1; month <= 12; month++ {
		if month == 3 || month == 7 {
			assert.Equal(t, stats.NoData, values[month], "month %d", month)
		} else {
			assert.Equal(t, "0", values[month], "month %d", month)
		}
	}
	assert.Contains(t, scrape(t, m), "libraryclient_fanout_slot_failures_total 2")

	history, err := s.StatisticsHistory(ctx, 2024)
	require.NoError(t, err)
	assert.Len(t, history, 10)
	for _, h := range history {
		assert.NotEqual(t, 3, h.Month)
		assert.NotEqual(t, 7, h.Month)
		assert.True(t, h.FetchedAt.Equal(seedTime))
	}
}

func TestSession_StatisticsRequireAuthAndArchive(t *testing.T) {
	backend, tokens := newBackend(t)
	ctx := context.Background()

	_, err := newSession(backend, "").MonthlyStatistics(ctx, 2024)
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.Equal(t, 0, backend.Calls("monthly_statistic"))

	admin := newSession(backend, tokens[stubs.DemoAdmin])
	_, err = admin.StatisticsHistory(ctx, 2024)
	assert.ErrorIs(t, err, ErrArchiveDisabled)

	v, err := admin.MonthlyStatistic(ctx, 3, 2024)
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	calls := backend.Calls("monthly_statistic")
	for _, month := range []int{0, 13, -1} {
		_, err = admin.MonthlyStatistic(ctx, month, 2024)
		assert.ErrorIs(t, err, ErrInvalidMonth, "month %d", month)
	}
	assert.Equal(t, calls, backend.Calls("monthly_statistic"))

	backend.SetFailure("monthly_statistic", errors.New("down"))
	v, err = admin.MonthlyStatistic(ctx, 3, 2024)
	assert.Error(t, err)
	assert.Empty(t, v)

	st, err := admin.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.NotReturned)
}

func TestSession_LoginAndProfile(t *testing.T) {
	backend, _ := newBackend(t)
	s := newSession(backend, "")
	ctx := context.Background()

	_, err := s.Profile(ctx)
	assert.ErrorIs(t, err, ErrAuthRequired)

	_, err = s.Login(ctx, stubs.DemoLibrarian, "nope")
	assert.ErrorIs(t, err, remote.ErrUnauthorized)
	assert.False(t, s.IsAuthenticated())

	token, err := s.Login(ctx, stubs.DemoLibrarian, stubs.DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, token, s.Token())
	assert.True(t, s.Claim().HasRole(models.RoleLibrarian))

	profile, err := s.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Lena Librarian", profile.Fullname)
}

func TestTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")

	token, err := LoadToken(path)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, SaveToken(path, "a.b.c"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	token, err = LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", token)

	require.NoError(t, ClearToken(path))
	require.NoError(t, ClearToken(path))
	token, err = LoadToken(path)
	require.NoError(t, err)
	assert.Empty(t, token)
}
