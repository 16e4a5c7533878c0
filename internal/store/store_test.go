package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	_, err := s.InsertResults(context.Background(), []Result{
		{ID: "r1", Name: "Coca Cola 1.5L", Price: 1000, Provider: "Jumbo", Category: "Bebidas", Status: StatusSuccess, ScrapedAt: base},
		{ID: "r2", Name: "coca cola 1.5l", Price: 1100, Provider: "Coto", Category: "Bebidas", Status: StatusSuccess, ScrapedAt: base.Add(2 * time.Hour), Discount: "10% OFF"},
		{ID: "r3", Name: "", Price: 500, Provider: "Dia", Status: StatusSuccess, ScrapedAt: base.Add(3 * time.Hour)},
		{ID: "r4", Name: "Yerba Playadito", Price: 0, Provider: "Dia", Status: StatusSuccess, ScrapedAt: base.Add(4 * time.Hour)},
		{ID: "r5", Name: "Arroz Gallo", Price: 900, Provider: "Dia", Category: "Almacén", Status: "error", ScrapedAt: base.Add(5 * time.Hour), Error: "timeout"},
		{ID: "r6", Name: "Yerba Playadito", Price: 4000, Provider: "Dia", Category: "Almacén", Status: StatusSuccess, ScrapedAt: base.Add(time.Hour)},
	})
	require.NoError(t, err)
}

func TestRecentCandidates(t *testing.T) {
	s := openTest(t)
	seed(t, s)

	got, err := s.RecentCandidates(context.Background(), 500)
	require.NoError(t, err)

	ids := []string{}
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	// newest first; empty names, zero prices and failures are excluded
	assert.Equal(t, []string{"r2", "r6", "r1"}, ids)
	assert.Equal(t, "10% OFF", got[0].Discount)
	assert.Equal(t, time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC), got[0].ScrapedAt)
}

func TestRecentCandidatesLimit(t *testing.T) {
	s := openTest(t)
	seed(t, s)

	// the limit applies before filtering: r4 has no price and r3 no name
	got, err := s.RecentCandidates(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r2", got[0].ID)
}

func TestCandidatesByID(t *testing.T) {
	s := openTest(t)
	seed(t, s)

	got, err := s.CandidatesByID(context.Background(), []string{"r6", "missing", "r1", "r6"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r6", got[0].ID)
	assert.Equal(t, "r1", got[1].ID)

	none, err := s.CandidatesByID(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListResults(t *testing.T) {
	s := openTest(t)
	seed(t, s)
	ctx := context.Background()

	t.Run("all", func(t *testing.T) {
		res, total, err := s.ListResults(ctx, ResultFilter{})
		require.NoError(t, err)
		assert.Equal(t, 6, total)
		assert.Len(t, res, 6)
		assert.Equal(t, "r5", res[0].ID)
	})

	t.Run("provider and status", func(t *testing.T) {
		res, total, err := s.ListResults(ctx, ResultFilter{Provider: "Dia", Status: StatusSuccess})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Len(t, res, 3)
	})

	t.Run("search is case-insensitive", func(t *testing.T) {
		res, total, err := s.ListResults(ctx, ResultFilter{Search: "COCA"})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, res, 2)
	})

	t.Run("category, price range and discount", func(t *testing.T) {
		_, total, err := s.ListResults(ctx, ResultFilter{Category: "bebidas", MinPrice: 1050, HasDiscount: true})
		require.NoError(t, err)
		assert.Equal(t, 1, total)

		_, total, err = s.ListResults(ctx, ResultFilter{MaxPrice: 950})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
	})

	t.Run("paging keeps total", func(t *testing.T) {
		res, total, err := s.ListResults(ctx, ResultFilter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, 6, total)
		require.Len(t, res, 2)
		assert.Equal(t, "r3", res[0].ID)
	})
}

func TestInsertResultsUpsertAndIDs(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	rs := []Result{{Name: "Leche", Price: 1, Provider: "A", Status: StatusSuccess}}
	n, err := s.InsertResults(ctx, rs)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NotEmpty(t, rs[0].ID)

	rs[0].Price = 2
	_, err = s.InsertResults(ctx, rs)
	require.NoError(t, err)

	res, total, err := s.ListResults(ctx, ResultFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 2.0, res[0].Price)
}

func TestProvidersAndCategories(t *testing.T) {
	s := openTest(t)
	seed(t, s)
	ctx := context.Background()

	provs, err := s.Providers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Coto", "Dia", "Jumbo"}, provs)

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Almacén", "Bebidas"}, cats)
}

func TestUsers(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	n, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	u := &User{Email: "dev@example.com", PasswordHash: "hash", Name: "Dev", Role: "desarrollador", Active: true}
	require.NoError(t, s.CreateUser(ctx, u))
	require.NotEmpty(t, u.ID)

	err = s.CreateUser(ctx, &User{Email: "dev@example.com", PasswordHash: "x", Role: "consultante"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	got, err := s.UserByEmail(ctx, "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.Active)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = s.UserByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetUserActive(ctx, u.ID, false))
	got, err = s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.ErrorIs(t, s.SetUserActive(ctx, "nope", true), ErrNotFound)

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.TouchLastAccess(ctx, u.ID, at))
	got, err = s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, at, got.LastAccess)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestCreateFirstUserOnlyOnce(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.CreateFirstUser(ctx, &User{
				Email: fmt.Sprintf("dev%d@example.com", i), PasswordHash: "h", Role: "desarrollador", Active: true,
			})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrUsersExist)
	}
	assert.Equal(t, 1, created)

	n, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestURLQueue(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	n, err := s.InsertURLs(ctx, []URLItem{
		{URL: "https://www.jumbo.com.ar/yerba", Provider: "Jumbo", AddedAt: base},
		{URL: "https://www.coto.com.ar/arroz", Provider: "Coto", AddedAt: base.Add(time.Hour)},
		{URL: "https://www.jumbo.com.ar/yerba", Provider: "Jumbo", AddedAt: base.Add(2 * time.Hour)},
		{URL: "https://diaonline.supermercadosdia.com.ar/fideos", Provider: "Dia", Status: URLError, AddedAt: base.Add(3 * time.Hour)},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.InsertURLs(ctx, []URLItem{{URL: "https://www.coto.com.ar/arroz", Provider: "Coto"}})
	require.NoError(t, err)
	assert.Zero(t, n)

	all, total, err := s.ListURLs(ctx, URLFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, all, 3)
	assert.Equal(t, "Dia", all[0].Provider)
	assert.Equal(t, URLPending, all[1].Status)
	assert.Equal(t, base.Add(time.Hour), all[1].AddedAt)

	page, total, err := s.ListURLs(ctx, URLFilter{Status: URLPending, Search: "JUMBO", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, page, 1)
	assert.Equal(t, "https://www.jumbo.com.ar/yerba", page[0].URL)

	page, total, err = s.ListURLs(ctx, URLFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "Coto", page[0].Provider)

	totals, err := s.URLTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, URLTotals{Pending: 2, Error: 1}, totals)
}

func TestScraperState(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	st, err := s.ScraperState(ctx)
	require.NoError(t, err)
	assert.False(t, st.Active)
	assert.Nil(t, st.LastRun)

	at := time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)
	_, err = s.conn.ExecContext(ctx, `UPDATE scraper_state SET active = 1, last_run = ? WHERE id = 1`, formatTime(at))
	require.NoError(t, err)

	st, err = s.ScraperState(ctx)
	require.NoError(t, err)
	assert.True(t, st.Active)
	require.NotNil(t, st.LastRun)
	assert.Equal(t, at, *st.LastRun)
}
