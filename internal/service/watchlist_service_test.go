package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-app/internal/domain"
	"movie-app/internal/service"
	"movie-app/internal/store"
)

func addReq(m *domain.Movie) domain.AddToWatchlistRequest {
	return domain.AddToWatchlistRequest{MovieID: m.ID, TMDBMovieID: m.TMDBID}
}

func TestAddToWatchlistDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	alice := f.register(t, "alice")
	m := f.movie(t, 550, "Fight Club")

	req := addReq(m)
	req.Tags = []string{" classic ", "  ", "90s"}
	e, err := f.watchlist.Add(ctx, alice.ID, req)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWantToWatch, e.Status)
	assert.Equal(t, domain.PriorityMedium, e.Priority)
	assert.True(t, e.IsPublic)
	assert.Equal(t, []string{"classic", "90s"}, []string(e.Tags))
	require.NotNil(t, e.Movie)
	assert.Equal(t, "Fight Club", e.Movie.Title)

	_, err = f.watchlist.Add(ctx, alice.ID, req)
	assert.ErrorIs(t, err, store.ErrDuplicateWatchlistEntry)
}

func TestAddWatchedEntryStampsDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	alice := f.register(t, "alice")
	m := f.movie(t, 550, "Fight Club")

	req := addReq(m)
	req.Status = ptr(domain.StatusWatched)
	_, err := f.watchlist.Add(ctx, alice.ID, req)
	requireValidation(t, err, "userRating")

	req.UserRating = ptr(4.0)
	e, err := f.watchlist.Add(ctx, alice.ID, req)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWatched, e.Status)
	assert.NotNil(t, e.WatchedDate)
	assert.Equal(t, 4.0, *e.UserRating)
}

func TestAddRejectsMismatchedTMDBID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	alice := f.register(t, "alice")
	m := f.movie(t, 550, "Fight Club")
	f.movie(t, 603, "The Matrix")

	req := addReq(m)
	req.TMDBMovieID = 603
	_, err := f.watchlist.Add(ctx, alice.ID, req)
	requireValidation(t, err, "tmdbMovieId")

	e, err := f.watchlist.Add(ctx, alice.ID, addReq(m))
	require.NoError(t, err)
	assert.Equal(t, int64(550), e.TMDBMovieID)

	check, err := f.watchlist.Check(ctx, alice.ID, 603)
	require.NoError(t, err)
	assert.False(t, check.InWatchlist)
}

func TestReminderDates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	alice := f.register(t, "alice")
	m1 := f.movie(t, 1, "One")
	m2 := f.movie(t, 2, "Two")

	req := addReq(m1)
	req.ReminderEnabled = true
	req.ReminderDate = ptr("next tuesday")
	_, err := f.watchlist.Add(ctx, alice.ID, req)
	requireValidation(t, err, "reminderDate")

	req.ReminderDate = ptr("2000-01-01")
	due, err := f.watchlist.Add(ctx, alice.ID, req)
	require.NoError(t, err)
	require.NotNil(t, due.ReminderDate)
	assert.Equal(t, 2000, due.ReminderDate.Year())

	later := addReq(m2)
	later.ReminderEnabled = true
	later.ReminderDate = ptr("2999-01-01")
	notDue, err := f.watchlist.Add(ctx, alice.ID, later)
	require.NoError(t, err)

	_, err = f.watchlist.Update(ctx, alice.ID, notDue.ID, domain.UpdateWatchlistRequest{ReminderDate: ptr("31/12/2000")})
	requireValidation(t, err, "reminderDate")

	reminders, err := f.watchlist.DueReminders(ctx)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, due.ID, reminders[0].ID)
	require.NotNil(t, reminders[0].Movie)
	assert.Equal(t, "One", reminders[0].Movie.Title)

	_, err = f.watchlist.MarkWatched(ctx, alice.ID, due.ID, domain.MarkWatchedRequest{})
	require.NoError(t, err)
	reminders, err = f.watchlist.DueReminders(ctx)
	require.NoError(t, err)
	assert.Empty(t, reminders)
}

func TestUpdateToWatchedRequiresRating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	alice := f.register(t, "alice")
	m := f.movie(t, 550, "Fight Club")
	e, err := f.watchlist.Add(ctx, alice.ID, addReq(m))
	require.NoError(t, err)

	_, err = f.watchlist.Update(ctx, alice.ID, e.ID, domain.UpdateWatchlistRequest{Status: ptr(domain.StatusWatched)})
	requireValidation(t, err, "userRating")

	e, err = f.watchlist.Update(ctx, alice.ID, e.ID, domain.UpdateWatchlistRequest{
		Status:     ptr(domain.StatusWatched),
		UserRating: ptr(4.5),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWatched, e.Status)
	require.NotNil(t, e.WatchedDate)
	assert.Equal(t, 4.5, *e.UserRating)
}

func TestMarkWatchedKeepsFirstWatchedDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	alice := f.register(t, "alice")
	m := f.movie(t, 550, "Fight Club")
	e, err := f.watchlist.Add(ctx, alice.ID, addReq(m))
	require.NoError(t, err)

	first, err := f.watchlist.MarkWatched(ctx, alice.ID, e.ID, domain.MarkWatchedRequest{})
	require.NoError(t, err)
	require.NotNil(t, first.WatchedDate)
	assert.Nil(t, first.UserRating)

	_, err = f.watchlist.Update(ctx, alice.ID, e.ID, domain.UpdateWatchlistRequest{Status: ptr(domain.StatusWatching)})
	require.NoError(t, err)

	second, err := f.watchlist.MarkWatched(ctx, alice.ID, e.ID, domain.MarkWatchedRequest{Rating: ptr(3.0)})
	require.NoError(t, err)
	assert.Equal(t, *first.WatchedDate, *second.WatchedDate)
	assert.Equal(t, 3.0, *second.UserRating)
}

func TestWatchlistOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	alice := f.register(t, "alice")
	bob := f.register(t, "bobby")
	m := f.movie(t, 550, "Fight Club")
	e, err := f.watchlist.Add(ctx, alice.ID, addReq(m))
	require.NoError(t, err)

	_, err = f.watchlist.Update(ctx, bob.ID, e.ID, domain.UpdateWatchlistRequest{Priority: ptr(domain.PriorityHigh)})
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = f.watchlist.MarkWatched(ctx, bob.ID, e.ID, domain.MarkWatchedRequest{})
	assert.ErrorIs(t, err, service.ErrForbidden)
	assert.ErrorIs(t, f.watchlist.Remove(ctx, bob.ID, e.ID), service.ErrForbidden)

	require.NoError(t, f.watchlist.Remove(ctx, alice.ID, e.ID))
	assert.ErrorIs(t, f.watchlist.Remove(ctx, alice.ID, e.ID), store.ErrWatchlistEntryNotFound)
}

func TestWatchlistVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	alice := f.register(t, "alice")
	bob := f.register(t, "bobby")
	m1 := f.movie(t, 1, "Public")
	m2 := f.movie(t, 2, "Private")

	_, err := f.watchlist.Add(ctx, alice.ID, addReq(m1))
	require.NoError(t, err)
	private := addReq(m2)
	private.IsPublic = ptr(false)
	_, err = f.watchlist.Add(ctx, alice.ID, private)
	require.NoError(t, err)

	own, err := f.watchlist.List(ctx, alice.ID, alice.ID, service.WatchlistFilter{}, service.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, own.Pagination.Total)

	other, err := f.watchlist.List(ctx, alice.ID, bob.ID, service.WatchlistFilter{}, service.ListOptions{})
	require.NoError(t, err)
	require.Len(t, other.Items, 1)
	assert.Equal(t, m1.ID, other.Items[0].MovieID)

	_, err = f.watchlist.List(ctx, alice.ID, alice.ID, service.WatchlistFilter{Status: "finished", Priority: "urgent"}, service.ListOptions{})
	requireValidation(t, err, "status")
	requireValidation(t, err, "priority")
}

func TestWatchlistCheckAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	alice := f.register(t, "alice")
	m1 := f.movie(t, 1, "One")
	m2 := f.movie(t, 2, "Two")

	check, err := f.watchlist.Check(ctx, alice.ID, 1)
	require.NoError(t, err)
	assert.False(t, check.InWatchlist)
	assert.Nil(t, check.Item)

	_, err = f.watchlist.Add(ctx, alice.ID, addReq(m1))
	require.NoError(t, err)
	req := addReq(m2)
	req.Status = ptr(domain.StatusDropped)
	_, err = f.watchlist.Add(ctx, alice.ID, req)
	require.NoError(t, err)

	check, err = f.watchlist.Check(ctx, alice.ID, 1)
	require.NoError(t, err)
	assert.True(t, check.InWatchlist)
	require.NotNil(t, check.Item)
	assert.Equal(t, m1.ID, check.Item.MovieID)

	stats, err := f.watchlist.Stats(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WatchlistStats{WantToWatch: 1, Dropped: 1, Total: 2}, stats)
}

func TestPopularWatchlistMovies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	alice := f.register(t, "alice")
	bob := f.register(t, "bobby")
	m1 := f.movie(t, 1, "One")
	m2 := f.movie(t, 2, "Two")

	for _, u := range []*domain.User{alice, bob} {
		_, err := f.watchlist.Add(ctx, u.ID, addReq(m2))
		require.NoError(t, err)
	}
	_, err := f.watchlist.Add(ctx, alice.ID, addReq(m1))
	require.NoError(t, err)

	popular, err := f.watchlist.Popular(ctx, 0)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, m2.ID, popular[0].Movie.ID)
	assert.Equal(t, 2, popular[0].WatchlistCount)
	assert.Equal(t, 1, popular[1].WatchlistCount)
}
