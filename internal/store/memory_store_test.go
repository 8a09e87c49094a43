package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-app/internal/domain"
	"movie-app/internal/store"
)

func seedUser(t *testing.T, s *store.MemoryStore, name string) *domain.User {
	t.Helper()
	u := &domain.User{ID: uuid.NewString(), Username: name, Email: name + "@example.com", Role: domain.RoleUser, IsActive: true}
	require.NoError(t, s.Users.Create(context.Background(), u))
	return u
}

func seedMovie(t *testing.T, s *store.MemoryStore, tmdbID int64, title string) *domain.Movie {
	t.Helper()
	m := &domain.Movie{TMDBID: tmdbID, Title: title, Genres: []string{"Drama"}}
	created, err := s.Movies.Upsert(context.Background(), m)
	require.NoError(t, err)
	require.True(t, created)
	return m
}

func newReview(user *domain.User, movie *domain.Movie, r float64) *domain.Review {
	return &domain.Review{
		ID: uuid.NewString(), UserID: user.ID, MovieID: movie.ID, TMDBMovieID: movie.TMDBID,
		Rating: r, ReviewText: "a perfectly fine film", Status: domain.ReviewApproved,
	}
}

func TestMemoryMovieUpsertPreservesIdentityAndRating(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	m := seedMovie(t, s, 550, "Fight Club")
	require.NoError(t, s.Movies.UpdateRating(ctx, m.ID, domain.RatingAggregate{Average: 4.5, Count: 2}))

	again := &domain.Movie{TMDBID: 550, Title: "Fight Club (Remastered)", AverageRating: 1, ReviewCount: 99}
	created, err := s.Movies.Upsert(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, m.ID, again.ID)
	assert.Equal(t, 4.5, again.AverageRating)
	assert.Equal(t, 2, again.ReviewCount)

	got, err := s.Movies.GetByTMDBID(ctx, 550)
	require.NoError(t, err)
	assert.Equal(t, "Fight Club (Remastered)", got.Title)
}

func TestMemoryMovieListFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	d1 := time.Date(1999, 10, 15, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2010, 7, 16, 0, 0, 0, 0, time.UTC)
	for _, m := range []*domain.Movie{
		{TMDBID: 1, Title: "Fight Club", Genres: []string{"Drama"}, ReleaseDate: &d1, Popularity: 10},
		{TMDBID: 2, Title: "Inception", Genres: []string{"Action", "Science Fiction"}, ReleaseDate: &d2, Popularity: 30},
		{TMDBID: 3, Title: "Untitled", Genres: []string{"Action"}, Popularity: 20},
	} {
		_, err := s.Movies.Upsert(ctx, m)
		require.NoError(t, err)
	}

	movies, total, err := s.Movies.List(ctx, store.MovieListParams{Genre: "action", Sort: store.MovieSortPopularity, Order: store.SortDesc, Page: domain.Page{Number: 1, Size: 10}})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "Inception", movies[0].Title)

	movies, total, err = s.Movies.List(ctx, store.MovieListParams{Year: 1999, Sort: store.MovieSortTitle, Page: domain.Page{Number: 1, Size: 10}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Fight Club", movies[0].Title)

	movies, _, err = s.Movies.List(ctx, store.MovieListParams{Sort: store.MovieSortReleaseDate, Order: store.SortAsc, Page: domain.Page{Number: 1, Size: 10}})
	require.NoError(t, err)
	assert.Equal(t, "Untitled", movies[2].Title, "movies without a release date sort last")

	movies, total, err = s.Movies.List(ctx, store.MovieListParams{Sort: store.MovieSortTitle, Order: store.SortAsc, Page: domain.Page{Number: 2, Size: 2}})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, movies, 1)
	assert.Equal(t, "Untitled", movies[0].Title)

	_, _, err = s.Movies.List(ctx, store.MovieListParams{Sort: "budget"})
	assert.ErrorIs(t, err, store.ErrInvalidSort)
}

func TestMemoryTopRatedRequiresMinimumReviews(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	a := seedMovie(t, s, 1, "A")
	b := seedMovie(t, s, 2, "B")
	require.NoError(t, s.Movies.UpdateRating(ctx, a.ID, domain.RatingAggregate{Average: 4.9, Count: 2}))
	require.NoError(t, s.Movies.UpdateRating(ctx, b.ID, domain.RatingAggregate{Average: 4.1, Count: 5}))

	top, err := s.Movies.TopRated(ctx, 5, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "B", top[0].Title)

	assert.ErrorIs(t, s.Movies.UpdateRating(ctx, uuid.NewString(), domain.RatingAggregate{}), store.ErrMovieNotFound)
}

func TestMemoryReviewUniquenessAndEnrichment(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	u := seedUser(t, s, "alice")
	m := seedMovie(t, s, 550, "Fight Club")

	r := newReview(u, m, 4)
	require.NoError(t, s.Reviews.Create(ctx, r))
	assert.ErrorIs(t, s.Reviews.Create(ctx, newReview(u, m, 3)), store.ErrDuplicateReview)

	got, err := s.Reviews.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "Fight Club", got.MovieTitle)

	require.NoError(t, s.Reviews.Delete(ctx, r.ID))
	_, err = s.Reviews.GetByID(ctx, r.ID)
	assert.ErrorIs(t, err, store.ErrReviewNotFound)
	assert.ErrorIs(t, s.Reviews.Delete(ctx, r.ID), store.ErrReviewNotFound)
}

func TestMemoryRatingStatsCountsApprovedOnly(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	m := seedMovie(t, s, 1, "A")
	for i, rating := range []float64{4, 4.5, 1} {
		r := newReview(seedUser(t, s, string(rune('a'+i))+"user"), m, rating)
		if rating == 1 {
			r.Status = domain.ReviewRejected
		}
		require.NoError(t, s.Reviews.Create(ctx, r))
	}

	agg, err := s.Reviews.RatingStats(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, agg.Count)
	assert.InDelta(t, 4.25, agg.Average, 1e-9)

	empty, err := s.Reviews.RatingStats(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, domain.RatingAggregate{}, empty)
}

func TestMemoryToggleHelpful(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	author := seedUser(t, s, "author")
	voter := seedUser(t, s, "voter")
	m := seedMovie(t, s, 1, "A")
	r := newReview(author, m, 4)
	require.NoError(t, s.Reviews.Create(ctx, r))

	res, err := s.Reviews.ToggleHelpful(ctx, r.ID, voter.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HelpfulVoteResult{HelpfulVotes: 1, UserVoted: true}, res)

	res, err = s.Reviews.ToggleHelpful(ctx, r.ID, voter.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HelpfulVoteResult{HelpfulVotes: 0, UserVoted: false}, res)

	_, err = s.Reviews.ToggleHelpful(ctx, uuid.NewString(), voter.ID)
	assert.ErrorIs(t, err, store.ErrReviewNotFound)
}

func TestMemoryTopReviewers(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")
	m1 := seedMovie(t, s, 1, "A")
	m2 := seedMovie(t, s, 2, "B")
	require.NoError(t, s.Reviews.Create(ctx, newReview(alice, m1, 4)))
	require.NoError(t, s.Reviews.Create(ctx, newReview(alice, m2, 4.5)))
	require.NoError(t, s.Reviews.Create(ctx, newReview(bob, m1, 2)))

	top, err := s.Reviews.TopReviewers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "alice", top[0].Username)
	assert.Equal(t, 2, top[0].ReviewCount)
	assert.Equal(t, 4.3, top[0].AverageRating)
}

func TestMemoryWatchlistListAndStats(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	u := seedUser(t, s, "alice")
	zulu := seedMovie(t, s, 1, "Zulu")
	alpha := seedMovie(t, s, 2, "Alpha")

	now := time.Now().UTC()
	e1 := &domain.WatchlistEntry{ID: uuid.NewString(), UserID: u.ID, MovieID: zulu.ID, TMDBMovieID: 1, DateAdded: now,
		Priority: domain.PriorityHigh, Status: domain.StatusWantToWatch, IsPublic: true}
	e2 := &domain.WatchlistEntry{ID: uuid.NewString(), UserID: u.ID, MovieID: alpha.ID, TMDBMovieID: 2, DateAdded: now.Add(time.Minute),
		Priority: domain.PriorityLow, Status: domain.StatusWatched, IsPublic: false}
	require.NoError(t, s.Watchlist.Create(ctx, e1))
	require.NoError(t, s.Watchlist.Create(ctx, e2))
	dup := *e1
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, s.Watchlist.Create(ctx, &dup), store.ErrDuplicateWatchlistEntry)

	entries, total, err := s.Watchlist.List(ctx, store.WatchlistListParams{UserID: u.ID, Sort: store.WatchlistSortTitle, Order: store.SortAsc, Page: domain.Page{Number: 1, Size: 10}})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.NotNil(t, entries[0].Movie)
	assert.Equal(t, "Alpha", entries[0].Movie.Title)

	entries, _, err = s.Watchlist.List(ctx, store.WatchlistListParams{UserID: u.ID, Sort: store.WatchlistSortPriority, Order: store.SortDesc, Page: domain.Page{Number: 1, Size: 10}})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityHigh, entries[0].Priority)

	_, total, err = s.Watchlist.List(ctx, store.WatchlistListParams{UserID: u.ID, PublicOnly: true, Sort: store.WatchlistSortDateAdded, Page: domain.Page{Number: 1, Size: 10}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	stats, err := s.Watchlist.StatusCounts(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WatchlistStats{WantToWatch: 1, Watched: 1, Total: 2}, stats)

	got, err := s.Watchlist.GetByUserAndTMDBID(ctx, u.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, e2.ID, got.ID)

	popular, err := s.Watchlist.Popular(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []domain.MovieCount{{MovieID: zulu.ID, Count: 1}}, popular)
}

func TestMemoryWatchlistUniqueByTMDBID(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	u := seedUser(t, s, "alice")
	first := seedMovie(t, s, 10, "First")
	second := seedMovie(t, s, 11, "Second")

	e := &domain.WatchlistEntry{ID: uuid.NewString(), UserID: u.ID, MovieID: first.ID, TMDBMovieID: 10,
		Priority: domain.PriorityMedium, Status: domain.StatusWantToWatch}
	require.NoError(t, s.Watchlist.Create(ctx, e))

	clash := &domain.WatchlistEntry{ID: uuid.NewString(), UserID: u.ID, MovieID: second.ID, TMDBMovieID: 10,
		Priority: domain.PriorityMedium, Status: domain.StatusWantToWatch}
	assert.ErrorIs(t, s.Watchlist.Create(ctx, clash), store.ErrDuplicateWatchlistEntry)
}

func TestMemoryDueReminders(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	u := seedUser(t, s, "alice")
	now := time.Now().UTC()
	past, later, future := now.Add(-2*time.Hour), now.Add(-time.Hour), now.Add(time.Hour)

	add := func(tmdbID int64, status domain.WatchStatus, enabled bool, at *time.Time) *domain.WatchlistEntry {
		m := seedMovie(t, s, tmdbID, "Movie")
		e := &domain.WatchlistEntry{ID: uuid.NewString(), UserID: u.ID, MovieID: m.ID, TMDBMovieID: tmdbID,
			Priority: domain.PriorityMedium, Status: status, ReminderEnabled: enabled, ReminderDate: at}
		require.NoError(t, s.Watchlist.Create(ctx, e))
		return e
	}
	second := add(1, domain.StatusWatching, true, &later)
	first := add(2, domain.StatusWantToWatch, true, &past)
	add(3, domain.StatusWantToWatch, true, &future)
	add(4, domain.StatusWatched, true, &past)
	add(5, domain.StatusWantToWatch, false, &past)

	due, err := s.Watchlist.DueReminders(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, first.ID, due[0].ID)
	assert.Equal(t, second.ID, due[1].ID)
	require.NotNil(t, due[0].Movie)
}

func TestMemoryUserUniquenessIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	seedUser(t, s, "alice")

	clash := &domain.User{ID: uuid.NewString(), Username: "ALICE", Email: "other@example.com", IsActive: true}
	assert.ErrorIs(t, s.Users.Create(ctx, clash), store.ErrUserAlreadyExists)

	got, err := s.Users.GetByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	users, total, err := s.Users.Search(ctx, store.UserSearchParams{Query: "ali", Page: domain.Page{Number: 1, Size: 10}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, users, 1)
}
