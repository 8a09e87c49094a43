package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-app/internal/domain"
	"movie-app/internal/service"
	"movie-app/internal/store"
	"movie-app/internal/tmdb"
)

// fakeMetadata serves a fixed popular list. Ids in missing answer tmdb.ErrNotFound.
type fakeMetadata struct {
	pages   [][]int64
	missing map[int64]bool
}

func (f *fakeMetadata) Configured() bool { return true }

func (f *fakeMetadata) GetMovie(_ context.Context, id int64) (*tmdb.MovieDetail, error) {
	if f.missing[id] {
		return nil, tmdb.ErrNotFound
	}
	return &tmdb.MovieDetail{
		ID:          id,
		Title:       fmt.Sprintf("Movie %d", id),
		ReleaseDate: "2001-02-03",
		Genres:      []tmdb.Genre{{ID: 18, Name: "Drama"}},
		Popularity:  float64(id),
		Credits: tmdb.Credits{
			Crew: []tmdb.CrewMember{{Name: "Someone", Job: "Director"}},
		},
	}, nil
}

func (f *fakeMetadata) DiscoverPopular(_ context.Context, page int) (*tmdb.DiscoverResponse, error) {
	if page > len(f.pages) {
		return nil, &tmdb.StatusError{StatusCode: 422, Body: "page out of range"}
	}
	res := &tmdb.DiscoverResponse{Page: page, TotalPages: len(f.pages)}
	for _, id := range f.pages[page-1] {
		res.Results = append(res.Results, tmdb.DiscoverItem{ID: id})
	}
	return res, nil
}

func TestUpsertMoviePreservesIdentityAndRating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	alice := f.register(t, "alice")
	m := f.movie(t, 550, "Fight Club")
	_, err := f.reviews.Create(ctx, alice.ID, createReq(m, 4.5))
	require.NoError(t, err)

	updated, created, err := f.movies.Upsert(ctx, domain.UpsertMovieRequest{TMDBID: 550, Title: "Fight Club (Remastered)"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, m.ID, updated.ID)
	assert.Equal(t, "Fight Club (Remastered)", updated.Title)

	got, err := f.movies.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, got.AverageRating)
	assert.Equal(t, 1, got.ReviewCount)
}

func TestUpsertMovieValidation(t *testing.T) {
	f := newFixture(t, nil)
	bad := "15/10/1999"
	_, _, err := f.movies.Upsert(context.Background(), domain.UpsertMovieRequest{ReleaseDate: &bad})
	requireValidation(t, err, "tmdbId")
	requireValidation(t, err, "title")
	requireValidation(t, err, "releaseDate")
}

func TestListMoviesValidatesInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.movies.List(ctx, service.MovieFilter{}, service.ListOptions{Sort: "budget"})
	requireValidation(t, err, "sort")

	_, err = f.movies.List(ctx, service.MovieFilter{Year: 1850}, service.ListOptions{})
	requireValidation(t, err, "year")

	_, err = f.movies.List(ctx, service.MovieFilter{}, service.ListOptions{Page: -1, Order: "sideways"})
	requireValidation(t, err, "page")
	requireValidation(t, err, "order")
}

func TestListMoviesPaginates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	for i := int64(1); i <= 5; i++ {
		f.movie(t, i, fmt.Sprintf("Movie %d", i))
	}

	res, err := f.movies.List(ctx, service.MovieFilter{}, service.ListOptions{Page: 2, Limit: 2, Sort: store.MovieSortTitle, Order: "asc"})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Movie 3", res.Items[0].Title)
	assert.Equal(t, domain.Pagination{Current: 2, Pages: 3, Total: 5, Limit: 2}, res.Pagination)
}

func TestTrendingIsServedFromCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.movie(t, 1, "First")

	first, err := f.movies.Trending(ctx, 5)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Written behind the service's back, so only a cache miss would see it.
	_, err = f.store.Movies.Upsert(ctx, &domain.Movie{TMDBID: 2, Title: "Second"})
	require.NoError(t, err)

	second, err := f.movies.Trending(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, second, 1)

	f.movie(t, 3, "Third")
	third, err := f.movies.Trending(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, third, 3)
}

func TestTopRatedRequiresMinimumReviews(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	m := f.movie(t, 550, "Fight Club")
	for i := 0; i < 4; i++ {
		u := f.register(t, fmt.Sprintf("user%d", i))
		_, err := f.reviews.Create(ctx, u.ID, createReq(m, 5))
		require.NoError(t, err)
	}

	top, err := f.movies.TopRated(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, top)

	u := f.register(t, "user4")
	_, err = f.reviews.Create(ctx, u.ID, createReq(m, 5))
	require.NoError(t, err)

	top, err = f.movies.TopRated(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 5, top[0].ReviewCount)
}

func TestSyncFromTMDB(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeMetadata{missing: map[int64]bool{404: true}})

	m, created, err := f.movies.SyncFromTMDB(ctx, 42)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Movie 42", m.Title)
	assert.Equal(t, "Someone", m.Director)

	_, created, err = f.movies.SyncFromTMDB(ctx, 42)
	require.NoError(t, err)
	assert.False(t, created)

	_, _, err = f.movies.SyncFromTMDB(ctx, 404)
	assert.ErrorIs(t, err, tmdb.ErrNotFound)

	_, _, err = f.movies.SyncFromTMDB(ctx, 0)
	requireValidation(t, err, "tmdbId")
}

func TestSyncFromTMDBRequiresKey(t *testing.T) {
	f := newFixture(t, nil)
	_, _, err := f.movies.SyncFromTMDB(context.Background(), 550)
	assert.ErrorIs(t, err, tmdb.ErrNotConfigured)

	_, err = f.movies.SyncPopular(context.Background(), 1)
	assert.ErrorIs(t, err, tmdb.ErrNotConfigured)
}

func TestSyncPopularCountsFailures(t *testing.T) {
	ctx := context.Background()
	meta := &fakeMetadata{
		pages:   [][]int64{{1, 2, 3}, {3, 4, 5}},
		missing: map[int64]bool{4: true},
	}
	f := newFixture(t, meta)

	res, err := f.movies.SyncPopular(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, service.SyncResult{Synced: 4, Failed: 1}, res)

	list, err := f.movies.List(ctx, service.MovieFilter{}, service.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, list.Pagination.Total)

	_, err = f.movies.SyncPopular(ctx, service.MaxSyncPages+1)
	requireValidation(t, err, "pages")
}
