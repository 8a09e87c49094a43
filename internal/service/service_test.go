package service_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"movie-app/internal/domain"
	"movie-app/internal/logging"
	"movie-app/internal/service"
	"movie-app/internal/store"
	"movie-app/internal/tmdb"
	"movie-app/pkg/auth"
)

const testSecret = "test-secret-key-that-is-at-least-32-bytes"

// mapCache is an in-process cache.Cache used to observe caching and invalidation.
type mapCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{items: make(map[string][]byte)} }

func (c *mapCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dst)
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = data
	return nil
}

func (c *mapCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	return nil
}

func (c *mapCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

type fixture struct {
	store     *store.MemoryStore
	cache     *mapCache
	movies    *service.MovieService
	reviews   *service.ReviewService
	watchlist *service.WatchlistService
	users     *service.UserService
}

func newFixture(t *testing.T, metadata service.MetadataClient) *fixture {
	t.Helper()
	s := store.NewMemoryStore()
	c := newMapCache()
	v := domain.NewValidator()
	logger := logging.Discard()
	tokens, err := auth.NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)
	if metadata == nil {
		metadata = tmdb.NewClient("", "", logger)
	}

	return &fixture{
		store:     s,
		cache:     c,
		movies:    service.NewMovieService(s.Movies, c, metadata, v, logger, time.Minute),
		reviews:   service.NewReviewService(s.Reviews, s.Movies, c, v, logger),
		watchlist: service.NewWatchlistService(s.Watchlist, s.Movies, v, logger),
		users:     service.NewUserService(s.Users, s.Reviews, s.Watchlist, tokens, v, logger),
	}
}

func (f *fixture) register(t *testing.T, name string) *domain.User {
	t.Helper()
	res, err := f.users.Register(context.Background(), domain.RegisterRequest{
		Username: name,
		Email:    name + "@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	return res.User
}

func (f *fixture) movie(t *testing.T, tmdbID int64, title string) *domain.Movie {
	t.Helper()
	m, created, err := f.movies.Upsert(context.Background(), domain.UpsertMovieRequest{TMDBID: tmdbID, Title: title})
	require.NoError(t, err)
	require.True(t, created)
	return m
}

func ptr[T any](v T) *T { return &v }

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	for _, fe := range ve.Errors {
		if fe.Field == field {
			return
		}
	}
	t.Fatalf("no validation error for %q in %v", field, ve.Errors)
}
