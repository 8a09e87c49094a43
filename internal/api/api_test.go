package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-app/internal/api"
	"movie-app/internal/cache"
	"movie-app/internal/domain"
	"movie-app/internal/logging"
	"movie-app/internal/service"
	"movie-app/internal/store"
	"movie-app/internal/tmdb"
	"movie-app/pkg/auth"
)

const testSecret = "test-secret-key-that-is-at-least-32-bytes"

type testServer struct {
	t      *testing.T
	router http.Handler
	store  *store.MemoryStore
	tokens auth.TokenManager
}

type response struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  []domain.FieldError `json:"errors"`
}

func newTestServer(t *testing.T, authPerMinute int) *testServer {
	t.Helper()
	return newTestServerWithProxy(t, authPerMinute, false)
}

func newTestServerWithProxy(t *testing.T, authPerMinute int, trustProxy bool) *testServer {
	t.Helper()
	logger := logging.Discard()
	s := store.NewMemoryStore()
	v := domain.NewValidator()
	tokens, err := auth.NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)

	svc := api.Services{
		Movies:    service.NewMovieService(s.Movies, cache.Nop{}, tmdb.NewClient("", "", logger), v, logger, time.Minute),
		Reviews:   service.NewReviewService(s.Reviews, s.Movies, cache.Nop{}, v, logger),
		Watchlist: service.NewWatchlistService(s.Watchlist, s.Movies, v, logger),
		Users:     service.NewUserService(s.Users, s.Reviews, s.Watchlist, tokens, v, logger),
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	limiter := api.NewIPRateLimiter(ctx, authPerMinute, trustProxy)

	return &testServer{
		t:      t,
		router: api.NewRouter(api.NewHandler(svc, tokens, logger), limiter),
		store:  s,
		tokens: tokens,
	}
}

func (ts *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, response) {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var res response
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	}
	return rec, res
}

func decodeData[T any](t *testing.T, res response) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(res.Data, &out))
	return out
}

// register signs up a user over HTTP and returns its id and token.
func (ts *testServer) register(name string) (string, string) {
	ts.t.Helper()
	rec, res := ts.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": name,
		"email":    name + "@example.com",
		"password": "secret123",
	})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	login := decodeData[domain.LoginResponse](ts.t, res)
	return login.User.ID, login.Token
}

func (ts *testServer) createMovie(tmdbID int64, title string) *domain.Movie {
	ts.t.Helper()
	rec, res := ts.do(http.MethodPost, "/api/movies", "", map[string]any{"tmdbId": tmdbID, "title": title, "genres": []string{"Drama"}})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeData[struct{ Movie *domain.Movie }](ts.t, res).Movie
}

func reviewBody(m *domain.Movie, rating float64) map[string]any {
	return map[string]any{
		"movieId":     m.ID,
		"tmdbMovieId": m.TMDBID,
		"rating":      rating,
		"reviewText":  "A sharp, angry and very funny film about modern life.",
	}
}

func TestUpsertMovieStatusCodes(t *testing.T) {
	ts := newTestServer(t, 100)
	m := ts.createMovie(550, "Fight Club")

	rec, res := ts.do(http.MethodPost, "/api/movies", "", map[string]any{"tmdbId": 550, "title": "Fight Club"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, m.ID, decodeData[struct{ Movie *domain.Movie }](t, res).Movie.ID)

	rec, res = ts.do(http.MethodPost, "/api/movies", "", map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, res.Success)
	assert.Equal(t, "Validation failed", res.Message)
	assert.NotEmpty(t, res.Errors)
}

func TestListMovies(t *testing.T) {
	ts := newTestServer(t, 100)
	ts.createMovie(1, "Alpha")
	ts.createMovie(2, "Beta")

	rec, res := ts.do(http.MethodGet, "/api/movies?sort=title&order=asc&limit=1&page=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, res.Success)
	body := decodeData[struct {
		Movies     []*domain.Movie
		Pagination domain.Pagination
	}](t, res)
	require.Len(t, body.Movies, 1)
	assert.Equal(t, "Beta", body.Movies[0].Title)
	assert.Equal(t, domain.Pagination{Current: 2, Pages: 2, Total: 2, Limit: 1}, body.Pagination)

	rec, res = ts.do(http.MethodGet, "/api/movies?limit=abc&sort=budget", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "limit", res.Errors[0].Field)

	rec, res = ts.do(http.MethodGet, "/api/movies?sort=budget", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "sort", res.Errors[0].Field)
}

func TestGetMovieNotFound(t *testing.T) {
	ts := newTestServer(t, 100)
	rec, res := ts.do(http.MethodGet, "/api/movies/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Movie not found", res.Message)

	rec, _ = ts.do(http.MethodGet, "/api/movies/tmdb/abc", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviewFlow(t *testing.T) {
	ts := newTestServer(t, 100)
	aliceID, alice := ts.register("alice")
	_, bob := ts.register("bobby")
	m := ts.createMovie(550, "Fight Club")

	rec, res := ts.do(http.MethodPost, "/api/reviews", "", reviewBody(m, 4))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, res.Success)

	rec, res = ts.do(http.MethodPost, "/api/reviews", alice, reviewBody(m, 4))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Review created successfully", res.Message)
	review := decodeData[struct{ Review *domain.Review }](t, res).Review
	assert.Equal(t, aliceID, review.UserID)
	assert.Equal(t, "alice", review.Username)

	rec, res = ts.do(http.MethodPost, "/api/reviews", alice, reviewBody(m, 5))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "You have already reviewed this movie", res.Message)

	_, res = ts.do(http.MethodGet, "/api/movies/"+m.ID, "", nil)
	movie := decodeData[struct{ Movie *domain.Movie }](t, res).Movie
	assert.Equal(t, 4.0, movie.AverageRating)
	assert.Equal(t, 1, movie.ReviewCount)

	rec, res = ts.do(http.MethodPost, "/api/reviews/"+review.ID+"/helpful", alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Cannot vote on your own review", res.Message)

	rec, res = ts.do(http.MethodPost, "/api/reviews/"+review.ID+"/helpful", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.HelpfulVoteResult{HelpfulVotes: 1, UserVoted: true}, decodeData[domain.HelpfulVoteResult](t, res))

	rec, _ = ts.do(http.MethodPut, "/api/reviews/"+review.ID, bob, map[string]any{"rating": 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, res = ts.do(http.MethodGet, "/api/reviews/movie/"+m.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeData[struct {
		Reviews    []*domain.Review
		Pagination domain.Pagination
	}](t, res)
	require.Len(t, list.Reviews, 1)
	assert.Equal(t, 10, list.Pagination.Limit)

	rec, res = ts.do(http.MethodDelete, "/api/reviews/"+review.ID, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Review deleted successfully", res.Message)

	_, res = ts.do(http.MethodGet, "/api/movies/"+m.ID, "", nil)
	movie = decodeData[struct{ Movie *domain.Movie }](t, res).Movie
	assert.Equal(t, 0, movie.ReviewCount)
}

func TestModerationRequiresAdmin(t *testing.T) {
	ts := newTestServer(t, 100)
	_, alice := ts.register("alice")
	m := ts.createMovie(550, "Fight Club")
	_, res := ts.do(http.MethodPost, "/api/reviews", alice, reviewBody(m, 4))
	review := decodeData[struct{ Review *domain.Review }](t, res).Review

	body := map[string]string{"status": "flagged"}
	rec, _ := ts.do(http.MethodPut, "/api/reviews/"+review.ID+"/status", alice, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := &domain.User{ID: uuid.NewString(), Username: "admin", Email: "admin@example.com", Role: domain.RoleAdmin, IsActive: true}
	require.NoError(t, ts.store.Users.Create(context.Background(), admin))
	adminToken, err := ts.tokens.Generate(admin.ID, admin.Role)
	require.NoError(t, err)

	rec, _ = ts.do(http.MethodPut, "/api/reviews/"+review.ID+"/status", adminToken, body)
	require.Equal(t, http.StatusOK, rec.Code)

	// Flagged reviews are hidden from everyone but their author.
	rec, _ = ts.do(http.MethodGet, "/api/reviews/"+review.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = ts.do(http.MethodGet, "/api/reviews/"+review.ID, alice, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWatchlistFlow(t *testing.T) {
	ts := newTestServer(t, 100)
	aliceID, alice := ts.register("alice")
	_, bob := ts.register("bobby")
	m1 := ts.createMovie(1, "One")
	m2 := ts.createMovie(2, "Two")

	rec, res := ts.do(http.MethodPost, "/api/watchlist", alice, map[string]any{"movieId": m1.ID, "tmdbMovieId": 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Movie added to watchlist", res.Message)
	item := decodeData[struct{ WatchlistItem *domain.WatchlistEntry }](t, res).WatchlistItem

	rec, res = ts.do(http.MethodPost, "/api/watchlist", alice, map[string]any{"movieId": m1.ID, "tmdbMovieId": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Movie is already in your watchlist", res.Message)

	_, _ = ts.do(http.MethodPost, "/api/watchlist", alice, map[string]any{"movieId": m2.ID, "tmdbMovieId": 2, "isPublic": false})

	rec, res = ts.do(http.MethodGet, "/api/watchlist/check/1", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeData[domain.WatchlistCheck](t, res).InWatchlist)

	rec, _ = ts.do(http.MethodPut, "/api/watchlist/"+item.ID, alice, map[string]any{"status": "watched"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, res = ts.do(http.MethodPost, "/api/watchlist/"+item.ID+"/watched", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Movie marked as watched", res.Message)
	watched := decodeData[struct{ WatchlistItem *domain.WatchlistEntry }](t, res).WatchlistItem
	assert.Equal(t, domain.StatusWatched, watched.Status)
	assert.NotNil(t, watched.WatchedDate)

	rec, _ = ts.do(http.MethodDelete, "/api/watchlist/"+item.ID, bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	_, res = ts.do(http.MethodGet, "/api/watchlist/stats", alice, nil)
	stats := decodeData[struct{ Stats domain.WatchlistStats }](t, res).Stats
	assert.Equal(t, domain.WatchlistStats{WantToWatch: 1, Watched: 1, Total: 2}, stats)

	_, res = ts.do(http.MethodGet, "/api/users/"+aliceID+"/watchlist", bob, nil)
	public := decodeData[struct{ Watchlist []*domain.WatchlistEntry }](t, res).Watchlist
	require.Len(t, public, 1)
	assert.Equal(t, m1.ID, public[0].MovieID)

	_, res = ts.do(http.MethodGet, "/api/watchlist", alice, nil)
	own := decodeData[struct{ Watchlist []*domain.WatchlistEntry }](t, res).Watchlist
	assert.Len(t, own, 2)

	rec, _ = ts.do(http.MethodGet, "/api/watchlist", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWatchlistRejectsMismatchedTMDBID(t *testing.T) {
	ts := newTestServer(t, 100)
	_, alice := ts.register("alice")
	m1 := ts.createMovie(1, "One")
	ts.createMovie(2, "Two")

	rec, res := ts.do(http.MethodPost, "/api/watchlist", alice, map[string]any{"movieId": m1.ID, "tmdbMovieId": 2})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "tmdbMovieId", res.Errors[0].Field)

	rec, res = ts.do(http.MethodGet, "/api/watchlist/check/2", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeData[domain.WatchlistCheck](t, res).InWatchlist)
}

func TestDueRemindersRequiresAdmin(t *testing.T) {
	ts := newTestServer(t, 100)
	_, alice := ts.register("alice")
	m := ts.createMovie(1, "One")

	rec, _ := ts.do(http.MethodPost, "/api/watchlist", alice, map[string]any{
		"movieId": m.ID, "tmdbMovieId": 1, "reminderEnabled": true, "reminderDate": "2000-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = ts.do(http.MethodGet, "/api/watchlist/reminders/due", alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := &domain.User{ID: uuid.NewString(), Username: "admin", Email: "admin@example.com", Role: domain.RoleAdmin, IsActive: true}
	require.NoError(t, ts.store.Users.Create(context.Background(), admin))
	adminToken, err := ts.tokens.Generate(admin.ID, admin.Role)
	require.NoError(t, err)

	rec, res := ts.do(http.MethodGet, "/api/watchlist/reminders/due", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	due := decodeData[struct{ Reminders []*domain.WatchlistEntry }](t, res).Reminders
	require.Len(t, due, 1)
	assert.Equal(t, m.ID, due[0].MovieID)
}

func TestAuthEndpoints(t *testing.T) {
	ts := newTestServer(t, 100)
	aliceID, alice := ts.register("alice")

	rec, res := ts.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, res.Success)

	rec, _ = ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, res = ts.do(http.MethodGet, "/api/auth/me", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeData[struct{ User *domain.User }](t, res).User
	assert.Equal(t, aliceID, me.ID)

	rec, _ = ts.do(http.MethodGet, "/api/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, res = ts.do(http.MethodGet, "/api/users/"+aliceID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decodeData[domain.UserProfile](t, res)
	assert.Equal(t, "alice", profile.User.Username)
	assert.Empty(t, profile.User.Email)

	rec, res = ts.do(http.MethodGet, "/api/users/stats/top-reviewers", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"topReviewers":[]}`, string(res.Data))
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	ts := newTestServer(t, 2)
	login := map[string]string{"email": "nobody@example.com", "password": "secret123"}
	for i := 0; i < 2; i++ {
		rec, _ := ts.do(http.MethodPost, "/api/auth/login", "", login)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec, res := ts.do(http.MethodPost, "/api/auth/login", "", login)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.False(t, res.Success)

	rec, _ = ts.do(http.MethodGet, "/api/movies", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func (ts *testServer) loginFrom(forwardedFor string) int {
	ts.t.Helper()
	body := strings.NewReader(`{"email":"nobody@example.com","password":"secret123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitIgnoresForwardedForByDefault(t *testing.T) {
	ts := newTestServer(t, 2)
	assert.Equal(t, http.StatusUnauthorized, ts.loginFrom("203.0.113.1"))
	assert.Equal(t, http.StatusUnauthorized, ts.loginFrom("203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, ts.loginFrom("203.0.113.3"))
}

func TestRateLimitHonorsForwardedForBehindTrustedProxy(t *testing.T) {
	ts := newTestServerWithProxy(t, 1, true)
	assert.Equal(t, http.StatusUnauthorized, ts.loginFrom("203.0.113.1, 10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, ts.loginFrom("203.0.113.1"))
	assert.Equal(t, http.StatusUnauthorized, ts.loginFrom("203.0.113.2"))
}

func TestSyncRoutesNeedConfiguredTMDB(t *testing.T) {
	ts := newTestServer(t, 100)
	_, alice := ts.register("alice")

	rec, _ := ts.do(http.MethodPost, "/api/movies/tmdb/550/sync", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, res := ts.do(http.MethodPost, "/api/movies/tmdb/550/sync", alice, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, res.Success)
}

func TestRequestIDAndUnknownRoutes(t *testing.T) {
	ts := newTestServer(t, 100)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	rec, res := ts.do(http.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", res.Message)

	rec, _ = ts.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "movieapp_")
}
