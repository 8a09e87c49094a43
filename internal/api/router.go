// Package api serves the REST API under /api with gorilla/mux.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"movie-app/internal/domain"
)

// NewRouter wires every route under /api plus /metrics and /health. limiter guards
// the auth and TMDB sync routes.
func NewRouter(h *Handler, limiter *IPRateLimiter) *mux.Router {
	router := mux.NewRouter()
	router.Use(h.Recovery, h.RequestID, h.Metrics)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.respondError(w, r, http.StatusNotFound, "Route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h.respondOK(w, r, http.StatusOK, "OK", nil)
	}).Methods(http.MethodGet)

	authed := func(f http.HandlerFunc) http.Handler { return h.RequireAuth(f) }
	optional := func(f http.HandlerFunc) http.Handler { return h.OptionalAuth(f) }
	limited := h.RateLimit(limiter)

	api := router.PathPrefix("/api").Subrouter()

	authRouter := api.PathPrefix("/auth").Subrouter()
	authRouter.Handle("/register", limited(http.HandlerFunc(h.Register))).Methods(http.MethodPost)
	authRouter.Handle("/login", limited(http.HandlerFunc(h.Login))).Methods(http.MethodPost)
	authRouter.Handle("/me", authed(h.Me)).Methods(http.MethodGet)
	authRouter.Handle("/me", authed(h.UpdateMe)).Methods(http.MethodPut)

	movies := api.PathPrefix("/movies").Subrouter()
	movies.HandleFunc("", h.ListMovies).Methods(http.MethodGet)
	movies.HandleFunc("", h.UpsertMovie).Methods(http.MethodPost)
	movies.HandleFunc("/trending", h.TrendingMovies).Methods(http.MethodGet)
	movies.HandleFunc("/top-rated", h.TopRatedMovies).Methods(http.MethodGet)
	movies.Handle("/sync", limited(authed(h.SyncPopularMovies))).Methods(http.MethodPost)
	movies.HandleFunc("/tmdb/{tmdbId}", h.GetMovieByTMDBID).Methods(http.MethodGet)
	movies.Handle("/tmdb/{tmdbId}/sync", limited(authed(h.SyncMovie))).Methods(http.MethodPost)
	movies.HandleFunc("/{id}", h.GetMovie).Methods(http.MethodGet)

	reviews := api.PathPrefix("/reviews").Subrouter()
	reviews.HandleFunc("", h.ListReviews).Methods(http.MethodGet)
	reviews.Handle("", authed(h.CreateReview)).Methods(http.MethodPost)
	reviews.HandleFunc("/recent", h.RecentReviews).Methods(http.MethodGet)
	reviews.HandleFunc("/movie/{movieId}", h.MovieReviews).Methods(http.MethodGet)
	reviews.HandleFunc("/user/{userId}", h.UserReviews).Methods(http.MethodGet)
	reviews.Handle("/{id}", optional(h.GetReview)).Methods(http.MethodGet)
	reviews.Handle("/{id}", authed(h.UpdateReview)).Methods(http.MethodPut)
	reviews.Handle("/{id}", authed(h.DeleteReview)).Methods(http.MethodDelete)
	reviews.Handle("/{id}/helpful", authed(h.ToggleHelpful)).Methods(http.MethodPost)
	reviews.Handle("/{id}/status", h.RequireAuth(h.RequireRole(domain.RoleAdmin)(http.HandlerFunc(h.ModerateReview)))).Methods(http.MethodPut)

	watchlist := api.PathPrefix("/watchlist").Subrouter()
	watchlist.HandleFunc("/popular", h.PopularWatchlist).Methods(http.MethodGet)
	watchlist.Handle("", authed(h.MyWatchlist)).Methods(http.MethodGet)
	watchlist.Handle("", authed(h.AddToWatchlist)).Methods(http.MethodPost)
	watchlist.Handle("/stats", authed(h.WatchlistStats)).Methods(http.MethodGet)
	watchlist.Handle("/check/{tmdbId}", authed(h.CheckWatchlist)).Methods(http.MethodGet)
	watchlist.Handle("/reminders/due", h.RequireAuth(h.RequireRole(domain.RoleAdmin)(http.HandlerFunc(h.DueReminders)))).Methods(http.MethodGet)
	watchlist.Handle("/{id}", authed(h.UpdateWatchlistItem)).Methods(http.MethodPut)
	watchlist.Handle("/{id}", authed(h.RemoveFromWatchlist)).Methods(http.MethodDelete)
	watchlist.Handle("/{id}/watched", authed(h.MarkWatched)).Methods(http.MethodPost, http.MethodPut)

	users := api.PathPrefix("/users").Subrouter()
	users.HandleFunc("", h.SearchUsers).Methods(http.MethodGet)
	users.HandleFunc("/stats/top-reviewers", h.TopReviewers).Methods(http.MethodGet)
	users.Handle("/{id}", optional(h.UserProfile)).Methods(http.MethodGet)
	users.HandleFunc("/{id}/reviews", h.UserReviews).Methods(http.MethodGet)
	users.Handle("/{id}/watchlist", optional(h.UserWatchlist)).Methods(http.MethodGet)

	return router
}
