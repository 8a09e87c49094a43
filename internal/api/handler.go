package api

import (
	"log/slog"

	"movie-app/internal/service"
	"movie-app/pkg/auth"
)

// Handler serves the REST API.
type Handler struct {
	movies    *service.MovieService
	reviews   *service.ReviewService
	watchlist *service.WatchlistService
	users     *service.UserService
	tokens    TokenValidator
	logger    *slog.Logger
}

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Services groups the business services behind the handlers.
type Services struct {
	Movies    *service.MovieService
	Reviews   *service.ReviewService
	Watchlist *service.WatchlistService
	Users     *service.UserService
}

func NewHandler(svc Services, tokens TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		movies:    svc.Movies,
		reviews:   svc.Reviews,
		watchlist: svc.Watchlist,
		users:     svc.Users,
		tokens:    tokens,
		logger:    logger,
	}
}
