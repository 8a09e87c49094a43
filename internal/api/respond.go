package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"movie-app/internal/domain"
	"movie-app/internal/service"
	"movie-app/internal/store"
	"movie-app/internal/tmdb"
)

const maxBodyBytes = 1 << 20

// envelope is the body of every JSON response.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
}

// data is the object placed under "data".
type data map[string]any

func (h *Handler) respondJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			h.logger.ErrorContext(r.Context(), "Failed to encode JSON response", slog.String("error", err.Error()), slog.String("path", r.URL.Path))
		}
	}
}

func (h *Handler) respondOK(w http.ResponseWriter, r *http.Request, status int, message string, payload any) {
	h.respondJSON(w, r, status, envelope{Success: true, Message: message, Data: payload})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.respondJSON(w, r, status, envelope{Success: false, Message: message})
}

func (h *Handler) respondValidation(w http.ResponseWriter, r *http.Request, ve *domain.ValidationError) {
	h.respondJSON(w, r, http.StatusBadRequest, envelope{Success: false, Message: "Validation failed", Errors: ve.Errors})
}

// writeError maps service and store errors onto HTTP responses. Unknown errors are
// logged and answered with a generic 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		h.respondValidation(w, r, ve)
		return
	}

	switch {
	case errors.Is(err, store.ErrMovieNotFound):
		h.respondError(w, r, http.StatusNotFound, "Movie not found")
	case errors.Is(err, store.ErrReviewNotFound):
		h.respondError(w, r, http.StatusNotFound, "Review not found")
	case errors.Is(err, store.ErrWatchlistEntryNotFound):
		h.respondError(w, r, http.StatusNotFound, "Watchlist item not found")
	case errors.Is(err, store.ErrUserNotFound):
		h.respondError(w, r, http.StatusNotFound, "User not found")
	case errors.Is(err, tmdb.ErrNotFound):
		h.respondError(w, r, http.StatusNotFound, "Movie not found on TMDB")
	case errors.Is(err, store.ErrDuplicateReview):
		h.respondError(w, r, http.StatusBadRequest, "You have already reviewed this movie")
	case errors.Is(err, store.ErrDuplicateWatchlistEntry):
		h.respondError(w, r, http.StatusBadRequest, "Movie is already in your watchlist")
	case errors.Is(err, store.ErrUserAlreadyExists):
		h.respondError(w, r, http.StatusConflict, "User with this email or username already exists")
	case errors.Is(err, service.ErrOwnReviewVote):
		h.respondError(w, r, http.StatusForbidden, "Cannot vote on your own review")
	case errors.Is(err, service.ErrForbidden):
		h.respondError(w, r, http.StatusForbidden, "Not authorized to modify this resource")
	case errors.Is(err, service.ErrInvalidCredentials):
		h.respondError(w, r, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, tmdb.ErrNotConfigured):
		h.respondError(w, r, http.StatusServiceUnavailable, "TMDB integration is not configured")
	default:
		h.logger.ErrorContext(r.Context(), "Request failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Server error")
	}
}

// decodeJSON reads the request body into dst. An empty body is accepted when
// allowEmpty is set.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	defer r.Body.Close()
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
	return false
}
