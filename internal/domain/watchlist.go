package domain

import (
	"time"

	"github.com/lib/pq"
)

type WatchStatus string

const (
	StatusWantToWatch WatchStatus = "want_to_watch"
	StatusWatching    WatchStatus = "watching"
	StatusWatched     WatchStatus = "watched"
	StatusDropped     WatchStatus = "dropped"
)

// WatchStatuses lists every status in display order.
var WatchStatuses = []WatchStatus{StatusWantToWatch, StatusWatching, StatusWatched, StatusDropped}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank orders priorities low < medium < high.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityHigh:
		return 2
	default:
		return 1
	}
}

// WatchlistEntry is one movie on one user's watchlist. (UserID, MovieID) is unique.
type WatchlistEntry struct {
	ID              string         `json:"id" db:"id"`
	UserID          string         `json:"userId" db:"user_id"`
	MovieID         string         `json:"movieId" db:"movie_id"`
	TMDBMovieID     int64          `json:"tmdbMovieId" db:"tmdb_movie_id"`
	DateAdded       time.Time      `json:"dateAdded" db:"date_added"`
	Priority        Priority       `json:"priority" db:"priority"`
	Notes           *string        `json:"notes,omitempty" db:"notes"`
	Status          WatchStatus    `json:"status" db:"status"`
	WatchedDate     *time.Time     `json:"watchedDate,omitempty" db:"watched_date"`
	UserRating      *float64       `json:"userRating,omitempty" db:"user_rating"`
	ReminderEnabled bool           `json:"reminderEnabled" db:"reminder_enabled"`
	ReminderDate    *time.Time     `json:"reminderDate,omitempty" db:"reminder_date"`
	Tags            pq.StringArray `json:"tags" db:"tags"`
	IsPublic        bool           `json:"isPublic" db:"is_public"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time      `json:"updatedAt" db:"updated_at"`

	Movie *MovieSummary `json:"movie,omitempty" db:"-"`
}

// SetStatus moves the entry to status. Entering watched stamps the watched date only
// when none is recorded yet.
func (e *WatchlistEntry) SetStatus(status WatchStatus, now time.Time) {
	e.Status = status
	if status == StatusWatched && e.WatchedDate == nil {
		t := now.UTC()
		e.WatchedDate = &t
	}
}

// AddToWatchlistRequest is the body of POST /watchlist.
type AddToWatchlistRequest struct {
	MovieID         string       `json:"movieId" validate:"required,uuid"`
	TMDBMovieID     int64        `json:"tmdbMovieId" validate:"required,gt=0"`
	Priority        *Priority    `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Notes           *string      `json:"notes,omitempty" validate:"omitempty,max=500"`
	Status          *WatchStatus `json:"status,omitempty" validate:"omitempty,oneof=want_to_watch watching watched dropped"`
	UserRating      *float64     `json:"userRating,omitempty" validate:"omitempty,halfstep"`
	Tags            []string     `json:"tags,omitempty" validate:"omitempty,dive,min=1,max=20"`
	IsPublic        *bool        `json:"isPublic,omitempty"`
	ReminderEnabled bool         `json:"reminderEnabled,omitempty"`
	ReminderDate    *string      `json:"reminderDate,omitempty" validate:"omitempty,isodate"`
}

// UpdateWatchlistRequest is the body of PUT /watchlist/{id}. Nil fields are left unchanged.
type UpdateWatchlistRequest struct {
	Priority        *Priority    `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Notes           *string      `json:"notes,omitempty" validate:"omitempty,max=500"`
	Status          *WatchStatus `json:"status,omitempty" validate:"omitempty,oneof=want_to_watch watching watched dropped"`
	UserRating      *float64     `json:"userRating,omitempty" validate:"omitempty,halfstep"`
	Tags            []string     `json:"tags,omitempty" validate:"omitempty,dive,min=1,max=20"`
	IsPublic        *bool        `json:"isPublic,omitempty"`
	ReminderEnabled *bool        `json:"reminderEnabled,omitempty"`
	ReminderDate    *string      `json:"reminderDate,omitempty" validate:"omitempty,isodate"`
}

// MarkWatchedRequest is the optional body of PUT /watchlist/{id}/watched.
type MarkWatchedRequest struct {
	Rating *float64 `json:"rating,omitempty" validate:"omitempty,halfstep"`
}

// WatchlistStats counts a user's entries per status.
type WatchlistStats struct {
	WantToWatch int `json:"want_to_watch"`
	Watching    int `json:"watching"`
	Watched     int `json:"watched"`
	Dropped     int `json:"dropped"`
	Total       int `json:"total"`
}

// WatchlistCheck is the answer to "is this movie on my watchlist".
type WatchlistCheck struct {
	InWatchlist bool            `json:"inWatchlist"`
	Item        *WatchlistEntry `json:"item"`
}

// PopularWatchlistMovie pairs a movie with the number of watchlists holding it.
type PopularWatchlistMovie struct {
	Movie          *Movie `json:"movie"`
	WatchlistCount int    `json:"watchlistCount"`
}

// MovieCount is a store-level (movie id, count) pair.
type MovieCount struct {
	MovieID string `db:"movie_id"`
	Count   int    `db:"count"`
}
