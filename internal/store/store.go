// Package store persists movies, reviews, watchlist entries and users. Every store has a
// PostgreSQL implementation and an in-memory one sharing the same semantics.
package store

import (
	"context"
	"errors"
	"time"

	"movie-app/internal/domain"
)

// Sentinel errors returned by every store implementation.
var (
	ErrMovieNotFound           = errors.New("movie not found")
	ErrReviewNotFound          = errors.New("review not found")
	ErrWatchlistEntryNotFound  = errors.New("watchlist entry not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrDuplicateReview         = errors.New("user has already reviewed this movie")
	ErrDuplicateWatchlistEntry = errors.New("movie is already in the user's watchlist")
	ErrUserAlreadyExists       = errors.New("user with this email or username already exists")
	ErrInvalidSort             = errors.New("invalid sort field")
)

// Unique constraint names, mapped to the conflict errors above.
const (
	constraintUserMovieReview    = "uq_user_movie_review"
	constraintUserMovieWatchlist = "uq_user_movie_watchlist"
	constraintUserTMDBWatchlist  = "uq_user_tmdb_watchlist"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Sort fields accepted by each listing.
const (
	MovieSortTitle         = "title"
	MovieSortReleaseDate   = "releaseDate"
	MovieSortAverageRating = "averageRating"
	MovieSortPopularity    = "popularity"

	ReviewSortCreatedAt    = "createdAt"
	ReviewSortRating       = "rating"
	ReviewSortHelpfulVotes = "helpfulVotes"

	WatchlistSortDateAdded = "dateAdded"
	WatchlistSortPriority  = "priority"
	WatchlistSortTitle     = "title"
)

var (
	movieSortColumns = map[string]string{
		MovieSortTitle:         "title",
		MovieSortReleaseDate:   "release_date",
		MovieSortAverageRating: "average_rating",
		MovieSortPopularity:    "popularity",
	}
	reviewSortColumns = map[string]string{
		ReviewSortCreatedAt:    "r.created_at",
		ReviewSortRating:       "r.rating",
		ReviewSortHelpfulVotes: "r.helpful_votes",
	}
	watchlistSortColumns = map[string]string{
		WatchlistSortDateAdded: "w.date_added",
		WatchlistSortPriority:  "CASE w.priority WHEN 'low' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END",
		WatchlistSortTitle:     "m.title",
	}
)

// ValidMovieSort, ValidReviewSort and ValidWatchlistSort report whether a listing
// accepts field as its sort key.
func ValidMovieSort(field string) bool     { _, ok := movieSortColumns[field]; return ok }
func ValidReviewSort(field string) bool    { _, ok := reviewSortColumns[field]; return ok }
func ValidWatchlistSort(field string) bool { _, ok := watchlistSortColumns[field]; return ok }

// MovieListParams filters and pages the movie catalogue.
type MovieListParams struct {
	Genre  string
	Year   int
	Search string
	Sort   string
	Order  SortOrder
	Page   domain.Page
}

type ReviewListParams struct {
	MovieID   string
	UserID    string
	MinRating *float64
	MaxRating *float64
	// Empty matches every status.
	Status domain.ReviewStatus
	Sort   string
	Order  SortOrder
	Page   domain.Page
}

type WatchlistListParams struct {
	UserID     string
	Status     domain.WatchStatus
	Priority   domain.Priority
	PublicOnly bool
	Sort       string
	Order      SortOrder
	Page       domain.Page
}

type UserSearchParams struct {
	Query string
	Page  domain.Page
}

// MovieStore persists the movie catalog and its derived rating fields.
type MovieStore interface {
	// Upsert inserts a movie or updates the one with the same TMDB id. Identity and
	// derived rating fields of an existing movie are preserved.
	Upsert(ctx context.Context, movie *domain.Movie) (created bool, err error)
	// GetByID and GetByTMDBID return ErrMovieNotFound for unknown movies.
	GetByID(ctx context.Context, id string) (*domain.Movie, error)
	GetByTMDBID(ctx context.Context, tmdbID int64) (*domain.Movie, error)
	// List returns one page of matching movies and the total match count.
	List(ctx context.Context, params MovieListParams) ([]*domain.Movie, int, error)
	// Trending ranks by popularity, TopRated by average rating among movies with at
	// least minReviews approved reviews.
	Trending(ctx context.Context, limit int) ([]*domain.Movie, error)
	TopRated(ctx context.Context, minReviews, limit int) ([]*domain.Movie, error)
	// UpdateRating overwrites the derived rating fields, or returns ErrMovieNotFound.
	UpdateRating(ctx context.Context, movieID string, agg domain.RatingAggregate) error
}

// ReviewStore persists reviews and their helpful votes.
type ReviewStore interface {
	// Create returns ErrDuplicateReview when the user already reviewed the movie.
	Create(ctx context.Context, review *domain.Review) error
	GetByID(ctx context.Context, reviewID string) (*domain.Review, error)
	GetByUserAndMovie(ctx context.Context, userID, movieID string) (*domain.Review, error)
	Update(ctx context.Context, review *domain.Review) error
	Delete(ctx context.Context, reviewID string) error
	List(ctx context.Context, params ReviewListParams) ([]*domain.Review, int, error)
	// RatingStats returns the unrounded mean and count of approved ratings.
	RatingStats(ctx context.Context, movieID string) (domain.RatingAggregate, error)
	// ToggleHelpful adds the user's vote, or removes it when already cast, atomically.
	ToggleHelpful(ctx context.Context, reviewID, userID string) (domain.HelpfulVoteResult, error)
	CountByUser(ctx context.Context, userID string, status domain.ReviewStatus) (int, error)
	// TopReviewers ranks users by approved review count, then by average rating.
	TopReviewers(ctx context.Context, limit int) ([]domain.ReviewerStats, error)
}

// WatchlistStore persists watchlist entries. Reads enrich entries with their movie.
type WatchlistStore interface {
	// Create inserts an entry. A user holds a movie at most once, keyed both by movie id
	// and by TMDB id; either collision returns ErrDuplicateWatchlistEntry.
	Create(ctx context.Context, entry *domain.WatchlistEntry) error
	GetByID(ctx context.Context, entryID string) (*domain.WatchlistEntry, error)
	GetByUserAndMovie(ctx context.Context, userID, movieID string) (*domain.WatchlistEntry, error)
	GetByUserAndTMDBID(ctx context.Context, userID string, tmdbID int64) (*domain.WatchlistEntry, error)
	// Update writes the mutable fields. Owner, movie and date added never change.
	Update(ctx context.Context, entry *domain.WatchlistEntry) error
	Delete(ctx context.Context, entryID string) error
	List(ctx context.Context, params WatchlistListParams) ([]*domain.WatchlistEntry, int, error)
	StatusCounts(ctx context.Context, userID string) (domain.WatchlistStats, error)
	// Count returns the number of entries of a user, optionally public ones only.
	Count(ctx context.Context, userID string, publicOnly bool) (int, error)
	// Popular ranks movies by how many entries want to watch them.
	Popular(ctx context.Context, limit int) ([]domain.MovieCount, error)
	// DueReminders returns entries with an enabled reminder at or before asOf that are
	// still want_to_watch or watching, earliest reminder first.
	DueReminders(ctx context.Context, asOf time.Time) ([]*domain.WatchlistEntry, error)
}

type UserStore interface {
	// Create returns ErrUserAlreadyExists when the email or username is taken.
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	// Search matches active users by username or email, newest first.
	Search(ctx context.Context, params UserSearchParams) ([]*domain.User, int, error)
}
