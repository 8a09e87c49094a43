package domain

import (
	"time"
)

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
	ReviewFlagged  ReviewStatus = "flagged"
)

// Valid reports whether s is a known moderation status.
func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewPending, ReviewApproved, ReviewRejected, ReviewFlagged:
		return true
	}
	return false
}

// Review is one user's rated opinion of one movie. A user reviews a movie at most once.
type Review struct {
	ID               string       `json:"id" db:"id"`
	UserID           string       `json:"userId" db:"user_id"`
	MovieID          string       `json:"movieId" db:"movie_id"`
	TMDBMovieID      int64        `json:"tmdbMovieId" db:"tmdb_movie_id"`
	Rating           float64      `json:"rating" db:"rating"`
	Title            *string      `json:"title,omitempty" db:"title"`
	ReviewText       string       `json:"reviewText" db:"review_text"`
	ContainsSpoilers bool         `json:"containsSpoilers" db:"contains_spoilers"`
	Status           ReviewStatus `json:"status" db:"status"`
	HelpfulVotes     int          `json:"helpfulVotes" db:"helpful_votes"`
	LastEditedAt     *time.Time   `json:"lastEditedAt,omitempty" db:"last_edited_at"`
	CreatedAt        time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time    `json:"updatedAt" db:"updated_at"`

	// Filled from the users and movies tables on read.
	Username        string `json:"username,omitempty" db:"username"`
	MovieTitle      string `json:"movieTitle,omitempty" db:"movie_title"`
	MoviePosterPath string `json:"moviePosterPath,omitempty" db:"movie_poster_path"`
}

// CreateReviewRequest is the body of POST /reviews.
type CreateReviewRequest struct {
	MovieID          string  `json:"movieId" validate:"required,uuid"`
	TMDBMovieID      int64   `json:"tmdbMovieId" validate:"required,gt=0"`
	Rating           float64 `json:"rating" validate:"required,halfstep"`
	Title            *string `json:"title,omitempty" validate:"omitempty,max=100"`
	ReviewText       string  `json:"reviewText" validate:"required,trimmedlen=10-2000"`
	ContainsSpoilers bool    `json:"containsSpoilers,omitempty"`
}

// UpdateReviewRequest is the body of PUT /reviews/{id}. Nil fields are left unchanged.
type UpdateReviewRequest struct {
	Rating           *float64 `json:"rating,omitempty" validate:"omitempty,halfstep"`
	Title            *string  `json:"title,omitempty" validate:"omitempty,max=100"`
	ReviewText       *string  `json:"reviewText,omitempty" validate:"omitempty,trimmedlen=10-2000"`
	ContainsSpoilers *bool    `json:"containsSpoilers,omitempty"`
}

type ModerateReviewRequest struct {
	Status ReviewStatus `json:"status" validate:"required,oneof=pending approved rejected flagged"`
}

// RatingAggregate is the mean and count of the approved ratings of one movie.
type RatingAggregate struct {
	Average float64 `json:"averageRating" db:"average_rating"`
	Count   int     `json:"reviewCount" db:"review_count"`
}

// HelpfulVoteResult is returned by the helpful-vote toggle.
type HelpfulVoteResult struct {
	HelpfulVotes int  `json:"helpfulVotes"`
	UserVoted    bool `json:"userVoted"`
}

// ReviewerStats is one row of the top-reviewers ranking.
type ReviewerStats struct {
	UserID         string  `json:"userId" db:"user_id"`
	Username       string  `json:"username" db:"username"`
	ProfilePicture string  `json:"profilePicture,omitempty" db:"profile_picture"`
	ReviewCount    int     `json:"reviewCount" db:"review_count"`
	AverageRating  float64 `json:"averageRating" db:"average_rating"`
}
