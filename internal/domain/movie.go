// Package domain holds the entities, request bodies and validation rules shared by the
// HTTP API, services and stores.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Movie is a catalogued film. AverageRating and ReviewCount are derived from approved
// reviews and are only written by the rating recomputation.
type Movie struct {
	ID               string         `json:"id" db:"id"`
	TMDBID           int64          `json:"tmdbId" db:"tmdb_id"`
	Title            string         `json:"title" db:"title"`
	OriginalTitle    string         `json:"originalTitle,omitempty" db:"original_title"`
	Overview         string         `json:"overview,omitempty" db:"overview"`
	Tagline          string         `json:"tagline,omitempty" db:"tagline"`
	Genres           pq.StringArray `json:"genres" db:"genres"`
	ReleaseDate      *time.Time     `json:"releaseDate,omitempty" db:"release_date"`
	Runtime          *int           `json:"runtime,omitempty" db:"runtime"`
	Director         string         `json:"director,omitempty" db:"director"`
	Cast             pq.StringArray `json:"cast" db:"cast_members"`
	PosterPath       string         `json:"posterPath,omitempty" db:"poster_path"`
	BackdropPath     string         `json:"backdropPath,omitempty" db:"backdrop_path"`
	OriginalLanguage string         `json:"originalLanguage,omitempty" db:"original_language"`
	Adult            bool           `json:"adult" db:"adult"`
	Popularity       float64        `json:"popularity" db:"popularity"`
	TMDBVoteAverage  float64        `json:"tmdbVoteAverage" db:"tmdb_vote_average"`
	TMDBVoteCount    int            `json:"tmdbVoteCount" db:"tmdb_vote_count"`
	AverageRating    float64        `json:"averageRating" db:"average_rating"`
	ReviewCount      int            `json:"reviewCount" db:"review_count"`
	LastSyncDate     time.Time      `json:"lastSyncDate" db:"last_sync_date"`
	CreatedAt        time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time      `json:"updatedAt" db:"updated_at"`
}

// Summary returns the compact form embedded in watchlist entries.
func (m *Movie) Summary() *MovieSummary {
	return &MovieSummary{
		ID:            m.ID,
		TMDBID:        m.TMDBID,
		Title:         m.Title,
		PosterPath:    m.PosterPath,
		ReleaseDate:   m.ReleaseDate,
		Genres:        m.Genres,
		AverageRating: m.AverageRating,
		Runtime:       m.Runtime,
	}
}

type MovieSummary struct {
	ID            string     `json:"id"`
	TMDBID        int64      `json:"tmdbId"`
	Title         string     `json:"title"`
	PosterPath    string     `json:"posterPath,omitempty"`
	ReleaseDate   *time.Time `json:"releaseDate,omitempty"`
	Genres        []string   `json:"genres"`
	AverageRating float64    `json:"averageRating"`
	Runtime       *int       `json:"runtime,omitempty"`
}

// UpsertMovieRequest is the body of POST /movies. Derived rating fields are not accepted.
type UpsertMovieRequest struct {
	TMDBID           int64    `json:"tmdbId" validate:"required,gt=0"`
	Title            string   `json:"title" validate:"required,min=1,max=200"`
	OriginalTitle    string   `json:"originalTitle,omitempty" validate:"max=200"`
	Overview         string   `json:"overview,omitempty" validate:"max=2000"`
	Tagline          string   `json:"tagline,omitempty" validate:"max=300"`
	Genres           []string `json:"genres,omitempty" validate:"omitempty,dive,min=1,max=50"`
	ReleaseDate      *string  `json:"releaseDate,omitempty" validate:"omitempty,isodate"`
	Runtime          *int     `json:"runtime,omitempty" validate:"omitempty,gte=1"`
	Director         string   `json:"director,omitempty" validate:"max=200"`
	Cast             []string `json:"cast,omitempty" validate:"omitempty,dive,min=1,max=200"`
	PosterPath       string   `json:"posterPath,omitempty" validate:"max=500"`
	BackdropPath     string   `json:"backdropPath,omitempty" validate:"max=500"`
	OriginalLanguage string   `json:"originalLanguage,omitempty" validate:"max=10"`
	Adult            bool     `json:"adult,omitempty"`
	Popularity       float64  `json:"popularity,omitempty" validate:"gte=0"`
	TMDBVoteAverage  float64  `json:"tmdbVoteAverage,omitempty" validate:"gte=0,lte=10"`
	TMDBVoteCount    int      `json:"tmdbVoteCount,omitempty" validate:"gte=0"`
}

// ToMovie maps the request onto a Movie without identity or derived fields.
func (r UpsertMovieRequest) ToMovie() (*Movie, error) {
	m := &Movie{
		TMDBID:           r.TMDBID,
		Title:            strings.TrimSpace(r.Title),
		OriginalTitle:    r.OriginalTitle,
		Overview:         r.Overview,
		Tagline:          r.Tagline,
		Genres:           pq.StringArray(nonNil(r.Genres)),
		Runtime:          r.Runtime,
		Director:         r.Director,
		Cast:             pq.StringArray(nonNil(r.Cast)),
		PosterPath:       r.PosterPath,
		BackdropPath:     r.BackdropPath,
		OriginalLanguage: r.OriginalLanguage,
		Adult:            r.Adult,
		Popularity:       r.Popularity,
		TMDBVoteAverage:  r.TMDBVoteAverage,
		TMDBVoteCount:    r.TMDBVoteCount,
	}
	if r.ReleaseDate != nil {
		t, err := ParseDate(*r.ReleaseDate)
		if err != nil {
			return nil, err
		}
		m.ReleaseDate = &t
	}
	return m, nil
}

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ISO-8601 date %q", s)
	}
	return t.UTC(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
