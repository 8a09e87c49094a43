package tmdb

import (
	"slices"

	"github.com/lib/pq"

	"movie-app/internal/domain"
)

// MaxCast is the number of billed cast members kept on a movie.
const MaxCast = 10

// ToMovie maps a TMDB detail onto a catalogue movie. Identity and rating fields are
// left to the store.
func (d *MovieDetail) ToMovie() *domain.Movie {
	m := &domain.Movie{
		TMDBID:           d.ID,
		Title:            d.Title,
		OriginalTitle:    d.OriginalTitle,
		Overview:         d.Overview,
		Tagline:          d.Tagline,
		Genres:           pq.StringArray{},
		Cast:             pq.StringArray{},
		PosterPath:       d.PosterPath,
		BackdropPath:     d.BackdropPath,
		OriginalLanguage: d.OriginalLanguage,
		Adult:            d.Adult,
		Popularity:       d.Popularity,
		TMDBVoteAverage:  d.VoteAverage,
		TMDBVoteCount:    d.VoteCount,
	}
	if d.ReleaseDate != "" {
		if t, err := domain.ParseDate(d.ReleaseDate); err == nil {
			m.ReleaseDate = &t
		}
	}
	if d.Runtime > 0 {
		runtime := d.Runtime
		m.Runtime = &runtime
	}
	for _, g := range d.Genres {
		m.Genres = append(m.Genres, g.Name)
	}
	for _, crew := range d.Credits.Crew {
		if crew.Job == "Director" {
			m.Director = crew.Name
			break
		}
	}

	cast := slices.Clone(d.Credits.Cast)
	slices.SortStableFunc(cast, func(a, b CastMember) int { return a.Order - b.Order })
	for i, c := range cast {
		if i == MaxCast {
			break
		}
		m.Cast = append(m.Cast, c.Name)
	}
	return m
}
