package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"movie-app/internal/domain"
)

const movieColumns = `id, tmdb_id, title, original_title, overview, tagline, genres, release_date, runtime,
	director, cast_members, poster_path, backdrop_path, original_language, adult, popularity,
	tmdb_vote_average, tmdb_vote_count, average_rating, review_count, last_sync_date, created_at, updated_at`

// PostgresMovieStore implements MovieStore on PostgreSQL.
type PostgresMovieStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewPostgresMovieStore(db *sqlx.DB, logger *slog.Logger) (*PostgresMovieStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil")
	}
	return &PostgresMovieStore{db: db, logger: logger}, nil
}

// Upsert relies on the tmdb_id unique constraint. xmax is zero only for a freshly
// inserted row, which tells create and update apart in one round trip.
func (s *PostgresMovieStore) Upsert(ctx context.Context, movie *domain.Movie) (bool, error) {
	query := `INSERT INTO movies (id, tmdb_id, title, original_title, overview, tagline, genres, release_date, runtime,
			director, cast_members, poster_path, backdrop_path, original_language, adult, popularity,
			tmdb_vote_average, tmdb_vote_count, last_sync_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19, $19)
		ON CONFLICT (tmdb_id) DO UPDATE SET
			title = EXCLUDED.title,
			original_title = EXCLUDED.original_title,
			overview = EXCLUDED.overview,
			tagline = EXCLUDED.tagline,
			genres = EXCLUDED.genres,
			release_date = EXCLUDED.release_date,
			runtime = EXCLUDED.runtime,
			director = EXCLUDED.director,
			cast_members = EXCLUDED.cast_members,
			poster_path = EXCLUDED.poster_path,
			backdrop_path = EXCLUDED.backdrop_path,
			original_language = EXCLUDED.original_language,
			adult = EXCLUDED.adult,
			popularity = EXCLUDED.popularity,
			tmdb_vote_average = EXCLUDED.tmdb_vote_average,
			tmdb_vote_count = EXCLUDED.tmdb_vote_count,
			last_sync_date = EXCLUDED.last_sync_date,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + movieColumns + `, (xmax = 0) AS inserted`

	if movie.ID == "" {
		movie.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	var row struct {
		domain.Movie
		Inserted bool `db:"inserted"`
	}
	s.logger.DebugContext(ctx, "Executing Upsert movie query", slog.Int64("tmdbID", movie.TMDBID), slog.String("title", movie.Title))
	err := s.db.GetContext(ctx, &row, query,
		movie.ID, movie.TMDBID, movie.Title, movie.OriginalTitle, movie.Overview, movie.Tagline,
		movie.Genres, movie.ReleaseDate, movie.Runtime, movie.Director, movie.Cast,
		movie.PosterPath, movie.BackdropPath, movie.OriginalLanguage, movie.Adult, movie.Popularity,
		movie.TMDBVoteAverage, movie.TMDBVoteCount, now,
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to upsert movie in DB", slog.Int64("tmdbID", movie.TMDBID), slog.String("error", err.Error()))
		return false, fmt.Errorf("failed to upsert movie: %w", err)
	}
	*movie = row.Movie
	s.logger.InfoContext(ctx, "Movie upserted in DB", slog.String("movieID", movie.ID), slog.Bool("created", row.Inserted))
	return row.Inserted, nil
}

func (s *PostgresMovieStore) GetByID(ctx context.Context, id string) (*domain.Movie, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrMovieNotFound
	}
	return s.getOne(ctx, "id = $1", id)
}

func (s *PostgresMovieStore) GetByTMDBID(ctx context.Context, tmdbID int64) (*domain.Movie, error) {
	return s.getOne(ctx, "tmdb_id = $1", tmdbID)
}

func (s *PostgresMovieStore) getOne(ctx context.Context, cond string, arg interface{}) (*domain.Movie, error) {
	query := `SELECT ` + movieColumns + ` FROM movies WHERE ` + cond
	var movie domain.Movie
	err := s.db.GetContext(ctx, &movie, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get movie from DB", slog.String("cond", cond), slog.Any("arg", arg), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}
	return &movie, nil
}

func (s *PostgresMovieStore) List(ctx context.Context, params MovieListParams) ([]*domain.Movie, int, error) {
	q, err := buildMovieListQuery(params)
	if err != nil {
		return nil, 0, err
	}

	var totalCount int
	s.logger.DebugContext(ctx, "Executing List movies count query", slog.String("query", q.count), slog.Any("args", q.countArgs))
	if err := s.db.GetContext(ctx, &totalCount, q.count, q.countArgs...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to count movies in DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to count movies: %w", err)
	}
	if totalCount == 0 {
		return []*domain.Movie{}, 0, nil
	}

	movies := []*domain.Movie{}
	if err := s.db.SelectContext(ctx, &movies, q.page, q.pageArgs...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list movies from DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to list movies: %w", err)
	}
	return movies, totalCount, nil
}

func (s *PostgresMovieStore) Trending(ctx context.Context, limit int) ([]*domain.Movie, error) {
	query := `SELECT ` + movieColumns + ` FROM movies
		ORDER BY popularity DESC, average_rating DESC, id LIMIT $1`
	movies := []*domain.Movie{}
	if err := s.db.SelectContext(ctx, &movies, query, limit); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list trending movies", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list trending movies: %w", err)
	}
	return movies, nil
}

func (s *PostgresMovieStore) TopRated(ctx context.Context, minReviews, limit int) ([]*domain.Movie, error) {
	query := `SELECT ` + movieColumns + ` FROM movies WHERE review_count >= $1
		ORDER BY average_rating DESC, review_count DESC, id LIMIT $2`
	movies := []*domain.Movie{}
	if err := s.db.SelectContext(ctx, &movies, query, minReviews, limit); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list top rated movies", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list top rated movies: %w", err)
	}
	return movies, nil
}

// UpdateRating returns ErrMovieNotFound when no row was touched.
func (s *PostgresMovieStore) UpdateRating(ctx context.Context, movieID string, agg domain.RatingAggregate) error {
	query := `UPDATE movies SET average_rating = $1, review_count = $2, updated_at = $3 WHERE id = $4`
	result, err := s.db.ExecContext(ctx, query, agg.Average, agg.Count, time.Now().UTC(), movieID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to update movie rating", slog.String("movieID", movieID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to update movie rating: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check movie rating update result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMovieNotFound
	}
	return nil
}
