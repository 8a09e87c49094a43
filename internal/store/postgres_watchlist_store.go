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
	"github.com/lib/pq"

	"movie-app/internal/domain"
)

const watchlistSelect = `w.id, w.user_id, w.movie_id, w.tmdb_movie_id, w.date_added, w.priority, w.notes,
		w.status, w.watched_date, w.user_rating, w.reminder_enabled, w.reminder_date, w.tags, w.is_public,
		w.created_at, w.updated_at,
		m.tmdb_id AS movie_tmdb_id, m.title AS movie_title, m.poster_path AS movie_poster_path,
		m.release_date AS movie_release_date, m.genres AS movie_genres,
		m.average_rating AS movie_average_rating, m.runtime AS movie_runtime
	FROM watchlist_entries w
	JOIN movies m ON m.id = w.movie_id`

// watchlistRow is a watchlist entry joined with the movie columns it embeds.
type watchlistRow struct {
	domain.WatchlistEntry
	MovieTMDBID        int64          `db:"movie_tmdb_id"`
	MovieTitle         string         `db:"movie_title"`
	MoviePosterPath    string         `db:"movie_poster_path"`
	MovieReleaseDate   *time.Time     `db:"movie_release_date"`
	MovieGenres        pq.StringArray `db:"movie_genres"`
	MovieAverageRating float64        `db:"movie_average_rating"`
	MovieRuntime       *int           `db:"movie_runtime"`
}

func (r *watchlistRow) entry() *domain.WatchlistEntry {
	e := r.WatchlistEntry
	e.Movie = &domain.MovieSummary{
		ID:            e.MovieID,
		TMDBID:        r.MovieTMDBID,
		Title:         r.MovieTitle,
		PosterPath:    r.MoviePosterPath,
		ReleaseDate:   r.MovieReleaseDate,
		Genres:        r.MovieGenres,
		AverageRating: r.MovieAverageRating,
		Runtime:       r.MovieRuntime,
	}
	return &e
}

// PostgresWatchlistStore implements WatchlistStore on PostgreSQL.
type PostgresWatchlistStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewPostgresWatchlistStore(db *sqlx.DB, logger *slog.Logger) (*PostgresWatchlistStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil for PostgresWatchlistStore")
	}
	return &PostgresWatchlistStore{db: db, logger: logger}, nil
}

func (s *PostgresWatchlistStore) Create(ctx context.Context, entry *domain.WatchlistEntry) error {
	query := `INSERT INTO watchlist_entries (id, user_id, movie_id, tmdb_movie_id, date_added, priority, notes,
			status, watched_date, user_rating, reminder_enabled, reminder_date, tags, is_public, created_at, updated_at)
		VALUES (:id, :user_id, :movie_id, :tmdb_movie_id, :date_added, :priority, :notes,
			:status, :watched_date, :user_rating, :reminder_enabled, :reminder_date, :tags, :is_public, :created_at, :updated_at)`

	entry.CreatedAt = time.Now().UTC()
	entry.UpdatedAt = entry.CreatedAt
	if entry.Tags == nil {
		entry.Tags = pq.StringArray{}
	}

	if _, err := s.db.NamedExecContext(ctx, query, entry); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" &&
			(pqErr.Constraint == constraintUserMovieWatchlist || pqErr.Constraint == constraintUserTMDBWatchlist) {
			s.logger.WarnContext(ctx, "Movie already in watchlist (DB constraint)",
				slog.String("movieID", entry.MovieID), slog.String("userID", entry.UserID))
			return ErrDuplicateWatchlistEntry
		}
		s.logger.ErrorContext(ctx, "Failed to create watchlist entry in DB", slog.String("error", err.Error()))
		return fmt.Errorf("failed to create watchlist entry: %w", err)
	}
	s.logger.InfoContext(ctx, "Watchlist entry created in DB", slog.String("entryID", entry.ID))
	return nil
}

func (s *PostgresWatchlistStore) GetByID(ctx context.Context, entryID string) (*domain.WatchlistEntry, error) {
	if _, err := uuid.Parse(entryID); err != nil {
		return nil, ErrWatchlistEntryNotFound
	}
	return s.getOne(ctx, "w.id = $1", entryID)
}

func (s *PostgresWatchlistStore) GetByUserAndMovie(ctx context.Context, userID, movieID string) (*domain.WatchlistEntry, error) {
	return s.getOne(ctx, "w.user_id = $1 AND w.movie_id = $2", userID, movieID)
}

func (s *PostgresWatchlistStore) GetByUserAndTMDBID(ctx context.Context, userID string, tmdbID int64) (*domain.WatchlistEntry, error) {
	return s.getOne(ctx, "w.user_id = $1 AND w.tmdb_movie_id = $2", userID, tmdbID)
}

func (s *PostgresWatchlistStore) getOne(ctx context.Context, cond string, args ...interface{}) (*domain.WatchlistEntry, error) {
	var row watchlistRow
	err := s.db.GetContext(ctx, &row, "SELECT "+watchlistSelect+" WHERE "+cond, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWatchlistEntryNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get watchlist entry from DB", slog.String("cond", cond), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get watchlist entry: %w", err)
	}
	return row.entry(), nil
}

func (s *PostgresWatchlistStore) Update(ctx context.Context, entry *domain.WatchlistEntry) error {
	query := `UPDATE watchlist_entries SET priority = :priority, notes = :notes, status = :status,
			watched_date = :watched_date, user_rating = :user_rating, reminder_enabled = :reminder_enabled,
			reminder_date = :reminder_date, tags = :tags, is_public = :is_public, updated_at = :updated_at
		WHERE id = :id`
	entry.UpdatedAt = time.Now().UTC()
	if entry.Tags == nil {
		entry.Tags = pq.StringArray{}
	}

	result, err := s.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to update watchlist entry", slog.String("entryID", entry.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to update watchlist entry: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check watchlist update result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrWatchlistEntryNotFound
	}
	return nil
}

func (s *PostgresWatchlistStore) Delete(ctx context.Context, entryID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM watchlist_entries WHERE id = $1`, entryID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete watchlist entry", slog.String("entryID", entryID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete watchlist entry: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check watchlist delete result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrWatchlistEntryNotFound
	}
	return nil
}

func (s *PostgresWatchlistStore) List(ctx context.Context, params WatchlistListParams) ([]*domain.WatchlistEntry, int, error) {
	q, err := buildWatchlistListQuery(params)
	if err != nil {
		return nil, 0, err
	}

	var totalCount int
	if err := s.db.GetContext(ctx, &totalCount, q.count, q.countArgs...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to count watchlist entries", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to count watchlist entries: %w", err)
	}
	if totalCount == 0 {
		return []*domain.WatchlistEntry{}, 0, nil
	}

	var rows []watchlistRow
	if err := s.db.SelectContext(ctx, &rows, q.page, q.pageArgs...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list watchlist entries", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to list watchlist entries: %w", err)
	}
	entries := make([]*domain.WatchlistEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].entry())
	}
	return entries, totalCount, nil
}

func (s *PostgresWatchlistStore) StatusCounts(ctx context.Context, userID string) (domain.WatchlistStats, error) {
	var rows []struct {
		Status domain.WatchStatus `db:"status"`
		Count  int                `db:"count"`
	}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT status, COUNT(*) AS count FROM watchlist_entries WHERE user_id = $1 GROUP BY status`, userID)
	if err != nil {
		return domain.WatchlistStats{}, fmt.Errorf("failed to count watchlist statuses: %w", err)
	}
	counts := make(map[domain.WatchStatus]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return statsFromCounts(counts), nil
}

func (s *PostgresWatchlistStore) Count(ctx context.Context, userID string, publicOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM watchlist_entries WHERE user_id = $1`
	if publicOnly {
		query += ` AND is_public = TRUE`
	}
	var n int
	if err := s.db.GetContext(ctx, &n, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count watchlist entries: %w", err)
	}
	return n, nil
}

func (s *PostgresWatchlistStore) Popular(ctx context.Context, limit int) ([]domain.MovieCount, error) {
	query := `SELECT movie_id, COUNT(*) AS count FROM watchlist_entries
		WHERE status = $1
		GROUP BY movie_id
		ORDER BY count DESC, movie_id
		LIMIT $2`
	counts := []domain.MovieCount{}
	if err := s.db.SelectContext(ctx, &counts, query, domain.StatusWantToWatch, limit); err != nil {
		s.logger.ErrorContext(ctx, "Failed to rank popular watchlist movies", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to rank popular watchlist movies: %w", err)
	}
	return counts, nil
}

// DueReminders is served by the partial idx_watchlist_reminders index.
func (s *PostgresWatchlistStore) DueReminders(ctx context.Context, asOf time.Time) ([]*domain.WatchlistEntry, error) {
	query := "SELECT " + watchlistSelect + `
		WHERE w.reminder_enabled AND w.reminder_date <= $1 AND w.status IN ($2, $3)
		ORDER BY w.reminder_date, w.id`

	var rows []watchlistRow
	if err := s.db.SelectContext(ctx, &rows, query, asOf, domain.StatusWantToWatch, domain.StatusWatching); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load due reminders", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to load due reminders: %w", err)
	}
	entries := make([]*domain.WatchlistEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].entry())
	}
	return entries, nil
}

func statsFromCounts(counts map[domain.WatchStatus]int) domain.WatchlistStats {
	stats := domain.WatchlistStats{
		WantToWatch: counts[domain.StatusWantToWatch],
		Watching:    counts[domain.StatusWatching],
		Watched:     counts[domain.StatusWatched],
		Dropped:     counts[domain.StatusDropped],
	}
	stats.Total = stats.WantToWatch + stats.Watching + stats.Watched + stats.Dropped
	return stats
}
