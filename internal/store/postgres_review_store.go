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

const reviewSelect = `r.id, r.user_id, r.movie_id, r.tmdb_movie_id, r.rating, r.title, r.review_text,
		r.contains_spoilers, r.status, r.helpful_votes, r.last_edited_at, r.created_at, r.updated_at,
		COALESCE(u.username, '') AS username, COALESCE(m.title, '') AS movie_title,
		COALESCE(m.poster_path, '') AS movie_poster_path
	FROM reviews r
	LEFT JOIN users u ON u.id = r.user_id
	LEFT JOIN movies m ON m.id = r.movie_id`

// PostgresReviewStore implements ReviewStore on PostgreSQL.
type PostgresReviewStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewPostgresReviewStore(db *sqlx.DB, logger *slog.Logger) (*PostgresReviewStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil for PostgresReviewStore")
	}
	return &PostgresReviewStore{db: db, logger: logger}, nil
}

func (s *PostgresReviewStore) Create(ctx context.Context, review *domain.Review) error {
	query := `INSERT INTO reviews (id, user_id, movie_id, tmdb_movie_id, rating, title, review_text,
			contains_spoilers, status, helpful_votes, created_at, updated_at)
		VALUES (:id, :user_id, :movie_id, :tmdb_movie_id, :rating, :title, :review_text,
			:contains_spoilers, :status, :helpful_votes, :created_at, :updated_at)`

	review.CreatedAt = time.Now().UTC()
	review.UpdatedAt = review.CreatedAt

	s.logger.DebugContext(ctx, "Executing Create review query",
		slog.String("reviewID", review.ID),
		slog.String("movieID", review.MovieID),
		slog.String("userID", review.UserID))

	if _, err := s.db.NamedExecContext(ctx, query, review); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if pqErr.Constraint == constraintUserMovieReview {
				s.logger.WarnContext(ctx, "User has already reviewed this movie (DB constraint)",
					slog.String("movieID", review.MovieID), slog.String("userID", review.UserID))
				return ErrDuplicateReview
			}
			return fmt.Errorf("failed to create review due to unique constraint %s: %w", pqErr.Constraint, err)
		}
		s.logger.ErrorContext(ctx, "Failed to create review in DB", slog.String("error", err.Error()))
		return fmt.Errorf("failed to create review: %w", err)
	}
	s.logger.InfoContext(ctx, "Review created successfully in DB", slog.String("reviewID", review.ID))
	return nil
}

func (s *PostgresReviewStore) GetByID(ctx context.Context, reviewID string) (*domain.Review, error) {
	if _, err := uuid.Parse(reviewID); err != nil {
		return nil, ErrReviewNotFound
	}
	return s.getOne(ctx, "r.id = $1", reviewID)
}

func (s *PostgresReviewStore) GetByUserAndMovie(ctx context.Context, userID, movieID string) (*domain.Review, error) {
	return s.getOne(ctx, "r.user_id = $1 AND r.movie_id = $2", userID, movieID)
}

func (s *PostgresReviewStore) getOne(ctx context.Context, cond string, args ...interface{}) (*domain.Review, error) {
	var review domain.Review
	err := s.db.GetContext(ctx, &review, "SELECT "+reviewSelect+" WHERE "+cond, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get review from DB", slog.String("cond", cond), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &review, nil
}

func (s *PostgresReviewStore) Update(ctx context.Context, review *domain.Review) error {
	query := `UPDATE reviews SET rating = :rating, title = :title, review_text = :review_text,
			contains_spoilers = :contains_spoilers, status = :status, last_edited_at = :last_edited_at,
			updated_at = :updated_at
		WHERE id = :id`
	review.UpdatedAt = time.Now().UTC()

	result, err := s.db.NamedExecContext(ctx, query, review)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to update review in DB", slog.String("reviewID", review.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to update review: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check review update result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrReviewNotFound
	}
	s.logger.InfoContext(ctx, "Review updated successfully in DB", slog.String("reviewID", review.ID))
	return nil
}

// Delete removes the review. Helpful votes go with it through ON DELETE CASCADE.
func (s *PostgresReviewStore) Delete(ctx context.Context, reviewID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, reviewID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete review from DB", slog.String("reviewID", reviewID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete review: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check review delete result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrReviewNotFound
	}
	s.logger.InfoContext(ctx, "Review deleted successfully from DB", slog.String("reviewID", reviewID))
	return nil
}

func (s *PostgresReviewStore) List(ctx context.Context, params ReviewListParams) ([]*domain.Review, int, error) {
	q, err := buildReviewListQuery(params)
	if err != nil {
		return nil, 0, err
	}

	var totalCount int
	s.logger.DebugContext(ctx, "Executing List reviews count query", slog.String("query", q.count), slog.Any("args", q.countArgs))
	if err := s.db.GetContext(ctx, &totalCount, q.count, q.countArgs...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to count reviews in DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	if totalCount == 0 {
		return []*domain.Review{}, 0, nil
	}

	reviews := []*domain.Review{}
	if err := s.db.SelectContext(ctx, &reviews, q.page, q.pageArgs...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list reviews from DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, totalCount, nil
}

func (s *PostgresReviewStore) RatingStats(ctx context.Context, movieID string) (domain.RatingAggregate, error) {
	query := `SELECT COALESCE(AVG(rating), 0)::float8 AS average_rating, COUNT(*) AS review_count
		FROM reviews WHERE movie_id = $1 AND status = $2`

	var agg domain.RatingAggregate
	if err := s.db.GetContext(ctx, &agg, query, movieID, domain.ReviewApproved); err != nil {
		s.logger.ErrorContext(ctx, "Failed to aggregate ratings", slog.String("movieID", movieID), slog.String("error", err.Error()))
		return domain.RatingAggregate{}, fmt.Errorf("failed to aggregate ratings for movie %s: %w", movieID, err)
	}
	return agg, nil
}

// ToggleHelpful flips the user's vote inside one transaction. The review row is
// locked so concurrent toggles on the same review serialise.
func (s *PostgresReviewStore) ToggleHelpful(ctx context.Context, reviewID, userID string) (domain.HelpfulVoteResult, error) {
	var res domain.HelpfulVoteResult
	if _, err := uuid.Parse(reviewID); err != nil {
		return res, ErrReviewNotFound
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin helpful vote transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var locked string
	if err := tx.GetContext(ctx, &locked, `SELECT id FROM reviews WHERE id = $1 FOR UPDATE`, reviewID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return res, ErrReviewNotFound
		}
		return res, fmt.Errorf("failed to lock review: %w", err)
	}

	deleted, err := tx.ExecContext(ctx, `DELETE FROM review_helpful_votes WHERE review_id = $1 AND user_id = $2`, reviewID, userID)
	if err != nil {
		return res, fmt.Errorf("failed to remove helpful vote: %w", err)
	}
	n, err := deleted.RowsAffected()
	if err != nil {
		return res, fmt.Errorf("failed to check helpful vote removal: %w", err)
	}

	if n > 0 {
		err = tx.GetContext(ctx, &res.HelpfulVotes,
			`UPDATE reviews SET helpful_votes = GREATEST(helpful_votes - 1, 0) WHERE id = $1 RETURNING helpful_votes`, reviewID)
	} else {
		if _, err = tx.ExecContext(ctx, `INSERT INTO review_helpful_votes (review_id, user_id, created_at) VALUES ($1, $2, $3)`,
			reviewID, userID, time.Now().UTC()); err != nil {
			return res, fmt.Errorf("failed to add helpful vote: %w", err)
		}
		res.UserVoted = true
		err = tx.GetContext(ctx, &res.HelpfulVotes,
			`UPDATE reviews SET helpful_votes = helpful_votes + 1 WHERE id = $1 RETURNING helpful_votes`, reviewID)
	}
	if err != nil {
		return res, fmt.Errorf("failed to update helpful vote count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("failed to commit helpful vote: %w", err)
	}
	return res, nil
}

func (s *PostgresReviewStore) CountByUser(ctx context.Context, userID string, status domain.ReviewStatus) (int, error) {
	b := &whereBuilder{}
	b.add("user_id = " + b.arg(userID))
	if status != "" {
		b.add("status = " + b.arg(string(status)))
	}
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM reviews"+b.clause(), b.args...); err != nil {
		return 0, fmt.Errorf("failed to count reviews by user: %w", err)
	}
	return n, nil
}

func (s *PostgresReviewStore) TopReviewers(ctx context.Context, limit int) ([]domain.ReviewerStats, error) {
	query := `SELECT r.user_id, u.username, u.profile_picture, COUNT(*) AS review_count,
			ROUND(AVG(r.rating)::numeric, 1)::float8 AS average_rating
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.status = $1
		GROUP BY r.user_id, u.username, u.profile_picture
		ORDER BY review_count DESC, average_rating DESC, r.user_id
		LIMIT $2`

	stats := []domain.ReviewerStats{}
	if err := s.db.SelectContext(ctx, &stats, query, domain.ReviewApproved, limit); err != nil {
		s.logger.ErrorContext(ctx, "Failed to rank top reviewers", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to rank top reviewers: %w", err)
	}
	return stats, nil
}
