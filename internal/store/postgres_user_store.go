package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"movie-app/internal/domain"
)

const userColumns = `id, username, email, password_hash, role, profile_picture, bio, is_active, join_date, updated_at`

// PostgresUserStore implements UserStore on PostgreSQL.
type PostgresUserStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewPostgresUserStore(db *sqlx.DB, logger *slog.Logger) (*PostgresUserStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil for PostgresUserStore")
	}
	return &PostgresUserStore{db: db, logger: logger}, nil
}

func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :username, :email, :password_hash, :role, :profile_picture, :bio, :is_active, :join_date, :updated_at)`

	user.JoinDate = time.Now().UTC()
	user.UpdatedAt = user.JoinDate

	s.logger.DebugContext(ctx, "Executing Create user query", slog.String("userID", user.ID), slog.String("username", user.Username))
	if _, err := s.db.NamedExecContext(ctx, query, user); err != nil {
		return s.mapWriteError(ctx, user, err)
	}
	s.logger.InfoContext(ctx, "User created successfully in DB", slog.String("userID", user.ID))
	return nil
}

func (s *PostgresUserStore) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, ErrUserNotFound
	}
	return s.getOne(ctx, "id = $1", userID)
}

func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, "LOWER(email) = LOWER($1)", email)
}

func (s *PostgresUserStore) getOne(ctx context.Context, cond string, arg interface{}) (*domain.User, error) {
	var user domain.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE `+cond, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get user from DB", slog.String("cond", cond), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *PostgresUserStore) Update(ctx context.Context, user *domain.User) error {
	query := `UPDATE users SET username = :username, email = :email, role = :role,
			profile_picture = :profile_picture, bio = :bio, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	user.UpdatedAt = time.Now().UTC()

	result, err := s.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return s.mapWriteError(ctx, user, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check user update result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresUserStore) Search(ctx context.Context, params UserSearchParams) ([]*domain.User, int, error) {
	b := &whereBuilder{}
	b.add("is_active = TRUE")
	if q := strings.TrimSpace(params.Query); q != "" {
		ph := b.arg(containsPattern(q))
		b.add(fmt.Sprintf("(username ILIKE %[1]s OR email ILIKE %[1]s)", ph))
	}
	q := newListQuery(b, "users", userColumns+" FROM users", " ORDER BY join_date DESC, id", params.Page)

	var totalCount int
	if err := s.db.GetContext(ctx, &totalCount, q.count, q.countArgs...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to count users", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}
	if totalCount == 0 {
		return []*domain.User{}, 0, nil
	}

	users := []*domain.User{}
	if err := s.db.SelectContext(ctx, &users, q.page, q.pageArgs...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to search users", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to search users: %w", err)
	}
	return users, totalCount, nil
}

func (s *PostgresUserStore) mapWriteError(ctx context.Context, user *domain.User, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		s.logger.WarnContext(ctx, "User already exists (unique constraint violation in DB)",
			slog.String("userID", user.ID),
			slog.String("username", user.Username),
			slog.String("constraint_name", pqErr.Constraint))
		return ErrUserAlreadyExists
	}
	s.logger.ErrorContext(ctx, "Failed to write user to DB", slog.String("userID", user.ID), slog.String("error", err.Error()))
	return fmt.Errorf("failed to write user: %w", err)
}
