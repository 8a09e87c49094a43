package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"movie-app/internal/domain"
	"movie-app/internal/store"
	"movie-app/pkg/auth"
)

type UserService struct {
	users     store.UserStore
	reviews   store.ReviewStore
	watchlist store.WatchlistStore
	tokens    auth.TokenManager
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewUserService(users store.UserStore, reviews store.ReviewStore, watchlist store.WatchlistStore, tokens auth.TokenManager, v *validator.Validate, logger *slog.Logger) *UserService {
	return &UserService{
		users:     users,
		reviews:   reviews,
		watchlist: watchlist,
		tokens:    tokens,
		validate:  v,
		logger:    logger,
	}
}

// Register creates an account and signs the new user in.
func (s *UserService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.LoginResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, domain.AsValidationError(err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "User registered successfully", slog.String("userID", user.ID), slog.String("username", user.Username))
	return s.issue(user)
}

// Login checks credentials. Unknown e-mail, wrong password and inactive accounts all
// yield ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, domain.AsValidationError(err)
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.logger.WarnContext(ctx, "Login attempt for non-existent email", slog.String("email", req.Email))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		s.logger.WarnContext(ctx, "Rejected login attempt", slog.String("userID", user.ID))
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *UserService) issue(user *domain.User) (*domain.LoginResponse, error) {
	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &domain.LoginResponse{User: user, Token: token}, nil
}

func (s *UserService) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateMe changes the caller's profile. The store rejects a username or email taken by
// another account with ErrUserAlreadyExists.
func (s *UserService) UpdateMe(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.User, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, domain.AsValidationError(err)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Username != nil {
		user.Username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.ProfilePicture != nil {
		user.ProfilePicture = *req.ProfilePicture
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "User profile updated", slog.String("userID", user.ID))
	return user, nil
}

// GetActive returns the user when the account exists and is active.
func (s *UserService) GetActive(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

// Profile returns a user's profile with approved review and visible watchlist counts.
func (s *UserService) Profile(ctx context.Context, userID, viewerID string) (*domain.UserProfile, error) {
	user, err := s.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	reviewCount, err := s.reviews.CountByUser(ctx, userID, domain.ReviewApproved)
	if err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}
	watchlistCount, err := s.watchlist.Count(ctx, userID, userID != viewerID)
	if err != nil {
		return nil, fmt.Errorf("count watchlist: %w", err)
	}

	if userID != viewerID {
		user = user.PublicProfile()
	}
	return &domain.UserProfile{User: user, ReviewCount: reviewCount, WatchlistCount: watchlistCount}, nil
}

// Search lists active users whose username or e-mail contains query.
func (s *UserService) Search(ctx context.Context, query string, opts ListOptions) (Paged[*domain.User], error) {
	page, _, _, err := opts.resolve(userListDefaults)
	if err != nil {
		return Paged[*domain.User]{}, err
	}
	users, total, err := s.users.Search(ctx, store.UserSearchParams{Query: query, Page: page})
	if err != nil {
		return Paged[*domain.User]{}, fmt.Errorf("search users: %w", err)
	}
	public := make([]*domain.User, 0, len(users))
	for _, u := range users {
		public = append(public, u.PublicProfile())
	}
	return newPaged(public, page, total), nil
}
