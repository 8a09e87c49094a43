package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"movie-app/internal/cache"
	"movie-app/internal/domain"
	"movie-app/internal/metrics"
	"movie-app/internal/rating"
	"movie-app/internal/store"
)

// ReviewFilter narrows review listings. Listings only ever include approved reviews.
type ReviewFilter struct {
	MovieID   string
	UserID    string
	MinRating *float64
	MaxRating *float64
}

// ReviewService owns the review lifecycle. Every write that can change the approved
// set of a movie is followed by recomputeRating.
type ReviewService struct {
	reviews  store.ReviewStore
	movies   store.MovieStore
	cache    cache.Cache
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// NewReviewService wires the review store to the movie store whose ratings it keeps
// current and to the cache those ratings invalidate.
func NewReviewService(reviews store.ReviewStore, movies store.MovieStore, c cache.Cache, v *validator.Validate, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		movies:   movies,
		cache:    c,
		validate: v,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create stores an approved review by userID and recomputes the movie's rating. A user
// reviews a movie at most once, and tmdbMovieId must name the same movie as movieId.
func (s *ReviewService) Create(ctx context.Context, userID string, req domain.CreateReviewRequest) (*domain.Review, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, domain.AsValidationError(err)
	}
	movie, err := s.movies.GetByID(ctx, req.MovieID)
	if err != nil {
		return nil, err
	}
	if movie.TMDBID != req.TMDBMovieID {
		return nil, domain.NewValidationError("tmdbMovieId", "does not match movieId")
	}

	_, err = s.reviews.GetByUserAndMovie(ctx, userID, req.MovieID)
	switch {
	case err == nil:
		s.logger.WarnContext(ctx, "Duplicate review attempt", slog.String("userID", userID), slog.String("movieID", req.MovieID))
		return nil, store.ErrDuplicateReview
	case !errors.Is(err, store.ErrReviewNotFound):
		return nil, fmt.Errorf("check existing review: %w", err)
	}

	review := &domain.Review{
		ID:               uuid.NewString(),
		UserID:           userID,
		MovieID:          req.MovieID,
		TMDBMovieID:      movie.TMDBID,
		Rating:           req.Rating,
		Title:            trimmedPtr(req.Title),
		ReviewText:       strings.TrimSpace(req.ReviewText),
		ContainsSpoilers: req.ContainsSpoilers,
		Status:           domain.ReviewApproved,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Review created", slog.String("reviewID", review.ID), slog.String("movieID", review.MovieID))

	s.recomputeRating(ctx, review.MovieID)
	return s.reviews.GetByID(ctx, review.ID)
}

// Get returns a review. Reviews that are not approved are only visible to their author.
func (s *ReviewService) Get(ctx context.Context, viewerID, reviewID string) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.Status != domain.ReviewApproved && review.UserID != viewerID {
		return nil, store.ErrReviewNotFound
	}
	return review, nil
}

// Update applies a partial edit to the caller's own review. lastEditedAt moves only when
// rating, text or title actually change, and only a rating change triggers a recompute.
func (s *ReviewService) Update(ctx context.Context, userID, reviewID string, req domain.UpdateReviewRequest) (*domain.Review, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, domain.AsValidationError(err)
	}
	review, err := s.ownedReview(ctx, userID, reviewID)
	if err != nil {
		return nil, err
	}

	edited, ratingChanged := false, false
	if req.Rating != nil && *req.Rating != review.Rating {
		review.Rating = *req.Rating
		edited, ratingChanged = true, true
	}
	if req.ReviewText != nil {
		if text := strings.TrimSpace(*req.ReviewText); text != review.ReviewText {
			review.ReviewText = text
			edited = true
		}
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if review.Title == nil || *review.Title != title {
			review.Title = &title
			edited = true
		}
	}
	if req.ContainsSpoilers != nil {
		review.ContainsSpoilers = *req.ContainsSpoilers
	}
	if edited {
		now := s.now()
		review.LastEditedAt = &now
	}

	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Review updated", slog.String("reviewID", review.ID), slog.Bool("ratingChanged", ratingChanged))

	if ratingChanged {
		s.recomputeRating(ctx, review.MovieID)
	}
	return s.reviews.GetByID(ctx, review.ID)
}

// Delete removes the caller's own review and recomputes the movie's rating.
func (s *ReviewService) Delete(ctx context.Context, userID, reviewID string) error {
	review, err := s.ownedReview(ctx, userID, reviewID)
	if err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, review.ID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Review deleted", slog.String("reviewID", review.ID), slog.String("movieID", review.MovieID))

	s.recomputeRating(ctx, review.MovieID)
	return nil
}

// ToggleHelpful flips the caller's helpful vote. Voting on one's own review is rejected
// before anything is written.
func (s *ReviewService) ToggleHelpful(ctx context.Context, userID, reviewID string) (domain.HelpfulVoteResult, error) {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return domain.HelpfulVoteResult{}, err
	}
	if review.UserID == userID {
		return domain.HelpfulVoteResult{}, ErrOwnReviewVote
	}
	return s.reviews.ToggleHelpful(ctx, reviewID, userID)
}

// Moderate sets the moderation status of a review.
func (s *ReviewService) Moderate(ctx context.Context, reviewID string, req domain.ModerateReviewRequest) (*domain.Review, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, domain.AsValidationError(err)
	}
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.Status == req.Status {
		return review, nil
	}

	previous := review.Status
	review.Status = req.Status
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Review moderated", slog.String("reviewID", review.ID),
		slog.String("from", string(previous)), slog.String("to", string(review.Status)))

	s.recomputeRating(ctx, review.MovieID)
	return s.reviews.GetByID(ctx, review.ID)
}

// List returns approved reviews matching filter.
func (s *ReviewService) List(ctx context.Context, filter ReviewFilter, opts ListOptions) (Paged[*domain.Review], error) {
	page, sort, order, err := opts.resolve(reviewListDefaults)
	if err != nil {
		return Paged[*domain.Review]{}, err
	}
	if err := validateRatingRange(filter.MinRating, filter.MaxRating); err != nil {
		return Paged[*domain.Review]{}, err
	}

	reviews, total, err := s.reviews.List(ctx, store.ReviewListParams{
		MovieID:   filter.MovieID,
		UserID:    filter.UserID,
		MinRating: filter.MinRating,
		MaxRating: filter.MaxRating,
		Status:    domain.ReviewApproved,
		Sort:      sort,
		Order:     order,
		Page:      page,
	})
	if err != nil {
		return Paged[*domain.Review]{}, fmt.Errorf("list reviews: %w", err)
	}
	return newPaged(reviews, page, total), nil
}

// Recent returns the newest approved reviews.
func (s *ReviewService) Recent(ctx context.Context, limit int) ([]*domain.Review, error) {
	limit, err := rankLimit(limit, 10)
	if err != nil {
		return nil, err
	}
	res, err := s.List(ctx, ReviewFilter{}, ListOptions{Page: 1, Limit: limit, Sort: store.ReviewSortCreatedAt})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// TopReviewers ranks users by approved review count.
func (s *ReviewService) TopReviewers(ctx context.Context, limit int) ([]domain.ReviewerStats, error) {
	limit, err := rankLimit(limit, 10)
	if err != nil {
		return nil, err
	}
	return s.reviews.TopReviewers(ctx, limit)
}

func (s *ReviewService) ownedReview(ctx context.Context, userID, reviewID string) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		s.logger.WarnContext(ctx, "Attempt to modify another user's review", slog.String("reviewID", reviewID), slog.String("userID", userID))
		return nil, ErrForbidden
	}
	return review, nil
}

// recomputeRating rewrites the movie's average rating and review count from its
// approved reviews. It runs after the triggering write has committed and never fails
// it: a missing movie is skipped and other errors are logged.
func (s *ReviewService) recomputeRating(ctx context.Context, movieID string) {
	stats, err := s.reviews.RatingStats(ctx, movieID)
	if err != nil {
		metrics.RecordRatingRecompute("error")
		s.logger.ErrorContext(ctx, "Failed to aggregate movie rating", slog.String("movieID", movieID), slog.String("error", err.Error()))
		return
	}
	res := rating.FromMean(stats.Average, stats.Count)
	agg := domain.RatingAggregate{Average: res.Average, Count: res.Count}

	if err := s.movies.UpdateRating(ctx, movieID, agg); err != nil {
		if errors.Is(err, store.ErrMovieNotFound) {
			metrics.RecordRatingRecompute("skipped")
			s.logger.WarnContext(ctx, "Movie vanished before rating recompute", slog.String("movieID", movieID))
			return
		}
		metrics.RecordRatingRecompute("error")
		s.logger.ErrorContext(ctx, "Failed to store movie rating", slog.String("movieID", movieID), slog.String("error", err.Error()))
		return
	}
	metrics.RecordRatingRecompute("ok")

	if err := s.cache.DeletePrefix(ctx, cache.MoviesPrefix); err != nil {
		s.logger.WarnContext(ctx, "Failed to invalidate movie cache", slog.String("error", err.Error()))
	}
	s.logger.DebugContext(ctx, "Movie rating recomputed", slog.String("movieID", movieID),
		slog.Float64("averageRating", agg.Average), slog.Int("reviewCount", agg.Count))
}

func validateRatingRange(lo, hi *float64) error {
	var fieldErrs []domain.FieldError
	if lo != nil && (*lo < rating.Min || *lo > rating.Max) {
		fieldErrs = append(fieldErrs, domain.FieldError{Field: "minRating", Message: "must be between 1 and 5"})
	}
	if hi != nil && (*hi < rating.Min || *hi > rating.Max) {
		fieldErrs = append(fieldErrs, domain.FieldError{Field: "maxRating", Message: "must be between 1 and 5"})
	}
	if len(fieldErrs) == 0 && lo != nil && hi != nil && *lo > *hi {
		fieldErrs = append(fieldErrs, domain.FieldError{Field: "minRating", Message: "cannot exceed maxRating"})
	}
	if len(fieldErrs) > 0 {
		return &domain.ValidationError{Errors: fieldErrs}
	}
	return nil
}
