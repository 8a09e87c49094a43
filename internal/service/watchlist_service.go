package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"movie-app/internal/domain"
	"movie-app/internal/store"
)

// WatchlistFilter narrows a watchlist listing.
type WatchlistFilter struct {
	Status   domain.WatchStatus
	Priority domain.Priority
}

// WatchlistService manages users' watchlists. Every mutation is owner-only.
type WatchlistService struct {
	watchlist store.WatchlistStore
	movies    store.MovieStore
	validate  *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

func NewWatchlistService(watchlist store.WatchlistStore, movies store.MovieStore, v *validator.Validate, logger *slog.Logger) *WatchlistService {
	return &WatchlistService{
		watchlist: watchlist,
		movies:    movies,
		validate:  v,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Add puts a movie on the user's watchlist. tmdbMovieId must name the same movie as
// movieId, and an entry added as watched needs a rating.
func (s *WatchlistService) Add(ctx context.Context, userID string, req domain.AddToWatchlistRequest) (*domain.WatchlistEntry, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, domain.AsValidationError(err)
	}
	if req.Status != nil && *req.Status == domain.StatusWatched && req.UserRating == nil {
		return nil, domain.NewValidationError("userRating", "is required when status is watched")
	}
	reminderAt, err := reminderDate(req.ReminderDate)
	if err != nil {
		return nil, err
	}
	movie, err := s.movies.GetByID(ctx, req.MovieID)
	if err != nil {
		return nil, err
	}
	if movie.TMDBID != req.TMDBMovieID {
		return nil, domain.NewValidationError("tmdbMovieId", "does not match movieId")
	}

	_, err = s.watchlist.GetByUserAndMovie(ctx, userID, req.MovieID)
	switch {
	case err == nil:
		return nil, store.ErrDuplicateWatchlistEntry
	case !errors.Is(err, store.ErrWatchlistEntryNotFound):
		return nil, fmt.Errorf("check existing watchlist entry: %w", err)
	}

	now := s.now()
	entry := &domain.WatchlistEntry{
		ID:              uuid.NewString(),
		UserID:          userID,
		MovieID:         req.MovieID,
		TMDBMovieID:     movie.TMDBID,
		DateAdded:       now,
		Priority:        domain.PriorityMedium,
		Notes:           trimmedPtr(req.Notes),
		Status:          domain.StatusWantToWatch,
		UserRating:      req.UserRating,
		ReminderEnabled: req.ReminderEnabled,
		ReminderDate:    reminderAt,
		Tags:            cleanTags(req.Tags),
		IsPublic:        true,
	}
	if req.Priority != nil {
		entry.Priority = *req.Priority
	}
	if req.IsPublic != nil {
		entry.IsPublic = *req.IsPublic
	}
	if req.Status != nil {
		entry.SetStatus(*req.Status, now)
	}

	if err := s.watchlist.Create(ctx, entry); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Movie added to watchlist", slog.String("entryID", entry.ID), slog.String("movieID", entry.MovieID))
	return s.watchlist.GetByID(ctx, entry.ID)
}

// Update applies a partial update. Moving an entry to watched requires a rating,
// either in the request or already on record.
func (s *WatchlistService) Update(ctx context.Context, userID, entryID string, req domain.UpdateWatchlistRequest) (*domain.WatchlistEntry, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, domain.AsValidationError(err)
	}
	entry, err := s.ownedEntry(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}

	if req.Priority != nil {
		entry.Priority = *req.Priority
	}
	if req.Notes != nil {
		entry.Notes = trimmedPtr(req.Notes)
	}
	if req.UserRating != nil {
		entry.UserRating = req.UserRating
	}
	if req.Tags != nil {
		entry.Tags = cleanTags(req.Tags)
	}
	if req.IsPublic != nil {
		entry.IsPublic = *req.IsPublic
	}
	if req.ReminderEnabled != nil {
		entry.ReminderEnabled = *req.ReminderEnabled
	}
	if req.ReminderDate != nil {
		if entry.ReminderDate, err = reminderDate(req.ReminderDate); err != nil {
			return nil, err
		}
	}
	if req.Status != nil {
		if *req.Status == domain.StatusWatched && entry.UserRating == nil {
			return nil, domain.NewValidationError("userRating", "is required when status is watched")
		}
		entry.SetStatus(*req.Status, s.now())
	}

	if err := s.watchlist.Update(ctx, entry); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Watchlist entry updated", slog.String("entryID", entry.ID))
	return s.watchlist.GetByID(ctx, entry.ID)
}

// MarkWatched moves the entry to watched. An existing watched date is kept.
func (s *WatchlistService) MarkWatched(ctx context.Context, userID, entryID string, req domain.MarkWatchedRequest) (*domain.WatchlistEntry, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, domain.AsValidationError(err)
	}
	entry, err := s.ownedEntry(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}

	if req.Rating != nil {
		entry.UserRating = req.Rating
	}
	entry.SetStatus(domain.StatusWatched, s.now())

	if err := s.watchlist.Update(ctx, entry); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Movie marked as watched", slog.String("entryID", entry.ID))
	return s.watchlist.GetByID(ctx, entry.ID)
}

// Remove deletes one of the user's entries.
func (s *WatchlistService) Remove(ctx context.Context, userID, entryID string) error {
	entry, err := s.ownedEntry(ctx, userID, entryID)
	if err != nil {
		return err
	}
	if err := s.watchlist.Delete(ctx, entry.ID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Movie removed from watchlist", slog.String("entryID", entry.ID))
	return nil
}

// Check reports whether the user's watchlist holds the movie with the given TMDB id.
func (s *WatchlistService) Check(ctx context.Context, userID string, tmdbID int64) (domain.WatchlistCheck, error) {
	entry, err := s.watchlist.GetByUserAndTMDBID(ctx, userID, tmdbID)
	if errors.Is(err, store.ErrWatchlistEntryNotFound) {
		return domain.WatchlistCheck{}, nil
	}
	if err != nil {
		return domain.WatchlistCheck{}, err
	}
	return domain.WatchlistCheck{InWatchlist: true, Item: entry}, nil
}

// Stats counts the user's entries per status.
func (s *WatchlistService) Stats(ctx context.Context, userID string) (domain.WatchlistStats, error) {
	return s.watchlist.StatusCounts(ctx, userID)
}

// List returns ownerID's watchlist as seen by viewerID. Other viewers only see public entries.
func (s *WatchlistService) List(ctx context.Context, ownerID, viewerID string, filter WatchlistFilter, opts ListOptions) (Paged[*domain.WatchlistEntry], error) {
	page, sort, order, err := opts.resolve(watchlistListDefaults)
	if err != nil {
		return Paged[*domain.WatchlistEntry]{}, err
	}
	var fieldErrs []domain.FieldError
	if filter.Status != "" && !slices.Contains(domain.WatchStatuses, filter.Status) {
		fieldErrs = append(fieldErrs, domain.FieldError{Field: "status", Message: "must be one of: want_to_watch, watching, watched, dropped"})
	}
	switch filter.Priority {
	case "", domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh:
	default:
		fieldErrs = append(fieldErrs, domain.FieldError{Field: "priority", Message: "must be one of: low, medium, high"})
	}
	if len(fieldErrs) > 0 {
		return Paged[*domain.WatchlistEntry]{}, &domain.ValidationError{Errors: fieldErrs}
	}

	entries, total, err := s.watchlist.List(ctx, store.WatchlistListParams{
		UserID:     ownerID,
		Status:     filter.Status,
		Priority:   filter.Priority,
		PublicOnly: ownerID != viewerID,
		Sort:       sort,
		Order:      order,
		Page:       page,
	})
	if err != nil {
		return Paged[*domain.WatchlistEntry]{}, fmt.Errorf("list watchlist: %w", err)
	}
	return newPaged(entries, page, total), nil
}

// Popular ranks movies by how many watchlists want to watch them.
func (s *WatchlistService) Popular(ctx context.Context, limit int) ([]domain.PopularWatchlistMovie, error) {
	limit, err := rankLimit(limit, 10)
	if err != nil {
		return nil, err
	}
	counts, err := s.watchlist.Popular(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PopularWatchlistMovie, 0, len(counts))
	for _, c := range counts {
		movie, err := s.movies.GetByID(ctx, c.MovieID)
		if errors.Is(err, store.ErrMovieNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, domain.PopularWatchlistMovie{Movie: movie, WatchlistCount: c.Count})
	}
	return out, nil
}

// DueReminders returns every entry whose reminder has come due and that the user has
// not watched or dropped yet.
func (s *WatchlistService) DueReminders(ctx context.Context) ([]*domain.WatchlistEntry, error) {
	entries, err := s.watchlist.DueReminders(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("load due reminders: %w", err)
	}
	return entries, nil
}

func (s *WatchlistService) ownedEntry(ctx context.Context, userID, entryID string) (*domain.WatchlistEntry, error) {
	entry, err := s.watchlist.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.UserID != userID {
		s.logger.WarnContext(ctx, "Attempt to modify another user's watchlist entry", slog.String("entryID", entryID), slog.String("userID", userID))
		return nil, ErrForbidden
	}
	return entry, nil
}

// reminderDate parses an optional reminder date. The isodate rule has already vetted it,
// so a failure here is still reported as a validation error.
func reminderDate(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	t, err := domain.ParseDate(*raw)
	if err != nil {
		return nil, domain.NewValidationError("reminderDate", "must be an ISO-8601 date")
	}
	return &t, nil
}

func cleanTags(tags []string) pq.StringArray {
	out := pq.StringArray{}
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
