package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sourcegraph/conc/pool"

	"movie-app/internal/cache"
	"movie-app/internal/domain"
	"movie-app/internal/rating"
	"movie-app/internal/store"
	"movie-app/internal/tmdb"
)

const (
	minReleaseYear = 1900
	maxReleaseYear = 2100

	// MaxSyncPages bounds one popular-movies sync run.
	MaxSyncPages       = 5
	syncConcurrency    = 4
	defaultRankedLimit = 20
)

// MetadataClient fetches movie metadata from TMDB.
type MetadataClient interface {
	Configured() bool
	GetMovie(ctx context.Context, tmdbID int64) (*tmdb.MovieDetail, error)
	DiscoverPopular(ctx context.Context, page int) (*tmdb.DiscoverResponse, error)
}

// MovieFilter narrows the catalogue listing.
type MovieFilter struct {
	Genre  string
	Year   int
	Search string
}

// SyncResult reports a popular-movies sync run.
type SyncResult struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

type MovieService struct {
	movies   store.MovieStore
	cache    cache.Cache
	tmdb     MetadataClient
	validate *validator.Validate
	logger   *slog.Logger
	cacheTTL time.Duration
}

func NewMovieService(movies store.MovieStore, c cache.Cache, metadata MetadataClient, v *validator.Validate, logger *slog.Logger, cacheTTL time.Duration) *MovieService {
	return &MovieService{
		movies:   movies,
		cache:    c,
		tmdb:     metadata,
		validate: v,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// List pages through the catalog with optional genre, year and title filters.
func (s *MovieService) List(ctx context.Context, filter MovieFilter, opts ListOptions) (Paged[*domain.Movie], error) {
	page, sort, order, err := opts.resolve(movieListDefaults)
	if err != nil {
		return Paged[*domain.Movie]{}, err
	}
	if filter.Year != 0 && (filter.Year < minReleaseYear || filter.Year > maxReleaseYear) {
		return Paged[*domain.Movie]{}, domain.NewValidationError("year", fmt.Sprintf("must be between %d and %d", minReleaseYear, maxReleaseYear))
	}

	movies, total, err := s.movies.List(ctx, store.MovieListParams{
		Genre:  filter.Genre,
		Year:   filter.Year,
		Search: filter.Search,
		Sort:   sort,
		Order:  order,
		Page:   page,
	})
	if err != nil {
		return Paged[*domain.Movie]{}, fmt.Errorf("list movies: %w", err)
	}
	return newPaged(movies, page, total), nil
}

// Trending lists the most popular movies. Results are cached until a rating or
// catalog change invalidates them.
func (s *MovieService) Trending(ctx context.Context, limit int) ([]*domain.Movie, error) {
	limit, err := rankLimit(limit, defaultRankedLimit)
	if err != nil {
		return nil, err
	}
	return s.cached(ctx, fmt.Sprintf("%s:%d", cache.TrendingKey, limit), func() ([]*domain.Movie, error) {
		return s.movies.Trending(ctx, limit)
	})
}

// TopRated lists movies with at least rating.TopRatedMinReviews approved reviews.
func (s *MovieService) TopRated(ctx context.Context, limit int) ([]*domain.Movie, error) {
	limit, err := rankLimit(limit, defaultRankedLimit)
	if err != nil {
		return nil, err
	}
	return s.cached(ctx, fmt.Sprintf("%s:%d", cache.TopRatedKey, limit), func() ([]*domain.Movie, error) {
		return s.movies.TopRated(ctx, rating.TopRatedMinReviews, limit)
	})
}

// cached is cache-aside: cache failures are logged and the store answers instead.
func (s *MovieService) cached(ctx context.Context, key string, load func() ([]*domain.Movie, error)) ([]*domain.Movie, error) {
	var movies []*domain.Movie
	hit, err := s.cache.Get(ctx, key, &movies)
	if err != nil {
		s.logger.WarnContext(ctx, "Cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if hit {
		return movies, nil
	}

	movies, err = load()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if err := s.cache.Set(ctx, key, movies, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "Cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return movies, nil
}

func (s *MovieService) invalidate(ctx context.Context) {
	if err := s.cache.DeletePrefix(ctx, cache.MoviesPrefix); err != nil {
		s.logger.WarnContext(ctx, "Failed to invalidate movie cache", slog.String("error", err.Error()))
	}
}

func (s *MovieService) Get(ctx context.Context, id string) (*domain.Movie, error) {
	return s.movies.GetByID(ctx, id)
}

// GetByTMDBID treats non-positive ids as unknown movies.
func (s *MovieService) GetByTMDBID(ctx context.Context, tmdbID int64) (*domain.Movie, error) {
	if tmdbID <= 0 {
		return nil, store.ErrMovieNotFound
	}
	return s.movies.GetByTMDBID(ctx, tmdbID)
}

// Upsert creates the movie or updates the one with the same TMDB id.
func (s *MovieService) Upsert(ctx context.Context, req domain.UpsertMovieRequest) (*domain.Movie, bool, error) {
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, false, domain.AsValidationError(err)
	}
	movie, err := req.ToMovie()
	if err != nil {
		return nil, false, domain.NewValidationError("releaseDate", "must be an ISO-8601 date")
	}
	return s.save(ctx, movie)
}

func (s *MovieService) save(ctx context.Context, movie *domain.Movie) (*domain.Movie, bool, error) {
	created, err := s.movies.Upsert(ctx, movie)
	if err != nil {
		return nil, false, fmt.Errorf("upsert movie %d: %w", movie.TMDBID, err)
	}
	s.invalidate(ctx)
	s.logger.InfoContext(ctx, "Movie saved", slog.String("movieID", movie.ID), slog.Int64("tmdbID", movie.TMDBID), slog.Bool("created", created))
	return movie, created, nil
}

// SyncFromTMDB fetches one movie with its credits from TMDB and upserts it.
func (s *MovieService) SyncFromTMDB(ctx context.Context, tmdbID int64) (*domain.Movie, bool, error) {
	if tmdbID <= 0 {
		return nil, false, domain.NewValidationError("tmdbId", "must be at least 1")
	}
	detail, err := s.tmdb.GetMovie(ctx, tmdbID)
	if err != nil {
		return nil, false, err
	}
	return s.save(ctx, detail.ToMovie())
}

// SyncPopular walks the first pages of TMDB's popular movies and upserts each of them.
// Details are fetched concurrently. A movie that fails is logged and counted, never fatal.
func (s *MovieService) SyncPopular(ctx context.Context, pages int) (SyncResult, error) {
	if pages == 0 {
		pages = 1
	}
	if pages < 1 || pages > MaxSyncPages {
		return SyncResult{}, domain.NewValidationError("pages", fmt.Sprintf("must be between 1 and %d", MaxSyncPages))
	}
	if !s.tmdb.Configured() {
		return SyncResult{}, tmdb.ErrNotConfigured
	}

	var ids []int64
	seen := make(map[int64]bool)
	for page := 1; page <= pages; page++ {
		res, err := s.tmdb.DiscoverPopular(ctx, page)
		if err != nil {
			if page == 1 {
				return SyncResult{}, fmt.Errorf("discover popular movies: %w", err)
			}
			s.logger.WarnContext(ctx, "Stopping popular sync early", slog.Int("page", page), slog.String("error", err.Error()))
			break
		}
		for _, item := range res.Results {
			if !seen[item.ID] {
				seen[item.ID] = true
				ids = append(ids, item.ID)
			}
		}
		if page >= res.TotalPages {
			break
		}
	}

	p := pool.NewWithResults[*domain.Movie]().WithContext(ctx).WithMaxGoroutines(syncConcurrency)
	for _, id := range ids {
		id := id
		p.Go(func(ctx context.Context) (*domain.Movie, error) {
			detail, err := s.tmdb.GetMovie(ctx, id)
			if err != nil {
				s.logger.WarnContext(ctx, "Failed to fetch movie from TMDB", slog.Int64("tmdbID", id), slog.String("error", err.Error()))
				return nil, err
			}
			movie := detail.ToMovie()
			if _, err := s.movies.Upsert(ctx, movie); err != nil {
				s.logger.ErrorContext(ctx, "Failed to upsert synced movie", slog.Int64("tmdbID", id), slog.String("error", err.Error()))
				return nil, err
			}
			return movie, nil
		})
	}
	synced, _ := p.Wait()
	if err := ctx.Err(); err != nil {
		return SyncResult{}, err
	}

	result := SyncResult{Synced: len(synced), Failed: len(ids) - len(synced)}
	if result.Synced > 0 {
		s.invalidate(ctx)
	}
	s.logger.InfoContext(ctx, "Popular movie sync finished", slog.Int("synced", result.Synced), slog.Int("failed", result.Failed))
	return result, nil
}
