package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"movie-app/internal/api"
	"movie-app/internal/cache"
	"movie-app/internal/config"
	"movie-app/internal/domain"
	grpcServer "movie-app/internal/grpc"
	"movie-app/internal/logging"
	"movie-app/internal/service"
	"movie-app/internal/store"
	"movie-app/internal/tmdb"
	"movie-app/pkg/auth"
)

type stores struct {
	movies    store.MovieStore
	reviews   store.ReviewStore
	watchlist store.WatchlistStore
	users     store.UserStore
}

// openStores returns the in-memory stores for memory:// and Postgres otherwise.
// The returned closer releases the database handle.
func openStores(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (stores, func(), error) {
	if cfg.InMemory() {
		logger.Warn("Using in-memory stores, data will not survive a restart")
		mem := store.NewMemoryStore()
		return stores{movies: mem.Movies, reviews: mem.Reviews, watchlist: mem.Watchlist, users: mem.Users}, func() {}, nil
	}

	db, err := store.Connect(ctx, cfg, logger)
	if err != nil {
		return stores{}, nil, err
	}
	closeDB := func() {
		logger.Info("Closing PostgreSQL database connection...")
		if err := db.Close(); err != nil {
			logger.Error("Failed to close PostgreSQL connection", slog.String("error", err.Error()))
		}
	}
	if err := store.Migrate(ctx, db, logger); err != nil {
		closeDB()
		return stores{}, nil, err
	}
	s, err := postgresStores(db, logger)
	if err != nil {
		closeDB()
		return stores{}, nil, err
	}
	return s, closeDB, nil
}

func postgresStores(db *sqlx.DB, logger *slog.Logger) (stores, error) {
	movies, err := store.NewPostgresMovieStore(db, logger)
	if err != nil {
		return stores{}, fmt.Errorf("movie store: %w", err)
	}
	reviews, err := store.NewPostgresReviewStore(db, logger)
	if err != nil {
		return stores{}, fmt.Errorf("review store: %w", err)
	}
	watchlist, err := store.NewPostgresWatchlistStore(db, logger)
	if err != nil {
		return stores{}, fmt.Errorf("watchlist store: %w", err)
	}
	users, err := store.NewPostgresUserStore(db, logger)
	if err != nil {
		return stores{}, fmt.Errorf("user store: %w", err)
	}
	return stores{movies: movies, reviews: reviews, watchlist: watchlist, users: users}, nil
}

func openCache(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (cache.Cache, func()) {
	if cfg.Addr == "" {
		logger.Info("REDIS_ADDR not set, movie list caching disabled")
		return cache.Nop{}, func() {}
	}
	rc, err := cache.NewRedis(ctx, cfg, logger)
	if err != nil {
		logger.Warn("Redis unavailable, movie list caching disabled", slog.String("error", err.Error()))
		return cache.Nop{}, func() {}
	}
	return rc, func() {
		if err := rc.Close(); err != nil {
			logger.Error("Failed to close Redis client", slog.String("error", err.Error()))
		}
	}
}

func main() {
	if err := run(); err != nil {
		slog.Error("movieapp exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser := logging.New(cfg.Log)
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	st, closeStores, err := openStores(ctx, cfg.DB, logger)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer closeStores()

	movieCache, closeCache := openCache(ctx, cfg.Redis, logger)
	defer closeCache()

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("token manager: %w", err)
	}

	tmdbClient := tmdb.NewClient(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, logger)
	if !tmdbClient.Configured() {
		logger.Warn("TMDB_API_KEY not set, TMDB sync endpoints will return 503")
	}

	validate := domain.NewValidator()
	handler := api.NewHandler(api.Services{
		Movies:    service.NewMovieService(st.movies, movieCache, tmdbClient, validate, logger, cfg.Redis.CacheTTL),
		Reviews:   service.NewReviewService(st.reviews, st.movies, movieCache, validate, logger),
		Watchlist: service.NewWatchlistService(st.watchlist, st.movies, validate, logger),
		Users:     service.NewUserService(st.users, st.reviews, st.watchlist, tokens, validate, logger),
	}, tokens, logger)
	router := api.NewRouter(handler, api.NewIPRateLimiter(ctx, cfg.Auth.RateLimitPerMinute, cfg.Auth.TrustProxyHeaders))

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen for gRPC on port %s: %w", cfg.GRPCPort, err)
	}
	grpcSrv := grpcServer.NewGRPCServer(grpcServer.NewServer(st.movies, st.users, logger), logger)
	go func() {
		logger.Info("gRPC server starting", slog.String("port", cfg.GRPCPort))
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("gRPC server Serve() failed", slog.String("error", err.Error()))
		}
	}()

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", slog.String("port", cfg.HTTPPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("Shutting down...", slog.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("HTTP server ListenAndServe() failed", slog.String("error", err.Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	grpcSrv.GracefulStop()
	logger.Info("gRPC server gracefully stopped.")
	return nil
}
