// Package grpc exposes movie and user lookups to sibling services over gRPC.
package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"movie-app/internal/domain"
	"movie-app/internal/store"
)

// Server implements MovieInfoServer on top of the movie and user stores.
type Server struct {
	movies store.MovieStore
	users  store.UserStore
	logger *slog.Logger
}

func NewServer(movieStore store.MovieStore, userStore store.UserStore, logger *slog.Logger) *Server {
	return &Server{
		movies: movieStore,
		users:  userStore,
		logger: logger,
	}
}

// NewGRPCServer returns a grpc.Server with the movie info, health and reflection
// services registered.
func NewGRPCServer(srv *Server, logger *slog.Logger) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(recoveryInterceptor(logger), loggingInterceptor(logger)))
	RegisterMovieInfoServer(s, srv)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	reflection.Register(s)
	return s
}

func movieInfo(movie *domain.Movie) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":            movie.ID,
		"title":         movie.Title,
		"tmdbId":        movie.TMDBID,
		"averageRating": movie.AverageRating,
		"reviewCount":   movie.ReviewCount,
	})
}

// userInfo carries only public fields; e-mail and role stay in the HTTP API.
func userInfo(user *domain.User) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"isActive": user.IsActive,
		"joinDate": user.JoinDate.UTC().Format(time.RFC3339),
	})
}

func (s *Server) GetMovieInfo(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	movieID := req.GetValue()
	if movieID == "" {
		return nil, status.Error(codes.InvalidArgument, "movie id cannot be empty")
	}

	movie, err := s.movies.GetByID(ctx, movieID)
	if err != nil {
		if errors.Is(err, store.ErrMovieNotFound) {
			s.logger.WarnContext(ctx, "Movie not found for GetMovieInfo", slog.String("movieID", movieID))
			return nil, status.Errorf(codes.NotFound, "movie not found with ID %s", movieID)
		}
		s.logger.ErrorContext(ctx, "Failed to load movie for GetMovieInfo", slog.String("movieID", movieID), slog.String("error", err.Error()))
		return nil, status.Errorf(codes.Internal, "failed to retrieve movie details: %v", err)
	}

	info, err := movieInfo(movie)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode movie: %v", err)
	}
	return info, nil
}

func (s *Server) CheckMovieExists(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	movieID := req.GetValue()
	if movieID == "" {
		return nil, status.Error(codes.InvalidArgument, "movie id cannot be empty")
	}

	_, err := s.movies.GetByID(ctx, movieID)
	switch {
	case err == nil:
		return wrapperspb.Bool(true), nil
	case errors.Is(err, store.ErrMovieNotFound):
		return wrapperspb.Bool(false), nil
	default:
		s.logger.ErrorContext(ctx, "Failed to check movie existence", slog.String("movieID", movieID), slog.String("error", err.Error()))
		return nil, status.Errorf(codes.Internal, "failed to check movie existence: %v", err)
	}
}

func (s *Server) GetUserInfo(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	userID := req.GetValue()
	if userID == "" {
		return nil, status.Error(codes.InvalidArgument, "user id cannot be empty")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.logger.WarnContext(ctx, "User not found for GetUserInfo", slog.String("userID", userID))
			return nil, status.Errorf(codes.NotFound, "user not found with ID %s", userID)
		}
		s.logger.ErrorContext(ctx, "Failed to load user for GetUserInfo", slog.String("userID", userID), slog.String("error", err.Error()))
		return nil, status.Errorf(codes.Internal, "failed to retrieve user details: %v", err)
	}

	info, err := userInfo(user)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode user: %v", err)
	}
	return info, nil
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.DebugContext(ctx, "gRPC call",
			slog.String("method", info.FullMethod),
			slog.String("code", status.Code(err).String()),
			slog.Duration("duration", time.Since(start)))
		return resp, err
	}
}

func recoveryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "Panic in gRPC handler", slog.String("method", info.FullMethod), slog.Any("panic", rec))
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
