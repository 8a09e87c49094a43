package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const defaultCallTimeout = 3 * time.Second

// MovieInfo is the decoded GetMovieInfo response.
type MovieInfo struct {
	ID            string
	Title         string
	TMDBID        int64
	AverageRating float64
	ReviewCount   int
}

// UserInfo is the decoded GetUserInfo response.
type UserInfo struct {
	ID       string
	Username string
	IsActive bool
	JoinDate time.Time
}

// MovieInfoClient calls MovieInfoService. Each call gets its own timeout.
type MovieInfoClient struct {
	cc      grpc.ClientConnInterface
	conn    *grpc.ClientConn
	logger  *slog.Logger
	timeout time.Duration
}

// Dial creates a plaintext client for addr. The connection is established lazily.
func Dial(addr string, logger *slog.Logger, opts ...grpc.DialOption) (*MovieInfoClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create movie info client for %s: %w", addr, err)
	}
	c := NewMovieInfoClient(conn, logger)
	c.conn = conn
	return c, nil
}

func NewMovieInfoClient(cc grpc.ClientConnInterface, logger *slog.Logger) *MovieInfoClient {
	return &MovieInfoClient{
		cc:      cc,
		logger:  logger,
		timeout: defaultCallTimeout,
	}
}

func (c *MovieInfoClient) CheckMovieExists(ctx context.Context, movieID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, checkMovieExistsMethod, wrapperspb.String(movieID), out); err != nil {
		c.logger.ErrorContext(ctx, "CheckMovieExists call failed",
			slog.String("movieID", movieID),
			slog.String("code", status.Code(err).String()),
			slog.String("error", err.Error()))
		return false, fmt.Errorf("check movie exists: %w", err)
	}
	return out.GetValue(), nil
}

// GetMovieInfo returns (nil, nil) when the movie does not exist.
func (c *MovieInfoClient) GetMovieInfo(ctx context.Context, movieID string) (*MovieInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getMovieInfoMethod, wrapperspb.String(movieID), out); err != nil {
		if status.Code(err) == codes.NotFound {
			c.logger.WarnContext(ctx, "Movie not found via gRPC", slog.String("movieID", movieID))
			return nil, nil
		}
		c.logger.ErrorContext(ctx, "GetMovieInfo call failed",
			slog.String("movieID", movieID),
			slog.String("code", status.Code(err).String()),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("get movie info: %w", err)
	}

	fields := out.GetFields()
	return &MovieInfo{
		ID:            fields["id"].GetStringValue(),
		Title:         fields["title"].GetStringValue(),
		TMDBID:        int64(fields["tmdbId"].GetNumberValue()),
		AverageRating: fields["averageRating"].GetNumberValue(),
		ReviewCount:   int(fields["reviewCount"].GetNumberValue()),
	}, nil
}

// GetUserInfo returns (nil, nil) when the user does not exist.
func (c *MovieInfoClient) GetUserInfo(ctx context.Context, userID string) (*UserInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getUserInfoMethod, wrapperspb.String(userID), out); err != nil {
		if status.Code(err) == codes.NotFound {
			c.logger.WarnContext(ctx, "User not found via gRPC", slog.String("userID", userID))
			return nil, nil
		}
		c.logger.ErrorContext(ctx, "GetUserInfo call failed",
			slog.String("userID", userID),
			slog.String("code", status.Code(err).String()),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("get user info: %w", err)
	}

	fields := out.GetFields()
	joined, err := time.Parse(time.RFC3339, fields["joinDate"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("get user info: invalid joinDate: %w", err)
	}
	return &UserInfo{
		ID:       fields["id"].GetStringValue(),
		Username: fields["username"].GetStringValue(),
		IsActive: fields["isActive"].GetBoolValue(),
		JoinDate: joined,
	}, nil
}

// Close closes the connection when the client was created by Dial.
func (c *MovieInfoClient) Close() error {
	if c.conn == nil {
		return nil
	}
	c.logger.Info("Closing movie info gRPC client connection")
	return c.conn.Close()
}
