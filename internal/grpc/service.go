package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified name of the movie info service. Requests and
// responses are protobuf well-known types, so no generated code is needed.
const ServiceName = "movieapp.v1.MovieInfoService"

const (
	checkMovieExistsMethod = "/" + ServiceName + "/CheckMovieExists"
	getMovieInfoMethod     = "/" + ServiceName + "/GetMovieInfo"
	getUserInfoMethod      = "/" + ServiceName + "/GetUserInfo"
)

// MovieInfoServer is implemented by Server.
type MovieInfoServer interface {
	// CheckMovieExists takes a movie id and reports whether the movie exists.
	CheckMovieExists(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	// GetMovieInfo takes a movie id and returns {id, title, tmdbId, averageRating, reviewCount}.
	GetMovieInfo(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	// GetUserInfo takes a user id and returns {id, username, isActive, joinDate}.
	GetUserInfo(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

var movieInfoServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MovieInfoServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckMovieExists", Handler: checkMovieExistsHandler},
		{MethodName: "GetMovieInfo", Handler: getMovieInfoHandler},
		{MethodName: "GetUserInfo", Handler: getUserInfoHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "movieapp/v1/movie_info.proto",
}

// RegisterMovieInfoServer registers srv on s.
func RegisterMovieInfoServer(s grpc.ServiceRegistrar, srv MovieInfoServer) {
	s.RegisterService(&movieInfoServiceDesc, srv)
}

func checkMovieExistsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MovieInfoServer).CheckMovieExists(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: checkMovieExistsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MovieInfoServer).CheckMovieExists(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getMovieInfoHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MovieInfoServer).GetMovieInfo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getMovieInfoMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MovieInfoServer).GetMovieInfo(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getUserInfoHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MovieInfoServer).GetUserInfo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getUserInfoMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MovieInfoServer).GetUserInfo(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}
