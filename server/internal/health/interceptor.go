package health

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// LogInterceptor returns a gRPC UnaryServerInterceptor that logs every call
// with its method, status code, duration and the caller's user-agent.
//
// Successful calls and NotFound (an unknown health service) log at debug
// level; any other failure logs at warn.
func LogInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		attrs := []any{
			"method", info.FullMethod,
			"code", code.String(),
			"took", time.Since(start),
		}
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ua := md.Get("user-agent"); len(ua) > 0 {
				attrs = append(attrs, "user_agent", ua[0])
			}
		}

		switch code {
		case codes.OK, codes.NotFound:
			slog.Debug("health: grpc call", attrs...)
		default:
			slog.Warn("health: grpc call failed", append(attrs, "err", err)...)
		}
		return resp, err
	}
}
