// Package observability provides gRPC interceptors and the metrics HTTP server.
package observability

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"voxguardian/internal/observability/metrics"
)

// UnaryServerInterceptor returns a gRPC unary interceptor that records the
// status code of every call and logs it. A panicking handler is answered
// with codes.Internal instead of taking the process down.
func UnaryServerInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("method", info.FullMethod).
					Bytes("stack", debug.Stack()).
					Msg("gRPC handler panicked")
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}

			code := status.Code(err)
			m.RecordGRPCRequest(info.FullMethod, code.String())

			evt := log.Info()
			switch code {
			case codes.OK:
			case codes.InvalidArgument, codes.NotFound, codes.Canceled, codes.DeadlineExceeded:
				evt = log.Warn().Err(err)
			default:
				evt = log.Error().Err(err)
			}
			evt.
				Str("method", info.FullMethod).
				Str("code", code.String()).
				Dur("duration", time.Since(start)).
				Msg("gRPC unary call")
		}()

		return handler(ctx, req)
	}
}
