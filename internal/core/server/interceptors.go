package server

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/solatis/linewarden/internal/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "linewarden_grpc_requests_total",
	Help: "gRPC requests by method and status code.",
}, []string{"method", "code"})

// loggingInterceptor attaches a request logger to the context and logs the
// outcome of every call. It runs first so rejected signatures are logged too.
func loggingInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		reqLog := &logger.Logger{Logger: log.With().Str("method", info.FullMethod).Logger()}
		ctx = reqLog.WithContext(ctx)

		resp, err := handler(ctx, req)

		code := status.Code(err)
		requestsTotal.WithLabelValues(info.FullMethod, code.String()).Inc()

		ev := reqLog.Info()
		if err != nil {
			ev = reqLog.Warn().Err(err)
		}
		ev.Str("code", code.String()).Dur("duration", time.Since(start)).Msg("request")
		return resp, err
	}
}
