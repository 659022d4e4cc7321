package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor logs every RPC call: procedure, member ID, duration and any
// error code. Streams are logged once, when they end.
type LoggingInterceptor struct{}

var _ connect.Interceptor = LoggingInterceptor{}

func (LoggingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		logCall(req.Spec().Procedure, GetMemberID(ctx), start, err)
		return resp, err
	}
}

func (LoggingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (LoggingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		start := time.Now()
		err := next(ctx, conn)
		logCall(conn.Spec().Procedure, GetMemberID(ctx), start, err)
		return err
	}
}

func logCall(procedure, memberID string, start time.Time, err error) {
	duration := time.Since(start).Milliseconds()
	if err != nil {
		var connectErr *connect.Error
		if errors.As(err, &connectErr) {
			slog.Warn("RPC error",
				"procedure", procedure,
				"code", connectErr.Code(),
				"error", connectErr.Message(),
				"member_id", memberID,
				"duration_ms", duration,
			)
		} else {
			slog.Error("RPC error",
				"procedure", procedure,
				"error", err,
				"member_id", memberID,
				"duration_ms", duration,
			)
		}
		return
	}
	slog.Info("RPC ok",
		"procedure", procedure,
		"member_id", memberID,
		"duration_ms", duration,
	)
}
