// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"codepay/internal/pkg/tracing"
)

// Init 初始化全局 zerolog Logger。
// 所有服务的 main 函数都应在启动时调用一次。
func Init(serviceName string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zlog.Logger = zerolog.New(os.Stderr).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Ctx 从 context 中取出请求级 Logger。
// 如果 context 中没有注入过 Logger，则回落到全局 Logger。
func Ctx(ctx context.Context) *zerolog.Logger {
	return zlog.Ctx(ctx)
}

// WithTraceID 基于全局 Logger 派生一个带 trace_id 字段的请求级 Logger，
// 并将其注入 context。HTTP 中间件在提取完追踪上下文后调用。
func WithTraceID(ctx context.Context) context.Context {
	traceID := tracing.GetTraceIDFromContext(ctx)
	l := zlog.With().Str("trace_id", traceID).Logger()
	return l.WithContext(ctx)
}
