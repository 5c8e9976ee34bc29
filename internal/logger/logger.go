// Package logger owns the process-wide zap logger and the request-id
// plumbing that ties log lines to HTTP requests.
package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.Logger

type ctxKey string

const requestIDKey ctxKey = "request_id"

// Init builds the global logger. Production gets structured JSON on stdout;
// anything else gets the colored development console.
func Init(env string) {
	var cfg zap.Config

	switch env {
	case "production":
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "json"
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.MessageKey = "message"
		cfg.EncoderConfig.LevelKey = "level"
		cfg.EncoderConfig.CallerKey = "caller"
		cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.OutputPaths = []string{"stdout"}
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var err error
	log, err = cfg.Build(zap.AddCaller(), zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
}

// L returns the global logger, initializing it lazily from APP_ENV when Init
// was never called (tests, tooling).
func L() *zap.Logger {
	if log == nil {
		Init(os.Getenv("APP_ENV"))
	}
	return log
}

// Sync flushes buffered log entries.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFrom(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// FromCtx returns the global logger enriched with the request id carried in
// ctx, or the bare logger when there is none.
func FromCtx(ctx context.Context) *zap.Logger {
	reqID := RequestIDFrom(ctx)
	if reqID == "" {
		return L()
	}
	return L().With(zap.String("request_id", reqID))
}
