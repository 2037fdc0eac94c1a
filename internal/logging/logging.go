package logging

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the service logger. Development logs go to the console only;
// production logs are JSON on stdout and in a rotated app.log under logDir.
func New(env, logDir string) (*zap.Logger, error) {
	if env != "production" {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg.Build()
	}

	if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	fileCore := zapcore.NewCore(encoder,
		zapcore.AddSync(&lumberjack.Logger{
			Filename: filepath.Join(logDir, "app.log"), MaxSize: 100, MaxAge: 28, Compress: true,
		}),
		zap.InfoLevel,
	)
	stdoutCore := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zap.InfoLevel)

	return zap.New(zapcore.NewTee(fileCore, stdoutCore), zap.AddCaller()), nil
}

type ctxKey struct{}

// WithRequestID stores the request id so LogDuration can tag its entry.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// LogDuration lets you do: defer logging.LogDuration(ctx, logger, "FuncName")()
func LogDuration(ctx context.Context, logger *zap.Logger, name string) func() {
	start := time.Now()

	return func() {
		fields := []zap.Field{
			zap.String("func", name),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if id := RequestID(ctx); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		logger.Info("function timed", fields...)
	}
}
