package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the storage provider.
	FieldProvider = "provider"
	// FieldEnvironment is the structured log field key for the runtime environment.
	FieldEnvironment = "environment"
)

// WithFields safely attaches the provided fields to the logger, defaulting
// to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// WithService attaches provider and environment, skipping blank values.
func WithService(logger *zap.Logger, provider, environment string) *zap.Logger {
	var fields []zap.Field
	if v := strings.TrimSpace(provider); v != "" {
		fields = append(fields, zap.String(FieldProvider, v))
	}
	if v := strings.TrimSpace(environment); v != "" {
		fields = append(fields, zap.String(FieldEnvironment, v))
	}
	return WithFields(logger, fields...)
}
