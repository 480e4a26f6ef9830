package services

import (
	"context"

	"go.uber.org/zap"

	"proposal-management-api/apperrors"
	"proposal-management-api/config"
	"proposal-management-api/repositories"
)

// persistentContext detaches ctx from request cancellation for work that
// outlives the handler (notification delivery).
func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}

func defaultStore(store repositories.Store) repositories.Store {
	if store == nil {
		return repositories.NewGormStore(nil)
	}
	return store
}

func defaultLogger(logger *zap.Logger, name string) *zap.Logger {
	if logger == nil {
		logger = config.Logger
	}
	return logger.Named(name)
}

// logUnexpected logs storage failures; the expected error kinds are returned
// to callers without noise.
func logUnexpected(logger *zap.Logger, err error, msg string, fields ...zap.Field) error {
	if err != nil && !apperrors.IsExpected(err) {
		logger.Error(msg, append(fields, zap.Error(err))...)
	}
	return err
}
