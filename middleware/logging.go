package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
)

// Logging returns middleware that logs message handling and its outcome.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, msg domain.Message, next Handler) error {
		logger.Debug("message dispatched",
			slog.String("message", msg.MessageName()),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("message handling failed",
				slog.String("message", msg.MessageName()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Debug("message handled",
				slog.String("message", msg.MessageName()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
