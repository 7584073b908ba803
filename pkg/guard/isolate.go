package guard

import (
	"context"

	"labelbus/internal/logger"
	"labelbus/pkg/models"
	"labelbus/pkg/stream"
)

// Isolate logs errors from r and reports success, so siblings registered
// after r still receive the message.
func Isolate(log logger.Logger, name string, r stream.Receiver) stream.Receiver {
	return func(ctx context.Context, msg *models.Message) error {
		if err := r(ctx, msg); err != nil {
			log.ErrorwCtx(ctx, "Receiver failed",
				"receiver", name,
				"message_id", msg.ID,
				"log_level", msg.LogLevel,
				"error", err,
			)
		}
		return nil
	}
}
