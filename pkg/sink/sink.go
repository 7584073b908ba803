// Package sink provides stock receivers.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"labelbus/internal/logger"
	"labelbus/pkg/models"
	"labelbus/pkg/stream"
)

// Severity boundaries of the default level vocabulary.
const (
	levelInfo  = 30
	levelWarn  = 40
	levelError = 50
)

// Log writes each message to log, picking the zap level from the message
// level: below 30 debug, below 40 info, below 50 warn, otherwise error.
func Log(log logger.Logger) stream.Receiver {
	return func(ctx context.Context, msg *models.Message) error {
		fields := make([]interface{}, 0, 2*len(msg.Labels)+6)
		fields = append(fields, "log_level", msg.LogLevel)
		if msg.ID != "" {
			fields = append(fields, "message_id", msg.ID)
		}
		if msg.HasTimestamp() {
			fields = append(fields, "sent_at", msg.Timestamp)
		}
		for k, v := range msg.Labels {
			fields = append(fields, "label."+k, v)
		}

		text := fmt.Sprint(msg.Value)
		switch {
		case msg.LogLevel < levelInfo:
			log.DebugwCtx(ctx, text, fields...)
		case msg.LogLevel < levelWarn:
			log.InfowCtx(ctx, text, fields...)
		case msg.LogLevel < levelError:
			log.WarnwCtx(ctx, text, fields...)
		default:
			log.ErrorwCtx(ctx, text, fields...)
		}
		return nil
	}
}

// JSON writes one JSON object per message and line to w.
func JSON(w io.Writer) stream.Receiver {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return func(_ context.Context, msg *models.Message) error {
		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(msg); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
		return nil
	}
}

// Discard accepts and drops every message.
func Discard(context.Context, *models.Message) error {
	return nil
}
