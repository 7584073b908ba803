// Package hub ties a root stream to message stamping, metrics and tracing.
// Applications construct a Hub and pass it to whatever produces or consumes
// messages; there is no process-wide instance.
package hub

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"labelbus/internal/logger"
	"labelbus/pkg/emitter"
	"labelbus/pkg/logging"
	"labelbus/pkg/metrics"
	"labelbus/pkg/models"
	"labelbus/pkg/stream"
	"labelbus/pkg/tracing"
)

type Option func(*Hub)

// WithClock replaces time.Now for timestamping.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		h.now = now
	}
}

// WithIDGenerator replaces the UUID generator for message IDs.
func WithIDGenerator(gen func() string) Option {
	return func(h *Hub) {
		h.newID = gen
	}
}

func WithLogger(log logger.Logger) Option {
	return func(h *Hub) {
		h.log = log
	}
}

// WithLevels sets the vocabulary of the logger returned by Logger.
func WithLevels(levels emitter.Levels) Option {
	return func(h *Hub) {
		h.levels = levels
	}
}

// WithLabels sets default labels of the logger returned by Logger.
func WithLabels(labels models.Labels) Option {
	return func(h *Hub) {
		h.labels = labels
	}
}

type Hub struct {
	root   *stream.Stream
	now    func() time.Time
	newID  func() string
	log    logger.Logger
	levels emitter.Levels
	labels models.Labels
	logger *emitter.Logger
}

func New(opts ...Option) *Hub {
	h := &Hub{
		root:   stream.New(),
		now:    time.Now,
		newID:  uuid.NewString,
		log:    logger.NopLogger(),
		levels: emitter.DefaultLevels,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = emitter.New(h, h.levels, h.labels, emitter.WithClock(h.now))
	return h
}

// Messages returns the root stream every sent message enters.
func (h *Hub) Messages() *stream.Stream {
	return h.root
}

// Logger returns a logger whose messages go through Send.
func (h *Hub) Logger() *emitter.Logger {
	return h.logger
}

// Send stamps msg with an ID and timestamp when they are missing and
// delivers it from the root stream. The caller's message is not modified:
// when stamping is needed a copy is stamped and sent, so receivers get that
// copy rather than the caller's pointer. All receivers still share one
// instance per Send. A message that already has both fields is sent as is.
func (h *Hub) Send(ctx context.Context, msg *models.Message) error {
	if msg == nil {
		return nil
	}

	if msg.ID == "" || !msg.HasTimestamp() {
		msg = msg.Clone()
		if msg.ID == "" {
			msg.ID = h.newID()
		}
		if !msg.HasTimestamp() {
			msg.Timestamp = h.now()
		}
	}

	ctx = logging.WithMessageID(ctx, msg.ID)
	ctx, span := tracing.StartMessageSpan(ctx, "hub.send", msg)
	defer span.End()

	metrics.IncMessagesSent(msg.LogLevel)

	if err := h.root.Send(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.log.DebugwCtx(ctx, "Send aborted", "log_level", msg.LogLevel, "error", err)
		return err
	}

	span.SetAttributes(attribute.Int("stream.receivers", h.root.ReceiverCount()))
	return nil
}
