// Package emitter turns named severity levels into messages sent to a
// stream.Sender.
package emitter

import (
	"context"
	"sort"
	"sync"
	"time"

	"labelbus/pkg/errors"
	"labelbus/pkg/models"
	"labelbus/pkg/stream"
)

type Levels map[string]int

// DefaultLevels mirrors the console method names.
var DefaultLevels = Levels{
	"debug": 10,
	"log":   10,
	"info":  30,
	"warn":  40,
	"error": 50,
}

func (l Levels) Clone() Levels {
	out := make(Levels, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Names returns the level names sorted by number, then name.
func (l Levels) Names() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if l[names[i]] != l[names[j]] {
			return l[names[i]] < l[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// LogFunc sends value at a fixed level.
type LogFunc func(ctx context.Context, value any) error

type Option func(*Logger)

func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		l.now = now
	}
}

type Logger struct {
	sender stream.Sender
	now    func() time.Time

	mu     sync.RWMutex
	levels Levels
	labels models.Labels
}

// New returns a logger sending to sender. A nil levels map means
// DefaultLevels; labels are merged into every message.
func New(sender stream.Sender, levels Levels, labels models.Labels, opts ...Option) *Logger {
	if levels == nil {
		levels = DefaultLevels
	}
	l := &Logger{
		sender: sender,
		now:    time.Now,
		levels: levels.Clone(),
		labels: labels.Clone(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log sends value at the named level. Per-call labels override the logger's
// default labels.
func (l *Logger) Log(ctx context.Context, level string, value any, labels models.Labels) error {
	l.mu.RLock()
	number, ok := l.levels[level]
	applied := l.labels.Merge(labels)
	l.mu.RUnlock()

	if !ok {
		return errors.ErrUnknownLevel.WithMessage("unknown log level: " + level).WithDetail("level", level)
	}

	return l.send(ctx, number, applied, value)
}

func (l *Logger) Debug(ctx context.Context, value any, labels models.Labels) error {
	return l.Log(ctx, "debug", value, labels)
}

func (l *Logger) Info(ctx context.Context, value any, labels models.Labels) error {
	return l.Log(ctx, "info", value, labels)
}

func (l *Logger) Warn(ctx context.Context, value any, labels models.Labels) error {
	return l.Log(ctx, "warn", value, labels)
}

func (l *Logger) Error(ctx context.Context, value any, labels models.Labels) error {
	return l.Log(ctx, "error", value, labels)
}

// For returns a shortcut bound to a named level, resolved now.
func (l *Logger) For(level string) (LogFunc, error) {
	l.mu.RLock()
	_, ok := l.levels[level]
	l.mu.RUnlock()
	if !ok {
		return nil, errors.ErrUnknownLevel.WithMessage("unknown log level: " + level).WithDetail("level", level)
	}
	return func(ctx context.Context, value any) error {
		return l.Log(ctx, level, value, nil)
	}, nil
}

// LogFunc returns a function sending at a fixed numeric level with exactly
// the given labels; the logger's default labels are not applied.
func (l *Logger) LogFunc(level int, labels models.Labels) LogFunc {
	fixed := labels.Clone()
	return func(ctx context.Context, value any) error {
		return l.send(ctx, level, fixed.Clone(), value)
	}
}

func (l *Logger) send(ctx context.Context, level int, labels models.Labels, value any) error {
	msg := models.NewMessageBuilder().
		WithLogLevel(level).
		WithLabels(labels).
		WithValue(value).
		WithTimestamp(l.now()).
		Build()
	return l.sender.Send(ctx, msg)
}

// SetLevels replaces the level vocabulary.
func (l *Logger) SetLevels(levels Levels) {
	l.mu.Lock()
	l.levels = levels.Clone()
	l.mu.Unlock()
}

func (l *Logger) Levels() Levels {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.levels.Clone()
}

// Level returns the number for a level name.
func (l *Logger) Level(name string) (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n, ok := l.levels[name]
	return n, ok
}

func (l *Logger) SetLabels(labels models.Labels) {
	l.mu.Lock()
	l.labels = labels.Clone()
	l.mu.Unlock()
}

func (l *Logger) Labels() models.Labels {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.labels.Clone()
}
