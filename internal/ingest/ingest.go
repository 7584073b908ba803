// Package ingest feeds newline-delimited JSON messages into a sender.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"labelbus/internal/logger"
	"labelbus/pkg/errors"
	"labelbus/pkg/models"
	"labelbus/pkg/stream"
	"labelbus/pkg/tracing"
)

const maxLineSize = 1 << 20

// Record is one input line. Level names a level of the vocabulary and is
// used when LogLevel is absent.
type Record struct {
	ID        string        `json:"id"`
	LogLevel  *int          `json:"log_level"`
	Level     string        `json:"level"`
	Labels    models.Labels `json:"labels"`
	Value     any           `json:"value"`
	Timestamp *time.Time    `json:"timestamp"`
}

// LevelLookup resolves a level name to its number.
type LevelLookup func(name string) (int, bool)

type Stats struct {
	Lines     int
	Sent      int
	Malformed int
	Failed    int
}

type Reader struct {
	sender stream.Sender
	levels LevelLookup
	log    logger.Logger
}

func NewReader(sender stream.Sender, levels LevelLookup, log logger.Logger) *Reader {
	return &Reader{sender: sender, levels: levels, log: log}
}

// Read sends one message per non-empty line of r until EOF or ctx is done.
// Malformed lines, lines longer than 1 MiB and failed sends are logged and
// skipped. Only a read error from r ends the loop early.
func (rd *Reader) Read(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats

	br := bufio.NewReaderSize(r, 64*1024)
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		raw, oversize, readErr := readLine(br, maxLineSize)
		line := bytes.TrimSpace(raw)
		if oversize || len(line) > 0 {
			stats.Lines++
			rd.handle(ctx, line, oversize, &stats)
		}

		if readErr == io.EOF {
			return stats, nil
		}
		if readErr != nil {
			return stats, fmt.Errorf("failed to read input: %w", readErr)
		}
	}
}

func (rd *Reader) handle(ctx context.Context, line []byte, oversize bool, stats *Stats) {
	if oversize {
		stats.Malformed++
		rd.log.WarnwCtx(ctx, "Skipping oversize input line", "line", stats.Lines, "max_bytes", maxLineSize)
		return
	}

	msg, err := rd.Decode(line)
	if err != nil {
		stats.Malformed++
		rd.log.WarnwCtx(ctx, "Skipping malformed input line", "line", stats.Lines, "error", err)
		return
	}

	msgCtx := tracing.ExtractTraceContext(ctx, msg.Labels)
	if err := rd.sender.Send(msgCtx, msg); err != nil {
		stats.Failed++
		rd.log.ErrorwCtx(msgCtx, "Failed to deliver message", "line", stats.Lines, "error", err)
		return
	}
	stats.Sent++
}

// readLine returns the next line without its terminator. A line longer than
// limit is consumed in full and reported as oversize with no content.
func readLine(br *bufio.Reader, limit int) ([]byte, bool, error) {
	var (
		buf      []byte
		oversize bool
	)
	for {
		chunk, isPrefix, err := br.ReadLine()
		if !oversize {
			if len(buf)+len(chunk) > limit {
				oversize, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if err != nil || !isPrefix {
			return buf, oversize, err
		}
	}
}

// Decode parses one JSON record into a message.
func (rd *Reader) Decode(data []byte) (*models.Message, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.ErrValidation.WithCause(err).WithMessage("invalid JSON record")
	}

	var level int
	switch {
	case rec.LogLevel != nil:
		level = *rec.LogLevel
	case rec.Level != "":
		n, ok := rd.levels(rec.Level)
		if !ok {
			return nil, errors.ErrUnknownLevel.WithMessage("unknown log level: " + rec.Level).WithDetail("level", rec.Level)
		}
		level = n
	default:
		return nil, errors.ErrValidation.WithMessage("record needs log_level or level")
	}

	b := models.NewMessageBuilder().
		WithID(rec.ID).
		WithLogLevel(level).
		WithLabels(rec.Labels).
		WithValue(rec.Value)
	if rec.Timestamp != nil {
		b.WithTimestamp(*rec.Timestamp)
	}
	return b.Build(), nil
}
