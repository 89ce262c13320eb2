// Package blob records raw protocol data under a label.
package blob

import (
	"log/slog"
	"sync/atomic"
)

// Logger receives labeled raw data such as request bytes or response bodies.
// Implementations must not retain data after Log returns.
type Logger interface {
	Log(label string, data []byte)
}

type nop struct{}

func (nop) Log(string, []byte) {}

// Nop discards everything.
var Nop Logger = nop{}

// SlogLogger writes every blob as a debug record.
// Blobs longer than MaxLen are cut; MaxLen <= 0 keeps them whole.
type SlogLogger struct {
	logger *slog.Logger
	MaxLen int

	count atomic.Uint64
}

var _ Logger = (*SlogLogger)(nil)

func NewSlogLogger(logger *slog.Logger, maxLen int) *SlogLogger {
	return &SlogLogger{logger: logger, MaxLen: maxLen}
}

func (l *SlogLogger) Log(label string, data []byte) {
	l.count.Add(1)

	truncated := false
	if l.MaxLen > 0 && len(data) > l.MaxLen {
		data, truncated = data[:l.MaxLen], true
	}

	l.logger.Debug("blob",
		slog.String("label", label),
		slog.Int("size", len(data)),
		slog.Bool("truncated", truncated),
		slog.String("data", string(data)),
	)
}

// Count returns how many blobs were logged.
func (l *SlogLogger) Count() uint64 { return l.count.Load() }
