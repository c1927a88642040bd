// Package progress reports migration progress to an interested observer.
// The engine publishes one event per phase step; sinks decide where it goes.
package progress

import "go.uber.org/zap"

// Sink receives progress events. Count and total describe position within the
// current phase; total is zero for untracked phases.
type Sink interface {
	Publish(event, message string, count, total int)
}

// LogSink writes progress events to the structured log.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink creates a sink over the given logger.
func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("progress")}
}

func (s *LogSink) Publish(event, message string, count, total int) {
	s.log.Info(message,
		zap.String("event", event),
		zap.Int("count", count),
		zap.Int("total", total))
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Publish(string, string, int, int) {}
