package metrics

import (
	"context"
	"io"
	"log/slog"
)

// JSONL writes one JSON line per event, reusing the slog JSON handler so
// metrics output matches the service's structured log format.
type JSONL struct {
	logger *slog.Logger
}

func NewJSONL(w io.Writer) *JSONL {
	if w == nil {
		w = io.Discard
	}
	return &JSONL{logger: slog.New(slog.NewJSONHandler(w, nil))}
}

func (o *JSONL) Record(ev Event) {
	attrs := []slog.Attr{
		slog.String("name", ev.Name),
		slog.Time("time", ev.Time),
		slog.Float64("value", ev.Value),
	}
	for k, v := range ev.Tags {
		attrs = append(attrs, slog.String(k, v))
	}
	o.logger.LogAttrs(context.Background(), slog.LevelInfo, "metric", attrs...)
}
