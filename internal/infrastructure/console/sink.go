// Package console is the delivery sink used when Telegram credentials are
// absent: selected opportunities are narrated through the logger instead
// of being sent anywhere.
package console

import (
	"context"
	"log/slog"

	"VCRadar/internal/domain"
	"VCRadar/internal/ports"
)

// Sink logs each opportunity it is handed.
type Sink struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*Sink)(nil)

// NewSink wires the logger the opportunities are printed through.
func NewSink(logger *slog.Logger) *Sink {
	return &Sink{logger: logger}
}

// Deliver never fails; it records the opportunity and the fields an
// operator would want to eyeball.
func (s *Sink) Deliver(_ context.Context, item domain.NewsItem, _, imageURL string) error {
	args := []any{
		"title", item.Title,
		"source", item.Source,
		"link", item.Link,
	}
	if item.Analysis != nil {
		args = append(args,
			"type", item.Analysis.OpportunityType,
			"risk", item.Analysis.Risk,
			"explanation", item.Analysis.Explanation,
		)
	}
	if imageURL != "" {
		args = append(args, "image", imageURL)
	}
	s.logger.Info("opportunity (telegram credentials not set)", args...)
	return nil
}
