package ports

import (
	"context"

	"VCRadar/internal/domain"
)

// Source pulls candidate news items from one upstream feed. Implementations
// apply their own network timeouts and never panic past the workflow.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.NewsItem, error)
}

// Classifier assigns opportunity verdicts to a batch of items, returning
// them enriched. Malformed model output degrades affected items to
// non-opportunities instead of raising.
type Classifier interface {
	Classify(ctx context.Context, items []domain.NewsItem, style string) ([]domain.NewsItem, error)
}

// TextModel is the raw prompt-in, text-out boundary to the language model.
type TextModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Notifier delivers one rendered message (optionally with an image) to the
// outbound channel.
type Notifier interface {
	Deliver(ctx context.Context, item domain.NewsItem, message, imageURL string) error
}

// Runner drives repeated workflow cycles until the context ends or the
// consecutive-failure budget is exhausted.
type Runner interface {
	Run(ctx context.Context, job func(context.Context) error) error
}

// ImageFinder locates a representative image for an article page.
// An empty URL with nil error means "none found", which is not a failure.
type ImageFinder interface {
	Find(ctx context.Context, pageURL string) (string, error)
}
