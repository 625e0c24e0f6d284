package images

import (
	"context"
	"log/slog"

	"VCRadar/internal/ports"
)

// Chain tries finders in order, treating a finder error as "nothing found
// here" and moving on. Image enrichment is strictly best-effort.
type Chain struct {
	finders []ports.ImageFinder
	logger  *slog.Logger
}

var _ ports.ImageFinder = (*Chain)(nil)

// NewChain composes finders; typically the HTTP scraper first, the
// headless browser last.
func NewChain(logger *slog.Logger, finders ...ports.ImageFinder) *Chain {
	return &Chain{finders: finders, logger: logger}
}

// Find returns the first non-empty result, or "" when every finder came
// up empty or failed.
func (c *Chain) Find(ctx context.Context, pageURL string) (string, error) {
	for _, finder := range c.finders {
		imageURL, err := finder.Find(ctx, pageURL)
		if err != nil {
			if c.logger != nil {
				c.logger.Debug("image finder failed", "page", pageURL, "error", err)
			}
			continue
		}
		if imageURL != "" {
			return imageURL, nil
		}
	}
	return "", nil
}
