package images

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"VCRadar/internal/ports"
)

// Browser renders the page in headless Chrome before looking for the same
// image candidates the Scraper checks. Needs a local Chrome/Chromium.
type Browser struct {
	timeout time.Duration
	logger  *slog.Logger
}

var _ ports.ImageFinder = (*Browser)(nil)

// NewBrowser builds the fallback finder; timeout bounds one full render.
func NewBrowser(timeout time.Duration, logger *slog.Logger) *Browser {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Browser{timeout: timeout, logger: logger}
}

// Find renders the page and returns the Open Graph image, or the first
// in-article image, or "".
func (b *Browser) Find(ctx context.Context, pageURL string) (string, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, b.timeout)
	defer cancel()

	var imageURL string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var ok bool
			if err := chromedp.AttributeValue(`meta[property="og:image"]`, "content", &imageURL, &ok, chromedp.AtLeast(0)).Do(ctx); err != nil {
				return err
			}
			if ok && imageURL != "" {
				return nil
			}
			return chromedp.AttributeValue(`article img`, "src", &imageURL, &ok, chromedp.AtLeast(0)).Do(ctx)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}

	if imageURL != "" {
		b.debug("browser found image", "page", pageURL, "image", imageURL)
	}
	return imageURL, nil
}

func (b *Browser) debug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}
