package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"VCRadar/internal/config"
	"VCRadar/internal/domain"
	"VCRadar/internal/ports"
)

// entryLimit caps how many of the most recent entries are taken per feed.
const entryLimit = 10

// RSSSource fetches one configured RSS/Atom feed and maps its entries to
// news items.
type RSSSource struct {
	name   string
	url    string
	client *http.Client
	parser *gofeed.Parser
	logger *slog.Logger
}

var _ ports.Source = (*RSSSource)(nil)

// NewRSSSource wires an HTTP client; a nil client gets a 15s timeout default.
func NewRSSSource(cfg config.FeedConfig, client *http.Client, logger *slog.Logger) *RSSSource {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &RSSSource{
		name:   cfg.Name,
		url:    cfg.URL,
		client: client,
		parser: gofeed.NewParser(),
		logger: logger,
	}
}

// Name identifies the source in logs and on produced items.
func (s *RSSSource) Name() string {
	return s.name
}

// Fetch downloads and parses the feed, returning at most the ten most
// recent entries in feed order.
func (s *RSSSource) Fetch(ctx context.Context) ([]domain.NewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; VCNewsBot/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s returned %s", s.name, resp.Status)
	}

	feed, err := s.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	if len(feed.Items) == 0 {
		s.debug("feed produced no entries", "source", s.name)
		return nil, nil
	}

	entries := feed.Items
	if len(entries) > entryLimit {
		entries = entries[:entryLimit]
	}

	items := make([]domain.NewsItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, domain.NewsItem{
			Source:    s.name,
			Title:     entry.Title,
			Link:      entry.Link,
			Summary:   entry.Description,
			ImageURL:  extractImage(entry),
			Published: entry.Published,
		})
	}

	s.debug("feed fetched", "source", s.name, "items", len(items))
	return items, nil
}

// extractImage pulls an image URL from the entry, trying media extensions,
// the feed image element, image-typed enclosures, and finally the first
// <img> inside the summary HTML.
func extractImage(entry *gofeed.Item) string {
	if media, ok := entry.Extensions["media"]; ok {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ext := range media[key] {
				if url := ext.Attrs["url"]; url != "" {
					return url
				}
			}
		}
	}

	if entry.Image != nil && entry.Image.URL != "" {
		return entry.Image.URL
	}

	for _, enclosure := range entry.Enclosures {
		if strings.HasPrefix(enclosure.Type, "image/") && enclosure.URL != "" {
			return enclosure.URL
		}
	}

	if entry.Description != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(entry.Description))
		if err == nil {
			if src, ok := doc.Find("img").First().Attr("src"); ok {
				return src
			}
		}
	}

	return ""
}

func (s *RSSSource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
