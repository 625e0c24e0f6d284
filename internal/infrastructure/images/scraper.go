// Package images locates a representative image for an article page:
// a plain HTTP scrape of the page metadata first, then an optional
// headless-browser render for pages that only populate it client-side.
package images

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"VCRadar/internal/ports"
)

// Scraper fetches the page over HTTP and inspects Open Graph, Twitter
// card, and in-article image tags.
type Scraper struct {
	client *http.Client
	logger *slog.Logger
}

var _ ports.ImageFinder = (*Scraper)(nil)

// NewScraper wires an HTTP client; a nil client gets a 5s timeout default.
func NewScraper(client *http.Client, logger *slog.Logger) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Scraper{client: client, logger: logger}
}

// Find returns the first image URL discovered, or "" when the page has
// none that the heuristics recognize.
func (s *Scraper) Find(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; VCNewsBot/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	return extractFromDocument(doc, pageURL), nil
}

func extractFromDocument(doc *goquery.Document, pageURL string) string {
	if content, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok && content != "" {
		return content
	}
	if content, ok := doc.Find(`meta[name="twitter:image"]`).First().Attr("content"); ok && content != "" {
		return content
	}
	if src, ok := doc.Find("article img").First().Attr("src"); ok && src != "" {
		return resolveImageURL(pageURL, src)
	}
	return ""
}

// resolveImageURL absolutizes protocol-relative and root-relative image
// sources against the article page URL.
func resolveImageURL(pageURL, imgURL string) string {
	if strings.HasPrefix(imgURL, "//") {
		return "https:" + imgURL
	}
	if strings.HasPrefix(imgURL, "/") {
		parsed, err := url.Parse(pageURL)
		if err != nil {
			return imgURL
		}
		return fmt.Sprintf("%s://%s%s", parsed.Scheme, parsed.Host, imgURL)
	}
	return imgURL
}
