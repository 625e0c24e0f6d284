package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"VCRadar/internal/config"
)

func rssDocument(items string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>VC Wire</title>
    <link>https://example.com</link>
    <description>startup news</description>
` + items + `
  </channel>
</rss>`
}

func TestFetchMapsEntries(t *testing.T) {
	t.Parallel()

	doc := rssDocument(`
    <item>
      <title>Acme raises $10M Series A</title>
      <link>https://example.com/acme?utm_source=rss</link>
      <description>Acme closed a round led by Example Ventures.</description>
      <pubDate>Mon, 02 Mar 2026 09:00:00 GMT</pubDate>
      <enclosure url="https://example.com/acme.jpg" type="image/jpeg" length="1234"/>
    </item>
    <item>
      <title>Beta launches out of stealth</title>
      <link>https://example.com/beta</link>
      <description>&lt;p&gt;&lt;img src="https://example.com/beta.png"/&gt;Beta is live.&lt;/p&gt;</description>
    </item>`)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); !strings.Contains(got, "VCNewsBot") {
			t.Errorf("unexpected user agent: %s", got)
		}
		_, _ = w.Write([]byte(doc))
	}))
	defer server.Close()

	source := NewRSSSource(config.FeedConfig{Name: "VC Wire", URL: server.URL}, server.Client(), nil)

	items, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.Source != "VC Wire" {
		t.Fatalf("unexpected source: %s", first.Source)
	}
	if first.Title != "Acme raises $10M Series A" {
		t.Fatalf("unexpected title: %s", first.Title)
	}
	if first.ImageURL != "https://example.com/acme.jpg" {
		t.Fatalf("expected enclosure image, got %q", first.ImageURL)
	}
	if first.Published == "" {
		t.Fatal("expected published timestamp to be carried")
	}

	second := items[1]
	if second.ImageURL != "https://example.com/beta.png" {
		t.Fatalf("expected summary image, got %q", second.ImageURL)
	}
}

func TestFetchLimitsToMostRecentEntries(t *testing.T) {
	t.Parallel()

	var entries strings.Builder
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&entries, `
    <item>
      <title>Story %d</title>
      <link>https://example.com/story/%d</link>
    </item>`, i, i)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(rssDocument(entries.String())))
	}))
	defer server.Close()

	source := NewRSSSource(config.FeedConfig{Name: "busy", URL: server.URL}, server.Client(), nil)

	items, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(items) != entryLimit {
		t.Fatalf("expected %d items, got %d", entryLimit, len(items))
	}
	if items[0].Title != "Story 0" {
		t.Fatalf("expected feed order preserved, got %s first", items[0].Title)
	}
}

func TestFetchMediaContentImage(t *testing.T) {
	t.Parallel()

	doc := rssDocument(`
    <item>
      <title>With media</title>
      <link>https://example.com/media</link>
      <media:content url="https://example.com/media.jpg" medium="image"/>
    </item>`)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(doc))
	}))
	defer server.Close()

	source := NewRSSSource(config.FeedConfig{Name: "media", URL: server.URL}, server.Client(), nil)

	items, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].ImageURL != "https://example.com/media.jpg" {
		t.Fatalf("expected media:content image, got %q", items[0].ImageURL)
	}
}

func TestFetchServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	source := NewRSSSource(config.FeedConfig{Name: "down", URL: server.URL}, server.Client(), nil)

	if _, err := source.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
