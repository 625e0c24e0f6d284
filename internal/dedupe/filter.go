// Package dedupe decides whether a news item was already delivered, using
// two independent fingerprints: title+link catches exact re-posts, the
// normalized URL catches the same story syndicated through other feeds.
package dedupe

import (
	"VCRadar/internal/domain"
	"VCRadar/internal/fingerprint"
)

// History is the slice of the history store the filter needs.
type History interface {
	Seen(fingerprint.Fingerprint) bool
	Mark(fingerprint.Fingerprint)
}

// IsDuplicate reports whether either fingerprint of the item is already
// recorded. Either match alone is sufficient. An underivable URL
// fingerprint simply cannot contribute a match.
func IsDuplicate(item domain.NewsItem, h History) bool {
	if h.Seen(fingerprint.Content(item)) {
		return true
	}
	if fp, ok := fingerprint.URL(item); ok && h.Seen(fp) {
		return true
	}
	return false
}

// MarkProcessed records both fingerprints of the item. Callers must only
// invoke this for items actually handed to delivery; marking unsent items
// would permanently suppress legitimate future stories.
func MarkProcessed(item domain.NewsItem, h History) {
	h.Mark(fingerprint.Content(item))
	if fp, ok := fingerprint.URL(item); ok {
		h.Mark(fp)
	}
}

// FilterNew partitions items into never-seen survivors (relative order
// preserved) and a count of duplicates dropped.
func FilterNew(items []domain.NewsItem, h History) ([]domain.NewsItem, int) {
	fresh := make([]domain.NewsItem, 0, len(items))
	for _, item := range items {
		if !IsDuplicate(item, h) {
			fresh = append(fresh, item)
		}
	}
	return fresh, len(items) - len(fresh)
}
