package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"VCRadar/internal/fingerprint"
)

// DefaultRetention is how long a fingerprint suppresses re-delivery.
const DefaultRetention = 7 * 24 * time.Hour

// Store keeps fingerprint -> last-seen timestamps backed by a flat JSON
// file of the form {"<hex>": <unix seconds as float>, ...}. The file is
// read once at open time and written back whole by Persist.
type Store struct {
	path      string
	retention time.Duration
	entries   map[fingerprint.Fingerprint]time.Time
	now       func() time.Time
	logger    *slog.Logger
}

// Open loads the store from path. A missing or unreadable file, or one
// with an unexpected shape, yields an empty store rather than an error.
// Entries older than the retention window are dropped during load.
func Open(path string, retention time.Duration, logger *slog.Logger) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	s := &Store{
		path:      path,
		retention: retention,
		entries:   map[fingerprint.Fingerprint]time.Time{},
		now:       time.Now,
		logger:    logger,
	}
	s.load()
	return s
}

func (s *Store) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.debug("history unreadable, starting empty", "path", s.path, "error", err)
		}
		return
	}

	var persisted map[string]float64
	if err := json.Unmarshal(raw, &persisted); err != nil {
		s.debug("history corrupt, starting empty", "path", s.path, "error", err)
		return
	}

	cutoff := s.now().Add(-s.retention)
	expired := 0
	for hex, stamp := range persisted {
		ts := time.Unix(0, int64(stamp*float64(time.Second)))
		if ts.Before(cutoff) {
			expired++
			continue
		}
		s.entries[fingerprint.Fingerprint(hex)] = ts
	}
	s.debug("history loaded", "entries", len(s.entries), "expired", expired)
}

// Seen reports whether the fingerprint is currently recorded.
func (s *Store) Seen(fp fingerprint.Fingerprint) bool {
	_, ok := s.entries[fp]
	return ok
}

// Mark records the fingerprint as seen now, overwriting any earlier stamp.
// The change is in-memory only until Persist is called.
func (s *Store) Mark(fp fingerprint.Fingerprint) {
	s.entries[fp] = s.now()
}

// Len returns the number of recorded fingerprints.
func (s *Store) Len() int {
	return len(s.entries)
}

// Persist writes the whole mapping to disk through a temp file and a
// rename, so a crash mid-write cannot corrupt the next load.
func (s *Store) Persist() error {
	persisted := make(map[string]float64, len(s.entries))
	for fp, ts := range s.entries {
		persisted[string(fp)] = float64(ts.UnixNano()) / float64(time.Second)
	}

	raw, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write history temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}

func (s *Store) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
