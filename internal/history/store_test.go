package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VCRadar/internal/fingerprint"
)

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "sent_news_history.json")
}

func TestOpenMissingFile(t *testing.T) {
	t.Parallel()

	s := Open(tempPath(t), DefaultRetention, nil)
	assert.Equal(t, 0, s.Len())
}

func TestOpenCorruptFile(t *testing.T) {
	t.Parallel()

	path := tempPath(t)
	require.NoError(t, os.WriteFile(path, []byte("not json at all {"), 0o644))

	s := Open(path, DefaultRetention, nil)
	assert.Equal(t, 0, s.Len())
}

func TestOpenUnexpectedShape(t *testing.T) {
	t.Parallel()

	path := tempPath(t)
	require.NoError(t, os.WriteFile(path, []byte(`["a", "b"]`), 0o644))

	s := Open(path, DefaultRetention, nil)
	assert.Equal(t, 0, s.Len())
}

func TestOpenDropsExpiredEntries(t *testing.T) {
	t.Parallel()

	now := time.Now()
	persisted := map[string]float64{
		"fresh": float64(now.Add(-time.Hour).UnixNano()) / float64(time.Second),
		"stale": float64(now.Add(-8 * 24 * time.Hour).UnixNano()) / float64(time.Second),
	}
	raw, err := json.Marshal(persisted)
	require.NoError(t, err)

	path := tempPath(t)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	s := Open(path, DefaultRetention, nil)
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Seen(fingerprint.Fingerprint("fresh")))
	assert.False(t, s.Seen(fingerprint.Fingerprint("stale")))
}

func TestMarkAndPersistRoundTrip(t *testing.T) {
	t.Parallel()

	path := tempPath(t)

	s := Open(path, DefaultRetention, nil)
	s.Mark(fingerprint.Fingerprint("abc123"))
	s.Mark(fingerprint.Fingerprint("def456"))
	require.NoError(t, s.Persist())

	// Temp file must not linger after a successful rename.
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	reloaded := Open(path, DefaultRetention, nil)
	assert.True(t, reloaded.Seen(fingerprint.Fingerprint("abc123")))
	assert.True(t, reloaded.Seen(fingerprint.Fingerprint("def456")))
	assert.Equal(t, 2, reloaded.Len())
}

func TestMarkLatestWriteWins(t *testing.T) {
	t.Parallel()

	s := Open(tempPath(t), DefaultRetention, nil)

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	s.now = func() time.Time { return first }
	s.Mark(fingerprint.Fingerprint("abc"))
	s.now = func() time.Time { return second }
	s.Mark(fingerprint.Fingerprint("abc"))

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, second, s.entries[fingerprint.Fingerprint("abc")])
}

func TestPersistedFormatIsHumanInspectable(t *testing.T) {
	t.Parallel()

	path := tempPath(t)
	s := Open(path, DefaultRetention, nil)
	s.Mark(fingerprint.Fingerprint("abc123"))
	require.NoError(t, s.Persist())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var persisted map[string]float64
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Contains(t, persisted, "abc123")
	assert.Greater(t, persisted["abc123"], float64(0))
}
