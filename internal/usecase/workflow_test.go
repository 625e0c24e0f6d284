package usecase

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VCRadar/internal/config"
	"VCRadar/internal/domain"
	"VCRadar/internal/fingerprint"
	"VCRadar/internal/ports"
	"VCRadar/internal/render"
	"VCRadar/internal/resilience"
)

type fakeSource struct {
	name  string
	items []domain.NewsItem
	err   error
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(context.Context) ([]domain.NewsItem, error) {
	f.calls++
	return f.items, f.err
}

type fakeClassifier struct {
	calls int
	err   error
	boom  bool
}

func (f *fakeClassifier) Classify(_ context.Context, items []domain.NewsItem, _ string) ([]domain.NewsItem, error) {
	f.calls++
	if f.boom {
		panic("model adapter broke an invariant")
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.NewsItem, len(items))
	for i, item := range items {
		item.IsOpportunity = true
		item.Analysis = &domain.Verdict{OpportunityType: "funding round", Risk: domain.RiskLow, Explanation: "raised a round"}
		out[i] = item
	}
	return out, nil
}

type fakeNotifier struct {
	attempted []domain.NewsItem
	failFor   map[string]bool
}

func (f *fakeNotifier) Deliver(_ context.Context, item domain.NewsItem, _, _ string) error {
	f.attempted = append(f.attempted, item)
	if f.failFor[item.Title] {
		return errors.New("telegram unreachable")
	}
	return nil
}

type fakeHistory struct {
	marks     map[fingerprint.Fingerprint]bool
	persisted int
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{marks: map[fingerprint.Fingerprint]bool{}}
}

func (f *fakeHistory) Seen(fp fingerprint.Fingerprint) bool { return f.marks[fp] }
func (f *fakeHistory) Mark(fp fingerprint.Fingerprint)      { f.marks[fp] = true }
func (f *fakeHistory) Persist() error                       { f.persisted++; return nil }

func stubPause(t *testing.T) {
	t.Helper()
	original := pause
	pause = func(context.Context, time.Duration) {}
	t.Cleanup(func() { pause = original })
}

func testVariants() *render.Renderer {
	return render.New(map[string]config.Variant{
		config.DefaultStyle: {
			Prompt:   "Analyze:\n{{.Content}}",
			Template: "{{.Emoji}} {{.Title}}\n{{.Link}}",
			Emoji:    "🚀",
		},
	})
}

func newsItem(title string) domain.NewsItem {
	return domain.NewsItem{Source: "VC Wire", Title: title, Link: "https://example.com/" + title}
}

func fixedClock(hour int) func() time.Time {
	return func() time.Time {
		return time.Date(2024, time.March, 5, hour, 0, 0, 0, time.UTC)
	}
}

func testWorkflow(deps WorkflowDeps) *Workflow {
	if deps.Renderer == nil {
		deps.Renderer = testVariants()
	}
	if deps.Now == nil {
		deps.Now = fixedClock(12)
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(1))
	}
	w := NewWorkflow(deps)
	w.classifierRetry = resilience.RetryPolicy{MaxAttempts: 2, InitialDelay: 0, BackoffFactor: 1}
	return w
}

func TestRunDeliversAndRecordsSingleOpportunity(t *testing.T) {
	stubPause(t)
	item := newsItem("Acme raises $20M Series A")
	source := &fakeSource{name: "vc-wire", items: []domain.NewsItem{item}}
	notifier := &fakeNotifier{}
	hist := newFakeHistory()

	w := testWorkflow(WorkflowDeps{
		Sources:    []ports.Source{source},
		Classifier: &fakeClassifier{},
		Notifier:   notifier,
		History:    hist,
		QuietHours: config.QuietHours{StartHour: 22, EndHour: 7},
	})

	require.NoError(t, w.Run(context.Background()))

	require.Len(t, notifier.attempted, 1)
	assert.True(t, hist.Seen(fingerprint.Content(item)))
	urlFP, ok := fingerprint.URL(item)
	require.True(t, ok)
	assert.True(t, hist.Seen(urlFP))
	assert.Equal(t, 1, hist.persisted)
}

func TestRunQuietHoursTouchesNothing(t *testing.T) {
	source := &fakeSource{name: "vc-wire", items: []domain.NewsItem{newsItem("late news")}}
	hist := newFakeHistory()

	w := testWorkflow(WorkflowDeps{
		Sources:    []ports.Source{source},
		Classifier: &fakeClassifier{},
		Notifier:   &fakeNotifier{},
		History:    hist,
		QuietHours: config.QuietHours{StartHour: 22, EndHour: 7},
		Now:        fixedClock(23),
	})

	require.NoError(t, w.Run(context.Background()))

	assert.Zero(t, source.calls)
	assert.Empty(t, hist.marks)
	assert.Zero(t, hist.persisted)
}

func TestRunAllDuplicatesEndsEarly(t *testing.T) {
	item := newsItem("already sent")
	hist := newFakeHistory()
	hist.Mark(fingerprint.Content(item))
	classifier := &fakeClassifier{}

	w := testWorkflow(WorkflowDeps{
		Sources:    []ports.Source{&fakeSource{name: "vc-wire", items: []domain.NewsItem{item}}},
		Classifier: classifier,
		Notifier:   &fakeNotifier{},
		History:    hist,
	})

	require.NoError(t, w.Run(context.Background()))

	assert.Zero(t, classifier.calls)
	assert.Zero(t, hist.persisted)
}

func TestRunSourceFailureIsIsolated(t *testing.T) {
	stubPause(t)
	dead := &fakeSource{name: "dead-feed", err: errors.New("connection refused")}
	alive := &fakeSource{name: "vc-wire", items: []domain.NewsItem{newsItem("survivor story")}}
	notifier := &fakeNotifier{}

	w := testWorkflow(WorkflowDeps{
		Sources:    []ports.Source{dead, alive},
		Classifier: &fakeClassifier{},
		Notifier:   notifier,
		History:    newFakeHistory(),
	})

	require.NoError(t, w.Run(context.Background()))
	require.Len(t, notifier.attempted, 1)
	assert.Equal(t, "survivor story", notifier.attempted[0].Title)
}

func TestRunDeliveryFailureStillMarksItem(t *testing.T) {
	stubPause(t)
	items := []domain.NewsItem{newsItem("flaky story"), newsItem("smooth story")}
	notifier := &fakeNotifier{failFor: map[string]bool{"flaky story": true, "smooth story": true}}
	hist := newFakeHistory()

	w := testWorkflow(WorkflowDeps{
		Sources:    []ports.Source{&fakeSource{name: "vc-wire", items: items}},
		Classifier: &fakeClassifier{},
		Notifier:   notifier,
		History:    hist,
	})

	require.NoError(t, w.Run(context.Background()))
	require.NotEmpty(t, notifier.attempted)

	for _, item := range notifier.attempted {
		assert.True(t, hist.Seen(fingerprint.Content(item)), "attempted item %q must be recorded", item.Title)
	}
	assert.Equal(t, 1, hist.persisted)
}

func TestRunClassifierTerminalFailureCompletesCleanly(t *testing.T) {
	classifier := &fakeClassifier{err: errors.New("model overloaded")}
	notifier := &fakeNotifier{}
	hist := newFakeHistory()

	w := testWorkflow(WorkflowDeps{
		Sources:    []ports.Source{&fakeSource{name: "vc-wire", items: []domain.NewsItem{newsItem("unlucky story")}}},
		Classifier: classifier,
		Notifier:   notifier,
		History:    hist,
	})

	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, 2, classifier.calls)
	assert.Empty(t, notifier.attempted)
	assert.Empty(t, hist.marks)
	assert.Equal(t, 1, hist.persisted)
}

func TestRunClassifierPanicDegradesToCleanCycle(t *testing.T) {
	notifier := &fakeNotifier{}
	hist := newFakeHistory()
	w := testWorkflow(WorkflowDeps{
		Sources:    []ports.Source{&fakeSource{name: "vc-wire", items: []domain.NewsItem{newsItem("boom")}}},
		Classifier: &fakeClassifier{boom: true},
		Notifier:   notifier,
		History:    hist,
	})

	require.NoError(t, w.Run(context.Background()))
	assert.Empty(t, notifier.attempted)
	assert.Equal(t, 1, hist.persisted)
}

type panickyHistory struct{ *fakeHistory }

func (p *panickyHistory) Mark(fingerprint.Fingerprint) { panic("history corrupted") }

func TestRunRecoversFromPanic(t *testing.T) {
	stubPause(t)
	w := testWorkflow(WorkflowDeps{
		Sources:    []ports.Source{&fakeSource{name: "vc-wire", items: []domain.NewsItem{newsItem("boom")}}},
		Classifier: &fakeClassifier{},
		Notifier:   &fakeNotifier{},
		History:    &panickyHistory{fakeHistory: newFakeHistory()},
	})

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
}

func TestSampleBounds(t *testing.T) {
	w := testWorkflow(WorkflowDeps{History: newFakeHistory()})

	pool := make([]domain.NewsItem, 10)
	for i := range pool {
		pool[i] = newsItem(string(rune('a' + i)))
	}

	for i := 0; i < 200; i++ {
		selected := w.sample(pool)
		require.NotEmpty(t, selected)
		require.LessOrEqual(t, len(selected), 3)

		seen := map[string]bool{}
		for _, item := range selected {
			require.False(t, seen[item.Title], "sample must not repeat items")
			seen[item.Title] = true
		}
	}

	assert.Empty(t, w.sample(nil))
}

func TestSampleCapsAtAvailable(t *testing.T) {
	w := testWorkflow(WorkflowDeps{History: newFakeHistory()})
	pool := []domain.NewsItem{newsItem("only one")}

	for i := 0; i < 50; i++ {
		selected := w.sample(pool)
		require.Len(t, selected, 1)
		require.Equal(t, "only one", selected[0].Title)
	}
}
