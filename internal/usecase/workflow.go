package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"VCRadar/internal/config"
	"VCRadar/internal/dedupe"
	"VCRadar/internal/domain"
	"VCRadar/internal/ports"
	"VCRadar/internal/render"
	"VCRadar/internal/resilience"
)

const (
	fetchTimeout   = 30 * time.Second
	classifyBudget = 5 * time.Minute
	imageTimeout   = 20 * time.Second
	deliverTimeout = 30 * time.Second

	maxSampleSize  = 3
	deliveryPacing = time.Second
)

var classifierRetryDefaults = resilience.RetryPolicy{
	MaxAttempts:   3,
	InitialDelay:  10 * time.Second,
	BackoffFactor: 2,
}

// pause is swapped out in tests so delivery pacing does not slow them down.
var pause = func(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// HistoryStore is the slice of the history store the workflow touches.
type HistoryStore interface {
	dedupe.History
	Persist() error
}

// WorkflowDeps wires all driven adapters into one run of the pipeline.
type WorkflowDeps struct {
	Sources    []ports.Source
	Classifier ports.Classifier
	Notifier   ports.Notifier
	Images     ports.ImageFinder
	History    HistoryStore
	Renderer   *render.Renderer
	QuietHours config.QuietHours
	Location   *time.Location
	Logger     *slog.Logger
	Now        func() time.Time
	Rand       *rand.Rand
}

// Workflow implements one collection cycle: fetch feeds, drop already-seen
// items, classify the rest, sample a handful, deliver, and record history.
type Workflow struct {
	sources    []ports.Source
	classifier ports.Classifier
	notifier   ports.Notifier
	images     ports.ImageFinder
	history    HistoryStore
	renderer   *render.Renderer
	quiet      config.QuietHours
	location   *time.Location
	logger     *slog.Logger
	now        func() time.Time
	rng        *rand.Rand

	classifierRetry resilience.RetryPolicy
}

// NewWorkflow constructs the orchestration component.
func NewWorkflow(deps WorkflowDeps) *Workflow {
	w := &Workflow{
		sources:         deps.Sources,
		classifier:      deps.Classifier,
		notifier:        deps.Notifier,
		images:          deps.Images,
		history:         deps.History,
		renderer:        deps.Renderer,
		quiet:           deps.QuietHours,
		location:        deps.Location,
		logger:          deps.Logger,
		now:             deps.Now,
		rng:             deps.Rand,
		classifierRetry: classifierRetryDefaults,
	}
	if w.location == nil {
		w.location = time.Local
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.rng == nil {
		w.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return w
}

// Run executes a single cycle. It returns an error only for failures that
// should count against the scheduler's consecutive-failure budget; routine
// conditions like quiet hours or an empty fetch complete successfully.
func (w *Workflow) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.error("run aborted by panic", "panic", r)
			err = fmt.Errorf("workflow panic: %v", r)
		}
	}()

	localNow := w.now().In(w.location)
	if w.quiet.Contains(localNow) {
		w.info("quiet hours, skipping cycle", "local_time", localNow.Format("15:04"))
		return nil
	}

	w.info("cycle started", "sources", len(w.sources))

	collected := w.collect(ctx)
	if len(collected) == 0 {
		w.info("no items collected")
		return nil
	}

	fresh, duplicates := dedupe.FilterNew(collected, w.history)
	w.info("deduplicated", "collected", len(collected), "fresh", len(fresh), "duplicates", duplicates)
	if len(fresh) == 0 {
		return nil
	}

	style := w.renderer.RandomStyle(w.rng)
	w.info("style selected", "style", style)

	opportunities := w.classify(ctx, fresh, style)
	w.info("classified", "analyzed", len(fresh), "opportunities", len(opportunities))

	selected := w.sample(opportunities)
	if len(selected) > 0 {
		w.info("sampled for delivery", "selected", len(selected), "available", len(opportunities))
	}

	w.deliver(ctx, selected, style)

	for _, item := range selected {
		dedupe.MarkProcessed(item, w.history)
	}
	if perr := w.history.Persist(); perr != nil {
		w.error("persist history failed", "error", perr)
	}

	w.info("cycle finished", "delivered_or_attempted", len(selected))
	return nil
}

// collect fetches every source, tolerating individual failures so one dead
// feed never starves the rest of the cycle.
func (w *Workflow) collect(ctx context.Context) []domain.NewsItem {
	var merged []domain.NewsItem
	for _, src := range w.sources {
		items, err := resilience.WithTimeout(ctx, fetchTimeout, src.Fetch)
		if err != nil {
			w.error("source fetch failed", "source", src.Name(), "error", err)
			continue
		}
		w.info("source fetched", "source", src.Name(), "items", len(items))
		merged = append(merged, items...)
	}
	return merged
}

// classify runs the model over the fresh items and keeps the opportunities.
// A terminally failing classifier yields zero opportunities rather than an
// aborted cycle.
func (w *Workflow) classify(ctx context.Context, fresh []domain.NewsItem, style string) []domain.NewsItem {
	if w.classifier == nil {
		w.info("classifier not configured, treating all items as non-opportunities")
		return nil
	}

	analyzed, err := resilience.WithRetry(ctx, w.classifierRetry, func(ctx context.Context) ([]domain.NewsItem, error) {
		return resilience.WithTimeout(ctx, classifyBudget, func(ctx context.Context) ([]domain.NewsItem, error) {
			return w.classifier.Classify(ctx, fresh, style)
		})
	})
	if err != nil {
		w.error("classification failed", "error", err)
		return nil
	}

	var opportunities []domain.NewsItem
	for _, item := range analyzed {
		if item.IsOpportunity {
			opportunities = append(opportunities, item)
		}
	}
	return opportunities
}

// sample picks 1 to 3 of the opportunities at random, never more than exist.
func (w *Workflow) sample(opportunities []domain.NewsItem) []domain.NewsItem {
	if len(opportunities) == 0 {
		return nil
	}

	count := w.rng.Intn(maxSampleSize) + 1
	if count > len(opportunities) {
		count = len(opportunities)
	}

	selected := make([]domain.NewsItem, 0, count)
	for _, idx := range w.rng.Perm(len(opportunities))[:count] {
		selected = append(selected, opportunities[idx])
	}
	return selected
}

func (w *Workflow) deliver(ctx context.Context, selected []domain.NewsItem, style string) {
	for i, item := range selected {
		message := w.renderer.Message(item, style)
		imageURL := w.resolveImage(ctx, item)

		err := resilience.DoWithTimeout(ctx, deliverTimeout, func(ctx context.Context) error {
			return w.notifier.Deliver(ctx, item, message, imageURL)
		})
		if err != nil {
			w.error("delivery failed", "title", item.Title, "error", err)
		} else {
			w.info("delivered", "title", item.Title, "source", item.Source)
		}

		if i < len(selected)-1 {
			pause(ctx, deliveryPacing)
		}
	}
}

// resolveImage prefers the image already carried by the feed entry and only
// then consults the finder chain. Lookup failures cost nothing but the image.
func (w *Workflow) resolveImage(ctx context.Context, item domain.NewsItem) string {
	if item.ImageURL != "" {
		return item.ImageURL
	}
	if w.images == nil || item.Link == "" {
		return ""
	}

	found, err := resilience.WithTimeout(ctx, imageTimeout, func(ctx context.Context) (string, error) {
		return w.images.Find(ctx, item.Link)
	})
	if err != nil {
		w.debug("image lookup failed", "link", item.Link, "error", err)
		return ""
	}
	return found
}

func (w *Workflow) info(msg string, args ...any) {
	if w.logger != nil {
		w.logger.Info(msg, args...)
	}
}

func (w *Workflow) error(msg string, args ...any) {
	if w.logger != nil {
		w.logger.Error(msg, args...)
	}
}

func (w *Workflow) debug(msg string, args ...any) {
	if w.logger != nil {
		w.logger.Debug(msg, args...)
	}
}
