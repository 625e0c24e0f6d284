// Package classifier adapts the raw text model into batched opportunity
// verdicts, absorbing malformed model output instead of failing.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"VCRadar/internal/domain"
	"VCRadar/internal/ports"
	"VCRadar/internal/render"
)

const (
	// batchSize is fixed; the prompt format addresses items positionally
	// as item_1..item_5.
	batchSize = 5
	// summaryLimit truncates item summaries inside the batch prompt.
	summaryLimit = 500
	// rawFallbackLimit bounds the raw-text explanation stored when a
	// whole response fails to parse.
	rawFallbackLimit = 200
	// batchPacing is the courtesy delay between model calls.
	batchPacing = 2 * time.Second
)

// pace is context-aware and swapped out in tests.
var pace = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Adapter batches items through a text model and parses positional verdicts.
type Adapter struct {
	model    ports.TextModel
	renderer *render.Renderer
	logger   *slog.Logger
}

var _ ports.Classifier = (*Adapter)(nil)

// New wires the adapter. The renderer supplies per-style prompts.
func New(model ports.TextModel, renderer *render.Renderer, logger *slog.Logger) *Adapter {
	return &Adapter{model: model, renderer: renderer, logger: logger}
}

// Classify processes items in batches of five. Per-batch model failures and
// malformed responses degrade the affected items to non-opportunities; an
// error is returned only when the run's context ends mid-way.
func (a *Adapter) Classify(ctx context.Context, items []domain.NewsItem, style string) ([]domain.NewsItem, error) {
	classified := make([]domain.NewsItem, 0, len(items))

	for start := 0; start < len(items); start += batchSize {
		end := min(start+batchSize, len(items))
		batch := items[start:end]

		prompt := a.renderer.Prompt(style, batchContent(batch))

		response, err := a.model.Generate(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("classify batch: %w", ctx.Err())
			}
			a.warn("batch generation failed", "batch_start", start, "error", err)
			classified = append(classified, degrade(batch, "")...)
		} else {
			classified = append(classified, applyVerdicts(batch, response)...)
		}

		// Courtesy pause toward the external rate limit, regardless of
		// the batch outcome.
		if end < len(items) {
			if err := pace(ctx, batchPacing); err != nil {
				return nil, fmt.Errorf("classify pacing: %w", err)
			}
		}
	}

	return classified, nil
}

// batchContent renders the positional batch description the prompt embeds.
func batchContent(batch []domain.NewsItem) string {
	sections := make([]string, 0, len(batch))
	for idx, item := range batch {
		summary := item.Summary
		if len(summary) > summaryLimit {
			summary = summary[:summaryLimit]
		}
		sections = append(sections, fmt.Sprintf(
			"Source %d (%s):\nTitle: %s\nSummary: %s",
			idx+1, item.Source, item.Title, summary,
		))
	}
	return strings.Join(sections, "\n\n")
}

type verdictPayload struct {
	IsOpportunity   bool   `json:"is_opportunity"`
	OpportunityType string `json:"opportunity_type"`
	RiskLevel       string `json:"risk_level"`
	Explanation     string `json:"explanation"`
}

// applyVerdicts matches a response keyed item_1..item_N against the batch.
// A missing key and a key of the wrong shape take the same path: the item
// stays a non-opportunity.
func applyVerdicts(batch []domain.NewsItem, response string) []domain.NewsItem {
	cleaned := stripFences(response)

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &keyed); err != nil {
		fallback := cleaned
		if len(fallback) > rawFallbackLimit {
			fallback = fallback[:rawFallbackLimit]
		}
		return degrade(batch, fallback)
	}

	out := make([]domain.NewsItem, 0, len(batch))
	for idx, item := range batch {
		raw, ok := keyed[fmt.Sprintf("item_%d", idx+1)]
		if !ok {
			out = append(out, item)
			continue
		}
		var payload verdictPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			out = append(out, item)
			continue
		}
		item.IsOpportunity = payload.IsOpportunity
		item.Analysis = &domain.Verdict{
			OpportunityType: payload.OpportunityType,
			Risk:            domain.ParseRiskLevel(payload.RiskLevel),
			Explanation:     payload.Explanation,
		}
		out = append(out, item)
	}
	return out
}

// degrade marks a whole batch as non-opportunities, optionally attaching
// the unparseable raw text as the explanation.
func degrade(batch []domain.NewsItem, rawExplanation string) []domain.NewsItem {
	out := make([]domain.NewsItem, 0, len(batch))
	for _, item := range batch {
		item.IsOpportunity = false
		if rawExplanation != "" {
			item.Analysis = &domain.Verdict{
				Risk:        domain.RiskUnknown,
				Explanation: rawExplanation,
			}
		}
		out = append(out, item)
	}
	return out
}

// stripFences unwraps a ```json ... ``` (or bare ```) code block.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if after, ok := strings.CutPrefix(text, "```json"); ok {
		text = after
	} else if after, ok := strings.CutPrefix(text, "```"); ok {
		text = after
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func (a *Adapter) warn(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}
