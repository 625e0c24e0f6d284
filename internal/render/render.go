// Package render turns classified items into outbound messages and builds
// classification prompts, both driven by the closed style-variant table
// from configuration.
package render

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"text/template"
	"time"

	"VCRadar/internal/config"
	"VCRadar/internal/domain"
)

// Renderer owns the variant table for one process lifetime.
type Renderer struct {
	variants map[string]config.Variant
	now      func() time.Time
}

// New builds a renderer; the table is expected to contain the default style
// (config.Load guarantees it).
func New(variants map[string]config.Variant) *Renderer {
	return &Renderer{variants: variants, now: time.Now}
}

// RandomStyle picks one style id uniformly. Iteration over the map is
// randomized by the runtime but not uniformly, so styles are sorted first.
func (r *Renderer) RandomStyle(rng *rand.Rand) string {
	styles := make([]string, 0, len(r.variants))
	for style := range r.variants {
		styles = append(styles, style)
	}
	if len(styles) == 0 {
		return config.DefaultStyle
	}
	sort.Strings(styles)
	return styles[rng.Intn(len(styles))]
}

// Prompt renders the classification prompt of the given style around the
// batch content. An unknown style or a broken prompt template falls back
// to the default variant.
func (r *Renderer) Prompt(style, content string) string {
	variant, ok := r.variants[style]
	if !ok {
		variant = r.variants[config.DefaultStyle]
	}

	rendered, err := execute("prompt", variant.Prompt, promptData{Content: content})
	if err == nil {
		return rendered
	}

	fallback := r.variants[config.DefaultStyle]
	rendered, err = execute("prompt", fallback.Prompt, promptData{Content: content})
	if err != nil {
		// The compiled-in default prompt always parses; reaching this
		// means the whole table was replaced with broken templates.
		return content
	}
	return rendered
}

// Message renders the delivery message for an item under the given style,
// falling back to the default variant when the selected template fails.
func (r *Renderer) Message(item domain.NewsItem, style string) string {
	variant, ok := r.variants[style]
	if !ok {
		style = config.DefaultStyle
		variant = r.variants[style]
	}

	data := r.messageData(item, style, variant)
	rendered, err := execute("message", variant.Template, data)
	if err == nil {
		return rendered
	}

	style = config.DefaultStyle
	fallback := r.variants[style]
	rendered, err = execute("message", fallback.Template, r.messageData(item, style, fallback))
	if err != nil {
		return fmt.Sprintf("%s\n%s\n%s", item.Title, item.Source, item.Link)
	}
	return rendered
}

type promptData struct {
	Content string
}

type messageData struct {
	Emoji           string
	Source          string
	Title           string
	OpportunityType string
	RiskLevel       string
	Explanation     string
	Link            string
	Timestamp       string
	Style           string
}

func (r *Renderer) messageData(item domain.NewsItem, style string, variant config.Variant) messageData {
	data := messageData{
		Emoji:           variant.Emoji,
		Source:          item.Source,
		Title:           item.Title,
		OpportunityType: "N/A",
		RiskLevel:       "N/A",
		Explanation:     "No analysis available",
		Link:            item.Link,
		Timestamp:       r.now().Format("2006-01-02 15:04:05"),
		Style:           style,
	}
	if data.Emoji == "" {
		data.Emoji = "🚀"
	}
	if data.Link == "" {
		data.Link = "N/A"
	}
	if item.Analysis != nil {
		if item.Analysis.OpportunityType != "" {
			data.OpportunityType = item.Analysis.OpportunityType
		}
		data.RiskLevel = string(item.Analysis.Risk)
		if item.Analysis.Explanation != "" {
			data.Explanation = item.Analysis.Explanation
		}
	}
	return data
}

func execute(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s template: %w", name, err)
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("execute %s template: %w", name, err)
	}
	return out.String(), nil
}
