package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "Local"
	configPathEnv     = "VCRADAR_CONFIG"
	historyPathEnv    = "VCRADAR_HISTORY_FILE"
	geminiAPIKeyEnv   = "GEMINI_API_KEY"
	geminiModelEnv    = "GEMINI_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// DefaultStyle is the variant every configuration is guaranteed to carry;
// rendering falls back to it when a selected style misbehaves.
const DefaultStyle = "original"

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig      `yaml:"logging"`
	Scheduler SchedulerConfig    `yaml:"scheduler"`
	History   HistoryConfig      `yaml:"history"`
	Feeds     []FeedConfig       `yaml:"feeds"`
	Gemini    GeminiConfig       `yaml:"gemini"`
	Telegram  TelegramConfig     `yaml:"telegram"`
	Images    ImagesConfig       `yaml:"images"`
	Variants  map[string]Variant `yaml:"variants"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// SchedulerConfig defines the polling cadence and quiet hours.
type SchedulerConfig struct {
	Interval               string     `yaml:"interval"`
	QuietHours             QuietHours `yaml:"quietHours"`
	MaxConsecutiveFailures int        `yaml:"maxConsecutiveFailures"`
	Timezone               string     `yaml:"timezone"`
	location               *time.Location
}

// QuietHours is a local-time window during which runs are skipped.
// Start > End means the window wraps past midnight.
type QuietHours struct {
	StartHour int `yaml:"startHour"`
	EndHour   int `yaml:"endHour"`
}

// Contains reports whether t falls inside the window.
func (q QuietHours) Contains(t time.Time) bool {
	hour := t.Hour()
	if q.StartHour == q.EndHour {
		return false
	}
	if q.StartHour < q.EndHour {
		return hour >= q.StartHour && hour < q.EndHour
	}
	return hour >= q.StartHour || hour < q.EndHour
}

// PollInterval parses the interval string, defaulting to one hour.
func (s SchedulerConfig) PollInterval() time.Duration {
	d, err := time.ParseDuration(s.Interval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return time.Local
}

// HistoryConfig describes the persisted deduplication state.
type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retentionDays"`
}

// Retention converts the configured day count to a duration.
func (h HistoryConfig) Retention() time.Duration {
	if h.RetentionDays <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(h.RetentionDays) * 24 * time.Hour
}

// FeedConfig names one RSS source.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// GeminiConfig wires the classifier model. An empty API key disables
// classification (the workflow then yields zero opportunities).
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// TelegramConfig wires delivery. Empty credentials route delivery to the
// console sink instead of the network.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// ImagesConfig controls best-effort image enrichment at delivery time.
// The headless-browser fallback needs a local Chrome/Chromium install and
// can be switched off on hosts without one.
type ImagesConfig struct {
	DisableBrowserFallback bool `yaml:"disableBrowserFallback"`
}

// Variant couples a classification prompt with the message template and
// emoji used when delivering items classified under that style.
type Variant struct {
	Prompt   string `yaml:"prompt"`
	Template string `yaml:"template"`
	Emoji    string `yaml:"emoji"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	cfg.ensureDefaultVariant()

	if len(cfg.Feeds) == 0 {
		cfg.Feeds = defaultConfig().Feeds
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv(geminiModelEnv); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv(historyPathEnv); v != "" {
		c.History.Path = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc = time.Local
	}
	c.Scheduler.location = loc
}

// ensureDefaultVariant guarantees the fallback style exists even when the
// file replaces the variant table.
func (c *Config) ensureDefaultVariant() {
	if c.Variants == nil {
		c.Variants = map[string]Variant{}
	}
	if _, ok := c.Variants[DefaultStyle]; !ok {
		c.Variants[DefaultStyle] = defaultConfig().Variants[DefaultStyle]
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.File != "" {
		base.Logging.File = override.Logging.File
	}

	if override.Scheduler.Interval != "" {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.MaxConsecutiveFailures > 0 {
		base.Scheduler.MaxConsecutiveFailures = override.Scheduler.MaxConsecutiveFailures
	}
	if override.Scheduler.QuietHours != (QuietHours{}) {
		base.Scheduler.QuietHours = override.Scheduler.QuietHours
	}

	if override.History.Path != "" {
		base.History.Path = override.History.Path
	}
	if override.History.RetentionDays > 0 {
		base.History.RetentionDays = override.History.RetentionDays
	}

	if override.Gemini.APIKey != "" {
		base.Gemini.APIKey = override.Gemini.APIKey
	}
	if override.Gemini.Model != "" {
		base.Gemini.Model = override.Gemini.Model
	}

	if override.Telegram.BotToken != "" {
		base.Telegram.BotToken = override.Telegram.BotToken
	}
	if override.Telegram.ChatID != "" {
		base.Telegram.ChatID = override.Telegram.ChatID
	}

	if override.Images.DisableBrowserFallback {
		base.Images.DisableBrowserFallback = true
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}
	if len(override.Variants) > 0 {
		base.Variants = override.Variants
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", File: "vc_news_bot.log"},
		Scheduler: SchedulerConfig{
			Interval:               "1h",
			QuietHours:             QuietHours{StartHour: 22, EndHour: 7},
			MaxConsecutiveFailures: 10,
			Timezone:               defaultTimezone,
		},
		History: HistoryConfig{Path: "sent_news_history.json", RetentionDays: 7},
		Gemini:  GeminiConfig{Model: "gemini-2.5-flash"},
		Feeds: []FeedConfig{
			{Name: "Crunchbase News", URL: "https://news.crunchbase.com/feed/"},
			{Name: "Above the Crowd", URL: "https://abovethecrowd.com/feed/"},
			{Name: "TechCrunch Startups", URL: "https://techcrunch.com/tag/startups/feed/"},
			{Name: "VentureBeat", URL: "https://venturebeat.com/feed"},
			{Name: "For Entrepreneurs", URL: "https://forentrepreneurs.com/blog/feed/"},
			{Name: "VC Cafe", URL: "https://vccafe.com/feed"},
			{Name: "This is going to be BIG", URL: "https://feeds.feedburner.com/thisisgoingtobebig"},
			{Name: "Strictly Business Law Blog", URL: "https://www.strictlybusinesslawblog.com/feed/"},
			{Name: "Both Sides of the Table", URL: "https://feeds.feedburner.com/Bothsidesofthetable"},
			{Name: "Neil Patel", URL: "https://neilpatel.com/feed/"},
		},
		Variants: map[string]Variant{
			DefaultStyle: {
				Emoji: "🚀",
				Prompt: `Analyze the following VC and startup news items and identify potential investment or business opportunities.

For each item, determine:
1. Is this a significant opportunity? (YES/NO)
2. What type of opportunity? (funding round, new startup launch, market trend, technology breakthrough, partnership, acquisition, IPO, etc.)
3. Risk level (LOW/MEDIUM/HIGH)
4. Brief explanation (max 2 sentences)

Content to analyze:
{{.Content}}

Respond in JSON format for each item:
{
    "item_1": {
        "is_opportunity": true/false,
        "opportunity_type": "type",
        "risk_level": "LOW/MEDIUM/HIGH",
        "explanation": "brief explanation"
    },
    ...
}`,
				Template: `{{.Emoji}} *VC/Startup Opportunity Detected*

*Source:* {{.Source}}
*Title:* {{.Title}}

*Type:* {{.OpportunityType}}
*Risk Level:* {{.RiskLevel}}

*Analysis:*
{{.Explanation}}

*Link:* {{.Link}}

_Analyzed at {{.Timestamp}}_
_Style: {{.Style}}_`,
			},
		},
	}
}
