package app

import (
	"context"
	"log/slog"

	"VCRadar/internal/classifier"
	"VCRadar/internal/config"
	"VCRadar/internal/history"
	"VCRadar/internal/infrastructure/console"
	"VCRadar/internal/infrastructure/feeds"
	"VCRadar/internal/infrastructure/gemini"
	"VCRadar/internal/infrastructure/images"
	"VCRadar/internal/infrastructure/scheduler"
	"VCRadar/internal/infrastructure/telegram"
	"VCRadar/internal/logging"
	"VCRadar/internal/ports"
	"VCRadar/internal/render"
	"VCRadar/internal/usecase"
)

// Application wires configuration to adapters and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	scheduler *usecase.Scheduler
	model     *gemini.Client
	logger    *slog.Logger
}

// New builds the full collection pipeline. The context is only used for
// constructing API clients, not for the run itself.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.File)
	}

	sources := make([]ports.Source, 0, len(cfg.Feeds))
	for _, feed := range cfg.Feeds {
		sources = append(sources, feeds.NewRSSSource(feed, nil, baseLogger.With("component", "feeds")))
	}

	store := history.Open(cfg.History.Path, cfg.History.Retention(), baseLogger.With("component", "history"))
	renderer := render.New(cfg.Variants)

	var (
		model ports.TextModel
		gc    *gemini.Client
	)
	if cfg.Gemini.APIKey != "" {
		var err error
		gc, err = gemini.NewClient(ctx, cfg.Gemini)
		if err != nil {
			return nil, err
		}
		model = gc
	} else {
		baseLogger.Warn("gemini api key not set, classification disabled")
	}

	var clf ports.Classifier
	if model != nil {
		clf = classifier.New(model, renderer, baseLogger.With("component", "classifier"))
	}

	finders := []ports.ImageFinder{images.NewScraper(nil, baseLogger.With("component", "images.scraper"))}
	if !cfg.Images.DisableBrowserFallback {
		finders = append(finders, images.NewBrowser(0, baseLogger.With("component", "images.browser")))
	}
	chain := images.NewChain(baseLogger.With("component", "images"), finders...)

	var notifier ports.Notifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, baseLogger.With("component", "telegram"))
	} else {
		baseLogger.Warn("telegram credentials not set, printing opportunities to the log")
		notifier = console.NewSink(baseLogger.With("component", "console"))
	}

	workflow := usecase.NewWorkflow(usecase.WorkflowDeps{
		Sources:    sources,
		Classifier: clf,
		Notifier:   notifier,
		Images:     chain,
		History:    store,
		Renderer:   renderer,
		QuietHours: cfg.Scheduler.QuietHours,
		Location:   cfg.Scheduler.Location(),
		Logger:     baseLogger.With("component", "workflow"),
	})

	loop := scheduler.NewLoop(
		cfg.Scheduler.PollInterval(),
		cfg.Scheduler.MaxConsecutiveFailures,
		baseLogger.With("component", "scheduler"),
	)

	return &Application{
		cfg:       cfg,
		scheduler: usecase.NewScheduler(loop, workflow),
		model:     gc,
		logger:    baseLogger,
	}, nil
}

// Run blocks until the context is cancelled or the scheduler gives up.
func (a *Application) Run(ctx context.Context) error {
	if a.scheduler == nil {
		return nil
	}

	a.logger.Info("starting collection loop",
		"feeds", len(a.cfg.Feeds),
		"interval", a.cfg.Scheduler.PollInterval().String(),
		"history", a.cfg.History.Path,
	)

	defer a.Close()
	return a.scheduler.Start(ctx)
}

// Close releases external clients.
func (a *Application) Close() {
	if a.model != nil {
		if err := a.model.Close(); err != nil {
			a.logger.Warn("closing gemini client", "error", err)
		}
	}
}
