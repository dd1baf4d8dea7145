package main

import (
	"context"
	"log"
	"time"

	"tryonstudio/controllers"
	"tryonstudio/dbhelper"
	"tryonstudio/models"
	"tryonstudio/services"
	"tryonstudio/store"
	"tryonstudio/tasks"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4/middleware"
)

type generationBackend interface {
	services.GenerationProvider
	services.BillingFetcher
}

func newBackend(cfg services.Config) generationBackend {
	switch cfg.Provider {
	case services.ProviderGemini:
		return services.NewGeminiProvider(cfg.GeminiBaseURL)
	case services.ProviderOpenAI:
		return services.NewOpenAIProvider(cfg.OpenAIBaseURL)
	}
	log.Fatalf("unknown PROVIDER %q, expected openai or gemini", cfg.Provider)
	return nil
}

func main() {
	cfg := services.LoadConfig()
	err := sentry.Init(sentry.ClientOptions{
		// empty DSN disables reporting
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Env,
		Release:          "tryonstudio@1.0.0",
		Debug:            false,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Recover()
	defer sentry.Flush(2 * time.Second)

	ctx := context.Background()
	db := dbhelper.SetupDB(cfg.DB)
	entities := store.New(db)
	settings := store.NewSettings(db)

	backend := newBackend(cfg)
	usage, err := services.NewUsageService(ctx, settings)
	if err != nil {
		log.Fatalf("usage: %v", err)
	}
	costs, err := services.NewCostService(ctx, backend, settings)
	if err != nil {
		log.Fatalf("costs: %v", err)
	}
	resizer, err := services.NewImageResizer()
	if err != nil {
		log.Fatalf("resizer: %v", err)
	}
	generation := services.NewGenerationClient(backend, usage, resizer, services.WithPackshotWhitening(cfg.WhitenPackshots))
	categories := services.NewCategoryService(settings)
	preferences := services.NewPreferences(settings, generation)
	runner := tasks.NewRunner(entities, generation, resizer, categories, preferences)

	usage.Subscribe(func(u models.TokenUsage) {
		log.Printf("[Usage] text %d image %d output %d", u.InputTextTokens, u.InputImageTokens, u.OutputTokens)
	})
	costs.Subscribe(func(c models.CostCache) {
		if c.Error != "" {
			log.Printf("[Cost] cost display disabled: %s", c.Error)
			return
		}
		log.Printf("[Cost] month to date $%.2f", c.Amount)
	})

	e := controllers.SetupServer(controllers.Services{
		Store:       entities,
		Runner:      runner,
		Usage:       usage,
		Costs:       costs,
		Categories:  categories,
		Preferences: preferences,
	})
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	log.Printf("[API] provider %s, listening on %s", cfg.Provider, cfg.ListenAddr)
	e.Logger.Fatal(e.Start(cfg.ListenAddr))
}
