package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hoanghai1803/trendpost/internal/ai"
	"github.com/hoanghai1803/trendpost/internal/config"
	"github.com/hoanghai1803/trendpost/internal/delivery"
	"github.com/hoanghai1803/trendpost/internal/digest"
	"github.com/hoanghai1803/trendpost/internal/harvest"
	"github.com/hoanghai1803/trendpost/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	envPath := flag.String("env-file", ".env", "path to optional dotenv file")
	dryRun := flag.Bool("dry-run", false, "print the digest instead of sending it")
	flag.Parse()

	// Load .env before config so its variables can override file values.
	if err := config.LoadEnvFile(*envPath); err != nil {
		slog.Error("failed to load env file", "error", err)
		os.Exit(1)
	}

	// Load configuration (auto-creates default if missing).
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create AI provider (nil if no API key -- synthesis then falls back).
	var aiProvider ai.AIProvider
	if cfg.AI.APIKey != "" {
		aiProvider, err = ai.NewProvider(ai.ProviderConfig{
			Provider: cfg.AI.Provider,
			APIKey:   cfg.AI.APIKey,
			Model:    cfg.AI.Model,
			Timeout:  cfg.AI.Timeout(),
		})
		if err != nil {
			slog.Error("failed to create AI provider", "error", err)
			os.Exit(1)
		}
		slog.Info("AI provider configured", "provider", cfg.AI.Provider, "model", cfg.AI.Model)
	} else {
		slog.Warn("no AI provider API key configured, the digest will use the fallback text")
	}

	harvester := harvest.NewHarvester(harvest.Options{
		UserAgent:          cfg.Harvest.UserAgent,
		SiteTimeout:        cfg.Harvest.SiteTimeout(),
		ArticleTimeout:     cfg.Harvest.ArticleTimeout(),
		MaxArticlesPerSite: cfg.Harvest.MaxArticlesPerSite,
		MinContentLength:   cfg.Harvest.MinContentLength,
		ExcludePatterns:    cfg.Harvest.ExcludePatterns,
		SiteDelay:          cfg.Harvest.SiteDelay(),
		Concurrency:        cfg.Harvest.Concurrency,
		Extractor:          cfg.Harvest.Extractor,
	})

	runner := &pipeline.Runner{
		Harvester:   harvester,
		Synthesizer: ai.NewSynthesizer(aiProvider),
		Sites:       cfg.Harvest.Sites,
		Format: digest.Options{
			Team:     cfg.Digest.Team,
			Location: cfg.Digest.Location(),
		},
		DryRun: *dryRun,
		Out:    os.Stdout,
	}

	if !*dryRun {
		tg, err := delivery.NewTelegram(delivery.Config{
			Token:          cfg.Telegram.BotToken,
			ChatID:         cfg.Telegram.ChatID,
			APIURL:         cfg.Telegram.APIURL,
			ParseMode:      cfg.Telegram.ParseMode,
			DisablePreview: cfg.Telegram.DisablePreview,
			MessageLimit:   cfg.Telegram.MessageLimit,
			ChunkSize:      cfg.Telegram.ChunkSize,
			ChunkDelay:     cfg.Telegram.ChunkDelay(),
		})
		switch {
		case errors.Is(err, delivery.ErrNotConfigured):
			slog.Warn("telegram credentials missing, the digest will not be sent")
		case err != nil:
			slog.Error("failed to create telegram client", "error", err)
		default:
			runner.Deliverer = tg
		}
	}

	report := runner.Run(ctx)

	slog.Info("run finished",
		"sites", report.SitesAttempted,
		"failed_sites", len(report.SitesFailed),
		"articles", report.Articles,
		"fallback", report.UsedFallback,
		"delivered", report.Delivered,
		"messages", report.ChunksSent,
	)
}
