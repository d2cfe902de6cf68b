package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hoanghai1803/trendpost/internal/digest"
	"github.com/hoanghai1803/trendpost/internal/models"
)

// Harvester collects articles from a list of sites.
type Harvester interface {
	HarvestAll(ctx context.Context, sites []models.Site) ([]models.Article, []models.FailedSite)
}

// Synthesizer turns articles into digest text. It returns usable text even
// when it also returns an error.
type Synthesizer interface {
	Synthesize(ctx context.Context, articles []models.Article) (string, error)
}

// Deliverer publishes the final message and reports how many messages it sent.
type Deliverer interface {
	Deliver(ctx context.Context, message string) (int, error)
}

// Runner executes one harvest, synthesize, format and deliver cycle.
type Runner struct {
	Harvester   Harvester
	Synthesizer Synthesizer

	// Deliverer may be nil when no chat is configured; the run then ends
	// after formatting.
	Deliverer Deliverer

	Sites  []models.Site
	Format digest.Options

	// Now defaults to time.Now.
	Now func() time.Time

	// DryRun writes the message to Out instead of delivering it.
	DryRun bool
	Out    io.Writer
}

// Run performs the pipeline once. Stage failures are logged and recorded in
// the report; Run itself never fails.
func (r *Runner) Run(ctx context.Context) models.RunReport {
	report := models.RunReport{SitesAttempted: len(r.Sites)}

	// 1. Harvest.
	slog.Info("starting marketing trend digest", "sites", len(r.Sites))
	articles, failed := r.Harvester.HarvestAll(ctx, r.Sites)
	report.SitesFailed = failed
	report.Articles = len(articles)

	slog.Info("harvest complete", "articles", len(articles), "failed_sites", len(failed))

	if len(articles) == 0 {
		slog.Warn("no articles found, nothing to summarize")
		return report
	}

	// 2. Synthesize. The synthesizer supplies fallback text on failure.
	text, err := r.Synthesizer.Synthesize(ctx, articles)
	if err != nil {
		slog.Error("failed to synthesize digest, using fallback", "error", err)
		report.UsedFallback = true
	}

	// 3. Format.
	message := digest.Format(text, r.now(), r.Format)

	// 4. Deliver.
	if r.DryRun {
		out := r.Out
		if out == nil {
			out = io.Discard
		}
		if _, err := fmt.Fprintln(out, message); err != nil {
			slog.Error("failed to write digest", "error", err)
		}
		slog.Info("dry run, digest not delivered", "chars", len(message))
		return report
	}

	if r.Deliverer == nil {
		slog.Warn("no delivery channel configured, digest not sent")
		report.DeliveryError = "delivery not configured"
		return report
	}

	sent, err := r.Deliverer.Deliver(ctx, message)
	report.ChunksSent = sent
	if err != nil {
		slog.Error("failed to deliver digest", "sent", sent, "error", err)
		report.DeliveryError = err.Error()
		return report
	}

	report.Delivered = true
	slog.Info("digest delivered", "messages", sent)
	return report
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
