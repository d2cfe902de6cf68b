package harvest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hoanghai1803/trendpost/internal/models"
)

var (
	// ErrStatus is returned when a page answers with a non-2xx status.
	ErrStatus = errors.New("unexpected HTTP status")

	// ErrNotHTML is returned when a page is not served as HTML.
	ErrNotHTML = errors.New("response is not HTML")
)

const maxBodyBytes = 5 << 20

// Options controls how sites are harvested.
type Options struct {
	UserAgent          string
	SiteTimeout        time.Duration
	ArticleTimeout     time.Duration
	MaxArticlesPerSite int

	// MinContentLength is exclusive: an article is kept only when its text
	// has more characters than this.
	MinContentLength int

	// ExcludePatterns drops links containing any of these substrings.
	ExcludePatterns []string

	// SiteDelay is the minimum spacing between the starts of two site
	// harvests in HarvestAll.
	SiteDelay time.Duration

	// Concurrency bounds how many sites HarvestAll processes at once.
	Concurrency int

	// Extractor is "paragraphs" or "readability".
	Extractor string
}

// DefaultOptions returns the options used by the daily digest.
func DefaultOptions() Options {
	return Options{
		UserAgent:          "Mozilla/5.0",
		SiteTimeout:        15 * time.Second,
		ArticleTimeout:     10 * time.Second,
		MaxArticlesPerSite: 3,
		MinContentLength:   300,
		ExcludePatterns:    []string{"author", "category"},
		SiteDelay:          time.Second,
		Concurrency:        1,
		Extractor:          "paragraphs",
	}
}

// Harvester discovers article links on marketing blogs and extracts their
// text. Every failure is reported as a value; nothing panics.
type Harvester struct {
	client  *http.Client
	opts    Options
	extract extractFunc
}

// NewHarvester creates a Harvester whose HTTP client injects browser-like
// headers on every request. Per-request timeouts come from opts.
func NewHarvester(opts Options) *Harvester {
	if opts.MaxArticlesPerSite <= 0 {
		opts.MaxArticlesPerSite = 3
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Harvester{
		client: &http.Client{
			Transport: &userAgentTransport{
				base:      http.DefaultTransport,
				userAgent: opts.UserAgent,
			},
		},
		opts:    opts,
		extract: extractorFor(opts.Extractor),
	}
}

// userAgentTransport wraps an http.RoundTripper to inject a browser-like
// User-Agent and Accept headers on every request.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	return t.base.RoundTrip(req)
}

// Harvest scans one site and returns up to MaxArticlesPerSite articles whose
// text is longer than MinContentLength. A site-level failure yields an empty
// slice and the error; article-level failures are logged and skipped.
func (h *Harvester) Harvest(ctx context.Context, site models.Site) ([]models.Article, error) {
	slog.Info("scanning site for articles", "site", site.URL)

	siteURL, err := url.Parse(site.URL)
	if err != nil || siteURL.Host == "" {
		return nil, fmt.Errorf("parsing site URL %q: invalid URL", site.URL)
	}

	links, err := h.discover(ctx, site, siteURL)
	if err != nil {
		slog.Warn("failed to scan site", "site", site.URL, "error", err)
		return nil, err
	}

	slog.Info("found candidate links", "site", site.URL, "links", len(links), "reading", min(len(links), h.opts.MaxArticlesPerSite))

	if len(links) > h.opts.MaxArticlesPerSite {
		links = links[:h.opts.MaxArticlesPerSite]
	}

	articles := make([]models.Article, 0, len(links))
	for _, link := range links {
		content, err := h.fetchArticle(ctx, link)
		if err != nil {
			slog.Debug("skipping article", "url", link, "error", err)
			continue
		}
		if !qualifies(content, h.opts.MinContentLength) {
			slog.Debug("skipping short article", "url", link, "chars", utf8.RuneCountInString(content))
			continue
		}
		articles = append(articles, models.Article{URL: link, Content: content})
	}

	return articles, nil
}

// discover returns the deduplicated candidate article links of a site in
// page (or feed) order.
func (h *Harvester) discover(ctx context.Context, site models.Site, siteURL *url.URL) ([]string, error) {
	if site.FeedURL != "" {
		body, err := h.fetch(ctx, site.FeedURL, h.opts.SiteTimeout, false)
		if err != nil {
			return nil, fmt.Errorf("fetching feed %q: %w", site.FeedURL, err)
		}
		hrefs, err := feedLinks(body)
		if err != nil {
			return nil, err
		}
		return filterLinks(siteURL, hrefs, h.opts.ExcludePatterns), nil
	}

	body, err := h.fetch(ctx, site.URL, h.opts.SiteTimeout, true)
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", site.URL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML of %q: %w", site.URL, err)
	}
	return filterLinks(siteURL, anchorHrefs(doc), h.opts.ExcludePatterns), nil
}

// fetchArticle downloads one article page and extracts its text.
func (h *Harvester) fetchArticle(ctx context.Context, link string) (string, error) {
	body, err := h.fetch(ctx, link, h.opts.ArticleTimeout, true)
	if err != nil {
		return "", err
	}
	pageURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parsing article URL: %w", err)
	}
	return h.extract(body, pageURL)
}

// fetch performs a GET bounded by timeout and returns the body. When
// requireHTML is set, responses declaring a non-HTML content type fail with
// ErrNotHTML.
func (h *Harvester) fetch(ctx context.Context, rawURL string, timeout time.Duration, requireHTML bool) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	if requireHTML && !isHTML(resp.Header.Get("Content-Type")) {
		return nil, fmt.Errorf("%w: %s", ErrNotHTML, resp.Header.Get("Content-Type"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

// isHTML reports whether a Content-Type header denotes an HTML document. A
// missing header is accepted.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// qualifies applies the article length rule, counted in characters.
func qualifies(content string, minLength int) bool {
	return utf8.RuneCountInString(content) > minLength
}

// HarvestAll harvests every site, starting them no closer together than
// SiteDelay and running at most Concurrency at a time. Articles are returned
// in site order; sites that failed are listed separately. It only returns
// early when ctx is cancelled.
func (h *Harvester) HarvestAll(ctx context.Context, sites []models.Site) ([]models.Article, []models.FailedSite) {
	limit := rate.Inf
	if h.opts.SiteDelay > 0 {
		limit = rate.Every(h.opts.SiteDelay)
	}
	pacer := rate.NewLimiter(limit, 1)

	var (
		perSite = make([][]models.Article, len(sites))
		failed  []models.FailedSite
		mu      sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.opts.Concurrency)

	for i, site := range sites {
		g.Go(func() error {
			if err := pacer.Wait(gctx); err != nil {
				mu.Lock()
				failed = append(failed, models.FailedSite{URL: site.URL, Error: err.Error()})
				mu.Unlock()
				return nil
			}

			articles, err := h.Harvest(gctx, site)
			if err != nil {
				mu.Lock()
				failed = append(failed, models.FailedSite{URL: site.URL, Error: err.Error()})
				mu.Unlock()
				return nil // skip failures, don't fail the batch
			}

			perSite[i] = articles
			slog.Info("harvested site", "site", site.URL, "articles", len(articles))
			return nil
		})
	}

	_ = g.Wait()

	var all []models.Article
	for _, articles := range perSite {
		all = append(all, articles...)
	}
	return all, failed
}
