package harvest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hoanghai1803/trendpost/internal/models"
)

// longText returns a sentence repeated until it exceeds n characters.
func longText(tag string, n int) string {
	sentence := "Marketers are shifting budget toward " + tag + " as search behaviour changes. "
	return strings.Repeat(sentence, n/len(sentence)+1)
}

func articlePage(paragraphs ...string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>Post</title></head><body><article>")
	for _, p := range paragraphs {
		fmt.Fprintf(&b, "<p>%s</p>", p)
	}
	b.WriteString("</article></body></html>")
	return b.String()
}

// fakeBlog is an httptest server impersonating a marketing blog.
type fakeBlog struct {
	srv  *httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func (f *fakeBlog) hit(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[path]++
}

func (f *fakeBlog) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func newFakeBlog(t *testing.T) *fakeBlog {
	t.Helper()
	fb := &fakeBlog{hits: make(map[string]int)}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fb.hit(r.URL.Path)
			next.ServeHTTP(w, r)
		})
	})

	html := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(body))
		}
	}

	r.Get("/blog", func(w http.ResponseWriter, r *http.Request) {
		host := "http://" + r.Host
		page := `<html><body>
			<nav><a href="#top">Top</a><a href="/blog">Blog home</a></nav>
			<a href="/blog/post-1">One</a>
			<a href="post-2">Two</a>
			<a href="` + host + `/blog/post-3">Three</a>
			<a href="/blog/post-1#comments">One again</a>
			<a href="/author/jane">Jane</a>
			<a href="/category/seo">SEO</a>
			<a href="https://elsewhere.example/post">External</a>
			<a href="mailto:editor@example.com">Mail</a>
			<a href="javascript:void(0)">JS</a>
			<a href="/blog/post-4">Four</a>
		</body></html>`
		html(page)(w, r)
	})
	r.Get("/blog/post-1", html(articlePage(longText("video", 200), longText("search", 200))))
	r.Get("/post-2", html(articlePage("Too short to count.")))
	r.Get("/blog/post-3", html(articlePage(longText("email", 400))))
	r.Get("/blog/post-4", html(articlePage(longText("podcasts", 400))))

	r.Get("/broken", html(`<html><body><a href="/broken/a">A</a><a href="/broken/b">B</a></body></html>`))
	r.Get("/broken/a", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	r.Get("/broken/b", html(articlePage(longText("retention", 400))))

	r.Get("/pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	})
	r.Get("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	r.Get("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		host := "http://" + r.Host
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Fake</title><link>%[1]s/</link><description>d</description>
<item><title>Four</title><link>%[1]s/blog/post-4</link></item>
<item><title>Three</title><link>%[1]s/blog/post-3</link></item>
<item><title>Jane</title><link>%[1]s/author/jane</link></item>
</channel></rss>`, host)
	})

	fb.srv = httptest.NewServer(r)
	t.Cleanup(fb.srv.Close)
	return fb
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.SiteTimeout = 2 * time.Second
	opts.ArticleTimeout = 2 * time.Second
	opts.SiteDelay = 0
	return opts
}

func TestHarvest_FirstThreeLinksInPageOrder(t *testing.T) {
	fb := newFakeBlog(t)
	h := NewHarvester(testOptions())

	articles, err := h.Harvest(context.Background(), models.Site{URL: fb.srv.URL + "/blog"})
	if err != nil {
		t.Fatalf("Harvest unexpected error: %v", err)
	}

	// post-2 is fetched but too short; post-4 is the fourth link and is
	// never fetched.
	want := []string{fb.srv.URL + "/blog/post-1", fb.srv.URL + "/blog/post-3"}
	if len(articles) != len(want) {
		t.Fatalf("got %d articles, want %d: %+v", len(articles), len(want), articles)
	}
	for i, a := range articles {
		if a.URL != want[i] {
			t.Errorf("articles[%d].URL = %q, want %q", i, a.URL, want[i])
		}
		if len([]rune(a.Content)) <= 300 {
			t.Errorf("articles[%d] content has %d chars, want > 300", i, len([]rune(a.Content)))
		}
	}

	if fb.hitCount("/post-2") != 1 {
		t.Errorf("post-2 fetched %d times, want 1", fb.hitCount("/post-2"))
	}
	for _, path := range []string{"/blog/post-4", "/author/jane", "/category/seo"} {
		if n := fb.hitCount(path); n != 0 {
			t.Errorf("%s fetched %d times, want 0", path, n)
		}
	}
	if n := fb.hitCount("/blog/post-1"); n != 1 {
		t.Errorf("duplicate link fetched %d times, want 1", n)
	}
}

func TestHarvest_ParagraphsJoinedWithNewline(t *testing.T) {
	fb := newFakeBlog(t)
	h := NewHarvester(testOptions())

	articles, err := h.Harvest(context.Background(), models.Site{URL: fb.srv.URL + "/blog"})
	if err != nil || len(articles) == 0 {
		t.Fatalf("Harvest = %v, %v", articles, err)
	}
	want := longText("video", 200) + "\n" + longText("search", 200)
	if articles[0].Content != want {
		t.Errorf("content of post-1 not joined paragraph text")
	}
}

func TestHarvest_NeverMoreThanMax(t *testing.T) {
	fb := newFakeBlog(t)

	for _, max := range []int{1, 2, 3, 10} {
		t.Run(fmt.Sprintf("max=%d", max), func(t *testing.T) {
			opts := testOptions()
			opts.MaxArticlesPerSite = max
			opts.MinContentLength = 0

			articles, err := NewHarvester(opts).Harvest(context.Background(), models.Site{URL: fb.srv.URL + "/blog"})
			if err != nil {
				t.Fatalf("Harvest unexpected error: %v", err)
			}
			if len(articles) > max {
				t.Errorf("got %d articles, want <= %d", len(articles), max)
			}
		})
	}
}

func TestHarvest_SiteFailures(t *testing.T) {
	fb := newFakeBlog(t)

	tests := []struct {
		name    string
		path    string
		timeout time.Duration
		wantErr error
	}{
		{name: "404", path: "/missing", wantErr: ErrStatus},
		{name: "non-HTML", path: "/pdf", wantErr: ErrNotHTML},
		{name: "timeout", path: "/slow", timeout: 50 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			if tt.timeout > 0 {
				opts.SiteTimeout = tt.timeout
			}

			articles, err := NewHarvester(opts).Harvest(context.Background(), models.Site{URL: fb.srv.URL + tt.path})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if len(articles) != 0 {
				t.Errorf("got %d articles, want 0", len(articles))
			}
		})
	}

	t.Run("unreachable host", func(t *testing.T) {
		articles, err := NewHarvester(testOptions()).Harvest(context.Background(), models.Site{URL: "http://127.0.0.1:1/blog"})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if len(articles) != 0 {
			t.Errorf("got %d articles, want 0", len(articles))
		}
	})

	t.Run("invalid URL", func(t *testing.T) {
		if _, err := NewHarvester(testOptions()).Harvest(context.Background(), models.Site{URL: "::not a url"}); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}

func TestHarvest_ArticleFailureIsSkipped(t *testing.T) {
	fb := newFakeBlog(t)

	articles, err := NewHarvester(testOptions()).Harvest(context.Background(), models.Site{URL: fb.srv.URL + "/broken"})
	if err != nil {
		t.Fatalf("Harvest unexpected error: %v", err)
	}
	if len(articles) != 1 || articles[0].URL != fb.srv.URL+"/broken/b" {
		t.Errorf("articles = %+v, want only /broken/b", articles)
	}
}

func TestHarvest_FeedDiscovery(t *testing.T) {
	fb := newFakeBlog(t)

	site := models.Site{URL: fb.srv.URL + "/blog", FeedURL: fb.srv.URL + "/feed.xml"}
	articles, err := NewHarvester(testOptions()).Harvest(context.Background(), site)
	if err != nil {
		t.Fatalf("Harvest unexpected error: %v", err)
	}

	want := []string{fb.srv.URL + "/blog/post-4", fb.srv.URL + "/blog/post-3"}
	if len(articles) != len(want) {
		t.Fatalf("got %d articles, want %d", len(articles), len(want))
	}
	for i, a := range articles {
		if a.URL != want[i] {
			t.Errorf("articles[%d].URL = %q, want %q", i, a.URL, want[i])
		}
	}
	if fb.hitCount("/blog") != 0 {
		t.Error("site page should not be fetched when a feed is configured")
	}
}

func TestHarvest_ReadabilityExtractor(t *testing.T) {
	fb := newFakeBlog(t)
	opts := testOptions()
	opts.Extractor = "readability"

	articles, err := NewHarvester(opts).Harvest(context.Background(), models.Site{URL: fb.srv.URL + "/broken"})
	if err != nil {
		t.Fatalf("Harvest unexpected error: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
	if !strings.Contains(articles[0].Content, "retention") {
		t.Errorf("readability content missing article text: %q", articles[0].Content)
	}
}

func TestHarvest_SendsBrowserHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	t.Cleanup(srv.Close)

	opts := testOptions()
	opts.UserAgent = "Mozilla/5.0 (test)"
	if _, err := NewHarvester(opts).Harvest(context.Background(), models.Site{URL: srv.URL}); err != nil {
		t.Fatalf("Harvest unexpected error: %v", err)
	}
	if gotUA != "Mozilla/5.0 (test)" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if !strings.Contains(gotAccept, "text/html") {
		t.Errorf("Accept = %q", gotAccept)
	}
}

func TestHarvestAll(t *testing.T) {
	fb := newFakeBlog(t)
	h := NewHarvester(testOptions())

	sites := []models.Site{
		{URL: fb.srv.URL + "/missing"},
		{URL: fb.srv.URL + "/blog"},
		{URL: fb.srv.URL + "/broken"},
	}

	articles, failed := h.HarvestAll(context.Background(), sites)

	wantURLs := []string{
		fb.srv.URL + "/blog/post-1",
		fb.srv.URL + "/blog/post-3",
		fb.srv.URL + "/broken/b",
	}
	if len(articles) != len(wantURLs) {
		t.Fatalf("got %d articles, want %d", len(articles), len(wantURLs))
	}
	for i, a := range articles {
		if a.URL != wantURLs[i] {
			t.Errorf("articles[%d].URL = %q, want %q", i, a.URL, wantURLs[i])
		}
	}

	if len(failed) != 1 || failed[0].URL != sites[0].URL {
		t.Errorf("failed = %+v, want only %s", failed, sites[0].URL)
	}
}

func TestHarvestAll_PacesSites(t *testing.T) {
	fb := newFakeBlog(t)
	opts := testOptions()
	opts.SiteDelay = 100 * time.Millisecond
	h := NewHarvester(opts)

	sites := []models.Site{
		{URL: fb.srv.URL + "/missing"},
		{URL: fb.srv.URL + "/missing"},
		{URL: fb.srv.URL + "/missing"},
	}

	start := time.Now()
	_, failed := h.HarvestAll(context.Background(), sites)
	elapsed := time.Since(start)

	if len(failed) != 3 {
		t.Errorf("got %d failed sites, want 3", len(failed))
	}
	if elapsed < 200*time.Millisecond {
		t.Errorf("three sites took %v, want >= 200ms with a 100ms site delay", elapsed)
	}
}

func TestHarvestAll_CancelledContext(t *testing.T) {
	fb := newFakeBlog(t)
	opts := testOptions()
	opts.SiteDelay = time.Hour
	h := NewHarvester(opts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	articles, failed := h.HarvestAll(ctx, []models.Site{{URL: fb.srv.URL + "/blog"}, {URL: fb.srv.URL + "/blog"}})
	if len(articles) != 0 {
		t.Errorf("got %d articles, want 0", len(articles))
	}
	if len(failed) != 2 {
		t.Errorf("got %d failed sites, want 2", len(failed))
	}
}

func TestQualifies(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"empty", "", false},
		{"exactly 300", strings.Repeat("a", 300), false},
		{"301", strings.Repeat("a", 301), true},
		{"300 multibyte runes", strings.Repeat("é", 300), false},
		{"301 multibyte runes", strings.Repeat("é", 301), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := qualifies(tt.content, 300); got != tt.want {
				t.Errorf("qualifies(len=%d) = %v, want %v", len(tt.content), got, tt.want)
			}
		})
	}
}

func TestIsHTML(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"application/xhtml+xml", true},
		{"", true},
		{"application/json", false},
		{"application/pdf", false},
		{"image/png", false},
	}
	for _, tt := range tests {
		if got := isHTML(tt.contentType); got != tt.want {
			t.Errorf("isHTML(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}
