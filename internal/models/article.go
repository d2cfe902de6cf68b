package models

// Site is a marketing blog the harvester scans for articles.
type Site struct {
	// URL is the page whose links are scanned, e.g. "https://moz.com/blog".
	URL string `json:"url" toml:"url"`

	// FeedURL optionally names an RSS/Atom feed used for link discovery
	// instead of the anchors on URL.
	FeedURL string `json:"feed_url,omitempty" toml:"feed_url"`
}

// Article is a harvested blog post with its plain-text body.
type Article struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// FailedSite records a site that yielded nothing because of an error.
type FailedSite struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// RunReport summarizes one pipeline execution.
type RunReport struct {
	SitesAttempted int          `json:"sites_attempted"`
	SitesFailed    []FailedSite `json:"sites_failed,omitempty"`
	Articles       int          `json:"articles"`
	UsedFallback   bool         `json:"used_fallback"`
	Delivered      bool         `json:"delivered"`
	ChunksSent     int          `json:"chunks_sent"`
	DeliveryError  string       `json:"delivery_error,omitempty"`
}
