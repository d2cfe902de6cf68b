package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/hoanghai1803/trendpost/internal/models"
)

// Config holds all application configuration.
type Config struct {
	AI       AIConfig       `toml:"ai"`
	Harvest  HarvestConfig  `toml:"harvest"`
	Telegram TelegramConfig `toml:"telegram"`
	Digest   DigestConfig   `toml:"digest"`
	Log      LogConfig      `toml:"log"`
}

// AIConfig holds generative model settings.
type AIConfig struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// HarvestConfig controls site scraping.
type HarvestConfig struct {
	Sites                 []models.Site `toml:"sites"`
	UserAgent             string        `toml:"user_agent"`
	SiteTimeoutSeconds    int           `toml:"site_timeout_seconds"`
	ArticleTimeoutSeconds int           `toml:"article_timeout_seconds"`
	MaxArticlesPerSite    int           `toml:"max_articles_per_site"`
	MinContentLength      int           `toml:"min_content_length"`
	ExcludePatterns       []string      `toml:"exclude_patterns"`
	SiteDelayMs           int           `toml:"site_delay_ms"`
	Concurrency           int           `toml:"concurrency"`
	Extractor             string        `toml:"extractor"`
}

// TelegramConfig holds chat delivery settings.
type TelegramConfig struct {
	BotToken       string `toml:"bot_token"`
	ChatID         string `toml:"chat_id"`
	APIURL         string `toml:"api_url"`
	ParseMode      string `toml:"parse_mode"`
	DisablePreview bool   `toml:"disable_preview"`
	MessageLimit   int    `toml:"message_limit"`
	ChunkSize      int    `toml:"chunk_size"`
	ChunkDelayMs   int    `toml:"chunk_delay_ms"`
}

// DigestConfig controls the message header.
type DigestConfig struct {
	Team     string `toml:"team"`
	Timezone string `toml:"timezone"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// DefaultSites are the marketing blogs scanned when the config lists none.
var DefaultSites = []models.Site{
	{URL: "https://blog.hubspot.com/marketing"},
	{URL: "https://moz.com/blog"},
	{URL: "https://contentmarketinginstitute.com/blog/"},
	{URL: "https://www.searchenginejournal.com/"},
	{URL: "https://www.socialmediaexaminer.com/"},
	{URL: "https://neilpatel.com/blog/"},
	{URL: "https://backlinko.com/blog"},
	{URL: "https://ahrefs.com/blog"},
	{URL: "https://www.marketingprofs.com/"},
	{URL: "https://copyblogger.com/blog/"},
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

const defaultConfigContent = `[ai]
provider = "gemini"                # "gemini", "anthropic" or "openai"
api_key = ""                       # Or set GEMINI_API_KEY / AI_API_KEY
model = "gemini-1.5-flash-latest"
timeout_seconds = 60

[harvest]
site_timeout_seconds = 15
article_timeout_seconds = 10
max_articles_per_site = 3
min_content_length = 300
exclude_patterns = ["author", "category"]
site_delay_ms = 1000
concurrency = 1
extractor = "paragraphs"           # "paragraphs" or "readability"

# Leave empty to use the built-in list of marketing blogs.
# [[harvest.sites]]
# url = "https://moz.com/blog"
# feed_url = "https://moz.com/blog/feed"

[telegram]
bot_token = ""                     # Or set TELEGRAM_BOT_TOKEN
chat_id = ""                       # Or set TELEGRAM_CHAT_ID
parse_mode = "Markdown"
disable_preview = true
message_limit = 4096
chunk_size = 4000
chunk_delay_ms = 1000

[digest]
team = "Adlift Team"
timezone = "Asia/Kolkata"

[log]
level = "info"
`

// Load reads and parses the TOML config from the given path. If the file does
// not exist, it creates a default config file at that path. Environment
// variables override values from the file with highest priority.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		slog.Info("created default config file", "path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Validate explicitly-set values before applying defaults, so that
	// "max_articles_per_site = 0" is an error rather than silently being
	// replaced with the default.
	if err := validateExplicit(&cfg, md); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(&cfg, md)
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables already set are left untouched. A missing file is
// not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %q: %w", path, err)
	}
	return nil
}

// createDefault writes the default config content to the given path,
// creating any parent directories as needed.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// validateExplicit checks values that were explicitly set in the TOML file.
func validateExplicit(cfg *Config, md toml.MetaData) error {
	positive := []struct {
		key   []string
		value int
	}{
		{[]string{"harvest", "max_articles_per_site"}, cfg.Harvest.MaxArticlesPerSite},
		{[]string{"harvest", "site_timeout_seconds"}, cfg.Harvest.SiteTimeoutSeconds},
		{[]string{"harvest", "article_timeout_seconds"}, cfg.Harvest.ArticleTimeoutSeconds},
		{[]string{"harvest", "concurrency"}, cfg.Harvest.Concurrency},
		{[]string{"telegram", "message_limit"}, cfg.Telegram.MessageLimit},
		{[]string{"telegram", "chunk_size"}, cfg.Telegram.ChunkSize},
		{[]string{"ai", "timeout_seconds"}, cfg.AI.TimeoutSeconds},
	}
	for _, p := range positive {
		if md.IsDefined(p.key...) && p.value < 1 {
			return fmt.Errorf("invalid %s %d: must be >= 1", strings.Join(p.key, "."), p.value)
		}
	}

	if md.IsDefined("harvest", "site_delay_ms") && cfg.Harvest.SiteDelayMs < 0 {
		return fmt.Errorf("invalid harvest.site_delay_ms %d: must be >= 0", cfg.Harvest.SiteDelayMs)
	}
	if md.IsDefined("telegram", "chunk_delay_ms") && cfg.Telegram.ChunkDelayMs < 0 {
		return fmt.Errorf("invalid telegram.chunk_delay_ms %d: must be >= 0", cfg.Telegram.ChunkDelayMs)
	}
	if md.IsDefined("harvest", "min_content_length") && cfg.Harvest.MinContentLength < 0 {
		return fmt.Errorf("invalid harvest.min_content_length %d: must be >= 0", cfg.Harvest.MinContentLength)
	}
	return nil
}

// applyDefaults sets default values for any zero-valued fields. Booleans and
// lists are only defaulted when the key is absent from the file, so explicit
// false and empty values are respected.
func applyDefaults(cfg *Config, md toml.MetaData) {
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "gemini"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = defaultModel(cfg.AI.Provider)
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 60
	}

	if len(cfg.Harvest.Sites) == 0 {
		cfg.Harvest.Sites = append([]models.Site(nil), DefaultSites...)
	}
	if cfg.Harvest.UserAgent == "" {
		cfg.Harvest.UserAgent = defaultUserAgent
	}
	if cfg.Harvest.SiteTimeoutSeconds == 0 {
		cfg.Harvest.SiteTimeoutSeconds = 15
	}
	if cfg.Harvest.ArticleTimeoutSeconds == 0 {
		cfg.Harvest.ArticleTimeoutSeconds = 10
	}
	if cfg.Harvest.MaxArticlesPerSite == 0 {
		cfg.Harvest.MaxArticlesPerSite = 3
	}
	if !md.IsDefined("harvest", "min_content_length") {
		cfg.Harvest.MinContentLength = 300
	}
	if !md.IsDefined("harvest", "exclude_patterns") {
		cfg.Harvest.ExcludePatterns = []string{"author", "category"}
	}
	if !md.IsDefined("harvest", "site_delay_ms") {
		cfg.Harvest.SiteDelayMs = 1000
	}
	if cfg.Harvest.Concurrency == 0 {
		cfg.Harvest.Concurrency = 1
	}
	if cfg.Harvest.Extractor == "" {
		cfg.Harvest.Extractor = "paragraphs"
	}

	if cfg.Telegram.ParseMode == "" {
		cfg.Telegram.ParseMode = "Markdown"
	}
	if !md.IsDefined("telegram", "disable_preview") {
		cfg.Telegram.DisablePreview = true
	}
	if cfg.Telegram.MessageLimit == 0 {
		cfg.Telegram.MessageLimit = 4096
	}
	if cfg.Telegram.ChunkSize == 0 {
		cfg.Telegram.ChunkSize = 4000
	}
	if !md.IsDefined("telegram", "chunk_delay_ms") {
		cfg.Telegram.ChunkDelayMs = 1000
	}

	if cfg.Digest.Team == "" {
		cfg.Digest.Team = "Adlift Team"
	}
	if cfg.Digest.Timezone == "" {
		cfg.Digest.Timezone = "Asia/Kolkata"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func defaultModel(provider string) string {
	switch provider {
	case "anthropic":
		return "claude-haiku-4-5"
	case "openai":
		return "gpt-4o-mini"
	default:
		return "gemini-1.5-flash-latest"
	}
}

// applyEnvOverrides applies environment variable overrides. Environment
// variables take highest priority over config file values.
//
// Priority for ai.api_key:
//  1. AI_API_KEY (generic, highest)
//  2. GEMINI_API_KEY, ANTHROPIC_API_KEY or OPENAI_API_KEY, matching the provider
func applyEnvOverrides(cfg *Config) {
	providerEnv := map[string]string{
		"gemini":    "GEMINI_API_KEY",
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
	}
	if name, ok := providerEnv[cfg.AI.Provider]; ok {
		if v := os.Getenv(name); v != "" {
			cfg.AI.APIKey = v
		}
	}
	if v := os.Getenv("AI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}

	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// validate checks that configuration values are within acceptable ranges.
// Missing credentials only warn: the affected stage degrades at run time.
func validate(cfg *Config) error {
	switch cfg.AI.Provider {
	case "gemini", "anthropic", "openai":
	default:
		return fmt.Errorf("invalid ai.provider %q: must be \"gemini\", \"anthropic\" or \"openai\"", cfg.AI.Provider)
	}

	switch cfg.Harvest.Extractor {
	case "paragraphs", "readability":
	default:
		return fmt.Errorf("invalid harvest.extractor %q: must be \"paragraphs\" or \"readability\"", cfg.Harvest.Extractor)
	}

	for i, site := range cfg.Harvest.Sites {
		if !strings.HasPrefix(site.URL, "http://") && !strings.HasPrefix(site.URL, "https://") {
			return fmt.Errorf("invalid harvest.sites[%d].url %q: must be an http(s) URL", i, site.URL)
		}
	}

	if cfg.Telegram.ChunkSize > cfg.Telegram.MessageLimit {
		return fmt.Errorf("invalid telegram.chunk_size %d: must not exceed message_limit %d",
			cfg.Telegram.ChunkSize, cfg.Telegram.MessageLimit)
	}

	if _, err := time.LoadLocation(cfg.Digest.Timezone); err != nil {
		return fmt.Errorf("invalid digest.timezone %q: %w", cfg.Digest.Timezone, err)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q", cfg.Log.Level)
	}

	if cfg.AI.APIKey == "" {
		slog.Warn("ai.api_key is empty: set it in the config file or via the GEMINI_API_KEY / AI_API_KEY environment variable")
	}
	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
		slog.Warn("telegram credentials incomplete: set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID")
	}

	return nil
}

// SiteTimeout returns the timeout for fetching a site's root page.
func (c HarvestConfig) SiteTimeout() time.Duration {
	return time.Duration(c.SiteTimeoutSeconds) * time.Second
}

// ArticleTimeout returns the timeout for fetching a single article.
func (c HarvestConfig) ArticleTimeout() time.Duration {
	return time.Duration(c.ArticleTimeoutSeconds) * time.Second
}

// SiteDelay returns the pause between consecutive site harvests.
func (c HarvestConfig) SiteDelay() time.Duration {
	return time.Duration(c.SiteDelayMs) * time.Millisecond
}

// ChunkDelay returns the pause between consecutive chunk sends.
func (c TelegramConfig) ChunkDelay() time.Duration {
	return time.Duration(c.ChunkDelayMs) * time.Millisecond
}

// Timeout returns the model call timeout.
func (c AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Location returns the digest time zone. Load has already validated it.
func (c DigestConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel maps the configured level name to a slog.Level.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
