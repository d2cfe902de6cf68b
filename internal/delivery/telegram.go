package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

// ErrNotConfigured is returned when the bot token or chat is missing.
var ErrNotConfigured = errors.New("telegram delivery not configured")

// Config holds Telegram delivery settings.
type Config struct {
	Token          string
	ChatID         string
	APIURL         string
	ParseMode      string
	DisablePreview bool
	MessageLimit   int
	ChunkSize      int
	ChunkDelay     time.Duration
	RequestTimeout time.Duration
}

// chatRecipient addresses a chat by numeric ID or @username.
type chatRecipient string

func (c chatRecipient) Recipient() string { return string(c) }

// Telegram posts messages to one chat through the Bot API.
type Telegram struct {
	bot  *tele.Bot
	cfg  Config
	chat chatRecipient
}

// NewTelegram creates an offline bot client: no getMe call is made until the
// first send.
func NewTelegram(cfg Config) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" || strings.TrimSpace(cfg.ChatID) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.MessageLimit <= 0 {
		cfg.MessageLimit = 4096
	}
	if cfg.ChunkSize <= 0 || cfg.ChunkSize > cfg.MessageLimit {
		cfg.ChunkSize = min(4000, cfg.MessageLimit)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		URL:     cfg.APIURL,
		Offline: true,
		Client:  &http.Client{Timeout: cfg.RequestTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	return &Telegram{bot: b, cfg: cfg, chat: chatRecipient(strings.TrimSpace(cfg.ChatID))}, nil
}

// Deliver sends message, splitting it into chunks when it exceeds the message
// limit. Chunks go out in order, paced by ChunkDelay. The first failed send
// stops delivery; the number of chunks already sent is returned with it.
func (t *Telegram) Deliver(ctx context.Context, message string) (int, error) {
	chunks := []string{message}
	if utf8.RuneCountInString(message) > t.cfg.MessageLimit {
		chunks = Chunk(message, t.cfg.ChunkSize)
		slog.Info("message exceeds telegram limit, sending in chunks",
			"chars", utf8.RuneCountInString(message), "chunks", len(chunks))
	}

	limit := rate.Inf
	if t.cfg.ChunkDelay > 0 {
		limit = rate.Every(t.cfg.ChunkDelay)
	}
	pacer := rate.NewLimiter(limit, 1)

	opts := &tele.SendOptions{
		ParseMode:             t.cfg.ParseMode,
		DisableWebPagePreview: t.cfg.DisablePreview,
	}

	sent := 0
	for i, chunk := range chunks {
		if err := pacer.Wait(ctx); err != nil {
			return sent, fmt.Errorf("waiting to send chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if _, err := t.bot.Send(t.chat, chunk, opts); err != nil {
			return sent, fmt.Errorf("sending chunk %d/%d: %w", i+1, len(chunks), err)
		}
		sent++
		slog.Debug("sent telegram message", "chunk", i+1, "of", len(chunks), "chars", utf8.RuneCountInString(chunk))
	}

	slog.Info("delivered digest to telegram", "chat", t.cfg.ChatID, "messages", sent)
	return sent, nil
}
