package digest

import (
	"fmt"
	"time"
)

// DateLayout renders dates as "January 15, 2024".
const DateLayout = "January 02, 2006"

// DefaultTeam is the greeted team when none is configured.
const DefaultTeam = "Adlift Team"

// Closing is appended after the digest text.
const Closing = "\n\n------------------------------------\n*Have a productive day!* — Your AI Analyst"

// Options customises the message header.
type Options struct {
	Team     string
	Location *time.Location
}

// Title returns the greeting and dated header that precede the digest text.
func Title(date time.Time, opts Options) string {
	team := opts.Team
	if team == "" {
		team = DefaultTeam
	}
	if opts.Location != nil {
		date = date.In(opts.Location)
	}
	return fmt.Sprintf("*Hi %s! ☀️*\n\n*📢 Your Daily Marketing Trends Digest for %s 📢*\n\n",
		team, date.Format(DateLayout))
}

// Format wraps text in the dated title and the closing sign-off. The text is
// inserted unchanged.
func Format(text string, date time.Time, opts Options) string {
	return Title(date, opts) + text + Closing
}
