package ai

import (
	"fmt"
	"strings"

	"github.com/hoanghai1803/trendpost/internal/models"
)

// articleEndMarker closes every article in the combined prompt text.
const articleEndMarker = "---END OF ARTICLE---"

const digestSystemPrompt = `You are a Senior Marketing Strategist AI. Analyze the following full marketing articles and generate a professional digest.

Format using basic Telegram Markdown:

📊 *Executive Summary*
(Write a 2–3 sentence summary of overall trends in the articles)

🚀 *Actionable Trends*
Then, for each trend:
- Start with 📌 *Title of the trend*
- Write 2-sentence description of the insight
- Add (Source: [URL])`

// DigestPrompt builds the system and user prompts for the digest synthesis.
// The user prompt carries every article delimited by its source URL and the
// end marker.
func DigestPrompt(articles []models.Article) (systemPrompt string, userPrompt string) {
	var b strings.Builder
	b.WriteString("ARTICLES TO ANALYZE:\n")
	b.WriteString(CombineArticles(articles))
	return digestSystemPrompt, b.String()
}

// CombineArticles concatenates articles into a single text block.
func CombineArticles(articles []models.Article) string {
	var b strings.Builder
	for _, a := range articles {
		fmt.Fprintf(&b, "SOURCE_URL: %s\nCONTENT:\n%s\n\n%s\n\n", a.URL, a.Content, articleEndMarker)
	}
	return b.String()
}
