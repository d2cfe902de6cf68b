package harvest

import (
	"bytes"
	"fmt"

	"github.com/mmcdole/gofeed"
)

// feedLinks parses an RSS, Atom or JSON feed and returns its item links in
// feed order. Items without a link are skipped.
func feedLinks(body []byte) ([]string, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	links := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || item.Link == "" {
			continue
		}
		links = append(links, item.Link)
	}
	return links, nil
}
