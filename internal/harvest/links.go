package harvest

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// anchorHrefs returns the href value of every anchor in document order.
func anchorHrefs(doc *goquery.Document) []string {
	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs
}

// filterLinks resolves hrefs against the site's scheme and host, keeps the
// in-domain ones that match none of the exclude patterns, and deduplicates
// them while preserving first-seen order. The site page itself is dropped.
func filterLinks(siteURL *url.URL, hrefs []string, exclude []string) []string {
	root := &url.URL{Scheme: siteURL.Scheme, Host: siteURL.Host, Path: "/"}
	self := strings.TrimSuffix(siteURL.Path, "/")

	seen := make(map[string]struct{}, len(hrefs))
	var links []string
	for _, href := range hrefs {
		abs, ok := resolveLink(root, href)
		if !ok {
			continue
		}
		if !strings.EqualFold(abs.Host, siteURL.Host) {
			continue
		}
		if strings.TrimSuffix(abs.Path, "/") == self && abs.RawQuery == "" {
			continue
		}

		link := abs.String()
		if containsAny(link, exclude) {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}
	return links
}

// resolveLink turns href into an absolute http(s) URL without fragment.
// Fragment-only links and other schemes (mailto:, javascript:, tel:) are
// rejected.
func resolveLink(root *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}

	abs := root.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return nil, false
	}
	abs.Fragment = ""
	abs.RawFragment = ""
	return abs, true
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(s, p) {
			return true
		}
	}
	return false
}
