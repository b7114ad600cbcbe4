package fetcher

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/mmcdole/gofeed"
)

// parseFeed turns RSS/Atom items into headlines. Item order is kept.
func parseFeed(body []byte, base *url.URL, source string) ([]Headline, error) {
	fp := gofeed.NewParser()
	feed, err := fp.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error parsing feed: %w", err)
	}

	var out []Headline
	for _, item := range feed.Items {
		text := normalizeText(item.Title)
		if text == "" {
			continue
		}
		link := resolveLink(base, item.Link)
		if link == "" {
			continue
		}
		out = append(out, Headline{Text: text, Link: link, Source: source})
	}
	return out, nil
}
