// Package fetcher downloads configured sources and extracts candidate headlines.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/deusflow/headwatch/internal/config"
	"github.com/deusflow/headwatch/internal/logger"
	"github.com/deusflow/headwatch/internal/matcher"
	"github.com/deusflow/headwatch/internal/metrics"
	"golang.org/x/net/html/charset"
)

const maxBodySize = 10 << 20

// ErrBodyTooSmall marks a page that is probably a block or consent page.
var ErrBodyTooSmall = errors.New("response body below minimum size")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Headline is a qualifying heading with its absolute link.
type Headline struct {
	Text   string
	Link   string
	Source string
}

// SourceResult is the outcome of fetching one source. Headlines holds every
// linked heading on the page, before keyword and seen filtering.
type SourceResult struct {
	Source    config.Source
	Headlines []Headline
	Err       error
}

type Options struct {
	Timeout     time.Duration
	MinBodySize int
	Headers     map[string]string
	SweepDelay  time.Duration
}

func OptionsFromConfig(cfg config.HTTPConfig, sweepDelay time.Duration) Options {
	return Options{
		Timeout:     cfg.Timeout,
		MinBodySize: cfg.MinBodySize,
		Headers:     cfg.Headers,
		SweepDelay:  sweepDelay,
	}
}

type Fetcher struct {
	client  *http.Client
	opts    Options
	metrics *metrics.Metrics
}

func New(opts Options, m *metrics.Metrics) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if m == nil {
		m = metrics.Global
	}
	return &Fetcher{
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		metrics: m,
	}
}

// FetchAll fetches every source in order and returns the qualifying
// headlines plus their texts for the seen-set. A failing source is logged
// and skipped. A text found on several sources is returned once.
func (f *Fetcher) FetchAll(ctx context.Context, sources []config.Source, keywords []string, seen matcher.SeenSet) ([]Headline, []string) {
	var matched []Headline
	var newTexts []string
	inCycle := matcher.NewSeenSet()
	checked := 0

	for _, src := range sources {
		if ctx.Err() != nil {
			logger.Warn("fetch sweep interrupted", "remaining", len(sources)-checked)
			break
		}
		checked++

		res := f.FetchSource(ctx, src)
		if res.Err != nil && ctx.Err() != nil {
			logger.Warn("fetch sweep interrupted", "source", src.Name)
			break
		}
		if res.Err != nil {
			f.metrics.IncrementSourcesFailed()
			logger.Warn("source skipped", "source", src.Name, "url", src.URL, "error", res.Err)
			continue
		}
		f.metrics.IncrementSourcesFetched()

		found := 0
		for _, h := range res.Headlines {
			c := matcher.Candidate{Text: h.Text, Link: h.Link}
			if !matcher.Qualifies(c, keywords, seen) || inCycle.Has(h.Text) {
				continue
			}
			inCycle.Add(h.Text)
			matched = append(matched, h)
			newTexts = append(newTexts, h.Text)
			found++
		}
		logger.Debug("source fetched", "source", src.Name, "headings", len(res.Headlines), "matched", found)
	}

	logger.Info(fmt.Sprintf("Checked %d sites, matched %d titles", checked, len(matched)))
	f.metrics.AddHeadlinesMatched(len(matched))

	f.pause(ctx)
	return matched, newTexts
}

// FetchSource downloads one source and extracts its linked headings.
func (f *Fetcher) FetchSource(ctx context.Context, src config.Source) SourceResult {
	res := SourceResult{Source: src}

	body, finalURL, contentType, err := f.get(ctx, src.URL)
	if err != nil {
		res.Err = err
		return res
	}

	switch src.Kind {
	case config.KindFeed:
		res.Headlines, res.Err = parseFeed(body, finalURL, src.Name)
	default:
		res.Headlines, res.Err = f.parsePage(body, contentType, finalURL, src.Name)
	}
	return res
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, *url.URL, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, "", fmt.Errorf("error creating request: %w", err)
	}
	for k, v := range f.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, "", fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, "", &StatusError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, nil, "", fmt.Errorf("error reading body: %w", err)
	}
	return body, resp.Request.URL, resp.Header.Get("Content-Type"), nil
}

func (f *Fetcher) parsePage(body []byte, contentType string, base *url.URL, source string) ([]Headline, error) {
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("error decoding page: %w", err)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("error decoding page: %w", err)
	}

	if n := utf8.RuneCount(decoded); n < f.opts.MinBodySize {
		return nil, fmt.Errorf("%w: %d < %d characters", ErrBodyTooSmall, n, f.opts.MinBodySize)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}
	return extractHeadings(doc, base, source), nil
}

// extractHeadings walks h1-h4 in document order and keeps those with a usable link.
func extractHeadings(doc *goquery.Document, base *url.URL, source string) []Headline {
	var out []Headline
	doc.Find("h1, h2, h3, h4").Each(func(_ int, s *goquery.Selection) {
		text := normalizeText(s.Text())
		if text == "" {
			return
		}

		href, ok := s.Find("a[href]").First().Attr("href")
		if !ok {
			href, ok = s.Closest("a[href]").Attr("href")
		}
		if !ok {
			return
		}

		link := resolveLink(base, href)
		if link == "" {
			return
		}
		out = append(out, Headline{Text: text, Link: link, Source: source})
	})
	return out
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolveLink returns href as an absolute http(s) URL, or "" when it cannot be resolved.
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	if (abs.Scheme != "http" && abs.Scheme != "https") || abs.Host == "" {
		return ""
	}
	return abs.String()
}

func (f *Fetcher) pause(ctx context.Context) {
	if f.opts.SweepDelay <= 0 {
		return
	}
	t := time.NewTimer(f.opts.SweepDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
