// Package sink appends bilingual headline records to the HTML output log.
package sink

import (
	"context"
	"fmt"
	"html"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/deusflow/headwatch/internal/fetcher"
	"github.com/deusflow/headwatch/internal/retry"
)

const (
	TimestampLayout = "2006-01-02 15:04"
	ClosingMarker   = "</body>\n</html>\n"
)

const documentHeader = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Headlines</title>
</head>
<body>
`

// Translator is the part of translate.Service the log needs.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) string
}

// Record is one written entry.
type Record struct {
	Time       time.Time
	Original   string
	Translated string
	Link       string
	Source     string
}

// HTMLLog is an append-only HTML document. Every write opens the file in
// append mode, so earlier content is never rewritten.
type HTMLLog struct {
	path       string
	translator Translator
	from, to   string
	retry      retry.RetryConfig
	now        func() time.Time
	openFile   func(name string, flag int, perm os.FileMode) (*os.File, error)

	mu     sync.Mutex
	closed bool
}

type Options struct {
	SourceLang string
	TargetLang string
	Retry      retry.RetryConfig
}

// Open prepares the log at path, writing the document header if the file is missing or empty.
func Open(path string, translator Translator, opts Options) (*HTMLLog, error) {
	l := &HTMLLog{
		path:       path,
		translator: translator,
		from:       opts.SourceLang,
		to:         opts.TargetLang,
		retry:      opts.Retry,
		now:        time.Now,
		openFile:   os.OpenFile,
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err) || (err == nil && info.Size() == 0):
		if err := l.appendString(context.Background(), documentHeader); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat output log: %w", err)
	}
	return l, nil
}

// AppendRecords translates each headline, stamps it with the current minute
// and appends all blocks in one write, in the given order. Translation
// failures show up as the translator's sentinel text, never as an error.
// Translation follows ctx; the write itself runs even after ctx is cancelled.
func (l *HTMLLog) AppendRecords(ctx context.Context, headlines []fetcher.Headline) ([]Record, error) {
	if len(headlines) == 0 {
		return nil, nil
	}

	records := make([]Record, 0, len(headlines))
	var b strings.Builder
	for _, h := range headlines {
		r := Record{
			Time:       l.now().Truncate(time.Minute),
			Original:   h.Text,
			Translated: l.translator.Translate(ctx, h.Text, l.from, l.to),
			Link:       h.Link,
			Source:     h.Source,
		}
		records = append(records, r)
		b.WriteString(FormatRecord(r))
	}

	if err := l.appendString(context.WithoutCancel(ctx), b.String()); err != nil {
		return nil, fmt.Errorf("failed to append records: %w", err)
	}
	return records, nil
}

// Close appends the closing marker once.
func (l *HTMLLog) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	return l.appendString(context.Background(), ClosingMarker)
}

// FormatRecord renders one news block.
func FormatRecord(r Record) string {
	var b strings.Builder
	b.WriteString("<div class=\"news-block\">\n")
	fmt.Fprintf(&b, "  <div class=\"timestamp\">🕒 %s</div>\n", r.Time.Format(TimestampLayout))
	fmt.Fprintf(&b, "  <div class=\"title\"><a href=\"%s\" target=\"_blank\">%s</a></div>\n",
		html.EscapeString(r.Link), html.EscapeString(r.Original))
	fmt.Fprintf(&b, "  <div class=\"translation\">%s</div>\n", html.EscapeString(r.Translated))
	b.WriteString("</div>\n\n")
	return b.String()
}

// appendString retries opening the file but writes s at most once, so a
// partial write is never repeated.
func (l *HTMLLog) appendString(ctx context.Context, s string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var f *os.File
	err := retry.WithRetry(ctx, l.retry, func() error {
		var err error
		f, err = l.openFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to open output log: %w", err)
	}
	if _, err := f.WriteString(s); err != nil {
		f.Close()
		return fmt.Errorf("failed to write output log: %w", err)
	}
	return f.Close()
}
