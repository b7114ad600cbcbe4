package sink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deusflow/headwatch/internal/fetcher"
	"github.com/deusflow/headwatch/internal/metrics"
	"github.com/deusflow/headwatch/internal/retry"
	"github.com/deusflow/headwatch/internal/translate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapTranslator map[string]string

func (m mapTranslator) Translate(_ context.Context, text, _, _ string) string {
	if out, ok := m[text]; ok {
		return out
	}
	return translate.DefaultSentinel
}

type failingProvider struct{}

func (failingProvider) Name() string { return "broken" }

func (failingProvider) Translate(context.Context, string, string, string) (string, error) {
	return "", errors.New("service unavailable")
}

func openTestLog(t *testing.T, tr Translator) (*HTMLLog, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fetch_titles.html")
	l, err := Open(path, tr, Options{SourceLang: "en", TargetLang: "zh-CN"})
	require.NoError(t, err)
	l.now = func() time.Time { return time.Date(2024, 4, 2, 9, 7, 42, 0, time.Local) }
	return l, path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestAppendRecords_Format(t *testing.T) {
	l, path := openTestLog(t, mapTranslator{"Trump announces policy": "特朗普宣布政策"})

	records, err := l.AppendRecords(context.Background(), []fetcher.Headline{
		{Text: "Trump announces policy", Link: "https://www.bbc.com/news/1", Source: "bbc"},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "特朗普宣布政策", records[0].Translated)
	assert.Equal(t, 0, records[0].Time.Second())

	want := documentHeader +
		"<div class=\"news-block\">\n" +
		"  <div class=\"timestamp\">🕒 2024-04-02 09:07</div>\n" +
		"  <div class=\"title\"><a href=\"https://www.bbc.com/news/1\" target=\"_blank\">Trump announces policy</a></div>\n" +
		"  <div class=\"translation\">特朗普宣布政策</div>\n" +
		"</div>\n\n"
	assert.Equal(t, want, readFile(t, path))
}

func TestAppendRecords_TranslationFailureStillWritten(t *testing.T) {
	svc := translate.NewService([]translate.Provider{failingProvider{}}, nil, metrics.New(), translate.Options{})
	l, path := openTestLog(t, svc)

	records, err := l.AppendRecords(context.Background(), []fetcher.Headline{
		{Text: "Iran talks resume", Link: "https://x.example/iran"},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, translate.DefaultSentinel, records[0].Translated)

	content := readFile(t, path)
	assert.Contains(t, content, "Iran talks resume")
	assert.Contains(t, content, `<div class="translation">[Translation error]</div>`)
}

func TestAppendRecords_OrderAndAppendOnly(t *testing.T) {
	tr := mapTranslator{"a": "A", "b": "B", "c": "C"}
	l, path := openTestLog(t, tr)

	_, err := l.AppendRecords(context.Background(), []fetcher.Headline{{Text: "a", Link: "https://x/a"}, {Text: "b", Link: "https://x/b"}})
	require.NoError(t, err)
	first := readFile(t, path)

	_, err = l.AppendRecords(context.Background(), []fetcher.Headline{{Text: "c", Link: "https://x/c"}})
	require.NoError(t, err)
	second := readFile(t, path)

	assert.True(t, strings.HasPrefix(second, first))
	assert.Less(t, strings.Index(second, ">a<"), strings.Index(second, ">b<"))
	assert.Less(t, strings.Index(second, ">b<"), strings.Index(second, ">c<"))
	assert.Equal(t, 3, strings.Count(second, `class="news-block"`))
}

func TestAppendRecords_EscapesHTML(t *testing.T) {
	l, path := openTestLog(t, mapTranslator{`Q&A: "Gaza" <live>`: "问答"})

	_, err := l.AppendRecords(context.Background(), []fetcher.Headline{
		{Text: `Q&A: "Gaza" <live>`, Link: `https://x/?a=1&b="2"`},
	})
	require.NoError(t, err)

	content := readFile(t, path)
	assert.Contains(t, content, `Q&amp;A: &#34;Gaza&#34; &lt;live&gt;`)
	assert.Contains(t, content, `href="https://x/?a=1&amp;b=&#34;2&#34;"`)
}

func TestAppendRecords_Empty(t *testing.T) {
	l, path := openTestLog(t, mapTranslator{})
	records, err := l.AppendRecords(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, records)
	assert.Equal(t, documentHeader, readFile(t, path))
}

func TestOpen_ExistingLogKeepsContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fetch_titles.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>earlier run</p>\n"), 0o644))

	_, err := Open(path, mapTranslator{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "<p>earlier run</p>\n", readFile(t, path))
}

func TestClose_WritesMarkerOnce(t *testing.T) {
	l, path := openTestLog(t, mapTranslator{})

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	content := readFile(t, path)
	assert.True(t, strings.HasSuffix(content, ClosingMarker))
	assert.Equal(t, 1, strings.Count(content, "</html>"))
}

func TestAppendRecords_UnwritablePath(t *testing.T) {
	dir := t.TempDir()
	l := &HTMLLog{path: filepath.Join(dir, "missing", "out.html"), translator: mapTranslator{}, now: time.Now, openFile: os.OpenFile}

	_, err := l.AppendRecords(context.Background(), []fetcher.Headline{{Text: "a", Link: "https://x/a"}})
	assert.Error(t, err)
}

func TestAppendRecords_RetriesOpenWritesOnce(t *testing.T) {
	l, path := openTestLog(t, mapTranslator{"a": "A"})
	l.retry = retry.RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}

	opens := 0
	l.openFile = func(name string, flag int, perm os.FileMode) (*os.File, error) {
		opens++
		if opens == 1 {
			return nil, errors.New("too many open files")
		}
		return os.OpenFile(name, flag, perm)
	}

	_, err := l.AppendRecords(context.Background(), []fetcher.Headline{{Text: "a", Link: "https://x/a"}})
	require.NoError(t, err)
	assert.Equal(t, 2, opens)
	assert.Equal(t, 1, strings.Count(readFile(t, path), `class="news-block"`))
}

type ctxTranslator struct{}

func (ctxTranslator) Translate(ctx context.Context, text, _, _ string) string {
	if ctx.Err() != nil {
		return translate.DefaultSentinel
	}
	return "ok:" + text
}

func TestAppendRecords_CancelledContextStillWrites(t *testing.T) {
	l, path := openTestLog(t, ctxTranslator{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records, err := l.AppendRecords(ctx, []fetcher.Headline{{Text: "Iran talks resume", Link: "https://x/iran"}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, translate.DefaultSentinel, records[0].Translated)
	assert.Contains(t, readFile(t, path), "Iran talks resume")
}
