package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deusflow/headwatch/internal/ratelimit"
	"github.com/deusflow/headwatch/internal/retry"
)

const DefaultMyMemoryEndpoint = "https://api.mymemory.translated.net/get"

// MyMemoryProvider uses the public MyMemory translation API.
type MyMemoryProvider struct {
	endpoint string
	client   *http.Client
}

func NewMyMemoryProvider(endpoint string, timeout time.Duration) *MyMemoryProvider {
	if endpoint == "" {
		endpoint = DefaultMyMemoryEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &MyMemoryProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (m *MyMemoryProvider) Name() string {
	return "mymemory"
}

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus  interface{} `json:"responseStatus"`
	ResponseDetails string      `json:"responseDetails"`
}

func (m *MyMemoryProvider) Translate(ctx context.Context, text, from, to string) (string, error) {
	params := url.Values{}
	params.Set("q", text)
	params.Set("langpair", from+"|"+to)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("error creating request: %w", err))
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP error: %w", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("mymemory", resp.StatusCode); err != nil {
		return "", err
	}

	var out myMemoryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return "", retry.Permanent(fmt.Errorf("error decoding response: %w", err))
	}

	translated := strings.TrimSpace(out.ResponseData.TranslatedText)
	if strings.HasPrefix(strings.ToUpper(translated), "MYMEMORY WARNING") {
		return "", retry.Permanent(fmt.Errorf("mymemory: %w", ratelimit.ErrQuotaExceeded))
	}
	if status := fmt.Sprint(out.ResponseStatus); status != "200" {
		return "", retry.Permanent(fmt.Errorf("mymemory status %s: %s", status, out.ResponseDetails))
	}
	return translated, nil
}
