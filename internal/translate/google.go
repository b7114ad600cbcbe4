package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deusflow/headwatch/internal/retry"
)

const (
	DefaultGoogleEndpoint = "https://translate.googleapis.com/translate_a/single"
	maxResponseBytes      = 256 * 1024
)

// GoogleProvider uses the free gtx endpoint of Google Translate.
type GoogleProvider struct {
	endpoint string
	client   *http.Client
}

func NewGoogleProvider(endpoint string, timeout time.Duration) *GoogleProvider {
	if endpoint == "" {
		endpoint = DefaultGoogleEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GoogleProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (g *GoogleProvider) Name() string {
	return "google"
}

func (g *GoogleProvider) Translate(ctx context.Context, text, from, to string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", from)
	params.Set("tl", to)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("error creating request: %w", err))
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP error: %w", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("google translate", resp.StatusCode); err != nil {
		return "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("error reading response: %w", err)
	}

	translation, err := parseGoogleTranslateResponse(body)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("error parsing response: %w", err))
	}
	return translation, nil
}

// parseGoogleTranslateResponse joins the translated segments of a gtx reply:
// [[["译文","source",...],...],...]
func parseGoogleTranslateResponse(body []byte) (string, error) {
	var response []interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}

	if len(response) == 0 {
		return "", errors.New("empty response from Google Translate")
	}

	segments, ok := response[0].([]interface{})
	if !ok {
		return "", errors.New("unexpected response format")
	}

	var result strings.Builder
	for _, segment := range segments {
		if parts, ok := segment.([]interface{}); ok && len(parts) > 0 {
			if translated, ok := parts[0].(string); ok {
				result.WriteString(translated)
			}
		}
	}

	return strings.TrimSpace(result.String()), nil
}

// classifyStatus marks 429 and 5xx as retryable and any other non-200 as permanent.
func classifyStatus(service string, code int) error {
	if code == http.StatusOK {
		return nil
	}
	err := fmt.Errorf("%s returned status %d", service, code)
	if code == http.StatusTooManyRequests || code >= 500 {
		return err
	}
	return retry.Permanent(err)
}
