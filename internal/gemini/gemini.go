package gemini

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-1.5-flash"

var errEmptyResponse = errors.New("no response from Gemini")

// Client translates headlines with a Gemini model.
type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func (c *Client) Name() string {
	return "gemini"
}

// Translate asks the model for a plain translation of one headline.
func (c *Client) Translate(ctx context.Context, text, from, to string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0.2)

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(text, from, to)))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errEmptyResponse
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return parseResponse(b.String())
}

func buildPrompt(text, from, to string) string {
	return fmt.Sprintf(`Translate this news headline from %s to %s.
Keep names of people, brands and organizations recognizable.
Reply with the translated headline only, on one line, without quotes, notes or explanations.

HEADLINE: %s`, languageName(from), languageName(to), text)
}

var labelPattern = regexp.MustCompile(`(?i)^(translation|translated headline|headline)\s*:\s*`)

// parseResponse strips labels and wrapping quotes the model sometimes adds.
func parseResponse(response string) (string, error) {
	for _, raw := range strings.Split(response, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		line = labelPattern.ReplaceAllString(line, "")
		line = strings.Trim(line, `"'“”「」`)
		line = strings.TrimSpace(line)
		if line != "" {
			return line, nil
		}
	}
	return "", errEmptyResponse
}

var languageNames = map[string]string{
	"en":    "English",
	"zh-CN": "Simplified Chinese",
	"zh-TW": "Traditional Chinese",
	"de":    "German",
	"fr":    "French",
	"es":    "Spanish",
	"uk":    "Ukrainian",
	"da":    "Danish",
	"ru":    "Russian",
	"ja":    "Japanese",
}

func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}
