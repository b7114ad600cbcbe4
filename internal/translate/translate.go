// Package translate turns headlines into the target language through a
// chain of providers. Callers always get a string back: when every provider
// fails they get the configured sentinel instead of an error.
package translate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/deusflow/headwatch/internal/cache"
	"github.com/deusflow/headwatch/internal/logger"
	"github.com/deusflow/headwatch/internal/metrics"
	"github.com/deusflow/headwatch/internal/ratelimit"
	"github.com/deusflow/headwatch/internal/retry"
)

const (
	DefaultSentinel = "[Translation error]"
	maxInputRunes   = 4000
)

var ErrAllProvidersFailed = errors.New("all translation providers failed")

// Provider is one external translation backend.
type Provider interface {
	Name() string
	Translate(ctx context.Context, text, from, to string) (string, error)
}

type Options struct {
	Sentinel string
	CacheTTL time.Duration
	Retry    retry.RetryConfig
}

type Service struct {
	providers []Provider
	cache     *cache.Cache
	quota     *ratelimit.QuotaLimiter
	metrics   *metrics.Metrics
	opts      Options
}

// NewService builds a translator trying providers in order. quota may be nil.
func NewService(providers []Provider, quota *ratelimit.QuotaLimiter, m *metrics.Metrics, opts Options) *Service {
	if opts.Sentinel == "" {
		opts.Sentinel = DefaultSentinel
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}
	if m == nil {
		m = metrics.Global
	}
	return &Service{
		providers: providers,
		cache:     cache.New(),
		quota:     quota,
		metrics:   m,
		opts:      opts,
	}
}

func (s *Service) Sentinel() string {
	return s.opts.Sentinel
}

// Translate returns the translation of text or the sentinel string. It never fails.
func (s *Service) Translate(ctx context.Context, text, from, to string) string {
	out, err := s.TryTranslate(ctx, text, from, to)
	if err != nil {
		s.metrics.IncrementFailedTranslations()
		logger.Warn("translation failed", "text", text, "error", err)
		return s.opts.Sentinel
	}
	s.metrics.IncrementSuccessfulTranslations()
	return out
}

// TryTranslate walks the provider chain and reports the last error when all fail.
func (s *Service) TryTranslate(ctx context.Context, text, from, to string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" || from == to {
		return text, nil
	}
	if rs := []rune(text); len(rs) > maxInputRunes {
		text = string(rs[:maxInputRunes])
	}

	key := cache.GenerateKey(from, to, text)
	if cached, ok := s.cache.Get(key); ok {
		logger.Debug("translation cache hit", "text", text)
		return cached, nil
	}

	if len(s.providers) == 0 {
		return "", fmt.Errorf("%w: no providers configured", ErrAllProvidersFailed)
	}

	var lastErr error
	for _, p := range s.providers {
		if s.quota != nil && !s.quota.Allow(p.Name()) {
			lastErr = fmt.Errorf("%s: %w", p.Name(), ratelimit.ErrQuotaExceeded)
			continue
		}

		var out string
		err := retry.WithRetry(ctx, s.opts.Retry, func() error {
			if s.quota != nil {
				if err := s.quota.Use(p.Name()); err != nil {
					return retry.Permanent(err)
				}
			}
			res, err := p.Translate(ctx, text, from, to)
			if err != nil {
				return err
			}
			res = SanitizeAIText(res)
			if res == "" {
				return fmt.Errorf("%s returned an empty translation", p.Name())
			}
			out = res
			return nil
		})
		if err == nil {
			logger.Debug("translated", "provider", p.Name(), "from", from, "to", to)
			if s.opts.CacheTTL > 0 {
				s.cache.Set(key, out, s.opts.CacheTTL)
			}
			return out, nil
		}

		lastErr = fmt.Errorf("%s: %w", p.Name(), err)
		logger.Debug("translation provider failed", "provider", p.Name(), "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%w: %v", ErrAllProvidersFailed, lastErr)
}

var (
	parenDisclaimer   = regexp.MustCompile(`(?i)\(\s*(note|disclaimer)\s*:[^)]*\)`)
	bracketDisclaimer = regexp.MustCompile(`(?i)\[\s*(note|disclaimer)\s*:[^\]]*\]`)
	lineDisclaimer    = regexp.MustCompile(`(?i)^\s*(note|disclaimer)\s*:`)
)

// SanitizeAIText removes machine-translation disclaimers that language
// models like to add, and collapses the rest into one line.
func SanitizeAIText(s string) string {
	s = parenDisclaimer.ReplaceAllString(s, " ")
	s = bracketDisclaimer.ReplaceAllString(s, " ")

	var kept []string
	for _, line := range strings.Split(s, "\n") {
		if lineDisclaimer.MatchString(line) {
			continue
		}
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(strings.Fields(strings.Join(kept, " ")), " ")
}
