// Package config loads headwatch settings from a YAML file, environment
// variables and built-in defaults, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Source kinds.
const (
	KindHTML = "html"
	KindFeed = "feed"
)

// Storage backends for the seen-set.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Translation providers.
const (
	ProviderGoogle   = "google"
	ProviderMyMemory = "mymemory"
	ProviderGemini   = "gemini"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

var (
	ErrNoSources       = errors.New("at least one source is required")
	ErrInvalidSource   = errors.New("invalid source")
	ErrNoKeywords      = errors.New("at least one keyword is required")
	ErrBlankKeyword    = errors.New("keywords must not be blank")
	ErrInvalidInterval = errors.New("poll interval must be positive")
	ErrInvalidTimeout  = errors.New("http timeout must be positive")
	ErrInvalidSchedule = errors.New("invalid poll schedule")
	ErrUnknownBackend  = errors.New("unknown storage backend")
	ErrMissingDSN      = errors.New("postgres backend requires a dsn")
	ErrEmptyPath       = errors.New("output and seen file paths are required")
	ErrUnknownProvider = errors.New("unknown translation provider")
)

// Source is one monitored site.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	Kind string `yaml:"kind"`
}

type PollConfig struct {
	Interval   time.Duration `yaml:"interval"`
	Schedule   string        `yaml:"schedule"`
	SweepDelay time.Duration `yaml:"sweep_delay"`
}

type HTTPConfig struct {
	Timeout     time.Duration     `yaml:"timeout"`
	MinBodySize int               `yaml:"min_body_size"`
	Headers     map[string]string `yaml:"headers"`
}

type StorageConfig struct {
	Backend       string `yaml:"backend"`
	SeenFile      string `yaml:"seen_file"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisKey      string `yaml:"redis_key"`
}

// TranslateConfig lists providers in fallback order.
type TranslateConfig struct {
	Providers        []string      `yaml:"providers"`
	Sentinel         string        `yaml:"sentinel"`
	GoogleEndpoint   string        `yaml:"google_endpoint"`
	MyMemoryEndpoint string        `yaml:"mymemory_endpoint"`
	Timeout          time.Duration `yaml:"timeout"`
	GeminiAPIKey     string        `yaml:"gemini_api_key"`
	GeminiModel      string        `yaml:"gemini_model"`
	GeminiDailyQuota int           `yaml:"gemini_daily_quota"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
	RetryAttempts    int           `yaml:"retry_attempts"`
}

type MonitoringConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type NotifyConfig struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID string `yaml:"telegram_chat_id"`
	TelegramAPIURL string `yaml:"telegram_api_url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Sources    []Source `yaml:"sources"`
	Keywords   []string `yaml:"keywords"`
	OutputFile string   `yaml:"output_file"`
	SourceLang string   `yaml:"source_lang"`
	TargetLang string   `yaml:"target_lang"`

	Poll       PollConfig       `yaml:"poll"`
	HTTP       HTTPConfig       `yaml:"http"`
	Storage    StorageConfig    `yaml:"storage"`
	Translate  TranslateConfig  `yaml:"translate"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Notify     NotifyConfig     `yaml:"notify"`
	Log        LogConfig        `yaml:"log"`

	// PersistRetryAttempts bounds retries of seen-set and output log writes.
	PersistRetryAttempts int `yaml:"persist_retry_attempts"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Sources: []Source{
			{Name: "abc", URL: "https://www.abc.net.au/news", Kind: KindHTML},
			{Name: "bbc", URL: "https://www.bbc.com/news/world", Kind: KindHTML},
			{Name: "reuters", URL: "https://www.reuters.com/news/world", Kind: KindHTML},
			{Name: "guardian", URL: "https://www.theguardian.com/world", Kind: KindHTML},
			{Name: "aljazeera", URL: "https://www.aljazeera.com/news/", Kind: KindHTML},
			{Name: "npr", URL: "https://www.npr.org/sections/world/", Kind: KindHTML},
		},
		Keywords:   []string{"the"},
		OutputFile: "fetch_titles.html",
		SourceLang: "en",
		TargetLang: "zh-CN",
		Poll: PollConfig{
			Interval:   60 * time.Second,
			SweepDelay: 2 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:     10 * time.Second,
			MinBodySize: 500,
			Headers: map[string]string{
				"User-Agent":      DefaultUserAgent,
				"Accept-Language": "en-US,en;q=0.9",
			},
		},
		Storage: StorageConfig{
			Backend:   BackendFile,
			SeenFile:  "seen_titles.txt",
			RedisAddr: "localhost:6379",
			RedisKey:  "headwatch:seen",
		},
		Translate: TranslateConfig{
			Providers:        []string{ProviderGoogle, ProviderMyMemory, ProviderGemini},
			Sentinel:         "[Translation error]",
			GoogleEndpoint:   "https://translate.googleapis.com/translate_a/single",
			MyMemoryEndpoint: "https://api.mymemory.translated.net/get",
			Timeout:          15 * time.Second,
			GeminiModel:      "gemini-1.5-flash",
			GeminiDailyQuota: 200,
			CacheTTL:         24 * time.Hour,
			RetryAttempts:    2,
		},
		Monitoring: MonitoringConfig{
			Addr: ":8080",
		},
		Notify: NotifyConfig{
			TelegramAPIURL: "https://api.telegram.org",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		PersistRetryAttempts: 3,
	}
}

// Load reads the YAML file at path on top of the defaults, applies
// environment overrides and validates the result. An empty path skips
// the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HEADWATCH_KEYWORDS"); v != "" {
		c.Keywords = splitList(v)
	}
	if v := os.Getenv("HEADWATCH_TRANSLATE_PROVIDERS"); v != "" {
		c.Translate.Providers = splitList(v)
	}
	c.OutputFile = getEnvOrDefault("HEADWATCH_OUTPUT_FILE", c.OutputFile)
	c.Storage.SeenFile = getEnvOrDefault("HEADWATCH_SEEN_FILE", c.Storage.SeenFile)
	c.Storage.Backend = getEnvOrDefault("HEADWATCH_STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.PostgresDSN = getEnvOrDefault("DATABASE_URL", c.Storage.PostgresDSN)
	c.Storage.RedisAddr = getEnvOrDefault("REDIS_ADDR", c.Storage.RedisAddr)
	c.Storage.RedisPassword = getEnvOrDefault("REDIS_PASSWORD", c.Storage.RedisPassword)
	c.Poll.Interval = getEnvDurationOrDefault("HEADWATCH_POLL_INTERVAL", c.Poll.Interval)
	c.HTTP.MinBodySize = getEnvIntOrDefault("HEADWATCH_MIN_BODY_SIZE", c.HTTP.MinBodySize)
	c.Translate.GeminiAPIKey = getEnvOrDefault("GEMINI_API_KEY", c.Translate.GeminiAPIKey)
	c.Notify.TelegramToken = getEnvOrDefault("TELEGRAM_TOKEN", c.Notify.TelegramToken)
	c.Notify.TelegramChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", c.Notify.TelegramChatID)
	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)

	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		c.Monitoring.Enabled = true
	}
	if port := os.Getenv("MONITORING_PORT"); port != "" {
		c.Monitoring.Addr = ":" + port
	}
}

func (c *Config) normalize() {
	for i := range c.Sources {
		s := &c.Sources[i]
		s.URL = strings.TrimSpace(s.URL)
		if s.Kind == "" {
			s.Kind = KindHTML
		}
		if s.Name == "" {
			if u, err := url.Parse(s.URL); err == nil && u.Host != "" {
				s.Name = strings.TrimPrefix(u.Host, "www.")
			} else {
				s.Name = s.URL
			}
		}
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendFile
	}
	for i, p := range c.Translate.Providers {
		c.Translate.Providers[i] = strings.ToLower(strings.TrimSpace(p))
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}
	for _, s := range c.Sources {
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q is not an absolute http(s) url", ErrInvalidSource, s.URL)
		}
		if s.Kind != KindHTML && s.Kind != KindFeed {
			return fmt.Errorf("%w: %s has unknown kind %q", ErrInvalidSource, s.Name, s.Kind)
		}
	}

	if len(c.Keywords) == 0 {
		return ErrNoKeywords
	}
	for _, k := range c.Keywords {
		if strings.TrimSpace(k) == "" {
			return ErrBlankKeyword
		}
	}

	if c.OutputFile == "" || (c.Storage.Backend == BackendFile && c.Storage.SeenFile == "") {
		return ErrEmptyPath
	}
	if c.Poll.Interval <= 0 {
		return ErrInvalidInterval
	}
	if c.HTTP.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Poll.Schedule != "" {
		if _, err := cron.ParseStandard(c.Poll.Schedule); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
	}

	for _, p := range c.Translate.Providers {
		switch p {
		case ProviderGoogle, ProviderMyMemory, ProviderGemini:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownProvider, p)
		}
	}

	switch c.Storage.Backend {
	case BackendFile, BackendRedis:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return ErrMissingDSN
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Storage.Backend)
	}
	return nil
}

// Schedule returns the poll schedule: the cron expression when one is set,
// otherwise a constant delay of Poll.Interval.
func (c *Config) Schedule() (cron.Schedule, error) {
	if c.Poll.Schedule != "" {
		sched, err := cron.ParseStandard(c.Poll.Schedule)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
		return sched, nil
	}
	return cron.Every(c.Poll.Interval), nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
