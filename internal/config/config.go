package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultSystemPrompt is sent as the system message when none is configured.
const DefaultSystemPrompt = "You are a financial analyst providing investment insights based on news articles."

const (
	defaultTimezone = "UTC"
	defaultModel    = "gpt-5-mini"

	configPathEnv      = "MARKETPULSE_CONFIG"
	logLevelEnv        = "LOG_LEVEL"
	logFormatEnv       = "LOG_FORMAT"
	databaseDSNEnv     = "DATABASE_DSN"
	redisAddrEnv       = "REDIS_ADDR"
	redisPasswordEnv   = "REDIS_PASSWORD"
	kafkaBrokersEnv    = "KAFKA_BROKERS"
	kafkaTopicEnv      = "KAFKA_TOPIC"
	httpAddrEnv        = "HTTP_ADDR"
	workerConcurEnv    = "WORKER_CONCURRENCY"
	timezoneEnv        = "SCHEDULER_TIMEZONE"
	openAIKeyEnv       = "OPENAI_API_KEY"
	llmModelEnv        = "LLM_MODEL"
	llmEndpointEnv     = "LLM_ENDPOINT"
	cacheTTLEnv        = "LLM_CACHE_TTL"
	sendGridKeyEnv     = "SENDGRID_API_KEY"
	fromEmailEnv       = "DEFAULT_FROM_EMAIL"
	notifyEnabledEnv   = "EMAIL_NOTIFICATION_ENABLED"
	recipientsEnv      = "EMAIL_RECIPIENTS"
	thresholdEnv       = "CONFIDENCE_THRESHOLD"
	recencyWindowEnv   = "SCRAPE_RECENCY_WINDOW"
	rateLimitEnv       = "SCRAPE_RATE_LIMIT"
	retentionWindowEnv = "RETENTION_WINDOW"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	Kafka         KafkaConfig        `yaml:"kafka"`
	HTTP          HTTPConfig         `yaml:"http"`
	Worker        WorkerConfig       `yaml:"worker"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	LLM           LLMConfig          `yaml:"llm"`
	Cache         CacheConfig        `yaml:"cache"`
	Scraping      ScrapingConfig     `yaml:"scraping"`
	Retention     RetentionConfig    `yaml:"retention"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN selects
// the in-memory store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig backs the LLM response cache. An empty address selects the
// in-memory cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// KafkaConfig backs the task queue. No brokers selects the in-process queue.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"groupId"`
}

// HTTPConfig configures the trigger endpoint.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// WorkerConfig sizes the task consumers.
type WorkerConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// SchedulerConfig defines when recurring runs fire.
type SchedulerConfig struct {
	ScrapeCron string         `yaml:"scrapeCron"`
	PurgeCron  string         `yaml:"purgeCron"`
	Timezone   string         `yaml:"timezone"`
	location   *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ModelPrice is USD per one million tokens.
type ModelPrice struct {
	Input       float64 `yaml:"input"`
	CachedInput float64 `yaml:"cachedInput"`
	Output      float64 `yaml:"output"`
}

// LLMConfig defines how to contact the model provider.
type LLMConfig struct {
	Endpoint        string                `yaml:"endpoint"`
	APIKey          string                `yaml:"apiKey"`
	Model           string                `yaml:"model"`
	ReasoningEffort string                `yaml:"reasoningEffort"`
	Verbosity       string                `yaml:"verbosity"`
	SystemPrompt    string                `yaml:"systemPrompt"`
	Timeout         time.Duration         `yaml:"timeout"`
	Pricing         map[string]ModelPrice `yaml:"pricing"`
}

// CacheConfig controls LLM response caching.
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"maxEntries"`
}

// ScrapingConfig describes the sources and the politeness rules.
type ScrapingConfig struct {
	RecencyWindow  time.Duration `yaml:"recencyWindow"`
	RateLimit      time.Duration `yaml:"rateLimit"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	UserAgent      string        `yaml:"userAgent"`
	Sites          []SiteConfig  `yaml:"sites"`
}

// SiteConfig describes a single site with its scraper kind.
type SiteConfig struct {
	Name    string            `yaml:"name"`
	Scanner string            `yaml:"scanner"`
	Options map[string]string `yaml:"options"`
}

// RetentionConfig controls the purge run.
type RetentionConfig struct {
	Window time.Duration `yaml:"window"`
}

// NotificationConfig encapsulates the high-confidence alert channel.
type NotificationConfig struct {
	Enabled    bool           `yaml:"enabled"`
	Recipients []string       `yaml:"recipients"`
	From       string         `yaml:"from"`
	Threshold  float64        `yaml:"threshold"`
	SendGrid   SendGridConfig `yaml:"sendgrid"`
}

// SendGridConfig wires the mail transport.
type SendGridConfig struct {
	APIKey   string        `yaml:"apiKey"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: cannot read .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg := defaultConfig()
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = fileCfg
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Scraping.Sites) == 0 {
		cfg.Scraping.Sites = defaultConfig().Scraping.Sites
	}
	if len(cfg.LLM.Pricing) == 0 {
		cfg.LLM.Pricing = DefaultPricing()
	}

	return cfg
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Notifications.Threshold < 0 || c.Notifications.Threshold > 1 {
		errs = append(errs, fmt.Errorf("notifications.threshold must be within [0,1], got %v", c.Notifications.Threshold))
	}
	if c.Worker.Concurrency <= 0 {
		errs = append(errs, errors.New("worker.concurrency must be positive"))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if c.Retention.Window <= 0 {
		errs = append(errs, errors.New("retention.window must be positive"))
	}
	if c.Scraping.RecencyWindow <= 0 {
		errs = append(errs, errors.New("scraping.recencyWindow must be positive"))
	}
	if c.Scraping.RateLimit < 0 {
		errs = append(errs, errors.New("scraping.rateLimit cannot be negative"))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(logFormatEnv); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(redisPasswordEnv); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv(kafkaBrokersEnv); v != "" {
		c.Kafka.Brokers = SplitList(v)
	}
	if v := os.Getenv(kafkaTopicEnv); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv(workerConcurEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Worker.Concurrency = n
		}
	}
	if v := os.Getenv(timezoneEnv); v != "" {
		c.Scheduler.Timezone = v
	}
	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(llmEndpointEnv); v != "" {
		c.LLM.Endpoint = v
	}
	if d, ok := durationEnv(cacheTTLEnv); ok {
		c.Cache.TTL = d
	}
	if v := os.Getenv(sendGridKeyEnv); v != "" {
		c.Notifications.SendGrid.APIKey = v
	}
	if v := os.Getenv(fromEmailEnv); v != "" {
		c.Notifications.From = v
	}
	if v := os.Getenv(notifyEnabledEnv); v != "" {
		c.Notifications.Enabled = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	if v, ok := os.LookupEnv(recipientsEnv); ok {
		c.Notifications.Recipients = SplitList(v)
	}
	if v := os.Getenv(thresholdEnv); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Notifications.Threshold = f
		}
	}
	if d, ok := durationEnv(recencyWindowEnv); ok {
		c.Scraping.RecencyWindow = d
	}
	if d, ok := durationEnv(rateLimitEnv); ok {
		c.Scraping.RateLimit = d
	}
	if d, ok := durationEnv(retentionWindowEnv); ok {
		c.Retention.Window = d
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

// durationEnv accepts Go durations ("24h") or plain seconds ("86400").
func durationEnv(key string) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: invalid duration %s=%q", key, v)
		return 0, false
	}
	return d, true
}

// SplitList splits a comma-separated value, dropping blanks.
func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DefaultPricing is the per-model price table, USD per 1M tokens.
func DefaultPricing() map[string]ModelPrice {
	return map[string]ModelPrice{
		"gpt-5":             {Input: 1.25, CachedInput: 0.125, Output: 10.00},
		"gpt-5-mini":        {Input: 0.25, CachedInput: 0.025, Output: 2.00},
		"gpt-5-nano":        {Input: 0.05, CachedInput: 0.005, Output: 0.40},
		"gpt-5-chat-latest": {Input: 1.25, CachedInput: 0.125, Output: 10.00},
		"gpt-5-codex":       {Input: 1.25, CachedInput: 0.125, Output: 10.00},
		"gpt-4.1":           {Input: 2.00, CachedInput: 0.50, Output: 8.00},
		"gpt-4o-mini":       {Input: 0.40, CachedInput: 0.10, Output: 1.60},
	}
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{DSN: ""},
		Redis:    RedisConfig{},
		Kafka:    KafkaConfig{Topic: "marketpulse.tasks", GroupID: "marketpulse-workers"},
		HTTP:     HTTPConfig{Addr: ":8080"},
		Worker:   WorkerConfig{Concurrency: 4},
		Scheduler: SchedulerConfig{
			ScrapeCron: "*/5 * * * *",
			PurgeCron:  "0 2 * * *",
			Timezone:   defaultTimezone,
			location:   tz,
		},
		LLM: LLMConfig{
			Endpoint:        "https://api.openai.com/v1/responses",
			Model:           defaultModel,
			ReasoningEffort: "medium",
			Verbosity:       "low",
			SystemPrompt:    DefaultSystemPrompt,
			Timeout:         60 * time.Second,
			Pricing:         DefaultPricing(),
		},
		Cache: CacheConfig{TTL: 24 * time.Hour, MaxEntries: 1000},
		Scraping: ScrapingConfig{
			RecencyWindow:  24 * time.Hour,
			RateLimit:      time.Second,
			RequestTimeout: 10 * time.Second,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Sites: []SiteConfig{
				{Name: "techcrunch-latest", Scanner: "techcrunch"},
			},
		},
		Retention: RetentionConfig{Window: 30 * 24 * time.Hour},
		Notifications: NotificationConfig{
			Enabled:   true,
			Threshold: 0.7,
			SendGrid: SendGridConfig{
				Endpoint: "https://api.sendgrid.com/v3/mail/send",
				Timeout:  10 * time.Second,
			},
		},
	}
}
