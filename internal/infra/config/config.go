package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	LLM     LLMConfig     `yaml:"llm"`
	Summary SummaryConfig `yaml:"summary"`
	Chat    ChatConfig    `yaml:"chat"`
	History HistoryConfig `yaml:"history"`
	Library LibraryConfig `yaml:"library"`
	Auth    AuthConfig    `yaml:"auth"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// LLMConfig contains ChatGPT/OpenAI settings.
type LLMConfig struct {
	APIKey        string  `yaml:"apiKey"`
	BaseURL       string  `yaml:"baseUrl"`
	Model         string  `yaml:"model"`
	ContextTokens int     `yaml:"contextTokens"`
	Temperature   float32 `yaml:"temperature"`
}

// SummaryConfig defines the map-reduce summarization pipeline behavior.
type SummaryConfig struct {
	Prompt            string        `yaml:"prompt"`
	SharedContext     string        `yaml:"sharedContext"`
	MaxDepth          int           `yaml:"maxDepth"`
	DefaultChunkChars int           `yaml:"defaultChunkChars"`
	ChunkCeilingChars int           `yaml:"chunkCeilingChars"`
	OverlapChars      int           `yaml:"overlapChars"`
	CacheTTL          time.Duration `yaml:"cacheTtl"`
}

// ChatConfig bounds the streaming conversation controller.
type ChatConfig struct {
	SystemPrompt    string  `yaml:"systemPrompt"`
	MaxInputChars   int     `yaml:"maxInputChars"`
	MaxHistoryTurns int     `yaml:"maxHistoryTurns"`
	Temperature     float32 `yaml:"temperature"`
}

// HistoryConfig controls persistence of finished summaries and chats.
type HistoryConfig struct {
	MaxListLimit int            `yaml:"maxListLimit"`
	Postgres     PostgresConfig `yaml:"postgres"`
	Valkey       ValkeyConfig   `yaml:"valkey"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ValkeyConfig contains connection information for the summary cache.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// LibraryConfig points at the S3-compatible store for archived source text.
type LibraryConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// AuthConfig enables bearer token checks on mutating endpoints.
type AuthConfig struct {
	Enabled   bool          `yaml:"enabled"`
	JWTSecret string        `yaml:"jwtSecret"`
	TokenTTL  time.Duration `yaml:"tokenTtl"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = isTruthy(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_CONTEXT_TOKENS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.LLM.ContextTokens = parsed
		}
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("SUMMARY_PROMPT"); v != "" {
		cfg.Summary.Prompt = v
	}
	if v := os.Getenv("SUMMARY_SHARED_CONTEXT"); v != "" {
		cfg.Summary.SharedContext = v
	}
	if v := os.Getenv("SUMMARY_MAX_DEPTH"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Summary.MaxDepth = parsed
		}
	}
	if v := os.Getenv("SUMMARY_DEFAULT_CHUNK_CHARS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Summary.DefaultChunkChars = parsed
		}
	}
	if v := os.Getenv("SUMMARY_CHUNK_CEILING_CHARS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Summary.ChunkCeilingChars = parsed
		}
	}
	if v := os.Getenv("SUMMARY_OVERLAP_CHARS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Summary.OverlapChars = parsed
		}
	}
	if v := os.Getenv("SUMMARY_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Summary.CacheTTL = parsed
		}
	}
	if v := os.Getenv("CHAT_SYSTEM_PROMPT"); v != "" {
		cfg.Chat.SystemPrompt = v
	}
	if v := os.Getenv("CHAT_MAX_INPUT_CHARS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Chat.MaxInputChars = parsed
		}
	}
	if v := os.Getenv("CHAT_MAX_HISTORY_TURNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Chat.MaxHistoryTurns = parsed
		}
	}
	if v := os.Getenv("CHAT_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.Chat.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("HISTORY_MAX_LIST_LIMIT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.History.MaxListLimit = parsed
		}
	}
	if v := os.Getenv("HISTORY_POSTGRES_DSN"); v != "" {
		cfg.History.Postgres.DSN = v
	}
	if v := os.Getenv("HISTORY_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.History.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("HISTORY_POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.History.Postgres.MinConns = int32(parsed)
		}
	}
	if v := os.Getenv("HISTORY_VALKEY_ENABLED"); v != "" {
		cfg.History.Valkey.Enabled = isTruthy(v)
	}
	if v := os.Getenv("HISTORY_VALKEY_ADDR"); v != "" {
		cfg.History.Valkey.Addr = v
	}
	if v := os.Getenv("HISTORY_VALKEY_PREFIX"); v != "" {
		cfg.History.Valkey.Prefix = v
	}
	if v := os.Getenv("LIBRARY_ENABLED"); v != "" {
		cfg.Library.Enabled = isTruthy(v)
	}
	if v := os.Getenv("LIBRARY_ENDPOINT"); v != "" {
		cfg.Library.Endpoint = v
	}
	if v := os.Getenv("LIBRARY_ACCESS_KEY"); v != "" {
		cfg.Library.AccessKey = v
	}
	if v := os.Getenv("LIBRARY_SECRET_KEY"); v != "" {
		cfg.Library.SecretKey = v
	}
	if v := os.Getenv("LIBRARY_BUCKET"); v != "" {
		cfg.Library.Bucket = v
	}
	if v := os.Getenv("LIBRARY_REGION"); v != "" {
		cfg.Library.Region = v
	}
	if v := os.Getenv("AUTH_ENABLED"); v != "" {
		cfg.Auth.Enabled = isTruthy(v)
	}
	if v := os.Getenv("AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("AUTH_TOKEN_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Auth.TokenTTL = parsed
		}
	}
}

func isTruthy(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 120 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		LLM: LLMConfig{
			Model:         "gpt-4o-mini",
			ContextTokens: 4096,
			Temperature:   0.2,
		},
		Summary: SummaryConfig{
			Prompt:            "Summarize the provided text clearly and faithfully. Keep the summary dense and avoid filler.",
			MaxDepth:          5,
			DefaultChunkChars: 12000,
			ChunkCeilingChars: 24000,
			OverlapChars:      200,
			CacheTTL:          6 * time.Hour,
		},
		Chat: ChatConfig{
			SystemPrompt:    "You are a helpful assistant. Answer the user's question clearly and concisely.",
			MaxInputChars:   4000,
			MaxHistoryTurns: 20,
			Temperature:     0.7,
		},
		History: HistoryConfig{
			MaxListLimit: 50,
			Postgres: PostgresConfig{
				MaxConns: 4,
				MinConns: 0,
			},
			Valkey: ValkeyConfig{
				Prefix: "contentchat",
			},
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.LLM.ContextTokens <= 0 {
		return errors.New("llm.contextTokens must be positive")
	}
	if c.Summary.Prompt == "" {
		return errors.New("summary.prompt cannot be empty")
	}
	if c.Summary.MaxDepth <= 0 {
		return errors.New("summary.maxDepth must be positive")
	}
	if c.Summary.DefaultChunkChars <= 0 {
		return errors.New("summary.defaultChunkChars must be positive")
	}
	if c.Summary.ChunkCeilingChars < c.Summary.DefaultChunkChars {
		return errors.New("summary.chunkCeilingChars cannot be below summary.defaultChunkChars")
	}
	if c.Summary.OverlapChars < 0 {
		return errors.New("summary.overlapChars cannot be negative")
	}
	if c.Summary.CacheTTL < 0 {
		return errors.New("summary.cacheTtl cannot be negative")
	}
	if c.Chat.SystemPrompt == "" {
		return errors.New("chat.systemPrompt cannot be empty")
	}
	if c.Chat.MaxInputChars <= 0 {
		return errors.New("chat.maxInputChars must be positive")
	}
	if c.Chat.MaxHistoryTurns < 0 {
		return errors.New("chat.maxHistoryTurns cannot be negative")
	}
	if c.History.MaxListLimit <= 0 {
		return errors.New("history.maxListLimit must be positive")
	}
	if c.History.Valkey.Enabled && strings.TrimSpace(c.History.Valkey.Addr) == "" {
		return errors.New("history.valkey.addr cannot be empty when the cache is enabled")
	}
	if c.Library.Enabled {
		if strings.TrimSpace(c.Library.Endpoint) == "" {
			return errors.New("library.endpoint cannot be empty when the library is enabled")
		}
		if strings.TrimSpace(c.Library.Bucket) == "" {
			return errors.New("library.bucket cannot be empty when the library is enabled")
		}
	}
	if c.Auth.Enabled && strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth.jwtSecret cannot be empty when auth is enabled")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	return nil
}
