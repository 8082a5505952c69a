package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ConfigPathEnv   = "NEWSBOT_CONFIG"
	APIKeyEnv       = "GROQ_API_KEY"
	GoogleKeyEnv    = "GOOGLE_API_KEY"
	GoogleEngineEnv = "GOOGLE_SEARCH_ENGINE_ID"
	SpeechKeyEnv    = "GOOGLE_SPEECH_API_KEY"
	AddrEnv         = "NEWSBOT_ADDR"
	DebugEnv        = "NEWSBOT_DEBUG"
	TelegramEnv     = "TELEGRAM_BOT_TOKEN"

	defaultConfigFile = "config.json"
	defaultSQLiteDSN  = "newsbot.db"
)

// ErrMissingAPIKey is returned when no provider credential can be found.
var ErrMissingAPIKey = errors.New(APIKeyEnv + " is missing. Please check your .env file")

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig    `json:"basic_config" yaml:"basic_config"`
	Provider    ProviderConfig `json:"provider" yaml:"provider"`
	Search      SearchConfig   `json:"search" yaml:"search"`
	Speech      SpeechConfig   `json:"speech" yaml:"speech"`
	Redis       RedisConfig    `json:"redis" yaml:"redis"`
	Database    DatabaseConfig `json:"database" yaml:"database"`
	Telegram    TelegramConfig `json:"telegram" yaml:"telegram"`
}

type BasicConfig struct {
	ServerAddress               string `json:"server_address" yaml:"server_address"`
	Debug                       bool   `json:"debug" yaml:"debug"`
	AskWorkers                  int    `json:"ask_workers" yaml:"ask_workers"`
	QueueSize                   int    `json:"queue_size" yaml:"queue_size"`
	HistoryRetentionHours       int    `json:"history_retention_hours" yaml:"history_retention_hours"`
	HistoryCleanIntervalMinutes int    `json:"history_clean_interval_minutes" yaml:"history_clean_interval_minutes"`
}

type ProviderConfig struct {
	Name    string `json:"name" yaml:"name"`
	BaseURL string `json:"base_url" yaml:"base_url"`
	Model   string `json:"model" yaml:"model"`
	APIKey  string `json:"api_key" yaml:"api_key"`
}

type SearchConfig struct {
	MaxResults     int    `json:"max_results" yaml:"max_results"`
	FetchDelayMS   int    `json:"fetch_delay_ms" yaml:"fetch_delay_ms"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	UserAgent      string `json:"user_agent" yaml:"user_agent"`
	Region         string `json:"region" yaml:"region"`
	GoogleAPIKey   string `json:"google_api_key" yaml:"google_api_key"`
	GoogleEngineID string `json:"google_search_engine_id" yaml:"google_search_engine_id"`
}

type SpeechConfig struct {
	Language      string `json:"language" yaml:"language"`
	SampleRate    int    `json:"sample_rate" yaml:"sample_rate"`
	APIKey        string `json:"api_key" yaml:"api_key"`
	RecordingsDir string `json:"recordings_dir" yaml:"recordings_dir"` // keeps a WAV copy of every capture
}

type RedisConfig struct {
	Enabled           bool   `json:"enabled" yaml:"enabled"`
	Host              string `json:"host" yaml:"host"`
	Port              int    `json:"port" yaml:"port"`
	Username          string `json:"username" yaml:"username"`
	Password          string `json:"password" yaml:"password"`
	DB                int    `json:"db" yaml:"db"`
	ArticleTTLMinutes int    `json:"article_ttl_minutes" yaml:"article_ttl_minutes"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver" yaml:"driver"`
	DSN      string `json:"dsn" yaml:"dsn"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	DBName   string `json:"db_name" yaml:"db_name"`
	Params   string `json:"params" yaml:"params"`
}

// TelegramConfig enables the bot front end when Token is set.
type TelegramConfig struct {
	Token          string `json:"token" yaml:"token"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		BasicConfig: BasicConfig{
			ServerAddress:               ":5000",
			Debug:                       true,
			AskWorkers:                  1,
			QueueSize:                   16,
			HistoryRetentionHours:       7 * 24,
			HistoryCleanIntervalMinutes: 60,
		},
		Provider: ProviderConfig{
			Name:    "groq",
			BaseURL: "https://api.groq.com/openai/v1",
			Model:   "llama-3.3-70b-versatile",
		},
		Search: SearchConfig{
			MaxResults:     3,
			FetchDelayMS:   2000,
			TimeoutSeconds: 10,
			UserAgent:      "newsbot/1.0",
			Region:         "wt-wt",
		},
		Speech: SpeechConfig{
			Language:   "en-US",
			SampleRate: 16000,
		},
		Redis: RedisConfig{
			Host:              "127.0.0.1",
			Port:              6379,
			ArticleTTLMinutes: 30,
		},
		Telegram: TelegramConfig{
			TimeoutSeconds: 60,
		},
	}
}

// Load reads configuration from the provided path (defaults to config.json),
// then applies environment overrides. The provider API key is mandatory.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	switch {
	case err == nil:
		defer file.Close()
		if err := decode(file, absPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
		if cfg.Database.DSN != "" && isSQLite(cfg.Database.Driver) && !filepath.IsAbs(cfg.Database.DSN) {
			cfg.Database.DSN = filepath.Join(filepath.Dir(absPath), cfg.Database.DSN)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// no config file, defaults + env only
	default:
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	applyEnv(cfg)

	if isSQLite(cfg.Database.Driver) && cfg.Database.DSN == "" {
		cfg.Database.DSN = defaultSQLiteDSN
	}
	if strings.TrimSpace(cfg.Provider.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	return cfg, nil
}

// decode picks YAML for .yaml/.yml files and JSON otherwise.
func decode(r io.Reader, path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err := yaml.NewDecoder(r).Decode(cfg)
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	default:
		return json.NewDecoder(r).Decode(cfg)
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(APIKeyEnv); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv(GoogleKeyEnv); v != "" {
		cfg.Search.GoogleAPIKey = v
	}
	if v := os.Getenv(GoogleEngineEnv); v != "" {
		cfg.Search.GoogleEngineID = v
	}
	if v := os.Getenv(SpeechKeyEnv); v != "" {
		cfg.Speech.APIKey = v
	}
	if v := os.Getenv(TelegramEnv); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv(AddrEnv); v != "" {
		cfg.BasicConfig.ServerAddress = v
	}
	if v := os.Getenv(DebugEnv); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			cfg.BasicConfig.Debug = debug
		}
	}
}

func isSQLite(driver string) bool {
	d := strings.ToLower(driver)
	return d == "sqlite" || d == "sqlite3"
}

// FetchDelay is the pause between two consecutive article downloads.
func (c SearchConfig) FetchDelay() time.Duration {
	if c.FetchDelayMS < 0 {
		return 0
	}
	return time.Duration(c.FetchDelayMS) * time.Millisecond
}

func (c SearchConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c RedisConfig) ArticleTTL() time.Duration {
	if c.ArticleTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.ArticleTTLMinutes) * time.Minute
}

// HistoryEnabled reports whether a database driver has been configured.
func (c DatabaseConfig) HistoryEnabled() bool {
	return strings.TrimSpace(c.Driver) != ""
}

// Enabled reports whether the Telegram bot should run.
func (c TelegramConfig) Enabled() bool {
	return strings.TrimSpace(c.Token) != ""
}
