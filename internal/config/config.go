package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	App      AppConfig      `toml:"app"`
	Auth     AuthConfig     `toml:"auth"`
	OAuth    OAuthConfig    `toml:"oauth"`
	LLM      LLMConfig      `toml:"llm"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	RabbitMQ RabbitMQConfig `toml:"rabbitmq"`
	Storage  StorageConfig  `toml:"storage"`
}

type AppConfig struct {
	Name      string `toml:"name"`
	Env       string `toml:"env"`
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	GinMode   string `toml:"gin_mode"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

type DatabaseConfig struct {
	URL          string `toml:"url"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

type RedisConfig struct {
	Addr              string `toml:"addr"`
	Password          string `toml:"password"`
	DB                int    `toml:"db"`
	HistoryTTLSeconds int    `toml:"history_ttl_seconds"`
}

// RabbitMQConfig is optional; an empty URL disables event publishing.
type RabbitMQConfig struct {
	URL         string `toml:"url"`
	EventsQueue string `toml:"events_queue"`
}

type AuthConfig struct {
	SessionSecret     string   `toml:"session_secret"`
	SessionTTLMinutes int      `toml:"session_ttl_minutes"`
	CookieName        string   `toml:"cookie_name"`
	CookieSecure      bool     `toml:"cookie_secure"`
	AdminEmails       []string `toml:"admin_emails"`
	PasswordLogin     bool     `toml:"password_login"`
}

type OAuthConfig struct {
	Provider     string   `toml:"provider"`
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	AuthURL      string   `toml:"auth_url"`
	TokenURL     string   `toml:"token_url"`
	UserInfoURL  string   `toml:"userinfo_url"`
	RevokeURL    string   `toml:"revoke_url"`
	RedirectURL  string   `toml:"redirect_url"`
	Scopes       []string `toml:"scopes"`
}

type LLMConfig struct {
	BaseURL            string  `toml:"base_url"`
	APIKey             string  `toml:"api_key"`
	Model              string  `toml:"model"`
	Temperature        float64 `toml:"temperature"`
	MaxTokens          int     `toml:"max_tokens"`
	TimeoutSeconds     int     `toml:"timeout_seconds"`
	HistoryMessages    int     `toml:"history_messages"`
	ContextBudgetChars int     `toml:"context_budget_chars"`
	PerDocumentChars   int     `toml:"per_document_chars"`
}

type StorageConfig struct {
	Backend     string `toml:"backend"`
	UploadDir   string `toml:"upload_dir"`
	MaxUploadMB int    `toml:"max_upload_mb"`
	S3Bucket    string `toml:"s3_bucket"`
	S3Region    string `toml:"s3_region"`
	S3Prefix    string `toml:"s3_prefix"`
}

// Load reads .env (if present), then the TOML file named by CONFIG_FILE, then
// environment overrides, and finally validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env file failed: %w", err)
	}

	cfg := Default()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every required key that is unset in a single error.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Database.URL) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if strings.TrimSpace(c.Auth.SessionSecret) == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		missing = append(missing, "LLM_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}

	switch c.Storage.Backend {
	case "local", "s3":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "s3" && c.Storage.S3Bucket == "" {
		return fmt.Errorf("%w: STORAGE_S3_BUCKET", ErrMissingRequired)
	}
	return nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func (c *Config) OAuthEnabled() bool {
	return c.OAuth.ClientID != "" && c.OAuth.AuthURL != "" && c.OAuth.TokenURL != ""
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Storage.MaxUploadMB) << 20
}

// Default returns the configuration used before the file and environment
// are applied.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:      "staffqa",
			Env:       "dev",
			Host:      "0.0.0.0",
			Port:      8080,
			GinMode:   "debug",
			LogLevel:  "info",
			LogFormat: "json",
		},
		Auth: AuthConfig{
			SessionTTLMinutes: 24 * 60,
			CookieName:        "staffqa_session",
			PasswordLogin:     true,
		},
		OAuth: OAuthConfig{
			Provider: "oidc",
			Scopes:   []string{"openid", "profile", "email", "offline_access"},
		},
		LLM: LLMConfig{
			BaseURL:            "https://api.groq.com/openai/v1",
			Model:              "llama-3.1-70b-versatile",
			Temperature:        0.7,
			MaxTokens:          1000,
			TimeoutSeconds:     90,
			HistoryMessages:    10,
			ContextBudgetChars: 24000,
			PerDocumentChars:   8000,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 50,
			MaxIdleConns: 10,
		},
		Redis: RedisConfig{
			Addr:              "127.0.0.1:6379",
			HistoryTTLSeconds: 300,
		},
		RabbitMQ: RabbitMQConfig{
			EventsQueue: "staffqa.events",
		},
		Storage: StorageConfig{
			Backend:     "local",
			UploadDir:   "uploads",
			MaxUploadMB: 16,
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)
	cfg.App.LogLevel = getEnv("LOG_LEVEL", cfg.App.LogLevel)
	cfg.App.LogFormat = getEnv("LOG_FORMAT", cfg.App.LogFormat)

	cfg.Auth.SessionSecret = getEnv("SESSION_SECRET", cfg.Auth.SessionSecret)
	cfg.Auth.SessionTTLMinutes = getEnvAsInt("SESSION_TTL_MINUTES", cfg.Auth.SessionTTLMinutes)
	cfg.Auth.CookieName = getEnv("SESSION_COOKIE_NAME", cfg.Auth.CookieName)
	cfg.Auth.CookieSecure = getEnvAsBool("SESSION_COOKIE_SECURE", cfg.Auth.CookieSecure)
	cfg.Auth.AdminEmails = getEnvAsList("ADMIN_EMAILS", cfg.Auth.AdminEmails)
	cfg.Auth.PasswordLogin = getEnvAsBool("PASSWORD_LOGIN", cfg.Auth.PasswordLogin)

	cfg.OAuth.Provider = getEnv("OAUTH_PROVIDER", cfg.OAuth.Provider)
	cfg.OAuth.ClientID = getEnv("OAUTH_CLIENT_ID", cfg.OAuth.ClientID)
	cfg.OAuth.ClientSecret = getEnv("OAUTH_CLIENT_SECRET", cfg.OAuth.ClientSecret)
	cfg.OAuth.AuthURL = getEnv("OAUTH_AUTH_URL", cfg.OAuth.AuthURL)
	cfg.OAuth.TokenURL = getEnv("OAUTH_TOKEN_URL", cfg.OAuth.TokenURL)
	cfg.OAuth.UserInfoURL = getEnv("OAUTH_USERINFO_URL", cfg.OAuth.UserInfoURL)
	cfg.OAuth.RevokeURL = getEnv("OAUTH_REVOKE_URL", cfg.OAuth.RevokeURL)
	cfg.OAuth.RedirectURL = getEnv("OAUTH_REDIRECT_URL", cfg.OAuth.RedirectURL)
	cfg.OAuth.Scopes = getEnvAsList("OAUTH_SCOPES", cfg.OAuth.Scopes)

	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.Temperature = getEnvAsFloat("LLM_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.MaxTokens = getEnvAsInt("LLM_MAX_TOKENS", cfg.LLM.MaxTokens)
	cfg.LLM.TimeoutSeconds = getEnvAsInt("LLM_TIMEOUT_SECONDS", cfg.LLM.TimeoutSeconds)
	cfg.LLM.HistoryMessages = getEnvAsInt("LLM_HISTORY_MESSAGES", cfg.LLM.HistoryMessages)
	cfg.LLM.ContextBudgetChars = getEnvAsInt("LLM_CONTEXT_BUDGET_CHARS", cfg.LLM.ContextBudgetChars)
	cfg.LLM.PerDocumentChars = getEnvAsInt("LLM_PER_DOCUMENT_CHARS", cfg.LLM.PerDocumentChars)

	cfg.Database.URL = getEnv("DATABASE_URL", cfg.Database.URL)
	cfg.Database.MaxOpenConns = getEnvAsInt("DATABASE_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvAsInt("DATABASE_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.HistoryTTLSeconds = getEnvAsInt("REDIS_HISTORY_TTL_SECONDS", cfg.Redis.HistoryTTLSeconds)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.EventsQueue = getEnv("RABBITMQ_EVENTS_QUEUE", cfg.RabbitMQ.EventsQueue)

	cfg.Storage.Backend = getEnv("STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.UploadDir = getEnv("STORAGE_UPLOAD_DIR", cfg.Storage.UploadDir)
	cfg.Storage.MaxUploadMB = getEnvAsInt("STORAGE_MAX_UPLOAD_MB", cfg.Storage.MaxUploadMB)
	cfg.Storage.S3Bucket = getEnv("STORAGE_S3_BUCKET", cfg.Storage.S3Bucket)
	cfg.Storage.S3Region = getEnv("STORAGE_S3_REGION", cfg.Storage.S3Region)
	cfg.Storage.S3Prefix = getEnv("STORAGE_S3_PREFIX", cfg.Storage.S3Prefix)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
