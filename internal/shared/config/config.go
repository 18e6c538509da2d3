package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds application configuration.
type Config struct {
	Port            string   `env:"PORT" envDefault:"8080"`
	CORSAllowOrigin []string `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	Env             string   `env:"ENV" envDefault:"dev"`
	LogLevel        string   `env:"LOG_LEVEL" envDefault:"info"`

	ObjectStoreType string `env:"OBJECT_STORE" envDefault:"local"`
	LocalStoreDir   string `env:"LOCAL_STORE_DIR" envDefault:"./data"`
	AWSRegion       string `env:"AWS_REGION"`
	S3Bucket        string `env:"S3_BUCKET"`
	S3Prefix        string `env:"S3_PREFIX"`
	SSEKMSKeyID     string `env:"SSE_KMS_KEY_ID"`
	MinioEndpoint   string `env:"MINIO_ENDPOINT"`
	MinioAccessKey  string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey  string `env:"MINIO_SECRET_KEY"`
	MinioBucket     string `env:"MINIO_BUCKET" envDefault:"resumind"`
	MinioRegion     string `env:"MINIO_REGION"`
	MinioUseSSL     bool   `env:"MINIO_USE_SSL" envDefault:"false"`

	KVStoreType   string `env:"KV_STORE" envDefault:"memory"`
	DatabaseURL   string `env:"DATABASE_URL"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	LLMProvider   string        `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMModel      string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMBaseURL    string        `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMAPIKey     string        `env:"OPENAI_API_KEY"`
	LLMTimeout    time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`
	RasterScale   float64       `env:"RASTER_SCALE" envDefault:"4"`
	StrictSchema  bool          `env:"FEEDBACK_VALIDATION" envDefault:"true"`
	SubmitPerMin  float64       `env:"SUBMIT_RATE_PER_MINUTE" envDefault:"6"`
	SubmitBurst   int           `env:"SUBMIT_RATE_BURST" envDefault:"3"`
	MaxUploadSize int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
	UIRedirectURL      string `env:"UI_REDIRECT_URL"`
	AllowGuests        bool   `env:"ALLOW_GUESTS" envDefault:"true"`
}

// Load reads configuration from .env files and environment variables.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Normalize()

	if cfg.Env == "production" && cfg.KVStoreType == "memory" {
		return Config{}, fmt.Errorf("KV_STORE=memory is not allowed in production")
	}
	if cfg.KVStoreType == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("KV_STORE=postgres requires DATABASE_URL")
	}
	if cfg.KVStoreType == "redis" && cfg.RedisAddr == "" {
		return Config{}, fmt.Errorf("KV_STORE=redis requires REDIS_ADDR")
	}
	return cfg, nil
}

// Normalize canonicalizes enum-like fields. Safe to call on hand-built configs.
func (c *Config) Normalize() {
	c.Env = normalizeEnv(c.Env)
	c.ObjectStoreType = normalizeStoreType(c.ObjectStoreType)
	c.KVStoreType = normalizeKVType(c.KVStoreType)
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))
	if c.RasterScale <= 0 {
		c.RasterScale = 4
	}
	if c.MaxUploadSize <= 0 {
		c.MaxUploadSize = 10 << 20
	}
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeKVType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg":
		return "postgres"
	case "redis":
		return "redis"
	default:
		return "memory"
	}
}

// IsDevLike reports whether the environment tolerates in-memory fallbacks.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}
