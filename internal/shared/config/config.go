package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const devFileSigningSecret = "dev-file-secret"

// ErrMissingFileSigningSecret is returned by Validate for a production config without FILE_SIGNING_SECRET.
var ErrMissingFileSigningSecret = errors.New("FILE_SIGNING_SECRET required in production")

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string
	DatabaseURL     string
	PublicBaseURL   string

	ObjectStoreType   string
	LocalStoreDir     string
	AWSRegion         string
	S3Bucket          string
	S3Prefix          string
	SSEKMSKeyID       string
	SignedURLTTL      time.Duration
	FileSigningSecret string

	LLMProvider     string
	LLMModel        string
	LLMBaseURL      string
	OpenAIAPIKey    string
	DefaultLanguage string

	RedisURL     string
	QueueBackend string
	SQSQueueURL  string
	NATSURL      string
	NATSSubject  string

	SQSVisibilityTimeout  time.Duration
	WorkerConcurrency     int
	WorkerShutdownTimeout time.Duration

	UsageLimit int

	RateLimitDefaultRPS   float64
	RateLimitDefaultBurst int
	RateLimitUploadRPS    float64
	RateLimitUploadBurst  int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}
	signingSecret := strings.TrimSpace(os.Getenv("FILE_SIGNING_SECRET"))
	if signingSecret == "" && env != "production" {
		signingSecret = devFileSigningSecret
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:             env,
		DatabaseURL:     dbURL,
		PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),

		ObjectStoreType:   normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:     getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:         getEnv("AWS_REGION", ""),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Prefix:          getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:       getEnv("SSE_KMS_KEY_ID", ""),
		SignedURLTTL:      getEnvDuration("SIGNED_URL_TTL", time.Hour),
		FileSigningSecret: signingSecret,

		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		LLMModel:        getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMBaseURL:      getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),

		RedisURL:     getEnv("REDIS_URL", ""),
		QueueBackend: normalizeQueueBackend(getEnv("QUEUE_BACKEND", "")),
		SQSQueueURL:  getEnv("SQS_QUEUE_URL", ""),
		NATSURL:      getEnv("NATS_URL", ""),
		NATSSubject:  getEnv("NATS_SUBJECT", "traveldocs.storage.cleanup"),

		SQSVisibilityTimeout:  getEnvDuration("SQS_VISIBILITY_TIMEOUT", 5*time.Minute),
		WorkerConcurrency:     getEnvInt("WORKER_CONCURRENCY", 4),
		WorkerShutdownTimeout: getEnvDuration("WORKER_SHUTDOWN_TIMEOUT", 30*time.Second),

		UsageLimit: getEnvInt("USAGE_LIMIT", 25),

		RateLimitDefaultRPS:   getEnvFloat("RATE_LIMIT_DEFAULT_RPS", 5),
		RateLimitDefaultBurst: getEnvInt("RATE_LIMIT_DEFAULT_BURST", 20),
		RateLimitUploadRPS:    getEnvFloat("RATE_LIMIT_UPLOAD_RPS", 0.2),
		RateLimitUploadBurst:  getEnvInt("RATE_LIMIT_UPLOAD_BURST", 5),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),
	}
}

// Validate reports settings that must not start a process.
func (c Config) Validate() error {
	if c.Env == "production" && strings.TrimSpace(c.FileSigningSecret) == "" {
		return ErrMissingFileSigningSecret
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config %s invalid float: %v", key, err)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid duration: %q", key, raw)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeQueueBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqs":
		return "sqs"
	case "nats":
		return "nats"
	default:
		return ""
	}
}

// IsDevLike reports whether env allows in-memory fallbacks.
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
