// Package config loads service configuration from the process environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Configuration is the full process-wide configuration, read once at startup.
type Configuration struct {
	Service       ServiceConfig
	HTTP          HTTPConfig
	LLM           LLMConfig
	Upload        UploadConfig
	Session       SessionConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Principal string
	GRPCPort  string
	Env       string
}

type HTTPConfig struct {
	Port              string
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
}

// LLMConfig selects and configures the generative-AI provider.
type LLMConfig struct {
	Provider       string // gemini, openai, mock
	APIKey         string
	Model          string
	BaseURL        string
	RequestTimeout time.Duration // 0 disables the per-call deadline
}

type UploadConfig struct {
	MaxAudioBytes    int64
	AllowedMIMETypes []string
}

type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
	CookieSecure  bool
}

type KafkaConfig struct {
	Enabled            bool
	Brokers            []string
	TopicTranscription string
	TopicReport        string
	Principal          string
}

type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsPort string
}

// LoadDotEnv merges a .env file into the environment when one exists.
// Variables already set in the environment win.
func LoadDotEnv() error {
	path := envOrDefault("ENV_FILE", ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// Load reads the configuration from environment variables, using defaults
// for anything unset or unparsable.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-clinical-visit")

	return &Configuration{
		Service: ServiceConfig{
			Principal: principal,
			GRPCPort:  envOrDefault("GRPC_PORT", "50051"),
			Env:       os.Getenv("ENV"),
		},
		HTTP: HTTPConfig{
			Port:              envOrDefault("HTTP_PORT", "8080"),
			ReadHeaderTimeout: envOrDefaultDuration("HTTP_READ_HEADER_TIMEOUT", 10*time.Second),
			WriteTimeout:      envOrDefaultDuration("HTTP_WRITE_TIMEOUT", 0),
		},
		LLM: LLMConfig{
			Provider:       strings.ToLower(envOrDefault("LLM_PROVIDER", "gemini")),
			APIKey:         envOrDefault("GEMINI_API_KEY", os.Getenv("LLM_API_KEY")),
			Model:          envOrDefault("LLM_MODEL", "gemini-2.5-pro"),
			BaseURL:        os.Getenv("LLM_BASE_URL"),
			RequestTimeout: envOrDefaultDuration("LLM_REQUEST_TIMEOUT", 0),
		},
		Upload: UploadConfig{
			MaxAudioBytes:    envOrDefaultInt64("UPLOAD_MAX_AUDIO_BYTES", 25*1024*1024),
			AllowedMIMETypes: envOrDefaultList("UPLOAD_ALLOWED_MIME_TYPES", []string{"audio/mpeg", "audio/mp3"}),
		},
		Session: SessionConfig{
			TTL:           envOrDefaultDuration("SESSION_TTL", time.Hour),
			SweepInterval: envOrDefaultDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
			CookieSecure:  envOrDefaultBool("SESSION_COOKIE_SECURE", false),
		},
		Kafka: KafkaConfig{
			Enabled:            envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:            envOrDefaultList("KAFKA_BROKERS", nil),
			TopicTranscription: envOrDefault("KAFKA_TOPIC_TRANSCRIPTION", "visit.transcription.completed"),
			TopicReport:        envOrDefault("KAFKA_TOPIC_REPORT", "visit.report.completed"),
			Principal:          envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel:    strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// envOrDefaultList splits a comma-separated value, dropping empty entries.
func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
