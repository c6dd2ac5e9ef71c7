package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allEnvVars = []string{
	"SERVICE_PRINCIPAL", "GRPC_PORT", "ENV", "HTTP_PORT", "HTTP_READ_HEADER_TIMEOUT", "HTTP_WRITE_TIMEOUT",
	"LLM_PROVIDER", "GEMINI_API_KEY", "LLM_API_KEY", "LLM_MODEL", "LLM_BASE_URL", "LLM_REQUEST_TIMEOUT",
	"UPLOAD_MAX_AUDIO_BYTES", "UPLOAD_ALLOWED_MIME_TYPES",
	"SESSION_TTL", "SESSION_SWEEP_INTERVAL", "SESSION_COOKIE_SECURE",
	"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_TRANSCRIPTION", "KAFKA_TOPIC_REPORT", "KAFKA_PRINCIPAL",
	"LOG_LEVEL", "LOG_FORMAT", "METRICS_PORT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range allEnvVars {
		if old, ok := os.LookupEnv(v); ok {
			os.Unsetenv(v)
			t.Cleanup(func() { os.Setenv(v, old) })
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	// Service defaults
	if cfg.Service.Principal != "svc-clinical-visit" {
		t.Errorf("expected default principal 'svc-clinical-visit', got %s", cfg.Service.Principal)
	}
	if cfg.Service.GRPCPort != "50051" {
		t.Errorf("expected default gRPC port '50051', got %s", cfg.Service.GRPCPort)
	}
	if cfg.HTTP.Port != "8080" {
		t.Errorf("expected default HTTP port '8080', got %s", cfg.HTTP.Port)
	}

	// LLM defaults
	if cfg.LLM.Provider != "gemini" {
		t.Errorf("expected default provider 'gemini', got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "gemini-2.5-pro" {
		t.Errorf("expected default model 'gemini-2.5-pro', got %s", cfg.LLM.Model)
	}
	if cfg.LLM.RequestTimeout != 0 {
		t.Errorf("expected no default request timeout, got %v", cfg.LLM.RequestTimeout)
	}

	// Upload defaults
	if cfg.Upload.MaxAudioBytes != 25*1024*1024 {
		t.Errorf("expected default max audio bytes 25MB, got %d", cfg.Upload.MaxAudioBytes)
	}
	if len(cfg.Upload.AllowedMIMETypes) != 2 || cfg.Upload.AllowedMIMETypes[0] != "audio/mpeg" {
		t.Errorf("expected default MIME types [audio/mpeg audio/mp3], got %v", cfg.Upload.AllowedMIMETypes)
	}

	// Session defaults
	if cfg.Session.TTL != time.Hour {
		t.Errorf("expected default session TTL 1h, got %v", cfg.Session.TTL)
	}

	// Kafka defaults
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.Kafka.TopicTranscription != "visit.transcription.completed" {
		t.Errorf("unexpected default transcription topic %s", cfg.Kafka.TopicTranscription)
	}

	// Observability defaults
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
	if cfg.Observability.MetricsPort != "9090" {
		t.Errorf("expected default metrics port '9090', got %s", cfg.Observability.MetricsPort)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	custom := map[string]string{
		"SERVICE_PRINCIPAL":         "custom-principal",
		"HTTP_PORT":                 "9999",
		"LOG_LEVEL":                 "DEBUG",
		"LLM_PROVIDER":              "OpenAI",
		"GEMINI_API_KEY":            "secret",
		"LLM_MODEL":                 "gemini-2.5-flash",
		"LLM_REQUEST_TIMEOUT":       "90s",
		"UPLOAD_MAX_AUDIO_BYTES":    "1048576",
		"UPLOAD_ALLOWED_MIME_TYPES": "audio/mpeg, audio/wav ,",
		"SESSION_TTL":               "10m",
		"KAFKA_ENABLED":             "true",
		"KAFKA_BROKERS":             "k1:9092,k2:9092",
	}
	for k, v := range custom {
		os.Setenv(k, v)
	}
	defer func() {
		for k := range custom {
			os.Unsetenv(k)
		}
	}()

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.HTTP.Port != "9999" {
		t.Errorf("expected port '9999', got %s", cfg.HTTP.Port)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey != "secret" {
		t.Errorf("expected API key from GEMINI_API_KEY, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.RequestTimeout != 90*time.Second {
		t.Errorf("expected request timeout 90s, got %v", cfg.LLM.RequestTimeout)
	}
	if cfg.Upload.MaxAudioBytes != 1048576 {
		t.Errorf("expected max audio bytes 1048576, got %d", cfg.Upload.MaxAudioBytes)
	}
	if got := cfg.Upload.AllowedMIMETypes; len(got) != 2 || got[1] != "audio/wav" {
		t.Errorf("expected trimmed MIME list, got %v", got)
	}
	if cfg.Session.TTL != 10*time.Minute {
		t.Errorf("expected session TTL 10m, got %v", cfg.Session.TTL)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("expected Kafka enabled with 2 brokers, got %v %v", cfg.Kafka.Enabled, cfg.Kafka.Brokers)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("UPLOAD_MAX_AUDIO_BYTES", "invalid")
	os.Setenv("SESSION_TTL", "invalid")
	os.Setenv("KAFKA_ENABLED", "invalid")
	os.Setenv("LLM_REQUEST_TIMEOUT", "soon")

	defer func() {
		os.Unsetenv("UPLOAD_MAX_AUDIO_BYTES")
		os.Unsetenv("SESSION_TTL")
		os.Unsetenv("KAFKA_ENABLED")
		os.Unsetenv("LLM_REQUEST_TIMEOUT")
	}()

	cfg := Load()

	if cfg.Upload.MaxAudioBytes != 25*1024*1024 {
		t.Errorf("expected default max audio bytes on invalid input, got %d", cfg.Upload.MaxAudioBytes)
	}
	if cfg.Session.TTL != time.Hour {
		t.Errorf("expected default session TTL on invalid input, got %v", cfg.Session.TTL)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected default Kafka enabled=false on invalid input")
	}
	if cfg.LLM.RequestTimeout != 0 {
		t.Errorf("expected default request timeout on invalid input, got %v", cfg.LLM.RequestTimeout)
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	clearEnv(t)
	os.Setenv("SERVICE_PRINCIPAL", "my-service")
	defer os.Unsetenv("SERVICE_PRINCIPAL")

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestLoad_APIKeyFallsBackToGenericVariable(t *testing.T) {
	clearEnv(t)
	os.Setenv("LLM_API_KEY", "generic")
	defer os.Unsetenv("LLM_API_KEY")

	if got := Load().LLM.APIKey; got != "generic" {
		t.Errorf("expected API key 'generic', got %q", got)
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}

func TestEnvOrDefaultInt(t *testing.T) {
	os.Setenv("TEST_INT_VAR", "42")
	defer os.Unsetenv("TEST_INT_VAR")
	if got := envOrDefaultInt("TEST_INT_VAR", 7); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	os.Setenv("TEST_INT_VAR", "forty-two")
	if got := envOrDefaultInt("TEST_INT_VAR", 7); got != 7 {
		t.Errorf("expected fallback 7, got %d", got)
	}
}

func TestEnvOrDefaultList_AllEmptyEntries(t *testing.T) {
	os.Setenv("TEST_LIST_VAR", " , ,")
	defer os.Unsetenv("TEST_LIST_VAR")

	got := envOrDefaultList("TEST_LIST_VAR", []string{"fallback"})
	if len(got) != 1 || got[0] != "fallback" {
		t.Errorf("expected fallback list, got %v", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("DOTENV_ONLY_VAR=from-file\nDOTENV_SET_VAR=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", path)
	t.Setenv("DOTENV_SET_VAR", "from-env")
	defer os.Unsetenv("DOTENV_ONLY_VAR")

	if err := LoadDotEnv(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("DOTENV_ONLY_VAR"); got != "from-file" {
		t.Errorf("expected value from file, got %q", got)
	}
	if got := os.Getenv("DOTENV_SET_VAR"); got != "from-env" {
		t.Errorf("expected environment to win, got %q", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	if err := LoadDotEnv(); err != nil {
		t.Errorf("expected missing file to be ignored, got %v", err)
	}
}
