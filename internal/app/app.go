package app

import (
	"errors"
	"os"
	"strings"
	"time"

	"clinical-visit-service/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const serviceName = "clinical-visit-service"

// ErrNotStarted is returned by Ready before Start has run.
var ErrNotStarted = errors.New("application not started")

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration
}

// New constructs a new Application from the provided configuration.
func New(cfg *config.Configuration) *Application {
	a := &Application{
		Cfg: cfg,
	}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("method", "New").
		Logger()

	appLogger.Info().
		Str("llmProvider", a.provider()).
		Msg("Clinical visit service application created")
	return a
}

// setupLogger builds the service logger. ZEROLOG_LOG_LEVEL overrides the
// configured level; ENV=dev switches to console output.
func (a *Application) setupLogger() {
	logLevel := zerolog.InfoLevel
	if a.Cfg != nil {
		if parsed, err := zerolog.ParseLevel(a.Cfg.Observability.LogLevel); err == nil && a.Cfg.Observability.LogLevel != "" {
			logLevel = parsed
		}
	}
	if envLevel := os.Getenv("ZEROLOG_LOG_LEVEL"); envLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(strings.ToLower(envLevel)); err == nil {
			logLevel = parsedLevel
		}
	}

	zerolog.SetGlobalLevel(logLevel)
	zerolog.TimeFieldFormat = time.RFC3339

	env := os.Getenv("ENV")
	if a.Cfg != nil && a.Cfg.Service.Env != "" {
		env = a.Cfg.Service.Env
	}

	if env == "dev" {
		a.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Str("service", serviceName).
			Str("component", "application").
			Logger()
	} else {
		a.Logger = zerolog.New(os.Stdout).With().
			Timestamp().
			Str("service", serviceName).
			Str("component", "application").
			Logger()
	}

	a.Logger.Info().
		Str("logLevel", logLevel.String()).
		Str("environment", env).
		Msg("Logger setup completed")
}

func (a *Application) provider() string {
	if a.Cfg == nil {
		return ""
	}
	return a.Cfg.LLM.Provider
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start() error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	a.StartupTime = time.Now().UTC()
	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Clinical visit service starting")

	return nil
}

// Ready reports whether the service can take visits.
func (a *Application) Ready() error {
	if a.StartupTime.IsZero() {
		return ErrNotStarted
	}
	return nil
}

// Uptime returns how long the service has been serving.
func (a *Application) Uptime() time.Duration {
	if a.StartupTime.IsZero() {
		return 0
	}
	return time.Since(a.StartupTime)
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	shutdownLogger.Info().
		Dur("uptime", a.Uptime()).
		Msg("Clinical visit service shutting down")
}
