package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"clinical-visit-service/internal/app"
	"clinical-visit-service/internal/config"
	"clinical-visit-service/internal/events"
	httpapi "clinical-visit-service/internal/http"
	"clinical-visit-service/internal/observability"
	"clinical-visit-service/internal/observability/logging"
	"clinical-visit-service/internal/observability/metrics"
	"clinical-visit-service/internal/service/llm"
	"clinical-visit-service/internal/service/llm/gemini"
	"clinical-visit-service/internal/service/llm/mock"
	"clinical-visit-service/internal/service/llm/openai"
	"clinical-visit-service/internal/service/session"
	"clinical-visit-service/internal/service/visit"
)

const (
	healthServiceName = "clinical.visit.VisitService"
	shutdownTimeout   = 30 * time.Second
)

func main() {
	dotEnvErr := config.LoadDotEnv()
	cfg := config.Load()

	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})
	if dotEnvErr != nil {
		log.Warn().Err(dotEnvErr).Msg("Failed to load .env file")
	}
	application := app.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	adapter, err := newAdapter(ctx, cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.LLM.Provider).Msg("Failed to create LLM adapter")
	}
	defer adapter.Close()

	// Kafka publisher with one topic per lifecycle event
	publisher := events.New(&events.Config{
		Enabled:            cfg.Kafka.Enabled,
		Brokers:            cfg.Kafka.Brokers,
		TopicTranscription: cfg.Kafka.TopicTranscription,
		TopicReport:        cfg.Kafka.TopicReport,
		Principal:          cfg.Kafka.Principal,
	})
	defer publisher.Close()

	orchestrator := visit.NewOrchestratorWithLimits(adapter, publisher, visit.Limits{
		MaxAudioBytes:    cfg.Upload.MaxAudioBytes,
		AllowedMIMETypes: cfg.Upload.AllowedMIMETypes,
		RequestTimeout:   cfg.LLM.RequestTimeout,
	})

	sessions := session.NewStore(cfg.Session.TTL)
	go sessions.Run(ctx, cfg.Session.SweepInterval)

	obsServer := observability.NewServer(":" + cfg.Observability.MetricsPort,
		observability.ReadinessCheck{Name: "application", Check: application.Ready},
	)
	obsServer.Start()

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           httpapi.NewRouter(application, orchestrator, sessions),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("Clinical visit HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to listen for gRPC")
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(observability.UnaryServerInterceptor(metrics.DefaultMetrics)),
	)

	// Register gRPC health check service
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(healthServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(grpcServer)

	go func() {
		log.Info().Str("addr", lis.Addr().String()).Msg("gRPC health server started")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("gRPC serve failed")
		}
	}()

	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Application start failed")
	}

	<-ctx.Done()

	log.Info().Msg("Shutting down")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(healthServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown error")
	}
	grpcServer.GracefulStop()
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Observability server shutdown error")
	}
	application.Shutdown()
}

// newAdapter builds the configured LLM provider.
func newAdapter(ctx context.Context, cfg config.LLMConfig) (llm.Adapter, error) {
	switch cfg.Provider {
	case "gemini":
		return gemini.New(ctx, gemini.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "openai":
		return openai.New(openai.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		}, &http.Client{})
	case "mock":
		log.Warn().Msg("Using mock LLM provider; responses are canned")
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q (want gemini, openai or mock)", cfg.Provider)
	}
}
