// Package events publishes visit lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"clinical-visit-service/internal/models"
	"clinical-visit-service/internal/observability/metrics"
)

// Publisher publishes visit lifecycle events to separate Kafka topics.
// With Kafka disabled it only logs the payloads.
type Publisher struct {
	writerTranscription *kafka.Writer
	writerReport        *kafka.Writer
	principal           string
	topicTranscription  string
	topicReport         string
	enabled             bool
	metrics             *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers            []string
	TopicTranscription string
	TopicReport        string
	Principal          string
	Enabled            bool
}

// New creates a publisher recording to the default metrics.
func New(cfg *Config) *Publisher {
	return NewWithMetrics(cfg, metrics.DefaultMetrics)
}

// NewWithMetrics creates a publisher with one writer per lifecycle topic.
func NewWithMetrics(cfg *Config, m *metrics.Metrics) *Publisher {
	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{metrics: m}
	}

	p := &Publisher{
		principal:          cfg.Principal,
		topicTranscription: cfg.TopicTranscription,
		topicReport:        cfg.TopicReport,
		metrics:            m,
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return p
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{Dial: dialer.DialFunc}

	p.writerTranscription = newWriter(cfg.Brokers, cfg.TopicTranscription, transport)
	p.writerReport = newWriter(cfg.Brokers, cfg.TopicReport, transport)
	p.enabled = true

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTranscription", cfg.TopicTranscription).
		Str("topicReport", cfg.TopicReport).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return p
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

// Enabled reports whether events are written to Kafka.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// PublishTranscription publishes a transcription outcome keyed by visit ID.
func (p *Publisher) PublishTranscription(ctx context.Context, ev models.TranscriptionCompleted) error {
	if ev.EventType == "" {
		ev.EventType = models.EventTranscriptionCompleted
	}
	return p.publish(ctx, p.writerTranscription, p.topicTranscription, ev.EventType, ev.VisitID, ev)
}

// PublishReport publishes a facts+report outcome keyed by visit ID.
func (p *Publisher) PublishReport(ctx context.Context, ev models.ReportCompleted) error {
	if ev.EventType == "" {
		ev.EventType = models.EventReportCompleted
	}
	return p.publish(ctx, p.writerReport, p.topicReport, ev.EventType, ev.VisitID, ev)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.record(topic, eventType, nil, start)
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.record(topic, eventType, err, start)
		return err
	}

	p.record(topic, eventType, nil, start)
	return nil
}

func (p *Publisher) record(topic, eventType string, err error, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerTranscription != nil {
		if e := p.writerTranscription.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing transcription writer")
			err = e
		}
	}
	if p.writerReport != nil {
		if e := p.writerReport.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing report writer")
			err = e
		}
	}
	return err
}
