// Package events publishes call scoring events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"voxguardian/internal/models"
	"voxguardian/internal/observability/metrics"
)

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher publishes call events to separate Kafka topics for every scored
// call and for emergencies only.
type Publisher struct {
	writerScored    messageWriter
	writerEmergency messageWriter
	principal       string
	topicScored     string
	topicEmergency  string
	enabled         bool
	metrics         *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers        []string
	TopicScored    string
	TopicEmergency string
	Principal      string
	Enabled        bool
}

// New creates a Kafka publisher. A nil or disabled config, or one without
// brokers, yields a publisher that only logs. A nil m uses the default metrics.
func New(cfg *Config, m *metrics.Metrics) *Publisher {
	if m == nil {
		m = metrics.DefaultMetrics
	}

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{metrics: m}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:      cfg.Principal,
			topicScored:    cfg.TopicScored,
			topicEmergency: cfg.TopicEmergency,
			metrics:        m,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicScored", cfg.TopicScored).
		Str("topicEmergency", cfg.TopicEmergency).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerScored:    newWriter(cfg.TopicScored),
		writerEmergency: newWriter(cfg.TopicEmergency),
		principal:       cfg.Principal,
		topicScored:     cfg.TopicScored,
		topicEmergency:  cfg.TopicEmergency,
		enabled:         true,
		metrics:         m,
	}
}

// Enabled reports whether events reach Kafka.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// PublishScored publishes a call.scored event keyed by call ID.
func (p *Publisher) PublishScored(ctx context.Context, event models.CallScored) error {
	return p.publish(ctx, p.writerScored, p.topicScored, models.EventTypeCallScored, event.CallID, event)
}

// PublishEmergency publishes a call.emergency event keyed by call ID.
func (p *Publisher) PublishEmergency(ctx context.Context, event models.CallEmergency) error {
	return p.publish(ctx, p.writerEmergency, p.topicEmergency, models.EventTypeCallEmergency, event.CallID, event)
}

func (p *Publisher) publish(ctx context.Context, writer messageWriter, topic, eventType, key string, event any) error {
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
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
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
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerScored != nil {
		if e := p.writerScored.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing scored writer")
			err = e
		}
	}
	if p.writerEmergency != nil {
		if e := p.writerEmergency.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing emergency writer")
			err = e
		}
	}
	return err
}
