package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"

	"voxguardian/internal/models"
	"voxguardian/internal/observability/metrics"
)

type fakeWriter struct {
	msgs     []kafka.Message
	writeErr error
	closeErr error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return f.closeErr
}

func newTestMetrics() *metrics.Metrics {
	return metrics.NewMetrics(prometheus.NewRegistry())
}

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg, newTestMetrics())
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.Enabled() {
				t.Error("expected publisher to be disabled")
			}
			if p.writerScored != nil || p.writerEmergency != nil {
				t.Error("expected nil writers when disabled")
			}
		})
	}
}

func TestNew_EnabledCreatesWriters(t *testing.T) {
	p := New(&Config{
		Enabled:        true,
		Brokers:        []string{"localhost:9092"},
		TopicScored:    "test.scored",
		TopicEmergency: "test.emergency",
		Principal:      "test-principal",
	}, newTestMetrics())
	defer p.Close()

	if !p.Enabled() {
		t.Fatal("expected publisher to be enabled")
	}
	w, ok := p.writerScored.(*kafka.Writer)
	if !ok || w.Topic != "test.scored" {
		t.Errorf("unexpected scored writer: %#v", p.writerScored)
	}
	w, ok = p.writerEmergency.(*kafka.Writer)
	if !ok || w.Topic != "test.emergency" {
		t.Errorf("unexpected emergency writer: %#v", p.writerEmergency)
	}
}

func TestPublisher_Disabled_RecordsMetrics(t *testing.T) {
	m := newTestMetrics()
	p := New(&Config{TopicScored: "test.scored"}, m)

	err := p.PublishScored(context.Background(), models.CallScored{EventType: models.EventTypeCallScored, CallID: "c-1"})
	if err != nil {
		t.Fatalf("expected no error when disabled, got %v", err)
	}
	if got := testutil.ToFloat64(m.KafkaPublishTotal.WithLabelValues("test.scored", models.EventTypeCallScored)); got != 1 {
		t.Errorf("expected 1 publish recorded, got %v", got)
	}
}

func TestPublisher_WritesKeyedMessages(t *testing.T) {
	scored, emergency := &fakeWriter{}, &fakeWriter{}
	p := &Publisher{
		writerScored:    scored,
		writerEmergency: emergency,
		principal:       "svc-test",
		topicScored:     "call.scored",
		topicEmergency:  "call.emergency",
		enabled:         true,
		metrics:         newTestMetrics(),
	}

	ctx := context.Background()
	if err := p.PublishScored(ctx, models.CallScored{EventType: models.EventTypeCallScored, CallID: "c-1", ConfidenceScore: 0.84}); err != nil {
		t.Fatalf("PublishScored: %v", err)
	}
	if err := p.PublishEmergency(ctx, models.CallEmergency{EventType: models.EventTypeCallEmergency, CallID: "c-1"}); err != nil {
		t.Fatalf("PublishEmergency: %v", err)
	}

	if len(scored.msgs) != 1 || len(emergency.msgs) != 1 {
		t.Fatalf("expected one message per writer, got %d and %d", len(scored.msgs), len(emergency.msgs))
	}

	msg := scored.msgs[0]
	if string(msg.Key) != "c-1" {
		t.Errorf("expected key c-1, got %q", msg.Key)
	}
	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["eventType"] != models.EventTypeCallScored || headers["principal"] != "svc-test" {
		t.Errorf("unexpected headers: %v", headers)
	}

	var decoded models.CallScored
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded.ConfidenceScore != 0.84 {
		t.Errorf("expected confidence 0.84, got %v", decoded.ConfidenceScore)
	}
}

func TestPublisher_WriteError(t *testing.T) {
	m := newTestMetrics()
	p := &Publisher{
		writerScored: &fakeWriter{writeErr: errors.New("broker down")},
		topicScored:  "call.scored",
		enabled:      true,
		metrics:      m,
	}

	err := p.PublishScored(context.Background(), models.CallScored{CallID: "c-2"})
	if err == nil {
		t.Fatal("expected write error")
	}
	if got := testutil.ToFloat64(m.KafkaPublishErrors.WithLabelValues("call.scored", models.EventTypeCallScored)); got != 1 {
		t.Errorf("expected 1 publish error, got %v", got)
	}
}

func TestPublisher_Close(t *testing.T) {
	scored := &fakeWriter{}
	emergency := &fakeWriter{closeErr: errors.New("close failed")}
	p := &Publisher{writerScored: scored, writerEmergency: emergency}

	if err := p.Close(); err == nil {
		t.Error("expected close error to surface")
	}
	if !scored.closed || !emergency.closed {
		t.Error("expected both writers closed")
	}

	if err := New(nil, newTestMetrics()).Close(); err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}
