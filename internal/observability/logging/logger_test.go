package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(Config{Level: "debug", Format: "json", Service: "voxguardian-test"}, &buf)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	l := WithCall("call-1")
	l.Info().Str("stage", "score").Msg("call scored")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["callId"] != "call-1" {
		t.Errorf("expected callId field, got %v", entry["callId"])
	}
	if entry["service"] != "voxguardian-test" {
		t.Errorf("expected service field, got %v", entry["service"])
	}
	if entry["message"] != "call scored" {
		t.Errorf("unexpected message: %v", entry["message"])
	}
}

func TestInitWithWriter_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(Config{Level: "chatty"}, &buf)

	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("expected info level, got %s", zerolog.GlobalLevel())
	}

	l := WithComponent("test")
	l.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected debug output to be suppressed, got %q", buf.String())
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != "info" || cfg.Format != "json" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
