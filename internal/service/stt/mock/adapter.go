// Package mock provides a mock STT transcriber for running without a
// speech backend. It cycles through canned calls, emergency and routine
// alike, so the whole analysis pipeline can be exercised locally.
package mock

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"voxguardian/internal/service/stt"
)

// SimulatedCall is a canned transcription result.
type SimulatedCall struct {
	Text             string
	CompressionRatio float64
}

// DefaultCalls provides sample calls for simulation.
var DefaultCalls = []SimulatedCall{
	{
		Text:             "Help, there is a fire in the kitchen and my father is unconscious, please send an ambulance",
		CompressionRatio: 0.45,
	},
	{
		Text:             "Hi, I would like to check the status of my order from last week",
		CompressionRatio: 0.30,
	},
	{
		Text:             "There was a car accident on the highway, someone is injured and bleeding",
		CompressionRatio: 0.50,
	},
	{
		Text:             "Yes please go ahead, thank you very much",
		CompressionRatio: 0.20,
	},
	{
		Text:             "Someone fired a gun, a man was shot, we need help now",
		CompressionRatio: 0.55,
	},
}

// Adapter implements stt.Transcriber with canned responses.
type Adapter struct {
	mu      sync.Mutex
	calls   []SimulatedCall
	next    int
	latency time.Duration
}

// Option configures the mock adapter.
type Option func(*Adapter)

// WithCalls replaces the canned calls.
func WithCalls(calls ...SimulatedCall) Option {
	return func(a *Adapter) { a.calls = calls }
}

// WithLatency simulates provider processing time.
func WithLatency(d time.Duration) Option {
	return func(a *Adapter) { a.latency = d }
}

// New creates a new mock STT adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{calls: DefaultCalls}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns "mock".
func (a *Adapter) Name() string { return "mock" }

// Transcribe checks the file exists and is non-empty, then returns the next
// canned call.
func (a *Adapter) Transcribe(ctx context.Context, path string) (stt.Transcription, error) {
	info, err := os.Stat(path)
	if err != nil {
		return stt.Transcription{}, fmt.Errorf("stat audio: %w", err)
	}
	if info.Size() == 0 {
		return stt.Transcription{}, stt.ErrEmptyAudio
	}

	if a.latency > 0 {
		select {
		case <-time.After(a.latency):
		case <-ctx.Done():
			return stt.Transcription{}, ctx.Err()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.calls) == 0 {
		return stt.Transcription{Language: "en"}, nil
	}
	call := a.calls[a.next%len(a.calls)]
	a.next++

	return stt.Transcription{
		Text:             call.Text,
		CompressionRatio: call.CompressionRatio,
		Language:         "en",
	}, nil
}
