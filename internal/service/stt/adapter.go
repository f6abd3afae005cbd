// Package stt defines the interface for Speech-to-Text providers.
package stt

import (
	"context"
	"errors"
)

// ErrEmptyAudio is returned when a provider receives no audio to transcribe.
var ErrEmptyAudio = errors.New("stt: empty audio")

// Transcription is the output of a provider for one recording.
type Transcription struct {
	Text string

	// CompressionRatio is the provider's text compression ratio, or a
	// quality proxy in [0,1] for providers that do not report one.
	CompressionRatio float64

	Language string
}

// Transcriber turns a normalized mono WAV file into text (Whisper, Google, mock).
type Transcriber interface {
	// Transcribe reads the WAV file at path and returns its transcription.
	Transcribe(ctx context.Context, path string) (Transcription, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}
