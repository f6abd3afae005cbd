// Package google provides a Google Cloud Speech-to-Text transcriber.
package google

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"

	"voxguardian/internal/service/audio"
	"voxguardian/internal/service/stt"
)

// syncLimitSeconds is the longest audio sent to synchronous Recognize, which
// rejects inline audio over one minute.
const syncLimitSeconds = 55.0

// Config holds Google STT configuration.
type Config struct {
	LanguageCode  string
	SampleRateHz  int32
	AudioEncoding string
}

// DefaultConfig returns the configuration for 16kHz mono LINEAR16 WAV.
func DefaultConfig() Config {
	return Config{
		LanguageCode:  "en-US",
		SampleRateHz:  16000,
		AudioEncoding: "LINEAR16",
	}
}

// recognizer runs one recognition request and returns its results.
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) ([]*speechpb.SpeechRecognitionResult, error)
	RecognizeLong(ctx context.Context, req *speechpb.LongRunningRecognizeRequest, opts ...gax.CallOption) ([]*speechpb.SpeechRecognitionResult, error)
	Close() error
}

// speechClient adapts *speech.Client to recognizer.
type speechClient struct {
	*speech.Client
}

func (c speechClient) Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) ([]*speechpb.SpeechRecognitionResult, error) {
	resp, err := c.Client.Recognize(ctx, req, opts...)
	if err != nil {
		return nil, err
	}
	return resp.GetResults(), nil
}

// RecognizeLong starts a long-running operation and polls it until done.
func (c speechClient) RecognizeLong(ctx context.Context, req *speechpb.LongRunningRecognizeRequest, opts ...gax.CallOption) ([]*speechpb.SpeechRecognitionResult, error) {
	op, err := c.Client.LongRunningRecognize(ctx, req, opts...)
	if err != nil {
		return nil, err
	}
	resp, err := op.Wait(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return resp.GetResults(), nil
}

// Adapter implements stt.Transcriber using Google Cloud Speech-to-Text.
type Adapter struct {
	client recognizer
	config Config
}

// New creates a new Google STT adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &Adapter{client: speechClient{c}, config: cfg}, nil
}

// Name returns "google".
func (a *Adapter) Name() string { return "google" }

// Transcribe sends WAV audio of up to 55 seconds for synchronous
// recognition and everything else, including audio whose length cannot be
// read, as a long-running operation. Google reports no compression ratio, so
// the slot carries 1 minus the mean alternative confidence: a confident
// transcript reads as low compression.
func (a *Adapter) Transcribe(ctx context.Context, path string) (stt.Transcription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return stt.Transcription{}, fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return stt.Transcription{}, stt.ErrEmptyAudio
	}

	config := &speechpb.RecognitionConfig{
		Encoding:                   parseAudioEncoding(a.config.AudioEncoding),
		SampleRateHertz:            a.config.SampleRateHz,
		LanguageCode:               a.config.LanguageCode,
		EnableAutomaticPunctuation: true,
	}
	content := &speechpb.RecognitionAudio{
		AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
	}

	var results []*speechpb.SpeechRecognitionResult
	if isShort(data) {
		results, err = a.client.Recognize(ctx, &speechpb.RecognizeRequest{Config: config, Audio: content})
	} else {
		results, err = a.client.RecognizeLong(ctx, &speechpb.LongRunningRecognizeRequest{Config: config, Audio: content})
	}
	if err != nil {
		return stt.Transcription{}, fmt.Errorf("google recognize: %w", err)
	}

	return fromResults(results, a.config.LanguageCode), nil
}

// isShort reports whether data is a WAV file short enough for synchronous
// recognition.
func isShort(data []byte) bool {
	format, err := audio.ReadWAVFormat(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	d := format.Duration()
	return d > 0 && d <= syncLimitSeconds
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

func fromResults(results []*speechpb.SpeechRecognitionResult, language string) stt.Transcription {
	var (
		parts []string
		sum   float64
		n     int
	)
	for _, r := range results {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		alt := r.GetAlternatives()[0]
		if t := strings.TrimSpace(alt.GetTranscript()); t != "" {
			parts = append(parts, t)
		}
		sum += float64(alt.GetConfidence())
		n++
		if lc := r.GetLanguageCode(); lc != "" {
			language = lc
		}
	}

	ratio := 0.0
	if n > 0 {
		ratio = 1 - sum/float64(n)
	}
	return stt.Transcription{
		Text:             strings.Join(parts, " "),
		CompressionRatio: ratio,
		Language:         language,
	}
}

// parseAudioEncoding converts a string to the Google Speech API audio encoding enum.
func parseAudioEncoding(encoding string) speechpb.RecognitionConfig_AudioEncoding {
	switch encoding {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}
