package google

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"

	"voxguardian/internal/service/stt"
)

type fakeRecognizer struct {
	results []*speechpb.SpeechRecognitionResult
	err     error
	config  *speechpb.RecognitionConfig
	calls   []string
}

func (f *fakeRecognizer) Recognize(_ context.Context, req *speechpb.RecognizeRequest, _ ...gax.CallOption) ([]*speechpb.SpeechRecognitionResult, error) {
	f.config = req.GetConfig()
	f.calls = append(f.calls, "sync")
	return f.results, f.err
}

func (f *fakeRecognizer) RecognizeLong(_ context.Context, req *speechpb.LongRunningRecognizeRequest, _ ...gax.CallOption) ([]*speechpb.SpeechRecognitionResult, error) {
	f.config = req.GetConfig()
	f.calls = append(f.calls, "long")
	return f.results, f.err
}

func (f *fakeRecognizer) Close() error { return nil }

// pcmWAV returns a 16kHz mono 16-bit WAV file of silence.
func pcmWAV(seconds int) []byte {
	const rate = 16000
	dataLen := uint32(seconds * rate * 2)
	b := make([]byte, 44+int(dataLen))
	copy(b[0:4], "RIFF")
	binary.LittleEndian.PutUint32(b[4:8], 36+dataLen)
	copy(b[8:16], "WAVEfmt ")
	binary.LittleEndian.PutUint32(b[16:20], 16)
	binary.LittleEndian.PutUint16(b[20:22], 1)
	binary.LittleEndian.PutUint16(b[22:24], 1)
	binary.LittleEndian.PutUint32(b[24:28], rate)
	binary.LittleEndian.PutUint32(b[28:32], rate*2)
	binary.LittleEndian.PutUint16(b[32:34], 2)
	binary.LittleEndian.PutUint16(b[34:36], 16)
	copy(b[36:40], "data")
	binary.LittleEndian.PutUint32(b[40:44], dataLen)
	return b
}

func writeAudio(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "call.wav")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LanguageCode != "en-US" {
		t.Errorf("expected default language 'en-US', got %s", cfg.LanguageCode)
	}
	if cfg.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.SampleRateHz)
	}
	if cfg.AudioEncoding != "LINEAR16" {
		t.Errorf("expected default encoding 'LINEAR16', got %s", cfg.AudioEncoding)
	}
}

func TestParseAudioEncoding(t *testing.T) {
	tests := []struct {
		input    string
		expected speechpb.RecognitionConfig_AudioEncoding
	}{
		{"LINEAR16", speechpb.RecognitionConfig_LINEAR16},
		{"MULAW", speechpb.RecognitionConfig_MULAW},
		{"FLAC", speechpb.RecognitionConfig_FLAC},
		{"AMR", speechpb.RecognitionConfig_AMR},
		{"AMR_WB", speechpb.RecognitionConfig_AMR_WB},
		{"OGG_OPUS", speechpb.RecognitionConfig_OGG_OPUS},
		{"SPEEX_WITH_HEADER_BYTE", speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE},
		{"WEBM_OPUS", speechpb.RecognitionConfig_WEBM_OPUS},
		{"linear16", speechpb.RecognitionConfig_LINEAR16}, // fallback
		{"", speechpb.RecognitionConfig_LINEAR16},         // fallback
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseAudioEncoding(tt.input)
			if got != tt.expected {
				t.Errorf("parseAudioEncoding(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTranscribe_JoinsResultsAndMapsConfidence(t *testing.T) {
	fake := &fakeRecognizer{results: []*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "there is a fire", Confidence: 0.9}}},
		{Alternatives: nil},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " send help ", Confidence: 0.7}}},
	}}
	a := &Adapter{client: fake, config: DefaultConfig()}

	got, err := a.Transcribe(context.Background(), writeAudio(t, pcmWAV(2)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "there is a fire send help" {
		t.Errorf("unexpected text %q", got.Text)
	}
	if math.Abs(got.CompressionRatio-0.2) > 1e-6 {
		t.Errorf("expected ratio 0.2, got %v", got.CompressionRatio)
	}
	if got.Language != "en-US" {
		t.Errorf("expected language en-US, got %q", got.Language)
	}
	if fake.config.GetSampleRateHertz() != 16000 {
		t.Errorf("expected 16000Hz request, got %d", fake.config.GetSampleRateHertz())
	}
}

func TestTranscribe_ChoosesRecognizeMethod(t *testing.T) {
	tests := []struct {
		name  string
		audio []byte
		want  string
	}{
		{"short wav", pcmWAV(30), "sync"},
		{"at the sync limit", pcmWAV(55), "sync"},
		{"over a minute", pcmWAV(61), "long"},
		{"ten minutes", pcmWAV(600), "long"},
		{"unreadable length", []byte("RIFF...."), "long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeRecognizer{results: []*speechpb.SpeechRecognitionResult{
				{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "help", Confidence: 0.5}}},
			}}
			a := &Adapter{client: fake, config: DefaultConfig()}

			got, err := a.Transcribe(context.Background(), writeAudio(t, tt.audio))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(fake.calls) != 1 || fake.calls[0] != tt.want {
				t.Errorf("calls = %v, want [%s]", fake.calls, tt.want)
			}
			if got.Text != "help" {
				t.Errorf("unexpected text %q", got.Text)
			}
		})
	}
}

func TestTranscribe_NoResults(t *testing.T) {
	a := &Adapter{client: &fakeRecognizer{}, config: DefaultConfig()}

	got, err := a.Transcribe(context.Background(), writeAudio(t, []byte("RIFF")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "" || got.CompressionRatio != 0 {
		t.Errorf("expected empty transcription, got %+v", got)
	}
}

func TestTranscribe_Errors(t *testing.T) {
	a := &Adapter{client: &fakeRecognizer{err: errors.New("quota exceeded")}, config: DefaultConfig()}

	if _, err := a.Transcribe(context.Background(), writeAudio(t, []byte("RIFF"))); err == nil {
		t.Error("expected recognize error")
	}
	if _, err := a.Transcribe(context.Background(), writeAudio(t, nil)); !errors.Is(err, stt.ErrEmptyAudio) {
		t.Errorf("expected ErrEmptyAudio, got %v", err)
	}
	if _, err := a.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("expected error for missing file")
	}
	if a.Name() != "google" {
		t.Errorf("unexpected name %q", a.Name())
	}
}
