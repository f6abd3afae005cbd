// Package whisper provides a transcriber backed by a whisper.cpp compatible
// HTTP server (POST /inference, multipart/form-data).
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voxguardian/internal/service/stt"
)

const defaultTimeout = 2 * time.Minute

// Adapter implements stt.Transcriber against a whisper server.
type Adapter struct {
	serverURL  string
	model      string
	language   string
	httpClient *http.Client
}

// Option configures the adapter.
type Option func(*Adapter)

// WithModel sets the model hint sent with every request.
func WithModel(model string) Option {
	return func(a *Adapter) { a.model = model }
}

// WithLanguage sets the language hint. Whisper expects an ISO 639-1 code, so
// region suffixes such as "en-US" are trimmed.
func WithLanguage(lang string) Option {
	return func(a *Adapter) {
		if i := strings.IndexAny(lang, "-_"); i > 0 {
			lang = lang[:i]
		}
		a.language = strings.ToLower(lang)
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.httpClient = c }
}

// New creates an adapter for the server at serverURL.
func New(serverURL string, opts ...Option) (*Adapter, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	a := &Adapter{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Name returns "whisper".
func (a *Adapter) Name() string { return "whisper" }

// inferenceResponse covers the verbose_json and plain json response shapes.
type inferenceResponse struct {
	Text             string   `json:"text"`
	Language         string   `json:"language"`
	CompressionRatio *float64 `json:"compression_ratio"`
	Segments         []struct {
		Text string `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads the WAV file and returns the decoded result. The
// compression ratio is the top-level value when present, otherwise 0.
// Per-segment ratios are gzip ratios well above 1 and are not used.
func (a *Adapter) Transcribe(ctx context.Context, path string) (stt.Transcription, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return stt.Transcription{}, fmt.Errorf("whisper: read audio: %w", err)
	}
	if len(audio) == 0 {
		return stt.Transcription{}, stt.ErrEmptyAudio
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return stt.Transcription{}, fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return stt.Transcription{}, fmt.Errorf("whisper: write wav data: %w", err)
	}
	fields := map[string]string{
		"response_format": "verbose_json",
		"temperature":     "0",
		"language":        a.language,
		"model":           a.model,
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return stt.Transcription{}, fmt.Errorf("whisper: write %s field: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return stt.Transcription{}, fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.serverURL+"/inference", &body)
	if err != nil {
		return stt.Transcription{}, fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return stt.Transcription{}, fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return stt.Transcription{}, fmt.Errorf("whisper: read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return stt.Transcription{}, fmt.Errorf("whisper: server returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var result inferenceResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return stt.Transcription{}, fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	return result.transcription(a.language), nil
}

func (r inferenceResponse) transcription(fallbackLang string) stt.Transcription {
	text := strings.TrimSpace(r.Text)
	if text == "" && len(r.Segments) > 0 {
		parts := make([]string, 0, len(r.Segments))
		for _, s := range r.Segments {
			if t := strings.TrimSpace(s.Text); t != "" {
				parts = append(parts, t)
			}
		}
		text = strings.Join(parts, " ")
	}

	ratio := 0.0
	if r.CompressionRatio != nil {
		ratio = *r.CompressionRatio
	}

	lang := r.Language
	if lang == "" {
		lang = fallbackLang
	}
	return stt.Transcription{Text: text, CompressionRatio: ratio, Language: lang}
}
