package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voxguardian/internal/service/audio"
)

var contentTypes = map[string]string{
	".wav": "audio/wav",
	".mp3": "audio/mpeg",
	".m4a": "audio/x-m4a",
}

// contentTypeFor returns the upload content type for path.
func contentTypeFor(path string) (string, error) {
	if path == "" {
		return "", errors.New("-audio is required")
	}
	ext := strings.ToLower(filepath.Ext(path))
	contentType, ok := contentTypes[ext]
	if !ok {
		return "", fmt.Errorf("unsupported file extension %q", ext)
	}
	return contentType, nil
}

func main() {
	audioFile := flag.String("audio", "", "Path to the recording (wav, mp3, m4a)")
	serverURL := flag.String("server", "http://localhost:5000", "VoxGuardian HTTP address")
	timeout := flag.Duration("timeout", 3*time.Minute, "Request timeout")
	flag.Parse()

	contentType, err := contentTypeFor(*audioFile)
	if err != nil {
		flag.Usage()
		log.Fatalf("Invalid audio file: %v", err)
	}

	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatalf("Failed to open audio file: %v", err)
	}
	defer f.Close()

	if contentType == "audio/wav" {
		info, err := f.Stat()
		if err != nil {
			log.Fatalf("Failed to stat audio file: %v", err)
		}
		format, err := audio.ReadWAVFormat(f, info.Size())
		if err != nil {
			log.Fatalf("Not a valid WAV file: %v", err)
		}
		log.Printf("WAV file: format=%d channels=%d sampleRate=%d bitsPerSample=%d duration=%.2fs",
			format.AudioFormat, format.Channels, format.SampleRate, format.BitsPerSample, format.Duration())
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			log.Fatalf("Failed to rewind audio file: %v", err)
		}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="audio"; filename="`+filepath.Base(*audioFile)+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		log.Fatalf("Failed to create form part: %v", err)
	}
	n, err := io.Copy(part, f)
	if err != nil {
		log.Fatalf("Failed to read audio: %v", err)
	}
	if err := mw.Close(); err != nil {
		log.Fatalf("Failed to finish form: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(*serverURL, "/")+"/v1/analyze", &body)
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	log.Printf("Uploading %s (%d bytes) to %s", *audioFile, n, req.URL)
	start := time.Now()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Analysis failed (%s): %s", resp.Status, bytes.TrimSpace(raw))
	}

	var out struct {
		CallID            string  `json:"call_id"`
		Transcript        string  `json:"transcript"`
		ConfidenceScore   float64 `json:"confidence_score"`
		EmergencyDetected bool    `json:"emergency_detected"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Fatalf("Failed to decode response: %v", err)
	}

	log.Printf("Analyzed in %v: callId=%s confidence=%.4f emergency=%t",
		time.Since(start).Round(time.Millisecond), out.CallID, out.ConfidenceScore, out.EmergencyDetected)
	log.Printf("Transcript: %s", out.Transcript)
}
