// Package models defines the data structures for call records and events.
package models

import "voxguardian/internal/scoring"

// Event types published to Kafka.
const (
	EventTypeCallScored    = "call.scored"
	EventTypeCallEmergency = "call.emergency"
)

// CallScored is published for every analyzed call.
type CallScored struct {
	EventType         string          `json:"eventType"`
	CallID            string          `json:"callId"`
	Timestamp         int64           `json:"timestamp"`
	Transcript        string          `json:"transcript"`
	ConfidenceScore   float64         `json:"confidenceScore"`
	EmergencyDetected bool            `json:"emergencyDetected"`
	DurationSeconds   float64         `json:"durationSeconds"`
	CompressionRatio  float64         `json:"compressionRatio"`
	Signals           scoring.Signals `json:"signals"`
	AudioFileName     string          `json:"audioFileName"`
	STTProvider       string          `json:"sttProvider"`
	Language          string          `json:"language,omitempty"`
}

// CallEmergency is published in addition to CallScored when the fused score
// crosses the emergency threshold.
type CallEmergency struct {
	EventType       string  `json:"eventType"`
	CallID          string  `json:"callId"`
	Timestamp       int64   `json:"timestamp"`
	Transcript      string  `json:"transcript"`
	ConfidenceScore float64 `json:"confidenceScore"`
	AudioFileName   string  `json:"audioFileName"`
}

// AnalyzeResponse is returned by the upload endpoint.
type AnalyzeResponse struct {
	CallID            string  `json:"call_id"`
	Transcript        string  `json:"transcript"`
	ConfidenceScore   float64 `json:"confidence_score"`
	EmergencyDetected bool    `json:"emergency_detected"`
}

// ScoreRequest is the transcription tuple accepted by the scoring endpoints.
type ScoreRequest struct {
	Transcript       string   `json:"transcript"`
	CompressionRatio *float64 `json:"compression_ratio"`
	DurationSeconds  *float64 `json:"duration_seconds"`
}

// ClassifyRequest is accepted by the keyword-only endpoint.
type ClassifyRequest struct {
	Transcript string `json:"transcript"`
}

// RecentCall is the dashboard view of a stored call.
type RecentCall struct {
	ID              int64   `json:"id"`
	CallID          string  `json:"call_id"`
	Transcript      string  `json:"transcript"`
	ConfidenceScore float64 `json:"confidence_score"`
	CreatedDate     string  `json:"created_date"`
	SpeakerID       string  `json:"speaker_id"`
	DominantEmotion string  `json:"dominant_emotion"`
	IsSuspicious    bool    `json:"is_suspicious"`
	AudioFileURL    *string `json:"audio_file_url"`
}

// ErrorResponse is the JSON body of every HTTP error.
type ErrorResponse struct {
	Error string `json:"error"`
}
