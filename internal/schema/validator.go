// Package schema validates data crossing the service boundary: transcription
// results before they reach the scoring engine, and events before they are
// published.
package schema

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"voxguardian/internal/models"
)

// Validation errors.
var (
	ErrInvalidDuration         = errors.New("duration_seconds must be a finite, non-negative number")
	ErrInvalidCompressionRatio = errors.New("compression_ratio must be a finite number")
	ErrMissingField            = errors.New("missing required field")
	ErrUnknownEvent            = errors.New("unknown event type")
)

// Validator checks boundary data.
type Validator struct{}

// New returns a Validator.
func New() *Validator {
	return &Validator{}
}

// ValidateTranscription rejects inputs the scoring engine does not define
// behavior for. Compression ratios outside [0,1] are accepted as supplied.
func (v *Validator) ValidateTranscription(compressionRatio, durationSeconds float64) error {
	if math.IsNaN(durationSeconds) || math.IsInf(durationSeconds, 0) || durationSeconds < 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidDuration, durationSeconds)
	}
	if math.IsNaN(compressionRatio) || math.IsInf(compressionRatio, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidCompressionRatio, compressionRatio)
	}
	return nil
}

// ValidateScoreRequest checks a scoring request decoded from JSON or gRPC.
func (v *Validator) ValidateScoreRequest(req models.ScoreRequest) error {
	if req.CompressionRatio == nil {
		return fmt.Errorf("%w: compression_ratio", ErrMissingField)
	}
	if req.DurationSeconds == nil {
		return fmt.Errorf("%w: duration_seconds", ErrMissingField)
	}
	return v.ValidateTranscription(*req.CompressionRatio, *req.DurationSeconds)
}

// Validate checks an outgoing event.
func (v *Validator) Validate(event any) error {
	var eventType, callID string
	switch ev := event.(type) {
	case models.CallScored:
		eventType, callID = ev.EventType, ev.CallID
		if err := v.ValidateTranscription(ev.CompressionRatio, ev.DurationSeconds); err != nil {
			return err
		}
	case *models.CallScored:
		return v.Validate(*ev)
	case models.CallEmergency:
		eventType, callID = ev.EventType, ev.CallID
	case *models.CallEmergency:
		return v.Validate(*ev)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownEvent, event)
	}

	if eventType == "" {
		return fmt.Errorf("%w: eventType", ErrMissingField)
	}
	if callID == "" {
		return fmt.Errorf("%w: callId", ErrMissingField)
	}

	log.Debug().Str("eventType", eventType).Str("callId", callID).Msg("event validated")
	return nil
}
