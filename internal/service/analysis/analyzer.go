// Package analysis runs an accepted upload through the full pipeline:
// transcode, measure, transcribe, score, persist and publish.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"voxguardian/internal/models"
	"voxguardian/internal/observability/logging"
	"voxguardian/internal/observability/metrics"
	"voxguardian/internal/schema"
	"voxguardian/internal/scoring"
	"voxguardian/internal/service/audio"
	"voxguardian/internal/service/stt"
	"voxguardian/internal/store"
)

// Pipeline stage errors. Each wraps the underlying cause.
var (
	ErrTranscode  = errors.New("audio processing failed")
	ErrDuration   = errors.New("could not read audio duration")
	ErrTranscribe = errors.New("transcription failed")
	ErrInvalid    = errors.New("invalid transcription")
	ErrPersist    = errors.New("could not save call")
)

// Publisher is the subset of the event publisher the analyzer uses.
type Publisher interface {
	PublishScored(ctx context.Context, event models.CallScored) error
	PublishEmergency(ctx context.Context, event models.CallEmergency) error
}

// DurationFunc measures a normalized WAV file in seconds.
type DurationFunc func(path string) (float64, error)

// Deps are the analyzer's collaborators. Engine, Validator, Metrics and
// Duration default when nil.
type Deps struct {
	Transcoder  audio.Transcoder
	Transcriber stt.Transcriber
	Store       store.CallStore
	Publisher   Publisher
	Engine      *scoring.Engine
	Validator   *schema.Validator
	Metrics     *metrics.Metrics
	Duration    DurationFunc
}

// Config tunes the pipeline.
type Config struct {
	TempDir           string        // where normalized WAVs are written; "" uses os.TempDir
	TranscribeTimeout time.Duration // 0 means no extra bound
}

// Result is the outcome of analyzing one call.
type Result struct {
	CallID           string
	AudioFileName    string
	Transcript       string
	DurationSeconds  float64
	CompressionRatio float64
	Score            scoring.Score
	CreatedAt        time.Time
}

// Analyzer runs the pipeline. It is safe for concurrent use.
type Analyzer struct {
	deps Deps
	cfg  Config
}

// New returns an Analyzer.
func New(deps Deps, cfg Config) *Analyzer {
	if deps.Engine == nil {
		deps.Engine = scoring.NewEngine()
	}
	if deps.Validator == nil {
		deps.Validator = schema.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.DefaultMetrics
	}
	if deps.Duration == nil {
		deps.Duration = audio.WAVDuration
	}
	return &Analyzer{deps: deps, cfg: cfg}
}

// Engine returns the scoring engine in use.
func (a *Analyzer) Engine() *scoring.Engine { return a.deps.Engine }

// Analyze processes sf and returns the scored result. The temporary WAV is
// removed on every path. Publish failures are logged and do not fail the call.
func (a *Analyzer) Analyze(ctx context.Context, sf audio.StoredFile) (Result, error) {
	logger := logging.WithUpload(sf.CallID, sf.Name)
	start := time.Now()

	wav, err := os.CreateTemp(a.cfg.TempDir, "voxguardian-*.wav")
	if err != nil {
		a.deps.Metrics.RecordAnalysis("error", 0)
		return Result{}, fmt.Errorf("analysis: create temp file: %w", err)
	}
	wavPath := wav.Name()
	_ = wav.Close()
	defer func() {
		if err := os.Remove(wavPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn().Err(err).Str("path", wavPath).Msg("Failed to remove temp WAV")
		}
	}()

	if err := a.deps.Transcoder.Transcode(ctx, sf.Path, wavPath); err != nil {
		a.deps.Metrics.RecordTranscodeError()
		a.deps.Metrics.RecordAnalysis("transcode_error", 0)
		logger.Error().Err(err).Msg("Transcode failed")
		return Result{}, fmt.Errorf("%w: %w", ErrTranscode, err)
	}

	duration, err := a.deps.Duration(wavPath)
	if err != nil {
		a.deps.Metrics.RecordAnalysis("duration_error", 0)
		logger.Error().Err(err).Msg("Duration read failed")
		return Result{}, fmt.Errorf("%w: %w", ErrDuration, err)
	}

	tr, err := a.transcribe(ctx, wavPath)
	if err != nil {
		a.deps.Metrics.RecordAnalysis("transcribe_error", 0)
		logger.Error().Err(err).Str("provider", a.deps.Transcriber.Name()).Msg("Transcription failed")
		return Result{}, fmt.Errorf("%w: %w", ErrTranscribe, err)
	}

	if err := a.deps.Validator.ValidateTranscription(tr.CompressionRatio, duration); err != nil {
		a.deps.Metrics.RecordAnalysis("invalid", 0)
		return Result{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	score := a.deps.Engine.ScoreCall(tr.Text, tr.CompressionRatio, duration)
	a.deps.Metrics.RecordScore(score.ConfidenceScore, score.EmergencyDetected,
		score.Signals.RepetitionPenalty < 0, score.Signals.SilencePenalty < 0)

	call := &store.Call{
		CallID:            sf.CallID,
		Transcript:        tr.Text,
		ConfidenceScore:   score.ConfidenceScore,
		EmergencyDetected: score.EmergencyDetected,
		AudioFileName:     sf.Name,
		DurationSeconds:   duration,
		CompressionRatio:  tr.CompressionRatio,
	}
	err = a.deps.Store.Insert(ctx, call)
	a.deps.Metrics.RecordStoreOperation("insert", err)
	if err != nil {
		a.deps.Metrics.RecordAnalysis("store_error", 0)
		logger.Error().Err(err).Msg("Failed to save call")
		return Result{}, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	res := Result{
		CallID:           sf.CallID,
		AudioFileName:    sf.Name,
		Transcript:       tr.Text,
		DurationSeconds:  duration,
		CompressionRatio: tr.CompressionRatio,
		Score:            score,
		CreatedAt:        call.CreatedAt,
	}
	a.publish(ctx, res, tr.Language)

	a.deps.Metrics.RecordAnalysis("success", duration)
	logger.Info().
		Float64("confidenceScore", score.ConfidenceScore).
		Bool("emergencyDetected", score.EmergencyDetected).
		Float64("durationSeconds", duration).
		Dur("elapsed", time.Since(start)).
		Msg("Call analyzed")

	return res, nil
}

func (a *Analyzer) transcribe(ctx context.Context, path string) (stt.Transcription, error) {
	if a.cfg.TranscribeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.TranscribeTimeout)
		defer cancel()
	}

	start := time.Now()
	tr, err := a.deps.Transcriber.Transcribe(ctx, path)
	a.deps.Metrics.RecordTranscription(a.deps.Transcriber.Name(), err, time.Since(start).Seconds())
	return tr, err
}

func (a *Analyzer) publish(ctx context.Context, res Result, language string) {
	if a.deps.Publisher == nil {
		return
	}
	logger := logging.WithCall(res.CallID)
	ts := res.CreatedAt.UnixMilli()
	if res.CreatedAt.IsZero() {
		ts = time.Now().UnixMilli()
	}

	scored := models.CallScored{
		EventType:         models.EventTypeCallScored,
		CallID:            res.CallID,
		Timestamp:         ts,
		Transcript:        res.Transcript,
		ConfidenceScore:   res.Score.ConfidenceScore,
		EmergencyDetected: res.Score.EmergencyDetected,
		DurationSeconds:   res.DurationSeconds,
		CompressionRatio:  res.CompressionRatio,
		Signals:           res.Score.Signals,
		AudioFileName:     res.AudioFileName,
		STTProvider:       a.deps.Transcriber.Name(),
		Language:          language,
	}
	if err := a.deps.Validator.Validate(scored); err != nil {
		logger.Error().Err(err).Msg("Invalid call.scored event, not publishing")
	} else if err := a.deps.Publisher.PublishScored(ctx, scored); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish call.scored")
	}

	if !res.Score.EmergencyDetected {
		return
	}
	emergency := models.CallEmergency{
		EventType:       models.EventTypeCallEmergency,
		CallID:          res.CallID,
		Timestamp:       ts,
		Transcript:      res.Transcript,
		ConfidenceScore: res.Score.ConfidenceScore,
		AudioFileName:   res.AudioFileName,
	}
	if err := a.deps.Validator.Validate(emergency); err != nil {
		logger.Error().Err(err).Msg("Invalid call.emergency event, not publishing")
	} else if err := a.deps.Publisher.PublishEmergency(ctx, emergency); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish call.emergency")
	}
}
