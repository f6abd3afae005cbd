package scoring

import "strings"

// Strategy names a classification path. Callers select one explicitly; the
// engine never falls back from one to the other.
type Strategy string

const (
	// StrategyFusion is the weighted multi-signal path behind ScoreCall.
	StrategyFusion Strategy = "fusion"
	// StrategyKeywordOnly is the vocabulary-only path behind QuickClassify.
	StrategyKeywordOnly Strategy = "keyword-only"
)

// Tone labels reported by QuickClassify.
const (
	ToneUrgent  = "urgent"
	ToneNeutral = "neutral"
)

// Signals is the per-signal breakdown of a fused score.
type Signals struct {
	Base              float64 `json:"base"`
	Density           float64 `json:"density"`
	Keywords          float64 `json:"keywords"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	SilencePenalty    float64 `json:"silence_penalty"`
}

// Score is the result of the fusion path.
type Score struct {
	ConfidenceScore   float64 `json:"confidence_score"`
	EmergencyDetected bool    `json:"emergency_detected"`
	Signals           Signals `json:"signals"`
}

// QuickClassification is the result of the keyword-only path. AnomalyScore is
// lower when the call looks urgent, the opposite polarity of ConfidenceScore.
type QuickClassification struct {
	EmergencyDetected bool    `json:"emergency_detected"`
	EmotionTone       string  `json:"emotion_tone"`
	AnomalyScore      float64 `json:"anomaly_score"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy replaces the default policy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithVocabulary replaces both keyword sets.
func WithVocabulary(v Vocabulary) Option {
	return func(e *Engine) {
		e.vocab = v
	}
}

// Engine evaluates both classification paths. It holds no mutable state.
type Engine struct {
	policy Policy
	vocab  Vocabulary
}

// NewEngine returns an Engine using DefaultPolicy and DefaultVocabulary
// unless overridden by options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		policy: DefaultPolicy(),
		vocab:  DefaultVocabulary(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy { return e.policy }

// Vocabulary returns the engine's keyword sets.
func (e *Engine) Vocabulary() Vocabulary { return e.vocab }

// Fuse combines the base signal and the four transcript signals into a
// confidence score clamped to [0,1] and rounded to the policy precision.
func (e *Engine) Fuse(transcript string, compressionRatio, durationSeconds float64) (float64, Signals) {
	s := Signals{
		Base:              1.0 - compressionRatio,
		Density:           e.DensitySignal(transcript, durationSeconds),
		Keywords:          e.KeywordSignal(transcript),
		RepetitionPenalty: e.RepetitionSignal(transcript),
		SilencePenalty:    e.SilenceSignal(transcript, durationSeconds),
	}

	// Each product is rounded on its own; no fused multiply-add.
	score := float64(s.Base*e.policy.BaseWeight) +
		float64(s.Density*e.policy.DensityWeight) +
		float64(s.Keywords*e.policy.KeywordWeight) +
		s.RepetitionPenalty +
		s.SilencePenalty

	return e.round(clamp(score, 0, 1)), s
}

// Classify applies the emergency threshold. The bound is inclusive.
func (e *Engine) Classify(confidence float64) bool {
	return confidence >= e.policy.EmergencyThreshold
}

// ScoreCall runs the fusion path: Fuse followed by Classify.
func (e *Engine) ScoreCall(transcript string, compressionRatio, durationSeconds float64) Score {
	confidence, signals := e.Fuse(transcript, compressionRatio, durationSeconds)
	return Score{
		ConfidenceScore:   confidence,
		EmergencyDetected: e.Classify(confidence),
		Signals:           signals,
	}
}

// QuickClassify runs the keyword-only path. A keyword counts as present when
// it occurs anywhere in the folded transcript, including inside longer words.
func (e *Engine) QuickClassify(transcript string) QuickClassification {
	text := fold(transcript)
	for _, kw := range e.vocab.Quick.list {
		if strings.Contains(text, kw) {
			return QuickClassification{
				EmergencyDetected: true,
				EmotionTone:       ToneUrgent,
				AnomalyScore:      e.policy.UrgentAnomalyScore,
			}
		}
	}
	return QuickClassification{
		EmergencyDetected: false,
		EmotionTone:       ToneNeutral,
		AnomalyScore:      e.policy.NeutralAnomalyScore,
	}
}

var defaultEngine = NewEngine()

// ScoreCall runs the fusion path with the default policy and vocabulary.
func ScoreCall(transcript string, compressionRatio, durationSeconds float64) Score {
	return defaultEngine.ScoreCall(transcript, compressionRatio, durationSeconds)
}

// QuickClassify runs the keyword-only path with the default vocabulary.
func QuickClassify(transcript string) QuickClassification {
	return defaultEngine.QuickClassify(transcript)
}
