// Package scoring turns a call transcript and a few audio measurements into a
// bounded confidence score and an emergency classification.
//
// Two independent classification paths are exposed:
//
//   - ScoreCall fuses a base signal derived from the transcription engine's
//     compression ratio with keyword, density, repetition and silence signals.
//   - QuickClassify looks only for emergency vocabulary in the raw transcript
//     and reports a tone label with an anomaly score.
//
// Every operation is a pure function of its inputs. An Engine is read-only
// after construction and safe for concurrent use.
package scoring

import "fmt"

// Fusion weights.
const (
	DefaultBaseWeight    = 0.55
	DefaultDensityWeight = 0.20
	DefaultKeywordWeight = 0.20
)

// Penalty and threshold constants.
const (
	DefaultPenalty            = 0.05
	DefaultEmergencyThreshold = 0.7

	DefaultSilenceMinDurationSec = 10.0
	DefaultSilenceMinWords       = 8

	DefaultRepetitionMaxCount     = 6
	DefaultRepetitionMinTokenRune = 2 // tokens must be strictly longer than this

	DefaultKeywordSaturation = 5.0
	DefaultDensityCeilingWPS = 3.0

	DefaultPrecision = 4
)

// Keyword-only classifier outputs.
const (
	DefaultUrgentAnomalyScore  = 0.2
	DefaultNeutralAnomalyScore = 0.6
)

// Policy holds the tunable constants of both classification paths.
type Policy struct {
	BaseWeight    float64 `yaml:"base_weight"`
	DensityWeight float64 `yaml:"density_weight"`
	KeywordWeight float64 `yaml:"keyword_weight"`

	// Penalty is the magnitude subtracted by the repetition and silence signals.
	Penalty            float64 `yaml:"penalty"`
	EmergencyThreshold float64 `yaml:"emergency_threshold"`

	SilenceMinDurationSec float64 `yaml:"silence_min_duration_seconds"`
	SilenceMinWords       int     `yaml:"silence_min_words"`

	RepetitionMaxCount     int `yaml:"repetition_max_count"`
	RepetitionMinTokenRune int `yaml:"repetition_min_token_length"`

	KeywordSaturation float64 `yaml:"keyword_saturation"`
	DensityCeilingWPS float64 `yaml:"density_ceiling_wps"`

	Precision int `yaml:"precision"`

	UrgentAnomalyScore  float64 `yaml:"urgent_anomaly_score"`
	NeutralAnomalyScore float64 `yaml:"neutral_anomaly_score"`
}

// DefaultPolicy returns the production policy.
func DefaultPolicy() Policy {
	return Policy{
		BaseWeight:             DefaultBaseWeight,
		DensityWeight:          DefaultDensityWeight,
		KeywordWeight:          DefaultKeywordWeight,
		Penalty:                DefaultPenalty,
		EmergencyThreshold:     DefaultEmergencyThreshold,
		SilenceMinDurationSec:  DefaultSilenceMinDurationSec,
		SilenceMinWords:        DefaultSilenceMinWords,
		RepetitionMaxCount:     DefaultRepetitionMaxCount,
		RepetitionMinTokenRune: DefaultRepetitionMinTokenRune,
		KeywordSaturation:      DefaultKeywordSaturation,
		DensityCeilingWPS:      DefaultDensityCeilingWPS,
		Precision:              DefaultPrecision,
		UrgentAnomalyScore:     DefaultUrgentAnomalyScore,
		NeutralAnomalyScore:    DefaultNeutralAnomalyScore,
	}
}

// Validate reports policies that would divide by zero or produce signals
// outside their documented ranges.
func (p Policy) Validate() error {
	switch {
	case p.KeywordSaturation <= 0:
		return fmt.Errorf("scoring: keyword saturation must be positive, got %v", p.KeywordSaturation)
	case p.DensityCeilingWPS <= 0:
		return fmt.Errorf("scoring: density ceiling must be positive, got %v", p.DensityCeilingWPS)
	case p.Penalty < 0:
		return fmt.Errorf("scoring: penalty magnitude must not be negative, got %v", p.Penalty)
	case p.BaseWeight < 0 || p.DensityWeight < 0 || p.KeywordWeight < 0:
		return fmt.Errorf("scoring: weights must not be negative")
	case p.Precision < 0 || p.Precision > 15:
		return fmt.Errorf("scoring: precision must be within [0,15], got %d", p.Precision)
	case p.RepetitionMaxCount < 1:
		return fmt.Errorf("scoring: repetition max count must be at least 1, got %d", p.RepetitionMaxCount)
	}
	return nil
}
