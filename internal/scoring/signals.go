package scoring

import (
	"math"
	"strconv"
	"unicode/utf8"
)

// KeywordSignal scores the number of distinct fusion keywords present in the
// transcript, saturating at Policy.KeywordSaturation hits.
func (e *Engine) KeywordSignal(transcript string) float64 {
	seen := make(map[string]struct{})
	for _, tok := range tokens(transcript) {
		if e.vocab.Fusion.Contains(tok) {
			seen[tok] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return 0
	}
	return e.round(math.Min(float64(len(seen))/e.policy.KeywordSaturation, 1.0))
}

// DensitySignal scores words per second against the expected ceiling.
// A zero duration yields 0.
func (e *Engine) DensitySignal(transcript string, durationSeconds float64) float64 {
	if !positive(durationSeconds) {
		return 0
	}
	wps := float64(wordCount(transcript)) / durationSeconds
	return e.round(clamp(wps/e.policy.DensityCeilingWPS, 0, 1))
}

// RepetitionSignal returns -Penalty when any sufficiently long token repeats
// more than RepetitionMaxCount times, which usually means the transcription
// engine looped on noise. The penalty does not scale with the repeat count.
func (e *Engine) RepetitionSignal(transcript string) float64 {
	counts := make(map[string]int)
	for _, tok := range tokens(transcript) {
		if utf8.RuneCountInString(tok) <= e.policy.RepetitionMinTokenRune {
			continue
		}
		counts[tok]++
		if counts[tok] > e.policy.RepetitionMaxCount {
			return -e.policy.Penalty
		}
	}
	return 0
}

// SilenceSignal returns -Penalty for audio with no measured duration, or for
// long audio in which almost no speech was recognized.
func (e *Engine) SilenceSignal(transcript string, durationSeconds float64) float64 {
	if !positive(durationSeconds) {
		return -e.policy.Penalty
	}
	if durationSeconds > e.policy.SilenceMinDurationSec && wordCount(transcript) < e.policy.SilenceMinWords {
		return -e.policy.Penalty
	}
	return 0
}

// positive treats zero, negative and NaN durations alike.
func positive(v float64) bool {
	return v > 0
}

// clamp bounds v to [lo, hi]; NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (e *Engine) round(v float64) float64 {
	return roundTo(v, e.policy.Precision)
}

// roundTo rounds the exact binary value of v to digits decimals, breaking
// exact ties to even. v is never scaled before rounding.
func roundTo(v float64, digits int) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', digits, 64), 64)
	return r
}
