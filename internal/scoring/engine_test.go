package scoring

import (
	"math"
	"strings"
	"sync"
	"testing"
)

func TestScoreCall_EmptyTranscriptZeroDuration(t *testing.T) {
	for _, cr := range []float64{0, 0.1, 0.3, 0.9, 1, 1.5, -0.5} {
		got := ScoreCall("", cr, 0)

		if got.Signals.Density != 0 || got.Signals.Keywords != 0 {
			t.Errorf("cr=%v: expected zero density and keywords, got %+v", cr, got.Signals)
		}
		if got.Signals.RepetitionPenalty != 0 {
			t.Errorf("cr=%v: expected no repetition penalty, got %v", cr, got.Signals.RepetitionPenalty)
		}
		if got.Signals.SilencePenalty != -DefaultPenalty {
			t.Errorf("cr=%v: expected silence penalty, got %v", cr, got.Signals.SilencePenalty)
		}

		want := roundTo(clamp((1.0-cr)*DefaultBaseWeight-DefaultPenalty, 0, 1), DefaultPrecision)
		if got.ConfidenceScore != want {
			t.Errorf("cr=%v: confidence = %v, want %v", cr, got.ConfidenceScore, want)
		}
	}
}

func TestScoreCall_KnownValues(t *testing.T) {
	if got := ScoreCall("", 0, 0).ConfidenceScore; got != 0.5 {
		t.Errorf("expected 0.5 for empty transcript with perfect base, got %v", got)
	}

	transcript := "help there is a fire and someone is unconscious we need an ambulance now"
	got := ScoreCall(transcript, 0.1, 5)

	if got.Signals.Keywords != 0.8 {
		t.Errorf("expected keyword signal 0.8, got %v", got.Signals.Keywords)
	}
	if got.Signals.Density != 0.9333 {
		t.Errorf("expected density signal 0.9333, got %v", got.Signals.Density)
	}
	if math.Abs(got.ConfidenceScore-0.8417) > 1e-9 {
		t.Errorf("expected confidence 0.8417, got %v", got.ConfidenceScore)
	}
	if !got.EmergencyDetected {
		t.Error("expected emergency to be detected")
	}
}

func TestScoreCall_RoundingAtThreshold(t *testing.T) {
	// 1.23 s is a whole number of 16 kHz frames. The raw sum lies just
	// below 0.69995 and must not round up into an emergency.
	got := ScoreCall("one two three", 0.023, 1.23)
	if got.ConfidenceScore != 0.6999 {
		t.Errorf("expected confidence 0.6999, got %v", got.ConfidenceScore)
	}
	if got.EmergencyDetected {
		t.Error("expected no emergency below the threshold")
	}
}

func TestTokens_ShareWordSplit(t *testing.T) {
	transcript := "ＦＩＲＥ İstanbul\x1eHELP"
	toks := tokens(transcript)
	if len(toks) != wordCount(transcript) {
		t.Fatalf("tokens %q disagree with word count %d", toks, wordCount(transcript))
	}
	if toks[2] != "help" {
		t.Errorf("expected lower-cased token, got %q", toks[2])
	}
	if toks[1] != "i\u0307stanbul" {
		t.Errorf("expected full lower-case mapping, got %q", toks[1])
	}
}

func TestScoreCall_PenaltiesCompound(t *testing.T) {
	// 7 repeats of one token over 0s: both penalties apply.
	got := ScoreCall(repeatWord("static", 7), 0, 0)
	want := roundTo(DefaultBaseWeight-2*DefaultPenalty, DefaultPrecision)
	if math.Abs(got.ConfidenceScore-want) > 1e-9 {
		t.Errorf("expected %v, got %v (signals=%+v)", want, got.ConfidenceScore, got.Signals)
	}
	if got.EmergencyDetected {
		t.Error("did not expect emergency")
	}
}

func TestScoreCall_AlwaysBounded(t *testing.T) {
	transcripts := []string{
		"",
		"help",
		repeatWord("static", 100),
		"fire gun shot shooting stabbed accident ambulance help emergency unconscious",
		strings.Repeat("a ", 1000),
	}
	ratios := []float64{-10, -1, 0, 0.5, 1, 2, 10, math.NaN(), math.Inf(1), math.Inf(-1)}
	durations := []float64{0, 0.1, 1, 10, 11, 600, math.Inf(1)}

	for _, tr := range transcripts {
		for _, cr := range ratios {
			for _, d := range durations {
				got := ScoreCall(tr, cr, d).ConfidenceScore
				if math.IsNaN(got) || got < 0 || got > 1 {
					t.Fatalf("confidence out of range: %v (cr=%v dur=%v transcript=%.20q)", got, cr, d, tr)
				}
			}
		}
	}
}

func TestClassify_Threshold(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		score    float64
		expected bool
	}{
		{0.7, true},
		{0.6999, false},
		{1.0, true},
		{0, false},
		{0.7001, true},
	}
	for _, tt := range tests {
		if got := e.Classify(tt.score); got != tt.expected {
			t.Errorf("Classify(%v) = %v, want %v", tt.score, got, tt.expected)
		}
	}
}

func TestQuickClassify(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		emergency  bool
		tone       string
		anomaly    float64
	}{
		{"urgent", "There's a FIRE in the kitchen", true, ToneUrgent, 0.2},
		{"neutral", "hello I would like to check my bill", false, ToneNeutral, 0.6},
		{"empty", "", false, ToneNeutral, 0.6},
		{"substring match", "that was very helpful thanks", true, ToneUrgent, 0.2},
		{"keyword only in fusion set", "he has a gun", false, ToneNeutral, 0.6},
		{"keyword only in quick set", "she is bleeding badly", true, ToneUrgent, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QuickClassify(tt.transcript)
			if got.EmergencyDetected != tt.emergency {
				t.Errorf("emergency = %v, want %v", got.EmergencyDetected, tt.emergency)
			}
			if got.EmotionTone != tt.tone {
				t.Errorf("tone = %q, want %q", got.EmotionTone, tt.tone)
			}
			if got.AnomalyScore != tt.anomaly {
				t.Errorf("anomaly = %v, want %v", got.AnomalyScore, tt.anomaly)
			}
		})
	}
}

func TestQuickClassify_IndependentOfFusion(t *testing.T) {
	// A transcript with strong fusion signals but no quick keyword.
	transcript := "gun shot stabbed killed injured ambulance"
	fused := ScoreCall(transcript, 0, 2)
	if !fused.EmergencyDetected {
		t.Fatalf("expected fusion path to flag emergency, got %+v", fused)
	}
	quick := QuickClassify(transcript)
	if quick.EmergencyDetected || quick.AnomalyScore != DefaultNeutralAnomalyScore {
		t.Errorf("expected neutral quick classification, got %+v", quick)
	}
}

func TestEngine_Idempotent(t *testing.T) {
	e := NewEngine()
	transcript := "help help my father is unconscious please send an ambulance"

	first := e.ScoreCall(transcript, 0.23, 7.5)
	second := e.ScoreCall(transcript, 0.23, 7.5)
	if math.Float64bits(first.ConfidenceScore) != math.Float64bits(second.ConfidenceScore) || first != second {
		t.Errorf("ScoreCall not idempotent: %+v vs %+v", first, second)
	}
	if e.QuickClassify(transcript) != e.QuickClassify(transcript) {
		t.Error("QuickClassify not idempotent")
	}
}

func TestEngine_ConcurrentUse(t *testing.T) {
	e := NewEngine()
	transcript := "there was an accident on the highway two people are injured"
	want := e.ScoreCall(transcript, 0.2, 6)

	var wg sync.WaitGroup
	errs := make(chan Score, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if got := e.ScoreCall(transcript, 0.2, 6); got != want {
					errs <- got
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for got := range errs {
		t.Errorf("concurrent result differs: %+v vs %+v", got, want)
	}
}

func TestEngine_CustomPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.EmergencyThreshold = 0.4
	p.UrgentAnomalyScore = 0.1
	e := NewEngine(WithPolicy(p), WithVocabulary(Vocabulary{
		Fusion: NewKeywordSet("flood"),
		Quick:  NewKeywordSet("flood"),
	}))

	got := e.ScoreCall("", 0, 0) // 0.5 with default weights
	if !got.EmergencyDetected {
		t.Errorf("expected emergency with lowered threshold, got %+v", got)
	}
	if e.KeywordSignal("the flood is rising") != 0.2 {
		t.Errorf("expected custom fusion vocabulary to be used")
	}
	if q := e.QuickClassify("FLOOD"); !q.EmergencyDetected || q.AnomalyScore != 0.1 {
		t.Errorf("expected custom quick vocabulary and anomaly score, got %+v", q)
	}
	if q := e.QuickClassify("fire"); q.EmergencyDetected {
		t.Error("default quick keywords should be replaced")
	}
}

func TestKeywordSet(t *testing.T) {
	s := NewKeywordSet("Fire", " fire ", "", "HELP")
	if s.Len() != 2 {
		t.Fatalf("expected 2 keywords, got %d (%v)", s.Len(), s.Words())
	}
	if !s.Contains("fire") || !s.Contains("help") {
		t.Errorf("expected folded keywords, got %v", s.Words())
	}
	words := s.Words()
	words[0] = "mutated"
	if s.Contains("mutated") {
		t.Error("Words must return a copy")
	}
}
