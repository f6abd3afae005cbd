package scoring

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultFusionKeywords is the vocabulary counted by the keyword signal of
// the fused score.
var DefaultFusionKeywords = []string{
	"fire", "gun", "shot", "shooting", "stabbed", "accident", "ambulance",
	"help", "emergency", "unconscious", "injury", "injured", "kill", "killed",
}

// DefaultQuickKeywords is the vocabulary of the keyword-only classifier. It
// is intentionally independent of DefaultFusionKeywords.
var DefaultQuickKeywords = []string{
	"fire", "accident", "help", "bleeding", "gunshot", "unconscious",
}

// KeywordSet is an immutable set of case-folded keywords.
type KeywordSet struct {
	words map[string]struct{}
	list  []string
}

// NewKeywordSet folds and deduplicates words. Blank entries are skipped.
func NewKeywordSet(words ...string) KeywordSet {
	set := KeywordSet{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		f := fold(strings.TrimSpace(w))
		if f == "" {
			continue
		}
		if _, ok := set.words[f]; ok {
			continue
		}
		set.words[f] = struct{}{}
		set.list = append(set.list, f)
	}
	sort.Strings(set.list)
	return set
}

// Contains reports whether the already-folded token is in the set.
func (s KeywordSet) Contains(token string) bool {
	_, ok := s.words[token]
	return ok
}

// Len returns the number of distinct keywords.
func (s KeywordSet) Len() int { return len(s.list) }

// Words returns a sorted copy of the keywords.
func (s KeywordSet) Words() []string {
	return append([]string(nil), s.list...)
}

// Vocabulary pairs the two keyword sets used by the two classifiers.
type Vocabulary struct {
	Fusion KeywordSet
	Quick  KeywordSet
}

// DefaultVocabulary returns the built-in keyword sets.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Fusion: NewKeywordSet(DefaultFusionKeywords...),
		Quick:  NewKeywordSet(DefaultQuickKeywords...),
	}
}

// fold lower-cases s with the full Unicode case mapping. Transcripts are
// split into words before folding, and rune lengths are measured after it.
// A new Caser is created per call because Casers carry state.
func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

// isSpace reports word separators: Unicode white space plus the ASCII
// file, group, record and unit separators.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

func words(transcript string) []string {
	return strings.FieldsFunc(transcript, isSpace)
}

// tokens splits the transcript into words and folds each one.
func tokens(transcript string) []string {
	ws := words(transcript)
	for i, w := range ws {
		ws[i] = fold(w)
	}
	return ws
}

// wordCount counts the same words tokens returns.
func wordCount(transcript string) int {
	return len(words(transcript))
}
