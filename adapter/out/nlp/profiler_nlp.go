// Package nlp implements the analysis ports with self-contained heuristics:
// lexicon and shape based, no network calls, cheap enough to run on every
// message in a batch.
package nlp

import (
	"strings"

	"mailprofiler/core/port/out"
)

// NewCapabilities bundles the heuristic analyzers. Network-backed members
// (Geo, Registry, Contacts) stay nil; callers wire those separately.
func NewCapabilities() *out.Capabilities {
	return &out.Capabilities{
		Entities:  NewRecognizer(),
		Sentiment: NewScorer(),
		Languages: NewDetector(),
		Keywords:  NewKeywordRanker(),
		Phones:    NewPhoneParser(),
		Gender:    NewGenderTable(),
		Addresses: NewAddressFinder(),
	}
}

// wordSet builds a lookup set from a whitespace-separated word list.
func wordSet(words string) map[string]bool {
	m := make(map[string]bool)
	for _, w := range strings.Fields(words) {
		m[w] = true
	}
	return m
}

// phraseSet builds a lookup set from phrases that may contain spaces.
func phraseSet(phrases ...string) map[string]bool {
	m := make(map[string]bool, len(phrases))
	for _, p := range phrases {
		m[p] = true
	}
	return m
}
