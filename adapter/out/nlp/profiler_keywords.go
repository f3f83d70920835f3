package nlp

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// =============================================================================
// Keyword Ranker
// =============================================================================

// keywordStop filters greeting, closing and forwarding boilerplate on top of
// the English stopword profile merged in at init.
var keywordStop = wordSet(`
	re fwd fw dear hello greetings regards sincerely cheers thanks thank
	best kind warm yours truly wrote sent email mail message please know let
	get got just like also really still well even make made need want going
	come came back dont wont cant isnt wasnt didnt doesnt youre weve theyre
	thats whats heres youll
`)

func init() {
	for w := range stopwordProfiles["en"] {
		keywordStop[w] = true
	}
}

var keywordTokenRe = regexp.MustCompile(`[a-z']+`)

// KeywordRanker extracts frequent content words as topics.
type KeywordRanker struct{}

func NewKeywordRanker() *KeywordRanker { return &KeywordRanker{} }

// Keywords returns up to limit content words, most frequent first; ties keep
// order of first appearance.
func (k *KeywordRanker) Keywords(ctx context.Context, text string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	type tally struct {
		count int
		first int
	}
	counts := make(map[string]*tally)
	for _, raw := range keywordTokenRe.FindAllString(strings.ToLower(text), -1) {
		w := strings.ReplaceAll(raw, "'", "")
		if len(w) < 3 || keywordStop[w] {
			continue
		}
		t, ok := counts[w]
		if !ok {
			t = &tally{first: len(counts)}
			counts[w] = t
		}
		t.count++
	}
	if len(counts) == 0 {
		return nil, nil
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		a, b := counts[words[i]], counts[words[j]]
		if a.count != b.count {
			return a.count > b.count
		}
		return a.first < b.first
	})
	if len(words) > limit {
		words = words[:limit]
	}
	return words, nil
}
