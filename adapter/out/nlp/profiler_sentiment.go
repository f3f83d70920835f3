package nlp

import (
	"context"
	"regexp"
	"strings"
)

// =============================================================================
// Sentiment Lexicon Scorer
// =============================================================================

// valence holds word weights in the AFINN convention, integers in [-5, 5].
var valence = map[string]float64{
	// Positive
	"agree": 1, "agreed": 1, "amazing": 4, "appreciate": 2, "appreciated": 2,
	"approved": 2, "awesome": 4, "beautiful": 3, "best": 3, "brilliant": 4,
	"celebrate": 3, "clever": 2, "comfortable": 2, "confident": 2,
	"congratulations": 2, "delighted": 3, "eager": 2, "easy": 1,
	"effective": 2, "enjoy": 2, "enjoyed": 2, "excellent": 3, "excited": 3,
	"exciting": 3, "fantastic": 4, "fun": 4, "glad": 3, "good": 3,
	"great": 3, "happy": 3, "helpful": 2, "impressed": 3, "impressive": 3,
	"improved": 2, "improvement": 2, "interested": 2, "interesting": 2,
	"love": 3, "loved": 3, "nice": 3, "outstanding": 5, "perfect": 3,
	"pleasant": 3, "pleased": 3, "pleasure": 3, "progress": 2,
	"promising": 2, "resolved": 2, "smooth": 2, "strong": 2, "succeed": 3,
	"success": 2, "successful": 3, "super": 3, "superb": 5, "terrific": 4,
	"thank": 2, "thanks": 2, "thrilled": 5, "valuable": 2, "welcome": 2,
	"win": 4, "wonderful": 4, "worth": 2,

	// Negative
	"angry": -3, "annoyed": -2, "annoying": -2, "awful": -3, "bad": -3,
	"blocked": -1, "broken": -1, "cancel": -1, "cancelled": -1,
	"complain": -2, "complaint": -2, "concerned": -2, "confused": -2,
	"critical": -2, "damage": -3, "delay": -1, "delayed": -1,
	"difficult": -1, "disappointed": -2, "disappointing": -2, "doubt": -1,
	"error": -2, "errors": -2, "fail": -2, "failed": -2, "failure": -2,
	"fear": -2, "frustrated": -2, "frustrating": -2, "hate": -3,
	"horrible": -3, "hurt": -2, "ignored": -2, "issue": -2, "issues": -2,
	"lose": -3, "lost": -3, "miss": -2, "missing": -2, "mistake": -2,
	"pain": -2, "poor": -2, "problem": -2, "problems": -2, "refused": -2,
	"regret": -2, "rejected": -2, "risk": -2, "sad": -2, "slow": -2,
	"sorry": -1, "terrible": -3, "trouble": -2, "unfortunately": -2,
	"unhappy": -2, "upset": -2, "warning": -3, "waste": -1, "weak": -2,
	"worried": -3, "worry": -3, "worst": -3, "wrong": -2,
}

// negations flip the sign of a scored word within three tokens behind it.
var negations = wordSet(`
	no not never none nobody nothing neither nor cannot cant dont doesnt
	didnt wont wouldnt shouldnt couldnt isnt wasnt arent werent hardly
	barely without
`)

var sentimentTokenRe = regexp.MustCompile(`[a-z']+`)

// Scorer rates text polarity against the valence table.
type Scorer struct{}

func NewScorer() *Scorer { return &Scorer{} }

// Polarity averages lexicon hits into [-1, 1]. Text with no scored words
// comes back neutral.
func (s *Scorer) Polarity(ctx context.Context, text string) (float64, error) {
	toks := sentimentTokenRe.FindAllString(strings.ToLower(text), -1)
	var sum float64
	matched := 0
	for i, raw := range toks {
		w, ok := valence[strings.ReplaceAll(raw, "'", "")]
		if !ok {
			continue
		}
		for j := max(0, i-3); j < i; j++ {
			if negations[strings.ReplaceAll(toks[j], "'", "")] {
				w = -w
				break
			}
		}
		sum += w
		matched++
	}
	if matched == 0 {
		return 0, nil
	}
	return sum / (5 * float64(matched)), nil
}
