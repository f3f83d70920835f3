// Package classification implements weighted heuristic message scoring.
//
// Every category owns a table of (pattern, weight) rules evaluated against
// the combined subject+body text; matching rules add their weight to the
// category score. Context bonuses (bulk-mail headers, no-reply senders,
// signature shape, urgency markers, body length) adjust the totals, then the
// highest-scoring category wins under fixed tie laws:
//
//	max score 0                      → casual (default)
//	tied exactly {casual, formal}    → casual
//	tied exactly {transactional, automated} → automated
//	any other tie                    → first tied category in priority order
//
// The priority order is formal > transactional > marketing > automated >
// casual. Classification is a pure function of (message, rules): identical
// input always yields the identical result, on any number of goroutines.
package classification

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"mailprofiler/core/domain"
	"mailprofiler/pkg/apperr"
)

// =============================================================================
// Configuration
// =============================================================================

// PatternWeight is one scoring rule before compilation.
type PatternWeight struct {
	Pattern string
	Weight  int
	Label   string // names the rule in result signals
}

// Config holds the rule tables and context-bonus weights.
type Config struct {
	Patterns map[domain.Category][]PatternWeight

	// Context bonuses
	BulkHeaderBonus     int // marketing, when bulk-mail headers are present
	NoReplyBonus        int // automated, when the sender looks like a robot
	SignatureBlockBonus int // formal, when the signature has many lines
	TitleMarkerBonus    int // formal, when the signature carries a title line
	UrgentSubjectBonus  int // transactional, for urgency markers in the subject
	ShortBodyBonus      int // casual, below ShortBodyWords
	LongBodyBonus       int // formal, above LongBodyWords

	// Bonus thresholds
	SignatureLines int
	ShortBodyWords int
	LongBodyWords  int
}

// noReplyTokens mark machine senders when found in the from address.
var noReplyTokens = []string{"noreply", "no-reply", "donotreply", "system", "notification"}

var (
	urgentSubjectRe = regexp.MustCompile(`(?i)\b(urgent|important|asap|priority)\b`)
	titleMarkerRe   = regexp.MustCompile(`(?i)(title|position):`)
)

// =============================================================================
// Classifier
// =============================================================================

// rule is one compiled scoring rule.
type rule struct {
	re     *regexp.Regexp
	weight int
	label  string
}

// Classifier scores messages into categories. Safe for concurrent use: all
// state is read-only after construction.
type Classifier struct {
	cfg   Config
	rules map[domain.Category][]rule
}

// New compiles the rule tables. A rule that does not compile or carries a
// non-positive weight is a fatal configuration error.
func New(cfg Config) (*Classifier, error) {
	if len(cfg.Patterns) == 0 {
		return nil, apperr.ConfigError("patterns", "no category rules configured")
	}

	compiled := make(map[domain.Category][]rule, len(cfg.Patterns))
	for category, patterns := range cfg.Patterns {
		if !category.Valid() {
			return nil, apperr.ConfigError("patterns", fmt.Sprintf("unknown category %q", category))
		}
		rules := make([]rule, 0, len(patterns))
		for i, pw := range patterns {
			if pw.Weight <= 0 {
				return nil, apperr.ConfigError("patterns",
					fmt.Sprintf("%s: rule %d has non-positive weight %d", category, i, pw.Weight))
			}
			re, err := regexp.Compile("(?i)" + pw.Pattern)
			if err != nil {
				return nil, apperr.ConfigError("patterns",
					fmt.Sprintf("%s: rule %d does not compile: %v", category, i, err))
			}
			label := pw.Label
			if label == "" {
				label = fmt.Sprintf("rule%d", i)
			}
			rules = append(rules, rule{re: re, weight: pw.Weight, label: label})
		}
		compiled[category] = rules
	}

	return &Classifier{cfg: cfg, rules: compiled}, nil
}

// Result is the classification outcome for one message.
type Result struct {
	Category domain.Category         `json:"category"`
	Score    int                     `json:"score"`
	Scores   map[domain.Category]int `json:"scores"`
	Signals  []string                `json:"signals,omitempty"` // fired rules, "category:label"
}

// Classify scores one message and resolves the winning category.
func (c *Classifier) Classify(msg *domain.RawMessage) Result {
	scores := make(map[domain.Category]int, len(domain.CategoryPriority))
	for _, category := range domain.CategoryPriority {
		scores[category] = 0
	}

	var signals []string
	fullText := msg.Subject + "\n" + msg.Body

	// Pattern tables, in priority order for deterministic signal output.
	for _, category := range domain.CategoryPriority {
		for _, r := range c.rules[category] {
			if r.re.MatchString(fullText) {
				scores[category] += r.weight
				signals = append(signals, fmt.Sprintf("%s:%s", category, r.label))
			}
		}
	}

	// Context bonuses.
	if c.hasBulkHeaders(msg) {
		scores[domain.CategoryMarketing] += c.cfg.BulkHeaderBonus
		signals = append(signals, "marketing:bulk-headers")
	}
	if c.hasNoReplySender(msg) {
		scores[domain.CategoryAutomated] += c.cfg.NoReplyBonus
		signals = append(signals, "automated:noreply-sender")
	}
	if lines := msg.SignatureLines(); len(lines) >= c.cfg.SignatureLines && c.cfg.SignatureLines > 0 {
		scores[domain.CategoryFormal] += c.cfg.SignatureBlockBonus
		signals = append(signals, "formal:signature-block")
	}
	if msg.Signature != "" && titleMarkerRe.MatchString(msg.Signature) {
		scores[domain.CategoryFormal] += c.cfg.TitleMarkerBonus
		signals = append(signals, "formal:title-marker")
	}
	if urgentSubjectRe.MatchString(msg.Subject) {
		scores[domain.CategoryTransactional] += c.cfg.UrgentSubjectBonus
		signals = append(signals, "transactional:urgent-subject")
	}
	if msg.Words < c.cfg.ShortBodyWords {
		scores[domain.CategoryCasual] += c.cfg.ShortBodyBonus
		signals = append(signals, "casual:short-body")
	} else if msg.Words > c.cfg.LongBodyWords {
		scores[domain.CategoryFormal] += c.cfg.LongBodyBonus
		signals = append(signals, "formal:long-body")
	}

	category, max := resolve(scores)
	return Result{
		Category: category,
		Score:    max,
		Scores:   scores,
		Signals:  signals,
	}
}

func (c *Classifier) hasBulkHeaders(msg *domain.RawMessage) bool {
	if msg.Header("List-Unsubscribe") != "" {
		return true
	}
	precedence := strings.ToLower(msg.Header("Precedence"))
	return precedence == "bulk" || precedence == "list"
}

func (c *Classifier) hasNoReplySender(msg *domain.RawMessage) bool {
	from := strings.ToLower(msg.From)
	if from == "" {
		from = strings.ToLower(msg.FromAddress)
	}
	for _, token := range noReplyTokens {
		if strings.Contains(from, token) {
			return true
		}
	}
	return false
}

// =============================================================================
// Tie resolution
// =============================================================================

// resolve picks the winning category from the score table under the tie laws.
func resolve(scores map[domain.Category]int) (domain.Category, int) {
	max := 0
	for _, score := range scores {
		if score > max {
			max = score
		}
	}

	// No rule fired at all: lowest-priority default, never an error.
	if max == 0 {
		return domain.DefaultCategory, 0
	}

	// Collect the tied set in priority order so "first tied" is well-defined.
	tied := make([]domain.Category, 0, 2)
	for _, category := range domain.CategoryPriority {
		if scores[category] == max {
			tied = append(tied, category)
		}
	}

	if len(tied) == 1 {
		return tied[0], max
	}
	if isExactly(tied, domain.CategoryCasual, domain.CategoryFormal) {
		return domain.CategoryCasual, max
	}
	if isExactly(tied, domain.CategoryTransactional, domain.CategoryAutomated) {
		return domain.CategoryAutomated, max
	}
	return tied[0], max
}

// isExactly reports whether the tied set is exactly the two given categories.
func isExactly(tied []domain.Category, a, b domain.Category) bool {
	if len(tied) != 2 {
		return false
	}
	pair := []string{string(tied[0]), string(tied[1])}
	want := []string{string(a), string(b)}
	sort.Strings(pair)
	sort.Strings(want)
	return pair[0] == want[0] && pair[1] == want[1]
}
