package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"mailprofiler/core/domain"
	"mailprofiler/pkg/apperr"
)

// Rules is the scoring and merging rule set. Defaults are compiled in; a YAML
// file given via RULES_PATH overlays whole sections. Loaded once at startup,
// read-only afterwards.
type Rules struct {
	HighConfidenceThreshold float64                             `yaml:"high_confidence_threshold"`
	SentimentPriority       []domain.SentimentLabel             `yaml:"sentiment_priority"`
	PersonalDomains         []string                            `yaml:"personal_domains"`
	BusinessHours           HourWindow                          `yaml:"business_hours"`
	Categories              map[domain.Category][]PatternWeight `yaml:"categories"`
	Adjustments             Adjustments                         `yaml:"adjustments"`
}

// HourWindow is an inclusive hour-of-day range.
type HourWindow struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// PatternWeight is one scoring rule: a case-insensitive regular expression and
// the weight it adds when it matches. The label names the rule in run logs.
type PatternWeight struct {
	Pattern string `yaml:"pattern"`
	Weight  int    `yaml:"weight"`
	Label   string `yaml:"label,omitempty"`
}

// Adjustments are the context bonuses applied after the pattern pass.
type Adjustments struct {
	BulkHeaders    int `yaml:"bulk_headers"`    // marketing bonus for bulk-mail headers
	NoReplySender  int `yaml:"noreply_sender"`  // automated bonus for no-reply senders
	SignatureBlock int `yaml:"signature_block"` // formal bonus for a long signature
	TitleMarker    int `yaml:"title_marker"`    // formal bonus for a title/position line
	UrgentSubject  int `yaml:"urgent_subject"`  // transactional bonus for urgency markers
	ShortBody      int `yaml:"short_body"`      // casual bonus below ShortBodyWords
	LongBody       int `yaml:"long_body"`       // formal bonus above LongBodyWords
	SignatureLines int `yaml:"signature_lines"` // line count that makes a signature "long"
	ShortBodyWords int `yaml:"short_body_words"`
	LongBodyWords  int `yaml:"long_body_words"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() *Rules {
	return &Rules{
		HighConfidenceThreshold: 0.8,
		SentimentPriority: []domain.SentimentLabel{
			domain.SentimentVeryPositive,
			domain.SentimentPositive,
			domain.SentimentNeutral,
			domain.SentimentNegative,
			domain.SentimentVeryNegative,
		},
		PersonalDomains: []string{
			"gmail.com",
			"yahoo.com",
			"hotmail.com",
			"outlook.com",
			"aol.com",
		},
		BusinessHours: HourWindow{Start: 9, End: 17},
		Categories: map[domain.Category][]PatternWeight{
			domain.CategoryMarketing: {
				{Pattern: `\b(subscribe|unsubscribe|offer|discount|sale|off|save|deal|promotion)\b`, Weight: 2, Label: "promo-words"},
				{Pattern: `\b(newsletter|limited time|exclusive|special)\b`, Weight: 1, Label: "newsletter-words"},
				{Pattern: `\b(buy|shop|order now)\b`, Weight: 1, Label: "shop-words"},
			},
			domain.CategoryAutomated: {
				{Pattern: `\b(this is an automated|do not reply|system notification|automatic)\b`, Weight: 3, Label: "automated-phrases"},
				{Pattern: `\b(generated|notification|alert|system|automated)\b`, Weight: 1, Label: "notification-words"},
				{Pattern: `@no-?reply`, Weight: 3, Label: "noreply-address"},
				{Pattern: `\b(ticket|case|incident) #\d+`, Weight: 2, Label: "ticket-number"},
			},
			domain.CategoryFormal: {
				{Pattern: `\b(dear|to whom it may concern|sincerely|yours faithfully)\b`, Weight: 2, Label: "formal-salutation"},
				{Pattern: `\b(meeting|proposal|contract|report|agenda|board|client)\b`, Weight: 1, Label: "business-words"},
				{Pattern: `\b(please find attached|as discussed|regarding|with reference to)\b`, Weight: 2, Label: "formal-phrases"},
				{Pattern: `\b(appreciate your consideration|look forward to|professional)\b`, Weight: 1, Label: "courtesy-phrases"},
				{Pattern: `[a-z]+ [a-z]+\s*\n.*\n.*(manager|director|ceo)`, Weight: 2, Label: "signoff-title"},
				{Pattern: `\b(confidential|proprietary|business)\b`, Weight: 1, Label: "confidential-words"},
			},
			domain.CategoryCasual: {
				{Pattern: `\b(hey|hi|hello|hey there)\b`, Weight: 1, Label: "greeting"},
				{Pattern: `\b(thanks|cheers|talk soon|catch up)\b`, Weight: 1, Label: "casual-thanks"},
				{Pattern: `(?m)^\s*hi\s+team`, Weight: 1, Label: "hi-team"},
				{Pattern: `\b(quick|heads up|fyi|question)\b`, Weight: 1, Label: "casual-words"},
				{Pattern: `[!]{2,}|\?{2,}`, Weight: 1, Label: "repeated-punctuation"},
				{Pattern: `\b(great|awesome|cool)\b`, Weight: 1, Label: "enthusiasm-words"},
			},
			domain.CategoryTransactional: {
				{Pattern: `\b(action required|please review|deadline|due date|reminder)\b`, Weight: 2, Label: "action-words"},
				{Pattern: `\b(approve|reject|confirm|verify|validate|complete)\b`, Weight: 1, Label: "approval-words"},
				{Pattern: `\b(form|document|submission|application|request)\b`, Weight: 1, Label: "document-words"},
				{Pattern: `\b(status|update|processed|completed|pending)\b`, Weight: 1, Label: "status-words"},
				{Pattern: `by (today|tomorrow|\d{1,2}/\d{1,2})`, Weight: 2, Label: "due-date"},
				{Pattern: `\b(password|account|login|access)\b`, Weight: 1, Label: "account-words"},
			},
		},
		Adjustments: Adjustments{
			BulkHeaders:    3,
			NoReplySender:  3,
			SignatureBlock: 1,
			TitleMarker:    1,
			UrgentSubject:  2,
			ShortBody:      1,
			LongBody:       1,
			SignatureLines: 4,
			ShortBodyWords: 30,
			LongBodyWords:  200,
		},
	}
}

// LoadRules reads the rule set: defaults, overlaid by the YAML file at path
// when given. Unknown keys and invalid values are fatal.
func LoadRules(path string) (*Rules, error) {
	rules := DefaultRules()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperr.ConfigError("rules_path", err.Error())
		}
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		dec.KnownFields(true)
		if err := dec.Decode(rules); err != nil {
			return nil, apperr.ConfigError("rules_path", fmt.Sprintf("parse %s: %v", path, err))
		}
	}

	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// Validate checks the whole rule set. Any violation aborts startup.
func (r *Rules) Validate() error {
	if r.HighConfidenceThreshold < 0 || r.HighConfidenceThreshold > 1 {
		return apperr.ConfigError("high_confidence_threshold",
			fmt.Sprintf("%.2f outside [0,1]", r.HighConfidenceThreshold))
	}

	if len(r.SentimentPriority) != len(domain.DefaultSentimentPriority) {
		return apperr.ConfigError("sentiment_priority",
			fmt.Sprintf("want %d labels, got %d", len(domain.DefaultSentimentPriority), len(r.SentimentPriority)))
	}
	seen := make(map[domain.SentimentLabel]bool, len(r.SentimentPriority))
	for _, label := range r.SentimentPriority {
		if !label.Valid() {
			return apperr.ConfigError("sentiment_priority", fmt.Sprintf("unknown label %q", label))
		}
		if seen[label] {
			return apperr.ConfigError("sentiment_priority", fmt.Sprintf("duplicate label %q", label))
		}
		seen[label] = true
	}

	if len(r.PersonalDomains) == 0 {
		return apperr.ConfigError("personal_domains", "must not be empty")
	}
	for i, d := range r.PersonalDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			return apperr.ConfigError("personal_domains", "blank entry")
		}
		r.PersonalDomains[i] = d
	}

	bh := r.BusinessHours
	if bh.Start < 0 || bh.End > 23 || bh.Start >= bh.End {
		return apperr.ConfigError("business_hours",
			fmt.Sprintf("window %d-%d must satisfy 0 <= start < end <= 23", bh.Start, bh.End))
	}

	if len(r.Categories) == 0 {
		return apperr.ConfigError("categories", "must not be empty")
	}
	for category, patterns := range r.Categories {
		if !category.Valid() {
			return apperr.ConfigError("categories", fmt.Sprintf("unknown category %q", category))
		}
		for _, pw := range patterns {
			if pw.Weight <= 0 {
				return apperr.ConfigError("categories",
					fmt.Sprintf("%s: pattern %q has non-positive weight %d", category, pw.Pattern, pw.Weight))
			}
			if _, err := regexp.Compile("(?i)" + pw.Pattern); err != nil {
				return apperr.ConfigError("categories",
					fmt.Sprintf("%s: pattern %q does not compile: %v", category, pw.Pattern, err))
			}
		}
	}

	adj := r.Adjustments
	if adj.BulkHeaders < 0 || adj.NoReplySender < 0 || adj.SignatureBlock < 0 ||
		adj.TitleMarker < 0 || adj.UrgentSubject < 0 || adj.ShortBody < 0 || adj.LongBody < 0 {
		return apperr.ConfigError("adjustments", "bonus weights must not be negative")
	}
	if adj.SignatureLines < 1 {
		return apperr.ConfigError("adjustments.signature_lines", "must be at least 1")
	}
	if adj.ShortBodyWords < 0 || adj.LongBodyWords <= adj.ShortBodyWords {
		return apperr.ConfigError("adjustments",
			fmt.Sprintf("word limits %d/%d must satisfy 0 <= short < long", adj.ShortBodyWords, adj.LongBodyWords))
	}

	return nil
}

// IsPersonalDomain reports whether the domain is on the personal-provider
// allowlist.
func (r *Rules) IsPersonalDomain(domainName string) bool {
	domainName = strings.ToLower(strings.TrimSpace(domainName))
	for _, d := range r.PersonalDomains {
		if domainName == d || strings.HasSuffix(domainName, "."+d) {
			return true
		}
	}
	return false
}
