package domain

// Category is the message category assigned by weighted heuristic scoring.
type Category string

const (
	CategoryFormal        Category = "formal"        // business correspondence
	CategoryCasual        Category = "casual"        // informal personal messages
	CategoryTransactional Category = "transactional" // orders, invoices, confirmations
	CategoryMarketing     Category = "marketing"     // promotions and newsletters
	CategoryAutomated     Category = "automated"     // machine-generated notifications
)

// CategoryPriority orders categories highest to lowest. Ties not covered by a
// dedicated tie law resolve to the first tied entry in this order, and the
// last entry doubles as the default for messages that match no rule at all.
var CategoryPriority = []Category{
	CategoryFormal,
	CategoryTransactional,
	CategoryMarketing,
	CategoryAutomated,
	CategoryCasual,
}

// DefaultCategory is assigned when no scoring rule fires.
const DefaultCategory = CategoryCasual

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range CategoryPriority {
		if c == known {
			return true
		}
	}
	return false
}

// SentimentLabel is the discrete tone assigned to a message or profile.
type SentimentLabel string

const (
	SentimentVeryPositive SentimentLabel = "very_positive"
	SentimentPositive     SentimentLabel = "positive"
	SentimentNeutral      SentimentLabel = "neutral"
	SentimentNegative     SentimentLabel = "negative"
	SentimentVeryNegative SentimentLabel = "very_negative"
)

// DefaultSentimentPriority orders labels most to least positive. Consolidation
// breaks frequency ties toward the earlier label.
var DefaultSentimentPriority = []SentimentLabel{
	SentimentVeryPositive,
	SentimentPositive,
	SentimentNeutral,
	SentimentNegative,
	SentimentVeryNegative,
}

// SentimentFromPolarity maps a polarity score in [-1,1] to a label.
func SentimentFromPolarity(score float64) SentimentLabel {
	switch {
	case score > 0.5:
		return SentimentVeryPositive
	case score > 0.1:
		return SentimentPositive
	case score >= -0.1:
		return SentimentNeutral
	case score >= -0.5:
		return SentimentNegative
	default:
		return SentimentVeryNegative
	}
}

// Valid reports whether l is one of the known labels.
func (l SentimentLabel) Valid() bool {
	for _, known := range DefaultSentimentPriority {
		if l == known {
			return true
		}
	}
	return false
}
