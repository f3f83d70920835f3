package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ExtractionResult is the stage-1 output for one message: everything the
// extractor could learn, packaged for consolidation.
type ExtractionResult struct {
	MessageID  string           `json:"message_id"`
	Identity   Identity         `json:"identity"`
	Category   Category         `json:"category"`
	Fields     map[Field]Signal `json:"fields"`
	Sentiment  Signal           `json:"sentiment"` // Value holds the label
	Polarity   float64          `json:"polarity"`
	Languages  []string         `json:"languages,omitempty"`
	Topics     []string         `json:"topics,omitempty"`
	Recipients []string         `json:"recipients,omitempty"` // normalized to-addresses
	Slot       TimeSlot         `json:"slot"`
	ReceivedAt time.Time        `json:"received_at,omitempty"`
	Failed     bool             `json:"failed,omitempty"` // message-level extraction failure
	// StrategyFailures counts strategy attempts that errored or timed out
	// while resolving this message.
	StrategyFailures int `json:"strategy_failures,omitempty"`
}

// Field returns the signal for one field, zero when absent.
func (r *ExtractionResult) Field(f Field) Signal {
	if r.Fields == nil {
		return ZeroSignal()
	}
	if s, ok := r.Fields[f]; ok {
		return s
	}
	return ZeroSignal()
}

// Timeline summarizes when a correspondent writes.
type Timeline struct {
	TypicalWeekday time.Weekday `json:"typical_weekday"`
	TypicalHour    int          `json:"typical_hour"`
	BusinessHours  bool         `json:"business_hours"`
	WeekendSender  bool         `json:"weekend_sender"`
	Observations   int          `json:"observations"`
}

// AggregationError records one field of one identity whose merge failed.
// The field keeps its zero value; the rest of the profile is unaffected.
type AggregationError struct {
	Identity Identity `json:"identity"`
	Field    Field    `json:"field"`
	Reason   string   `json:"reason"`
}

func (e AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed for %s.%s: %s", e.Identity, e.Field, e.Reason)
}

// ConsolidatedProfile is one output row: everything known about one
// correspondent after merging all their messages.
type ConsolidatedProfile struct {
	Identity  Identity           `json:"identity"`
	Messages  int                `json:"messages"`
	FirstSeen time.Time          `json:"first_seen,omitempty"`
	LastSeen  time.Time          `json:"last_seen,omitempty"`
	Category  Category           `json:"category"`
	Fields    map[Field]Signal   `json:"fields"`
	Sentiment SentimentLabel     `json:"sentiment"`
	Languages []string           `json:"languages,omitempty"`
	Topics    []string           `json:"topics,omitempty"`
	Network   []string           `json:"network,omitempty"` // addresses this correspondent wrote to
	Timeline  Timeline           `json:"timeline"`
	Errors    []AggregationError `json:"errors,omitempty"`
}

// Field returns the merged signal for one field, zero when absent.
func (p *ConsolidatedProfile) Field(f Field) Signal {
	if p.Fields == nil {
		return ZeroSignal()
	}
	if s, ok := p.Fields[f]; ok {
		return s
	}
	return ZeroSignal()
}

// ProfileColumns is the fixed output column order shared by the CSV writer
// and the results API. Changing it changes the public table shape.
var ProfileColumns = []string{
	"identity",
	"messages",
	"first_seen",
	"last_seen",
	"category",
	"name",
	"name_confidence",
	"gender",
	"title",
	"title_confidence",
	"company",
	"company_confidence",
	"department",
	"location",
	"location_confidence",
	"phone",
	"address",
	"address_type",
	"network",
	"sentiment",
	"languages",
	"topics",
	"typical_weekday",
	"typical_hour",
	"business_hours",
	"weekend_sender",
	"errors",
}

// Row renders the profile as CSV cells in ProfileColumns order.
func (p *ConsolidatedProfile) Row() []string {
	name := p.Field(FieldName)
	title := p.Field(FieldTitle)
	company := p.Field(FieldCompany)
	location := p.Field(FieldLocation)

	weekday, hour := "", ""
	if p.Timeline.Observations > 0 {
		weekday = p.Timeline.TypicalWeekday.String()
		hour = strconv.Itoa(p.Timeline.TypicalHour)
	}

	errs := make([]string, 0, len(p.Errors))
	for _, e := range p.Errors {
		errs = append(errs, fmt.Sprintf("%s: %s", e.Field, e.Reason))
	}

	return []string{
		string(p.Identity),
		strconv.Itoa(p.Messages),
		formatSeen(p.FirstSeen),
		formatSeen(p.LastSeen),
		string(p.Category),
		name.Value,
		formatConfidence(name.Confidence),
		p.Field(FieldGender).Value,
		title.Value,
		formatConfidence(title.Confidence),
		company.Value,
		formatConfidence(company.Confidence),
		p.Field(FieldDepartment).Value,
		location.Value,
		formatConfidence(location.Confidence),
		p.Field(FieldPhone).Value,
		p.Field(FieldAddress).Value,
		p.Field(FieldAddressType).Value,
		strings.Join(p.Network, ", "),
		string(p.Sentiment),
		strings.Join(p.Languages, ", "),
		strings.Join(p.Topics, ", "),
		weekday,
		hour,
		strconv.FormatBool(p.Timeline.BusinessHours),
		strconv.FormatBool(p.Timeline.WeekendSender),
		strings.Join(errs, "; "),
	}
}

func formatSeen(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatConfidence(c float64) string {
	return strconv.FormatFloat(c, 'f', 2, 64)
}
