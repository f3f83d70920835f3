package nlp

import (
	"context"
	"regexp"

	"github.com/nyaruka/phonenumbers"
)

// =============================================================================
// Phone Parser
// =============================================================================

// phoneCandidateRe over-matches on purpose; libphonenumber validation decides
// what survives. Dates and order numbers fail the length or region rules.
var phoneCandidateRe = regexp.MustCompile(`\+?\(?\d[\d\s()./-]{5,18}\d`)

// PhoneParser extracts valid phone numbers from free text.
type PhoneParser struct{}

func NewPhoneParser() *PhoneParser { return &PhoneParser{} }

// Phones returns deduplicated numbers in international format. Region is the
// ISO 3166-1 country assumed for numbers without a + prefix.
func (p *PhoneParser) Phones(ctx context.Context, text, region string) ([]string, error) {
	if region == "" {
		region = "US"
	}
	var phones []string
	seen := make(map[string]bool)
	for _, cand := range phoneCandidateRe.FindAllString(text, -1) {
		if digitCount(cand) < 7 {
			continue
		}
		num, err := phonenumbers.Parse(cand, region)
		if err != nil || !phonenumbers.IsValidNumber(num) {
			continue
		}
		formatted := phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
		if !seen[formatted] {
			seen[formatted] = true
			phones = append(phones, formatted)
		}
	}
	return phones, nil
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
