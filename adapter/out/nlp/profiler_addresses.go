package nlp

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// =============================================================================
// Postal Address Finder
// =============================================================================

var (
	// "123 Main Street" with an optional ", Suite 4" tail.
	streetRe = regexp.MustCompile(`\b\d{1,5}[ \t]+(?:[A-Z][A-Za-z.]*[ \t]+){1,4}` +
		`(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Place|Pl|Way|Square|Sq)\.?` +
		`(?:,?[ \t]+(?:Suite|Ste|Apt|Unit|Floor|Fl)\.?[ \t]*[\w-]+)?`)

	// "Springfield, IL 62704" including the ZIP+4 form.
	localityRe = regexp.MustCompile(`\b[A-Z][A-Za-z]+(?:[ \t][A-Z][A-Za-z]+)?,?[ \t]+(?:[A-Z]{2}[ \t]+)?\d{5}(?:-\d{4})?\b`)
)

// AddressFinder pulls street and locality fragments out of free text.
type AddressFinder struct{}

func NewAddressFinder() *AddressFinder { return &AddressFinder{} }

// Addresses returns deduplicated fragments in order of appearance. Callers
// join them back into one line.
func (a *AddressFinder) Addresses(ctx context.Context, text string) ([]string, error) {
	type hit struct {
		pos  int
		text string
	}
	var hits []hit
	for _, m := range streetRe.FindAllStringIndex(text, -1) {
		hits = append(hits, hit{m[0], strings.TrimRight(text[m[0]:m[1]], ",. \t")})
	}
	for _, m := range localityRe.FindAllStringIndex(text, -1) {
		hits = append(hits, hit{m[0], strings.TrimRight(text[m[0]:m[1]], ",. \t")})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	var parts []string
	seen := make(map[string]bool)
	for _, h := range hits {
		if !seen[h.text] {
			seen[h.text] = true
			parts = append(parts, h.text)
		}
	}
	return parts, nil
}
