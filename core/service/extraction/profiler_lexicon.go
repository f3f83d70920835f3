package extraction

import (
	"regexp"
	"strings"
)

// =============================================================================
// Job title lexicon
// =============================================================================

// jobTitleTracks groups known title words by career track, scanned in order
// so the first hit is deterministic. Matching is substring-based over
// lowercased lines.
var jobTitleTracks = []struct {
	track string
	words []string
}{
	{"executive", []string{
		"ceo", "cto", "cfo", "coo", "president", "vice president", "vp",
		"director", "chief", "head", "executive",
	}},
	{"management", []string{
		"manager", "supervisor", "leader", "coordinator", "principal",
		"administrator", "lead",
	}},
	{"engineering", []string{
		"engineer", "developer", "architect", "programmer", "analyst",
		"scientist", "technician", "specialist",
	}},
	{"sales", []string{
		"sales", "account executive", "representative", "consultant",
		"associate", "advisor",
	}},
}

// fullTitleRes recover the complete title phrase around a lexicon hit.
var fullTitleRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(senior|junior|lead|principal|chief|head|executive)?\s*\w+\s*(manager|engineer|developer|analyst|director|coordinator|specialist)`),
	regexp.MustCompile(`(?i)(vp|vice president|director)\s+of\s+\w+`),
	regexp.MustCompile(`(?i)\bc[a-z]o\b`),
}

// titleIndicators gate body scans: only sentences that talk about a role are
// searched, to keep body noise out.
var titleIndicators = []string{"i am", "working as", "my role", "position of", "title is"}

// titleWordIn returns the first lexicon word contained in the lowercased
// line, or "" when none matches.
func titleWordIn(line string) string {
	for _, track := range jobTitleTracks {
		for _, w := range track.words {
			if strings.Contains(line, w) {
				return w
			}
		}
	}
	return ""
}

// fullTitle recovers the complete title phrase around a lexicon hit,
// title-cased. Falls back to the bare lexicon word when no phrase pattern
// matches.
func fullTitle(line, word string) string {
	for _, re := range fullTitleRes {
		if m := re.FindString(line); m != "" {
			return titleCase(strings.TrimSpace(m))
		}
	}
	return titleCase(word)
}

// =============================================================================
// Department patterns
// =============================================================================

var departmentRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)department\s+of\s+(\w+)`),
	regexp.MustCompile(`(?i)(\w+)\s+department`),
	regexp.MustCompile(`(?i)(\w+)\s+division`),
	regexp.MustCompile(`(?i)(\w+)\s+team`),
}

// departmentIn returns the first department mention in the text, title-cased.
func departmentIn(text string) string {
	for _, re := range departmentRes {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			return titleCase(m[1])
		}
	}
	return ""
}

// =============================================================================
// Country-code TLDs
// =============================================================================

// countryTLDs maps country-code suffixes to country names for the domain
// location strategy.
var countryTLDs = map[string]string{
	"uk": "United Kingdom",
	"de": "Germany",
	"fr": "France",
	"au": "Australia",
	"ca": "Canada",
	"cn": "China",
	"in": "India",
	"it": "Italy",
	"es": "Spain",
	"us": "United States",
	"jp": "Japan",
	"se": "Sweden",
	"be": "Belgium",
	"pl": "Poland",
	"ch": "Switzerland",
	"nl": "Netherlands",
}

// genericTLDs never carry registrant-country information worth a lookup.
var genericTLDs = map[string]bool{
	"com": true, "org": true, "net": true, "edu": true, "gov": true, "mil": true,
}

// =============================================================================
// Helpers
// =============================================================================

var ipRe = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

// displayNameRe pulls the quoted display prefix off a raw From header.
var displayNameRe = regexp.MustCompile(`^"?([^"@<]+)"?\s*<`)

// titleCase uppercases the first letter of every word. Lexicon output is
// ASCII by construction.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
