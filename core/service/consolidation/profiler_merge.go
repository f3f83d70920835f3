package consolidation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"mailprofiler/core/domain"
)

// =============================================================================
// Merge laws
// =============================================================================
//
// Every law is deterministic for a fixed group order: ties in the mode and
// frequency laws break toward the first occurrence, the timeline booleans
// break toward true, and sentiment ties break toward the more positive label.

// modeValue picks the most frequent value; ties break toward the value that
// appeared first. ok is false for an empty group.
func modeValue(values []string) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	type tally struct {
		count int
		first int
	}
	counts := make(map[string]*tally, len(values))
	for i, v := range values {
		if t, ok := counts[v]; ok {
			t.count++
		} else {
			counts[v] = &tally{count: 1, first: i}
		}
	}
	winner, best := "", (*tally)(nil)
	for v, t := range counts {
		if best == nil || t.count > best.count || (t.count == best.count && t.first < best.first) {
			winner, best = v, t
		}
	}
	return winner, true
}

// mergeSignals applies the mode law to one field's non-zero signals. The
// merged signal keeps the highest confidence observed for the winning value,
// first occurrence on equal confidence. A single-element group comes back
// unchanged.
func mergeSignals(signals []domain.Signal) domain.Signal {
	if len(signals) == 0 {
		return domain.ZeroSignal()
	}
	values := make([]string, len(signals))
	for i, s := range signals {
		values[i] = s.Value
	}
	winner, _ := modeValue(values)
	best := domain.ZeroSignal()
	for _, s := range signals {
		if s.Value == winner && s.Confidence > best.Confidence {
			best = s
		}
	}
	return best
}

// mergeCategory mode-merges classification labels. An unrecognized label is
// malformed input and fails the whole field.
func mergeCategory(categories []domain.Category) (domain.Category, error) {
	values := make([]string, 0, len(categories))
	for _, cat := range categories {
		if !cat.Valid() {
			return "", fmt.Errorf("unrecognized category %q", cat)
		}
		values = append(values, string(cat))
	}
	winner, ok := modeValue(values)
	if !ok {
		return "", nil
	}
	return domain.Category(winner), nil
}

// mergeSentiment counts label frequency; ties break toward the earlier label
// in the priority ranking, most positive first.
func mergeSentiment(labels []domain.SentimentLabel, priority []domain.SentimentLabel) (domain.SentimentLabel, error) {
	if len(labels) == 0 {
		return "", nil
	}
	counts := make(map[domain.SentimentLabel]int, len(labels))
	for _, l := range labels {
		if !l.Valid() {
			return "", fmt.Errorf("unrecognized sentiment label %q", l)
		}
		counts[l]++
	}
	winner, best := domain.SentimentLabel(""), 0
	for _, p := range priority {
		if counts[p] > best {
			winner, best = p, counts[p]
		}
	}
	return winner, nil
}

// setUnion merges multi-valued fields: tokens are trimmed and lowercased,
// deduplicated across the group and returned sorted ascending. Commutative
// and idempotent by construction.
func setUnion(groups [][]string) []string {
	seen := make(map[string]bool)
	for _, group := range groups {
		for _, v := range group {
			v = strings.ToLower(strings.TrimSpace(v))
			if v != "" {
				seen[v] = true
			}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// addressSet unions the to-addresses across the group, deduplicated and
// sorted ascending. Addresses arrive already canonicalized.
func addressSet(groups [][]string) []string {
	seen := make(map[string]bool)
	for _, group := range groups {
		for _, addr := range group {
			addr = strings.TrimSpace(addr)
			if addr != "" {
				seen[addr] = true
			}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// frequencyRanked flattens the per-message lists, counts occurrences and
// returns up to limit values ranked by count descending, first-seen on ties.
func frequencyRanked(groups [][]string, limit int) []string {
	type tally struct {
		value string
		count int
		first int
	}
	index := make(map[string]*tally)
	ranked := make([]*tally, 0)
	pos := 0
	for _, group := range groups {
		for _, v := range group {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "" {
				continue
			}
			if t, ok := index[v]; ok {
				t.count++
			} else {
				t = &tally{value: v, count: 1, first: pos}
				index[v] = t
				ranked = append(ranked, t)
			}
			pos++
		}
	}
	if len(ranked) == 0 {
		return nil
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]string, len(ranked))
	for i, t := range ranked {
		out[i] = t.value
	}
	return out
}

// mergeTimeline reduces the valid time slots: most frequent weekday
// (first-seen on ties), lower-median hour, majority booleans biased toward
// true on even splits.
func mergeTimeline(slots []domain.TimeSlot) (domain.Timeline, error) {
	valid := make([]domain.TimeSlot, 0, len(slots))
	for _, s := range slots {
		if !s.Valid {
			continue
		}
		if s.Hour < 0 || s.Hour > 23 || s.Weekday < time.Sunday || s.Weekday > time.Saturday {
			return domain.Timeline{}, fmt.Errorf("slot out of range: weekday %d hour %d", s.Weekday, s.Hour)
		}
		valid = append(valid, s)
	}
	if len(valid) == 0 {
		return domain.Timeline{}, nil
	}

	var dayCounts [7]int
	dayFirst := [7]int{-1, -1, -1, -1, -1, -1, -1}
	hours := make([]int, 0, len(valid))
	business, weekend := 0, 0
	for i, s := range valid {
		d := int(s.Weekday)
		dayCounts[d]++
		if dayFirst[d] < 0 {
			dayFirst[d] = i
		}
		hours = append(hours, s.Hour)
		if s.IsBusinessHours {
			business++
		}
		if s.IsWeekend {
			weekend++
		}
	}

	topDay := 0
	for d := 1; d < 7; d++ {
		if dayCounts[d] == 0 {
			continue
		}
		if dayCounts[topDay] == 0 ||
			dayCounts[d] > dayCounts[topDay] ||
			(dayCounts[d] == dayCounts[topDay] && dayFirst[d] < dayFirst[topDay]) {
			topDay = d
		}
	}

	sort.Ints(hours)
	median := hours[(len(hours)-1)/2]

	n := len(valid)
	return domain.Timeline{
		TypicalWeekday: time.Weekday(topDay),
		TypicalHour:    median,
		BusinessHours:  business*2 >= n,
		WeekendSender:  weekend*2 >= n,
		Observations:   n,
	}, nil
}

// validAddressTypes rejects anything outside the two known labels before the
// mode law runs.
func validAddressTypes(signals []domain.Signal) error {
	for _, s := range signals {
		if s.Value != domain.AddressTypeBusiness && s.Value != domain.AddressTypePersonal {
			return fmt.Errorf("unrecognized address type %q", s.Value)
		}
	}
	return nil
}
