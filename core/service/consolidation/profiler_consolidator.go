// Package consolidation reduces per-message extraction results into one
// profile per correspondent. Each profile field follows a declared merge law:
// mode for single-valued fields, set union for languages, frequency ranking
// for topics, a median/majority reduction for the timeline, priority ranking
// for sentiment and address-set union for the correspondent network. A law
// that cannot interpret its input records an aggregation error scoped to that
// one field and leaves the rest of the profile intact.
package consolidation

import (
	"sort"

	"github.com/rs/zerolog"

	"mailprofiler/core/domain"
)

// =============================================================================
// Configuration
// =============================================================================

// Config carries the consolidation knobs.
type Config struct {
	// TopTopics caps the ranked topic list per profile.
	TopTopics int
	// SentimentPriority orders labels from most to least positive for tie
	// breaking.
	SentimentPriority []domain.SentimentLabel
}

// DefaultConfig returns the consolidation defaults.
func DefaultConfig() Config {
	return Config{
		TopTopics:         10,
		SentimentPriority: domain.DefaultSentimentPriority,
	}
}

// =============================================================================
// Consolidator
// =============================================================================

// Consolidator merges grouped extraction results into profiles.
type Consolidator struct {
	cfg Config
	log zerolog.Logger
}

// New builds a consolidator, falling back to defaults for zero config values.
func New(cfg Config, log zerolog.Logger) *Consolidator {
	if cfg.TopTopics <= 0 {
		cfg.TopTopics = 10
	}
	if len(cfg.SentimentPriority) == 0 {
		cfg.SentimentPriority = domain.DefaultSentimentPriority
	}
	return &Consolidator{cfg: cfg, log: log}
}

// Consolidate groups results by identity and reduces each group to one
// profile. Grouping is stable: the input order is preserved inside each
// group, which the first-occurrence tie laws depend on. Profiles come back
// sorted by identity ascending.
func (c *Consolidator) Consolidate(results []domain.ExtractionResult) []domain.ConsolidatedProfile {
	groups := make(map[domain.Identity][]domain.ExtractionResult)
	for _, r := range results {
		if r.Identity == "" {
			c.log.Debug().Str("message_id", r.MessageID).Msg("result without identity dropped")
			continue
		}
		groups[r.Identity] = append(groups[r.Identity], r)
	}

	ids := make([]domain.Identity, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	profiles := make([]domain.ConsolidatedProfile, 0, len(ids))
	for _, id := range ids {
		profiles = append(profiles, c.profile(id, groups[id]))
	}
	return profiles
}

// profile reduces one identity's group. Failed extractions still count toward
// the message total and the seen range, but contribute no observations.
func (c *Consolidator) profile(id domain.Identity, group []domain.ExtractionResult) domain.ConsolidatedProfile {
	p := domain.ConsolidatedProfile{
		Identity: id,
		Messages: len(group),
		Fields:   make(map[domain.Field]domain.Signal),
	}

	live := make([]domain.ExtractionResult, 0, len(group))
	for _, r := range group {
		if !r.Failed {
			live = append(live, r)
		}
		if r.ReceivedAt.IsZero() {
			continue
		}
		if p.FirstSeen.IsZero() || r.ReceivedAt.Before(p.FirstSeen) {
			p.FirstSeen = r.ReceivedAt
		}
		if r.ReceivedAt.After(p.LastSeen) {
			p.LastSeen = r.ReceivedAt
		}
	}

	categories := make([]domain.Category, 0, len(live))
	labels := make([]domain.SentimentLabel, 0, len(live))
	slots := make([]domain.TimeSlot, 0, len(live))
	languages := make([][]string, 0, len(live))
	topics := make([][]string, 0, len(live))
	recipients := make([][]string, 0, len(live))
	for _, r := range live {
		categories = append(categories, r.Category)
		if !r.Sentiment.IsZero() {
			labels = append(labels, domain.SentimentLabel(r.Sentiment.Value))
		}
		slots = append(slots, r.Slot)
		languages = append(languages, r.Languages)
		topics = append(topics, r.Topics)
		recipients = append(recipients, r.Recipients)
	}

	if cat, err := mergeCategory(categories); err != nil {
		c.fail(&p, domain.FieldCategory, err)
	} else {
		p.Category = cat
	}

	for _, f := range domain.ProfileFields {
		signals := make([]domain.Signal, 0, len(live))
		for _, r := range live {
			if s := r.Field(f); !s.IsZero() {
				signals = append(signals, s)
			}
		}
		if f == domain.FieldAddressType {
			if err := validAddressTypes(signals); err != nil {
				c.fail(&p, f, err)
				continue
			}
		}
		if merged := mergeSignals(signals); !merged.IsZero() {
			p.Fields[f] = merged
		}
	}

	if label, err := mergeSentiment(labels, c.cfg.SentimentPriority); err != nil {
		c.fail(&p, domain.FieldSentiment, err)
	} else {
		p.Sentiment = label
	}

	p.Languages = setUnion(languages)
	p.Topics = frequencyRanked(topics, c.cfg.TopTopics)
	p.Network = addressSet(recipients)

	if timeline, err := mergeTimeline(slots); err != nil {
		c.fail(&p, domain.FieldTimeline, err)
	} else {
		p.Timeline = timeline
	}

	return p
}

func (c *Consolidator) fail(p *domain.ConsolidatedProfile, f domain.Field, err error) {
	c.log.Warn().
		Str("identity", string(p.Identity)).
		Str("field", string(f)).
		Err(err).
		Msg("field merge failed")
	p.Errors = append(p.Errors, domain.AggregationError{
		Identity: p.Identity,
		Field:    f,
		Reason:   err.Error(),
	})
}
