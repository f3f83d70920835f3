package extraction

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mailprofiler/core/domain"
	"mailprofiler/core/port/out"
	"mailprofiler/core/service/classification"
)

// =============================================================================
// Configuration
// =============================================================================

// Config carries the per-message extraction knobs.
type Config struct {
	// Threshold is the early-exit confidence for field chains.
	Threshold float64
	// StrategyTimeout bounds each strategy attempt.
	StrategyTimeout time.Duration
	// PhoneRegion is the ISO 3166-1 hint for national-format numbers.
	PhoneRegion string
	// SubjectWeight, BodyWeight and SignatureWeight blend the per-part
	// polarity scores into one message score.
	SubjectWeight   float64
	BodyWeight      float64
	SignatureWeight float64
	// TopicLimit caps the keywords kept per message.
	TopicLimit int
	// LanguageMinRatio drops languages below this share of the text.
	LanguageMinRatio float64
	// BusinessStart and BusinessEnd bound the business-hours window,
	// inclusive on both ends.
	BusinessStart int
	BusinessEnd   int
	// IsPersonalDomain reports whether a domain belongs to a consumer mail
	// provider.
	IsPersonalDomain func(domain string) bool
}

// DefaultConfig returns the extraction defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:        0.8,
		StrategyTimeout:  5 * time.Second,
		PhoneRegion:      "US",
		SubjectWeight:    0.3,
		BodyWeight:       0.5,
		SignatureWeight:  0.2,
		TopicLimit:       5,
		LanguageMinRatio: 0.2,
		BusinessStart:    9,
		BusinessEnd:      17,
	}
}

// =============================================================================
// Extractor
// =============================================================================

// Extractor runs the full per-message analysis: classification, field chains,
// sentiment, languages, topics and the time slot. One Extractor is shared by
// all pipeline workers.
type Extractor struct {
	cfg        Config
	classifier *classification.Classifier
	chains     *ChainSet
	caps       *out.Capabilities
	log        zerolog.Logger
}

// NewExtractor wires the extractor from its collaborators.
func NewExtractor(cfg Config, classifier *classification.Classifier, caps *out.Capabilities, log zerolog.Logger) *Extractor {
	if cfg.IsPersonalDomain == nil {
		cfg.IsPersonalDomain = func(string) bool { return false }
	}
	chains := NewChainSet(ChainConfig{
		Threshold:        cfg.Threshold,
		StrategyTimeout:  cfg.StrategyTimeout,
		PhoneRegion:      cfg.PhoneRegion,
		IsPersonalDomain: cfg.IsPersonalDomain,
	}, caps, log)
	return &Extractor{
		cfg:        cfg,
		classifier: classifier,
		chains:     chains,
		caps:       caps,
		log:        log,
	}
}

// Extract analyzes one message. It never fails the batch: a panic inside any
// analyzer marks the result Failed and the pipeline moves on.
func (e *Extractor) Extract(ctx context.Context, msg *domain.RawMessage) (result domain.ExtractionResult) {
	result = domain.ExtractionResult{
		MessageID:  msg.ID,
		Identity:   msg.Identity(),
		Category:   domain.DefaultCategory,
		ReceivedAt: msg.ReceivedAt,
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Str("message_id", msg.ID).
				Str("identity", string(result.Identity)).
				Interface("panic", r).
				Msg("message extraction panicked")
			result.Failed = true
		}
	}()

	cls := e.classifier.Classify(msg)
	result.Category = cls.Category

	fields, failures := e.chains.Resolve(ctx, msg)
	result.StrategyFailures = failures
	e.deriveGender(ctx, msg, fields)
	e.deriveAddressType(result.Identity, fields)
	result.Fields = fields

	result.Sentiment, result.Polarity = e.scoreSentiment(ctx, msg)
	result.Languages = e.detectLanguages(ctx, msg)
	result.Topics = e.extractTopics(ctx, msg)
	result.Recipients = normalizeRecipients(msg.To)
	result.Slot = domain.NewTimeSlot(msg.ReceivedAt, e.cfg.BusinessStart, e.cfg.BusinessEnd)
	return result
}

// deriveGender guesses gender from the resolved first name. The guess can
// never be more confident than the name it was derived from.
func (e *Extractor) deriveGender(ctx context.Context, msg *domain.RawMessage, fields map[domain.Field]domain.Signal) {
	if e.caps.Gender == nil {
		return
	}
	name := fields[domain.FieldName]
	if name.IsZero() {
		return
	}
	first := strings.Fields(name.Value)
	if len(first) == 0 {
		return
	}
	guess, certainty, err := e.caps.Gender.Gender(ctx, first[0])
	if err != nil || guess == "" {
		return
	}
	fields[domain.FieldGender] = domain.NewSignal(guess, math.Min(certainty, name.Confidence), name.Source)
}

// deriveAddressType labels the identity business or personal from its domain.
// The allowlist is authoritative, so confidence is always 1.
func (e *Extractor) deriveAddressType(identity domain.Identity, fields map[domain.Field]domain.Signal) {
	host := identity.Domain()
	if host == "" {
		return
	}
	value := domain.AddressTypeBusiness
	if e.cfg.IsPersonalDomain(host) {
		value = domain.AddressTypePersonal
	}
	fields[domain.FieldAddressType] = domain.NewSignal(value, 1, domain.SourceDomain)
}

// scoreSentiment blends per-part polarity into one weighted score. Confidence
// falls with the spread between the parts: a message whose subject and body
// disagree is scored, but not trusted.
func (e *Extractor) scoreSentiment(ctx context.Context, msg *domain.RawMessage) (domain.Signal, float64) {
	if e.caps.Sentiment == nil {
		return domain.ZeroSignal(), 0
	}
	parts := []struct {
		text   string
		weight float64
	}{
		{msg.Subject, e.cfg.SubjectWeight},
		{msg.Body, e.cfg.BodyWeight},
		{msg.Signature, e.cfg.SignatureWeight},
	}
	scores := make([]float64, len(parts))
	overall := 0.0
	for i, p := range parts {
		if p.text == "" {
			continue
		}
		score, err := e.caps.Sentiment.Polarity(ctx, p.text)
		if err != nil {
			e.log.Debug().Err(err).Str("message_id", msg.ID).Msg("polarity scoring failed")
			continue
		}
		scores[i] = score
		overall += score * p.weight
	}
	confidence := 1 - math.Min(stddev(scores), 1)
	label := domain.SentimentFromPolarity(overall)
	return domain.NewSignal(string(label), confidence, domain.SourceBody), overall
}

func (e *Extractor) detectLanguages(ctx context.Context, msg *domain.RawMessage) []string {
	if e.caps.Languages == nil {
		return nil
	}
	text := strings.TrimSpace(msg.Subject + "\n" + msg.Body)
	if text == "" {
		return nil
	}
	scores, err := e.caps.Languages.Detect(ctx, text)
	if err != nil {
		e.log.Debug().Err(err).Str("message_id", msg.ID).Msg("language detection failed")
		return nil
	}
	var languages []string
	for _, s := range scores {
		if s.Ratio >= e.cfg.LanguageMinRatio {
			languages = append(languages, s.Code)
		}
	}
	return languages
}

func (e *Extractor) extractTopics(ctx context.Context, msg *domain.RawMessage) []string {
	if e.caps.Keywords == nil {
		return nil
	}
	text := strings.TrimSpace(msg.Subject + " " + msg.Body)
	if text == "" {
		return nil
	}
	topics, err := e.caps.Keywords.Keywords(ctx, text, e.cfg.TopicLimit)
	if err != nil {
		e.log.Debug().Err(err).Str("message_id", msg.ID).Msg("topic extraction failed")
		return nil
	}
	return topics
}

// normalizeRecipients canonicalizes the to-addresses and drops duplicates,
// preserving first-seen order.
func normalizeRecipients(to []string) []string {
	if len(to) == 0 {
		return nil
	}
	seen := make(map[domain.Identity]bool, len(to))
	out := make([]string, 0, len(to))
	for _, raw := range to {
		id := domain.IdentityOf(raw)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, string(id))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	variance := 0.0
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	return math.Sqrt(variance / float64(len(xs)))
}
