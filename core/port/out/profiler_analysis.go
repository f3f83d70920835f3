package out

import (
	"context"
)

// EntityKind labels what a recognized entity refers to.
type EntityKind string

const (
	EntityPerson EntityKind = "person"
	EntityOrg    EntityKind = "org"
	EntityPlace  EntityKind = "place"
)

// Entity is one span a recognizer found in free text.
type Entity struct {
	Text       string     `json:"text"`
	Kind       EntityKind `json:"kind"`
	Confidence float64    `json:"confidence"`
}

// EntityRecognizer defines the outbound port for named-entity recognition.
type EntityRecognizer interface {
	Entities(ctx context.Context, text string) ([]Entity, error)
}

// SentimentScorer defines the outbound port for polarity scoring.
// Scores are in [-1,1]: negative, neutral around zero, positive.
type SentimentScorer interface {
	Polarity(ctx context.Context, text string) (float64, error)
}

// LanguageScore is one detected language with its share of the text.
type LanguageScore struct {
	Code  string  `json:"code"` // ISO 639-1
	Ratio float64 `json:"ratio"`
}

// LanguageDetector defines the outbound port for language detection.
type LanguageDetector interface {
	Detect(ctx context.Context, text string) ([]LanguageScore, error)
}

// KeywordExtractor defines the outbound port for topic keyword extraction.
type KeywordExtractor interface {
	Keywords(ctx context.Context, text string, limit int) ([]string, error)
}

// PhoneExtractor defines the outbound port for phone number extraction.
// Region is an ISO 3166-1 alpha-2 hint for national-format numbers.
type PhoneExtractor interface {
	Phones(ctx context.Context, text, region string) ([]string, error)
}

// GenderGuesser defines the outbound port for first-name gender lookup.
// Returns the guess and a certainty in [0,1]; ("", 0) when unknown.
type GenderGuesser interface {
	Gender(ctx context.Context, firstName string) (string, float64, error)
}

// AddressExtractor defines the outbound port for postal address extraction.
type AddressExtractor interface {
	Addresses(ctx context.Context, text string) ([]string, error)
}

// Geolocator defines the outbound port for IP geolocation.
type Geolocator interface {
	Country(ctx context.Context, ip string) (string, error)
}

// RegistryLookup defines the outbound port for domain registration lookups.
type RegistryLookup interface {
	RegistrantCountry(ctx context.Context, domain string) (string, error)
}

// ContactInfo is what a language-model collaborator can pull from one message.
type ContactInfo struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Company string `json:"company"`
	Phone   string `json:"phone"`
}

// ContactExtractor defines the outbound port for LLM-backed contact
// extraction. Optional capability.
type ContactExtractor interface {
	ExtractContact(ctx context.Context, subject, body, signature string) (*ContactInfo, error)
}

// Capabilities bundles every collaborator the pipeline may use. Injected once
// at construction; nil members mean the capability is absent and the
// strategies relying on it yield zero signals.
type Capabilities struct {
	Entities  EntityRecognizer
	Sentiment SentimentScorer
	Languages LanguageDetector
	Keywords  KeywordExtractor
	Phones    PhoneExtractor
	Gender    GenderGuesser
	Addresses AddressExtractor
	Geo       Geolocator
	Registry  RegistryLookup
	Contacts  ContactExtractor
}
