package domain

// Source identifies where a signal value was observed.
type Source string

const (
	SourceNone      Source = "none"      // nothing found
	SourceSignature Source = "signature" // signature block of the message body
	SourceSender    Source = "sender"    // from-header display name
	SourceDomain    Source = "domain"    // sender domain heuristics
	SourceBody      Source = "body"      // message body scan
	SourceHeader    Source = "header"    // transport headers
	SourceRegistry  Source = "registry"  // domain registration records
	SourceGeoIP     Source = "geoip"     // originating-IP geolocation
	SourceLLM       Source = "llm"       // language-model extraction
)

// Signal is the uniform envelope every extraction strategy returns:
// a value, how sure the strategy is about it, and where it came from.
// Confidence is always within [0,1].
type Signal struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
}

// NewSignal builds a signal, clamping confidence into [0,1].
func NewSignal(value string, confidence float64, source Source) Signal {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Signal{Value: value, Confidence: confidence, Source: source}
}

// ZeroSignal is the universal "nothing found" value. Absence of a value is
// always modeled as a zero signal, never as nil.
func ZeroSignal() Signal {
	return Signal{Source: SourceNone}
}

// IsZero reports whether the signal carries no usable value.
func (s Signal) IsZero() bool {
	return s.Value == "" || s.Confidence == 0
}

// Field names a profile attribute resolved per message and merged per identity.
type Field string

const (
	FieldName        Field = "name"
	FieldGender      Field = "gender"
	FieldTitle       Field = "title"
	FieldCompany     Field = "company"
	FieldDepartment  Field = "department"
	FieldLocation    Field = "location"
	FieldPhone       Field = "phone"
	FieldAddress     Field = "address"
	FieldAddressType Field = "address_type"
)

// ProfileFields is the fixed field order used by consolidation and export.
var ProfileFields = []Field{
	FieldName,
	FieldGender,
	FieldTitle,
	FieldCompany,
	FieldDepartment,
	FieldLocation,
	FieldPhone,
	FieldAddress,
	FieldAddressType,
}

// Merge targets that are not per-message signals but can still fail to
// merge; used to scope aggregation errors.
const (
	FieldCategory  Field = "category"
	FieldSentiment Field = "sentiment"
	FieldTimeline  Field = "timeline"
)

// Address types derived from the personal-provider allowlist.
const (
	AddressTypeBusiness = "business"
	AddressTypePersonal = "personal"
)
