package domain

import (
	"net/mail"
	"net/textproto"
	"strings"
	"time"
)

// Identity is the canonical key for one correspondent: the lowercased,
// trimmed sender address. One canonical address per correspondent is
// assumed; aliasing across addresses is out of scope.
type Identity string

// IdentityOf derives the canonical identity from a raw From header value.
// Unparseable headers fall back to the lowercased raw string so the message
// still flows through the pipeline.
func IdentityOf(raw string) Identity {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(raw); err == nil {
		return Identity(strings.ToLower(strings.TrimSpace(addr.Address)))
	}
	// Salvage an angle-bracketed address before giving up.
	if open := strings.LastIndex(raw, "<"); open >= 0 {
		if close := strings.Index(raw[open:], ">"); close > 1 {
			return Identity(strings.ToLower(strings.TrimSpace(raw[open+1 : open+close])))
		}
	}
	return Identity(strings.ToLower(raw))
}

// Domain returns the part after '@', or "" when the identity has none.
func (i Identity) Domain() string {
	s := string(i)
	at := strings.LastIndex(s, "@")
	if at < 0 || at == len(s)-1 {
		return ""
	}
	return s[at+1:]
}

// RawMessage is one ingested email, normalized for extraction.
type RawMessage struct {
	ID          string            `json:"id"`
	From        string            `json:"from"`         // raw From header
	FromName    string            `json:"from_name"`    // display name, may be empty
	FromAddress string            `json:"from_address"` // parsed address, lowercased
	To          []string          `json:"to,omitempty"` // recipient addresses, lowercased
	Subject     string            `json:"subject"`
	Body        string            `json:"body"`
	Signature   string            `json:"signature,omitempty"` // trailing signature block, may be empty
	Headers     map[string]string `json:"headers,omitempty"`   // canonical-cased keys
	ReceivedAt  time.Time         `json:"received_at,omitempty"`
	Words       int               `json:"words"` // body word count, signature excluded
}

// Identity returns the canonical correspondent key for the message.
func (m *RawMessage) Identity() Identity {
	if m.FromAddress != "" {
		return Identity(strings.ToLower(m.FromAddress))
	}
	return IdentityOf(m.From)
}

// Header returns a header value by key, "" when absent. Lookup tries the key
// as given, then its canonical MIME form, so "X-Originating-IP" finds the
// canonically stored "X-Originating-Ip".
func (m *RawMessage) Header(key string) string {
	if m.Headers == nil {
		return ""
	}
	if v, ok := m.Headers[key]; ok {
		return v
	}
	return m.Headers[textproto.CanonicalMIMEHeaderKey(key)]
}

// SignatureLines returns the signature block split into non-empty lines.
func (m *RawMessage) SignatureLines() []string {
	if m.Signature == "" {
		return nil
	}
	raw := strings.Split(m.Signature, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// TimeSlot is the per-message timing observation fed into timeline merging.
type TimeSlot struct {
	Weekday         time.Weekday `json:"weekday"`
	Hour            int          `json:"hour"`
	IsBusinessHours bool         `json:"is_business_hours"`
	IsWeekend       bool         `json:"is_weekend"`
	Valid           bool         `json:"valid"` // false when the message had no usable date
}

// NewTimeSlot derives a slot from a timestamp and an inclusive business-hours
// window. A zero timestamp yields an invalid slot that merging ignores.
func NewTimeSlot(t time.Time, businessStart, businessEnd int) TimeSlot {
	if t.IsZero() {
		return TimeSlot{}
	}
	hour := t.Hour()
	wd := t.Weekday()
	return TimeSlot{
		Weekday:         wd,
		Hour:            hour,
		IsBusinessHours: hour >= businessStart && hour <= businessEnd,
		IsWeekend:       wd == time.Saturday || wd == time.Sunday,
		Valid:           true,
	}
}
