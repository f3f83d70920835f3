package extraction

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mailprofiler/core/domain"
	"mailprofiler/core/port/out"
)

// =============================================================================
// Capability stubs
// =============================================================================

type entityStub []out.Entity

func (e entityStub) Entities(context.Context, string) ([]out.Entity, error) {
	return e, nil
}

type phoneStub []string

func (p phoneStub) Phones(context.Context, string, string) ([]string, error) {
	return p, nil
}

type addressStub []string

func (a addressStub) Addresses(context.Context, string) ([]string, error) {
	return a, nil
}

type geoStub string

func (g geoStub) Country(context.Context, string) (string, error) {
	return string(g), nil
}

func testChainSet(t *testing.T, caps *out.Capabilities) *ChainSet {
	t.Helper()
	cfg := ChainConfig{
		Threshold:       0.8,
		StrategyTimeout: time.Second,
		IsPersonalDomain: func(d string) bool {
			return d == "gmail.com" || d == "yahoo.com"
		},
	}
	return NewChainSet(cfg, caps, zerolog.Nop())
}

// =============================================================================
// Chain behavior
// =============================================================================

func TestChainSetFallbackWithoutCollaborators(t *testing.T) {
	set := testChainSet(t, &out.Capabilities{})
	msg := &domain.RawMessage{
		ID:          "m1",
		From:        "jdoe@acme.de",
		FromAddress: "jdoe@acme.de",
	}

	fields, failures := set.Resolve(context.Background(), msg)
	if failures != 0 {
		t.Fatalf("failures = %d, want 0", failures)
	}

	name := fields[domain.FieldName]
	if name.Value != "Jdoe" || name.Confidence != 0.3 || name.Source != domain.SourceDomain {
		t.Errorf("name = %+v, want Jdoe/0.3/domain", name)
	}
	company := fields[domain.FieldCompany]
	if company.Value != "Acme" || company.Confidence != 0.3 {
		t.Errorf("company = %+v, want Acme/0.3", company)
	}
	location := fields[domain.FieldLocation]
	if location.Value != "Germany" || location.Confidence != 0.6 || location.Source != domain.SourceDomain {
		t.Errorf("location = %+v, want Germany/0.6/domain", location)
	}
	if phone := fields[domain.FieldPhone]; !phone.IsZero() {
		t.Errorf("phone = %+v, want zero without a phone extractor", phone)
	}
}

func TestChainSetDisplayNameBeatsLocalPart(t *testing.T) {
	set := testChainSet(t, &out.Capabilities{})
	msg := &domain.RawMessage{
		From:        `"Jane Doe" <jane.doe@acme.com>`,
		FromName:    "Jane Doe",
		FromAddress: "jane.doe@acme.com",
	}

	fields, _ := set.Resolve(context.Background(), msg)
	name := fields[domain.FieldName]
	if name.Value != "Jane Doe" || name.Confidence != 0.6 || name.Source != domain.SourceSender {
		t.Errorf("name = %+v, want Jane Doe/0.6/sender", name)
	}
}

func TestChainSetSignaturePersonWins(t *testing.T) {
	caps := &out.Capabilities{
		Entities: entityStub{{Text: "Jane Doe", Kind: out.EntityPerson, Confidence: 0.9}},
	}
	set := testChainSet(t, caps)
	msg := &domain.RawMessage{
		From:        "Robot <jane.doe@acme.com>",
		FromName:    "Robot",
		FromAddress: "jane.doe@acme.com",
		Signature:   "Jane Doe\nAcme Corp",
	}

	fields, _ := set.Resolve(context.Background(), msg)
	name := fields[domain.FieldName]
	if name.Value != "Jane Doe" || name.Confidence != 0.8 || name.Source != domain.SourceSignature {
		t.Errorf("name = %+v, want Jane Doe/0.8/signature", name)
	}
}

func TestChainSetPersonalDomainYieldsNoCompany(t *testing.T) {
	set := testChainSet(t, &out.Capabilities{})
	msg := &domain.RawMessage{
		From:        "jane@gmail.com",
		FromAddress: "jane@gmail.com",
	}

	fields, _ := set.Resolve(context.Background(), msg)
	if company := fields[domain.FieldCompany]; !company.IsZero() {
		t.Errorf("company = %+v, want zero for a personal domain", company)
	}
}

func TestChainSetTitleFromSignature(t *testing.T) {
	set := testChainSet(t, &out.Capabilities{})
	msg := &domain.RawMessage{
		From:        "jane@acme.com",
		FromAddress: "jane@acme.com",
		Signature:   "Jane Doe\nSenior Software Engineer\nAcme Corp",
	}

	fields, _ := set.Resolve(context.Background(), msg)
	title := fields[domain.FieldTitle]
	if title.Value != "Senior Software Engineer" || title.Confidence != 0.5 {
		t.Errorf("title = %+v, want Senior Software Engineer/0.5", title)
	}
	dept := fields[domain.FieldDepartment]
	if !dept.IsZero() {
		t.Errorf("department = %+v, want zero", dept)
	}
}

func TestChainSetTitleFromBodyNeedsIndicator(t *testing.T) {
	set := testChainSet(t, &out.Capabilities{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"with indicator", "Hello. I am working as a project manager at Acme.", "Project Manager"},
		{"without indicator", "The manager will join the call.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &domain.RawMessage{
				From:        "jane@acme.com",
				FromAddress: "jane@acme.com",
				Body:        tt.body,
			}
			fields, _ := set.Resolve(context.Background(), msg)
			if got := fields[domain.FieldTitle].Value; got != tt.want {
				t.Errorf("title = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChainSetDepartment(t *testing.T) {
	set := testChainSet(t, &out.Capabilities{})
	msg := &domain.RawMessage{
		From:        "jane@acme.com",
		FromAddress: "jane@acme.com",
		Signature:   "Jane Doe\nDepartment of Engineering",
	}

	fields, _ := set.Resolve(context.Background(), msg)
	dept := fields[domain.FieldDepartment]
	if dept.Value != "Engineering" || dept.Confidence != 0.4 || dept.Source != domain.SourceSignature {
		t.Errorf("department = %+v, want Engineering/0.4/signature", dept)
	}
}

func TestChainSetGeoIPLastResort(t *testing.T) {
	caps := &out.Capabilities{Geo: geoStub("Australia")}
	set := testChainSet(t, caps)
	msg := &domain.RawMessage{
		From:        "jane@acme.com", // .com: no TLD hit, registry skipped
		FromAddress: "jane@acme.com",
		Headers: map[string]string{
			"Received": "from mail.acme.com (10.0.0.1) by mx (203.0.113.5)",
		},
	}

	fields, _ := set.Resolve(context.Background(), msg)
	location := fields[domain.FieldLocation]
	if location.Value != "Australia" || location.Confidence != 0.4 || location.Source != domain.SourceGeoIP {
		t.Errorf("location = %+v, want Australia/0.4/geoip", location)
	}
}

func TestChainSetPhoneAndAddress(t *testing.T) {
	caps := &out.Capabilities{
		Phones:    phoneStub{"+1 555-010-4477"},
		Addresses: addressStub{"Springfield", "62704"},
	}
	set := testChainSet(t, caps)
	msg := &domain.RawMessage{
		From:        "jane@acme.com",
		FromAddress: "jane@acme.com",
		Signature:   "Jane\nSpringfield, 62704\n+1 555-010-4477",
	}

	fields, _ := set.Resolve(context.Background(), msg)
	phone := fields[domain.FieldPhone]
	if phone.Value != "+1 555-010-4477" || phone.Confidence != 0.7 {
		t.Errorf("phone = %+v, want number/0.7", phone)
	}
	address := fields[domain.FieldAddress]
	if address.Value != "Springfield, 62704" || address.Confidence != 0.6 {
		t.Errorf("address = %+v, want joined parts/0.6", address)
	}
}

// =============================================================================
// Helpers
// =============================================================================

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		msg  domain.RawMessage
		want string
	}{
		{"parsed name", domain.RawMessage{FromName: "Jane Doe"}, "Jane Doe"},
		{"quoted header", domain.RawMessage{From: `"Jane Doe" <jane@acme.com>`}, "Jane Doe"},
		{"bare header", domain.RawMessage{From: "Jane Doe <jane@acme.com>"}, "Jane Doe"},
		{"address only", domain.RawMessage{From: "jane@acme.com"}, ""},
		{"address as name", domain.RawMessage{FromName: "jane@acme.com"}, ""},
		{"empty", domain.RawMessage{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayName(&tt.msg); got != tt.want {
				t.Errorf("displayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHumanizeLocalPart(t *testing.T) {
	tests := []struct {
		identity string
		want     string
	}{
		{"jane.doe@acme.com", "Jane Doe"},
		{"jane_van-dam@acme.com", "Jane Van Dam"},
		{"jdoe@acme.com", "Jdoe"},
		{"12345@acme.com", ""},
		{"no-at-sign", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := humanizeLocalPart(tt.identity); got != tt.want {
			t.Errorf("humanizeLocalPart(%q) = %q, want %q", tt.identity, got, tt.want)
		}
	}
}

func TestRegisteredLabel(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"acme.com", "acme"},
		{"mail.acme.co.uk", "acme"},
		{"acme.de", "acme"},
	}
	for _, tt := range tests {
		if got := registeredLabel(tt.host); got != tt.want {
			t.Errorf("registeredLabel(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestTLDOf(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"acme.co.uk", "uk"},
		{"ACME.DE", "de"},
		{"localhost", "localhost"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := tldOf(tt.host); got != tt.want {
			t.Errorf("tldOf(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestPublicIPs(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    []string
	}{
		{
			"skips private ranges",
			map[string]string{"Received": "from a (10.0.0.1) via b (192.168.1.4) by c (203.0.113.9)"},
			[]string{"203.0.113.9"},
		},
		{
			"keeps header order",
			map[string]string{"Received": "from a (203.0.113.9) by b (198.51.100.7)"},
			[]string{"203.0.113.9", "198.51.100.7"},
		},
		{
			"deduplicates across headers",
			map[string]string{
				"Received":         "from a (198.51.100.7)",
				"X-Originating-IP": "[198.51.100.7]",
			},
			[]string{"198.51.100.7"},
		},
		{
			"invalid octets skipped",
			map[string]string{"Received": "by mx (999.1.1.1) with (203.0.113.9)"},
			[]string{"203.0.113.9"},
		},
		{
			"nothing routable",
			map[string]string{"Received": "by mx (127.0.0.1)"},
			nil,
		},
		{"no headers", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &domain.RawMessage{Headers: tt.headers}
			got := publicIPs(msg)
			if len(got) != len(tt.want) {
				t.Fatalf("publicIPs() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("publicIPs()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTitleLexicon(t *testing.T) {
	if got := titleWordIn("senior software engineer"); got != "engineer" {
		t.Errorf("titleWordIn() = %q, want engineer", got)
	}
	if got := titleWordIn("see you tomorrow"); got != "" {
		t.Errorf("titleWordIn() = %q, want empty", got)
	}
	if got := fullTitle("Senior Software Engineer", "engineer"); got != "Senior Software Engineer" {
		t.Errorf("fullTitle() = %q, want Senior Software Engineer", got)
	}
	if got := fullTitle("VP of Operations", "vp"); got != "Vp Of Operations" {
		t.Errorf("fullTitle() = %q, want Vp Of Operations", got)
	}
}

func TestDepartmentIn(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Department of Engineering", "Engineering"},
		{"Sales department, 3rd floor", "Sales"},
		{"Platform team", "Platform"},
		{"Consumer division", "Consumer"},
		{"no match here whatsoever", ""},
	}
	for _, tt := range tests {
		if got := departmentIn(tt.text); got != tt.want {
			t.Errorf("departmentIn(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
