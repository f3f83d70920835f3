package extraction

import (
	"context"
	"net/netip"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"

	"mailprofiler/core/domain"
	"mailprofiler/core/port/out"
)

// =============================================================================
// Strategy confidences
// =============================================================================

// Fixed per-strategy confidences. A later strategy only displaces an earlier
// result when its confidence is higher, so the ordering below doubles as a
// reliability ranking.
const (
	confNameSignature = 0.8
	confNameDisplay   = 0.6
	confNameLocal     = 0.3

	confTitleSignature = 0.5
	confTitleBody      = 0.3

	confCompanySignature = 0.4
	confCompanyDomain    = 0.3
	confCompanyBody      = 0.2

	confDeptSignature = 0.4
	confDeptBody      = 0.3

	confLocationSignature = 0.85
	confLocationTLD       = 0.6
	confLocationRegistry  = 0.5
	confLocationGeoIP     = 0.4

	confPhoneSignature = 0.7
	confPhoneBody      = 0.4

	confAddressSignature = 0.6
	confAddressBody      = 0.3

	confLLMContact = 0.9
)

// ipHeaders are scanned in order for originating addresses.
var ipHeaders = []string{"Received", "X-Originating-IP", "X-Sender-IP"}

// =============================================================================
// Chain set
// =============================================================================

// ChainConfig carries the knobs shared by every field chain.
type ChainConfig struct {
	// Threshold stops a chain once a signal's confidence strictly exceeds it.
	Threshold float64
	// StrategyTimeout bounds each strategy attempt.
	StrategyTimeout time.Duration
	// PhoneRegion is the ISO 3166-1 hint for national-format numbers.
	PhoneRegion string
	// IsPersonalDomain reports whether a domain belongs to a consumer mail
	// provider; such domains carry no company or registrant information.
	IsPersonalDomain func(domain string) bool
}

// ChainSet holds one fallback chain per profile field, built once and shared
// by all workers.
type ChainSet struct {
	chains []*Chain
}

// NewChainSet assembles the field chains from the available capabilities.
// Strategies whose collaborator is absent are left out of their chain.
func NewChainSet(cfg ChainConfig, caps *out.Capabilities, log zerolog.Logger) *ChainSet {
	if cfg.IsPersonalDomain == nil {
		cfg.IsPersonalDomain = func(string) bool { return false }
	}
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = "US"
	}
	b := &chainBuilder{cfg: cfg, caps: caps, log: log}
	return &ChainSet{chains: []*Chain{
		b.nameChain(),
		b.titleChain(),
		b.companyChain(),
		b.departmentChain(),
		b.locationChain(),
		b.phoneChain(),
		b.addressChain(),
	}}
}

// Resolve runs every chain against the message. Returns the per-field signals
// and the number of strategy attempts that failed along the way.
func (s *ChainSet) Resolve(ctx context.Context, msg *domain.RawMessage) (map[domain.Field]domain.Signal, int) {
	fields := make(map[domain.Field]domain.Signal, len(s.chains))
	failures := 0
	for _, c := range s.chains {
		signal, trace := c.Resolve(ctx, msg)
		fields[c.Field] = signal
		failures += trace.Failures
	}
	return fields, failures
}

// =============================================================================
// Chain construction
// =============================================================================

type chainBuilder struct {
	cfg  ChainConfig
	caps *out.Capabilities
	log  zerolog.Logger
}

func (b *chainBuilder) chain(field domain.Field, strategies ...Strategy) *Chain {
	for i := range strategies {
		if strategies[i].Timeout == 0 {
			strategies[i].Timeout = b.cfg.StrategyTimeout
		}
	}
	return NewChain(field, b.cfg.Threshold, b.log, strategies...)
}

func (b *chainBuilder) nameChain() *Chain {
	var strategies []Strategy
	if b.caps.Entities != nil {
		strategies = append(strategies, Strategy{
			Name:   "signature-person",
			Source: domain.SourceSignature,
			Run: func(ctx context.Context, msg *domain.RawMessage) (domain.Signal, error) {
				if msg.Signature == "" {
					return domain.ZeroSignal(), nil
				}
				entities, err := b.caps.Entities.Entities(ctx, msg.Signature)
				if err != nil {
					return domain.ZeroSignal(), err
				}
				for _, e := range entities {
					if e.Kind == out.EntityPerson {
						return domain.NewSignal(e.Text, confNameSignature, domain.SourceSignature), nil
					}
				}
				return domain.ZeroSignal(), nil
			},
		})
	}
	strategies = append(strategies,
		Strategy{
			Name:   "display-name",
			Source: domain.SourceSender,
			Run: func(ctx context.Context, msg *domain.RawMessage) (domain.Signal, error) {
				name := displayName(msg)
				if name == "" {
					return domain.ZeroSignal(), nil
				}
				return domain.NewSignal(name, confNameDisplay, domain.SourceSender), nil
			},
		},
		Strategy{
			Name:   "local-part",
			Source: domain.SourceDomain,
			Run: func(ctx context.Context, msg *domain.RawMessage) (domain.Signal, error) {
				name := humanizeLocalPart(string(msg.Identity()))
				if name == "" {
					return domain.ZeroSignal(), nil
				}
				return domain.NewSignal(name, confNameLocal, domain.SourceDomain), nil
			},
		},
	)
	if b.caps.Contacts != nil {
		strategies = append(strategies, b.llmStrategy(func(c *out.ContactInfo) string { return c.Name }))
	}
	return b.chain(domain.FieldName, strategies...)
}

func (b *chainBuilder) titleChain() *Chain {
	strategies := []Strategy{
		{
			Name:   "signature-scan",
			Source: domain.SourceSignature,
			Run: func(ctx context.Context, msg *domain.RawMessage) (domain.Signal, error) {
				for _, line := range msg.SignatureLines() {
					lower := strings.ToLower(line)
					if word := titleWordIn(lower); word != "" {
						return domain.NewSignal(fullTitle(line, word), confTitleSignature, domain.SourceSignature), nil
					}
				}
				return domain.ZeroSignal(), nil
			},
		},
		{
			Name:   "body-scan",
			Source: domain.SourceBody,
			Run: func(ctx context.Context, msg *domain.RawMessage) (domain.Signal, error) {
				for _, sentence := range sentences(msg.Body) {
					lower := strings.ToLower(sentence)
					if !containsAny(lower, titleIndicators) {
						continue
					}
					if word := titleWordIn(lower); word != "" {
						return domain.NewSignal(fullTitle(sentence, word), confTitleBody, domain.SourceBody), nil
					}
				}
				return domain.ZeroSignal(), nil
			},
		},
	}
	if b.caps.Contacts != nil {
		strategies = append(strategies, b.llmStrategy(func(c *out.ContactInfo) string { return c.Title }))
	}
	return b.chain(domain.FieldTitle, strategies...)
}

func (b *chainBuilder) companyChain() *Chain {
	var strategies []Strategy
	if b.caps.Entities != nil {
		strategies = append(strategies, Strategy{
			Name:   "signature-org",
			Source: domain.SourceSignature,
			Run:    b.orgEntity(func(msg *domain.RawMessage) string { return msg.Signature }, confCompanySignature, domain.SourceSignature),
		})
	}
	strategies = append(strategies, Strategy{
		Name:   "domain-name",
		Source: domain.SourceDomain,
		Run: func(ctx context.Context, msg *domain.RawMessage) (domain.Signal, error) {
			host := msg.Identity().Domain()
			if host == "" || b.cfg.IsPersonalDomain(host) {
				return domain.ZeroSignal(), nil
			}
			label := registeredLabel(host)
			if label == "" {
				return domain.ZeroSignal(), nil
			}
			return domain.NewSignal(titleCase(label), confCompanyDomain, domain.SourceDomain), nil
		},
	})
	if b.caps.Entities != nil {
		strategies = append(strategies, Strategy{
			Name:   "body-org",
			Source: domain.SourceBody,
			Run:    b.orgEntity(func(msg *domain.RawMessage) string { return msg.Body }, confCompanyBody, domain.SourceBody),
		})
	}
	if b.caps.Contacts != nil {
		strategies = append(strategies, b.llmStrategy(func(c *out.ContactInfo) string { return c.Company }))
	}
	return b.chain(domain.FieldCompany, strategies...)
}

func (b *chainBuilder) departmentChain() *Chain {
	return b.chain(domain.FieldDepartment,
		Strategy{
			Name:   "signature-scan",
			Source: domain.SourceSignature,
			Run: func(ctx context.Context, msg *domain.RawMessage) (domain.Signal, error) {
				if dept := departmentIn(msg.Signature); dept != "" {
					return domain.NewSignal(dept, confDeptSignature, domain.SourceSignature), nil
				}
				return domain.ZeroSignal(), nil
			},
		},
		Strategy{
			Name:   "body-scan",
			Source: domain.SourceBody,
			Run: func(ctx context.Context, msg *domain.RawMessage) (domain.Signal, error) {
				if dept := departmentIn(msg.Body); dept != "" {
					return domain.NewSignal(dept, confDeptBody, domain.SourceBody), nil
				}
				return domain.ZeroSignal(), nil
			},
		},
	)
}

func (b *chainBuilder) locationChain() *Chain {
	var strategies []Strategy
	if b.caps.Entities != nil {
		strategies = append(strategies, Strategy{
			Name:   "signature-place",
			Source: domain.SourceSignature,
			Run: func(ctx context.Context, msg *domain.RawMessage) (domain.Signal, error) {
				if msg.Signature == "" {
					return domain.ZeroSignal(), nil
				}
				entities, err := b.caps.Entities.Entities(ctx, msg.Signature)
				if err != nil {
					return domain.ZeroSignal(), err
				}
				for _, e := range entities {
					if e.Kind == out.EntityPlace {
						return domain.NewSignal(e.Text, confLocationSignature, domain.SourceSignature), nil
					}
				}
				return domain.ZeroSignal(), nil
			},
		})
	}
	strategies = append(strategies, Strategy{
		Name:   "domain-tld",
		Source: domain.SourceDomain,
		Run: func(ctx context.Context, msg *domain.RawMessage) (domain.Signal, error) {
			if country, ok := countryTLDs[tldOf(msg.Identity().Domain())]; ok {
				return domain.NewSignal(country, confLocationTLD, domain.SourceDomain), nil
			}
			return domain.ZeroSignal(), nil
		},
	})
	if b.caps.Registry != nil {
		strategies = append(strategies, Strategy{
			Name:   "registry",
			Source: domain.SourceRegistry,
			Run: func(ctx context.Context, msg *domain.RawMessage) (domain.Signal, error) {
				host := msg.Identity().Domain()
				if host == "" || genericTLDs[tldOf(host)] {
					return domain.ZeroSignal(), nil
				}
				if base, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
					host = base
				}
				country, err := b.caps.Registry.RegistrantCountry(ctx, host)
				if err != nil {
					return domain.ZeroSignal(), err
				}
				if country == "" {
					return domain.ZeroSignal(), nil
				}
				return domain.NewSignal(country, confLocationRegistry, domain.SourceRegistry), nil
			},
		})
	}
	if b.caps.Geo != nil {
		strategies = append(strategies, Strategy{
			Name:   "geoip",
			Source: domain.SourceGeoIP,
			Run: func(ctx context.Context, msg *domain.RawMessage) (domain.Signal, error) {
				var lastErr error
				for _, ip := range publicIPs(msg) {
					country, err := b.caps.Geo.Country(ctx, ip)
					if err != nil {
						lastErr = err
						continue
					}
					if country != "" {
						return domain.NewSignal(country, confLocationGeoIP, domain.SourceGeoIP), nil
					}
				}
				return domain.ZeroSignal(), lastErr
			},
		})
	}
	return b.chain(domain.FieldLocation, strategies...)
}

func (b *chainBuilder) phoneChain() *Chain {
	if b.caps.Phones == nil {
		return b.chain(domain.FieldPhone)
	}
	return b.chain(domain.FieldPhone,
		Strategy{
			Name:   "signature-scan",
			Source: domain.SourceSignature,
			Run:    b.firstPhone(func(msg *domain.RawMessage) string { return msg.Signature }, confPhoneSignature, domain.SourceSignature),
		},
		Strategy{
			Name:   "body-scan",
			Source: domain.SourceBody,
			Run:    b.firstPhone(func(msg *domain.RawMessage) string { return msg.Body }, confPhoneBody, domain.SourceBody),
		},
	)
}

func (b *chainBuilder) addressChain() *Chain {
	if b.caps.Addresses == nil {
		return b.chain(domain.FieldAddress)
	}
	return b.chain(domain.FieldAddress,
		Strategy{
			Name:   "signature-scan",
			Source: domain.SourceSignature,
			Run:    b.joinedAddress(func(msg *domain.RawMessage) string { return msg.Signature }, confAddressSignature, domain.SourceSignature),
		},
		Strategy{
			Name:   "body-scan",
			Source: domain.SourceBody,
			Run:    b.joinedAddress(func(msg *domain.RawMessage) string { return msg.Body }, confAddressBody, domain.SourceBody),
		},
	)
}

// =============================================================================
// Shared strategy bodies
// =============================================================================

func (b *chainBuilder) llmStrategy(pick func(*out.ContactInfo) string) Strategy {
	return Strategy{
		Name:   "llm-contact",
		Source: domain.SourceLLM,
		Run: func(ctx context.Context, msg *domain.RawMessage) (domain.Signal, error) {
			info, err := b.caps.Contacts.ExtractContact(ctx, msg.Subject, msg.Body, msg.Signature)
			if err != nil {
				return domain.ZeroSignal(), err
			}
			if info == nil {
				return domain.ZeroSignal(), nil
			}
			value := strings.TrimSpace(pick(info))
			if value == "" {
				return domain.ZeroSignal(), nil
			}
			return domain.NewSignal(value, confLLMContact, domain.SourceLLM), nil
		},
	}
}

func (b *chainBuilder) orgEntity(text func(*domain.RawMessage) string, conf float64, src domain.Source) StrategyFunc {
	return func(ctx context.Context, msg *domain.RawMessage) (domain.Signal, error) {
		t := text(msg)
		if t == "" {
			return domain.ZeroSignal(), nil
		}
		entities, err := b.caps.Entities.Entities(ctx, t)
		if err != nil {
			return domain.ZeroSignal(), err
		}
		for _, e := range entities {
			if e.Kind == out.EntityOrg {
				return domain.NewSignal(e.Text, conf, src), nil
			}
		}
		return domain.ZeroSignal(), nil
	}
}

func (b *chainBuilder) firstPhone(text func(*domain.RawMessage) string, conf float64, src domain.Source) StrategyFunc {
	return func(ctx context.Context, msg *domain.RawMessage) (domain.Signal, error) {
		t := text(msg)
		if t == "" {
			return domain.ZeroSignal(), nil
		}
		phones, err := b.caps.Phones.Phones(ctx, t, b.cfg.PhoneRegion)
		if err != nil {
			return domain.ZeroSignal(), err
		}
		if len(phones) == 0 {
			return domain.ZeroSignal(), nil
		}
		return domain.NewSignal(phones[0], conf, src), nil
	}
}

func (b *chainBuilder) joinedAddress(text func(*domain.RawMessage) string, conf float64, src domain.Source) StrategyFunc {
	return func(ctx context.Context, msg *domain.RawMessage) (domain.Signal, error) {
		t := text(msg)
		if t == "" {
			return domain.ZeroSignal(), nil
		}
		parts, err := b.caps.Addresses.Addresses(ctx, t)
		if err != nil {
			return domain.ZeroSignal(), err
		}
		if len(parts) == 0 {
			return domain.ZeroSignal(), nil
		}
		return domain.NewSignal(strings.Join(parts, ", "), conf, src), nil
	}
}

// =============================================================================
// Text helpers
// =============================================================================

// displayName takes the parsed display name, or falls back to the quoted
// prefix of the raw From header. Anything containing '@' is an address, not
// a name.
func displayName(msg *domain.RawMessage) string {
	name := strings.TrimSpace(msg.FromName)
	if name == "" {
		if m := displayNameRe.FindStringSubmatch(msg.From); len(m) > 1 {
			name = strings.TrimSpace(m[1])
		}
	}
	if name == "" || strings.ContainsRune(name, '@') {
		return ""
	}
	return name
}

// humanizeLocalPart turns "jane.doe" into "Jane Doe". Local parts without
// letters yield nothing.
func humanizeLocalPart(identity string) string {
	local, _, found := strings.Cut(identity, "@")
	if !found || local == "" {
		return ""
	}
	spaced := strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	if !strings.ContainsFunc(spaced, func(r rune) bool { return r >= 'a' && r <= 'z' }) {
		return ""
	}
	return titleCase(spaced)
}

// registeredLabel returns the organisation label of a host:
// "mail.acme.co.uk" yields "acme".
func registeredLabel(host string) string {
	base, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		base = host
	}
	label, _, _ := strings.Cut(base, ".")
	return label
}

// tldOf returns the final label of a host, lowercased.
func tldOf(host string) string {
	if host == "" {
		return ""
	}
	labels := strings.Split(host, ".")
	return strings.ToLower(labels[len(labels)-1])
}

// publicIPs scans the transport headers for routable IPv4 addresses, in
// header order, deduplicated.
func publicIPs(msg *domain.RawMessage) []string {
	var ips []string
	seen := map[string]bool{}
	for _, header := range ipHeaders {
		for _, raw := range ipRe.FindAllString(msg.Header(header), -1) {
			addr, err := netip.ParseAddr(raw)
			if err != nil {
				continue
			}
			if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
				continue
			}
			if seen[raw] {
				continue
			}
			seen[raw] = true
			ips = append(ips, raw)
		}
	}
	return ips
}

func sentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
