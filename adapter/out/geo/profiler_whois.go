package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"mailprofiler/core/port/out"
	"mailprofiler/pkg/logger"
)

// =============================================================================
// WHOIS Registrant Lookup
// =============================================================================

const (
	defaultWhoisTimeout = 10 * time.Second
	defaultWhoisTTL     = 7 * 24 * time.Hour
)

// WhoisConfig holds WHOIS client configuration. Zero values select defaults.
type WhoisConfig struct {
	Timeout  time.Duration
	CacheTTL time.Duration
}

// WhoisClient implements out.RegistryLookup over port-43 WHOIS queries.
type WhoisClient struct {
	cb       *gobreaker.CircuitBreaker
	cache    out.LookupCache
	timeout  time.Duration
	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewWhoisClient creates a WHOIS lookup backed by the given cache.
func NewWhoisClient(cfg WhoisConfig, cache out.LookupCache) *WhoisClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultWhoisTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultWhoisTTL
	}

	log := logger.Component("whois")
	return &WhoisClient{
		cb:       newBreaker("whois", log),
		cache:    cache,
		timeout:  cfg.Timeout,
		cacheTTL: cfg.CacheTTL,
		log:      log,
	}
}

// RegistrantCountry resolves the registrant country recorded for a domain.
// Domains without a usable record, including privacy-redacted and unregistered
// ones, resolve to "". Registrant countries come back as the registry wrote
// them, so both "US" and "UNITED STATES" style values occur.
func (w *WhoisClient) RegistrantCountry(ctx context.Context, domain string) (string, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return "", nil
	}

	key := "geo:whois:" + domain
	var cached string
	if found, err := w.cache.GetJSON(ctx, key, &cached); err == nil && found {
		return cached, nil
	}

	raw, err := w.query(ctx, domain)
	if err != nil {
		return "", err
	}

	country, err := registrantCountry(raw)
	if err != nil {
		// Registry throttling: leave uncached so a later run can retry.
		return "", err
	}

	if err := w.cache.SetJSON(ctx, key, country, w.cacheTTL); err != nil {
		w.log.Debug().Err(err).Str("domain", domain).Msg("whois cache write failed")
	}
	return country, nil
}

// query fetches the raw WHOIS record under the circuit breaker. The whois
// library takes no context, so the call runs in a goroutine and is abandoned
// once the per-query budget elapses.
func (w *WhoisClient) query(ctx context.Context, domain string) (string, error) {
	v, err := w.cb.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, w.timeout)
		defer cancel()

		type answer struct {
			raw string
			err error
		}
		ch := make(chan answer, 1)
		go func() {
			raw, err := whois.Whois(domain)
			ch <- answer{raw: raw, err: err}
		}()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.err != nil {
				return nil, fmt.Errorf("whois %s: %w", domain, res.err)
			}
			return res.raw, nil
		}
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// registrantCountry pulls the registrant country out of a raw WHOIS record.
// Records that conclusively carry no registrant (unregistered, reserved,
// redacted) yield "" rather than an error.
func registrantCountry(raw string) (string, error) {
	info, err := whoisparser.Parse(raw)
	switch {
	case err == nil:
	case errors.Is(err, whoisparser.ErrDomainLimitExceed):
		return "", errors.New("whois: registry query limit exceeded")
	default:
		return "", nil
	}

	if info.Registrant == nil {
		return "", nil
	}
	return strings.TrimSpace(info.Registrant.Country), nil
}
