// Package geo resolves origin countries from network evidence: ip-api.com
// for public addresses lifted out of Received headers, and WHOIS registrant
// records for sender domains. Both lookups cache their answers, including
// conclusive misses, and run behind circuit breakers so a degraded upstream
// cannot stall a profiling run.
package geo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"mailprofiler/core/port/out"
	"mailprofiler/pkg/httputil"
	"mailprofiler/pkg/logger"
	"mailprofiler/pkg/ratelimit"
)

// =============================================================================
// Configuration
// =============================================================================

const (
	defaultBaseURL  = "http://ip-api.com/json"
	defaultPerMin   = 45 // ip-api free tier allowance
	defaultGeoTTL   = 24 * time.Hour
	maxResponseSize = 1 << 16
)

// Config holds ip-api client configuration. Zero values select the free-tier
// defaults.
type Config struct {
	BaseURL        string
	RequestsPerMin int
	CacheTTL       time.Duration
}

// =============================================================================
// IP Geolocation Client
// =============================================================================

// Client implements out.Geolocator against the ip-api.com JSON endpoint.
type Client struct {
	client   *http.Client
	baseURL  string
	limiter  *ratelimit.Bucket
	cb       *gobreaker.CircuitBreaker
	cache    out.LookupCache
	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewClient creates an ip-api client backed by the given lookup cache.
func NewClient(cfg Config, cache out.LookupCache) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.RequestsPerMin <= 0 {
		cfg.RequestsPerMin = defaultPerMin
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultGeoTTL
	}

	log := logger.Component("geo")
	return &Client{
		client:   httputil.NewClient(httputil.GeoAPIConfig()),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		limiter:  ratelimit.NewBucket(cfg.RequestsPerMin, time.Minute),
		cb:       newBreaker("ip-api", log),
		cache:    cache,
		cacheTTL: cfg.CacheTTL,
		log:      log,
	}
}

// ipAPIResponse is the subset of the ip-api payload the profiler reads.
type ipAPIResponse struct {
	Status  string `json:"status"`
	Country string `json:"country"`
	Message string `json:"message"`
}

// Country resolves the country name for a public IP address. Private,
// loopback, and otherwise non-routable addresses resolve to "" without a
// network call, as do addresses the API reports as unlocatable. Both
// outcomes are cached so repeat addresses never burn quota.
func (c *Client) Country(ctx context.Context, ip string) (string, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil || !routable(addr) {
		return "", nil
	}

	key := "geo:ip:" + addr.String()
	var cached string
	if found, err := c.cache.GetJSON(ctx, key, &cached); err == nil && found {
		return cached, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	v, err := c.cb.Execute(func() (interface{}, error) {
		return c.fetch(ctx, addr.String())
	})
	if err != nil {
		return "", err
	}
	resp := v.(*ipAPIResponse)

	country := ""
	if resp.Status == "success" {
		country = strings.TrimSpace(resp.Country)
	} else {
		c.log.Debug().
			Str("ip", addr.String()).
			Str("reason", resp.Message).
			Msg("ip-api lookup returned no location")
	}

	if err := c.cache.SetJSON(ctx, key, country, c.cacheTTL); err != nil {
		c.log.Debug().Err(err).Str("ip", addr.String()).Msg("geolocation cache write failed")
	}
	return country, nil
}

func (c *Client) fetch(ctx context.Context, ip string) (*ipAPIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+ip, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ip-api: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}

	var parsed ipAPIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("ip-api: decode response: %w", err)
	}
	return &parsed, nil
}

// routable reports whether addr is worth asking the API about.
func routable(addr netip.Addr) bool {
	return addr.IsValid() &&
		addr.IsGlobalUnicast() &&
		!addr.IsPrivate()
}

// =============================================================================
// Circuit Breaker
// =============================================================================

// newBreaker builds a breaker with the trip policy both geo lookups use:
// open on sustained failure, recover through a half-open probe.
func newBreaker(name string, log zerolog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
}
