// Package llm implements the optional ContactExtractor port on the OpenAI
// chat API. It is wired only when an API key is configured; without it the
// chains simply skip their language-model strategy.
package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"mailprofiler/core/port/out"
	"mailprofiler/pkg/logger"
)

const DefaultModel = "gpt-4o-mini"

const contactPrompt = `You are a contact information extraction AI. Extract the sender's details from the email signature or body.

Respond with this exact JSON format:
{
  "name": "full name",
  "title": "job title",
  "company": "company name",
  "phone": "phone number"
}

Use an empty string for any field that cannot be determined.`

type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	CacheTTL    time.Duration
}

// Extractor asks a chat model for the sender's contact card. Three chains
// share one message, so results are memoized by input hash; with the cache
// wired a message costs at most one API call.
type Extractor struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	cache       out.LookupCache
	cacheTTL    time.Duration
	cb          *gobreaker.CircuitBreaker
	log         zerolog.Logger
}

func NewExtractor(cfg Config, cache out.LookupCache) *Extractor {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 256
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 30 * 24 * time.Hour
	}
	log := logger.Component("llm")
	return &Extractor{
		client:      openai.NewClient(cfg.APIKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: float32(cfg.Temperature),
		cache:       cache,
		cacheTTL:    ttl,
		cb:          newBreaker(log),
		log:         log,
	}
}

// newBreaker guards the chat API with the trip policy the outbound lookup
// adapters share: open on sustained failure, recover through a half-open
// probe. While open, chains fall back to their heuristic strategies.
func newBreaker(log zerolog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openai-contact",
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

// ExtractContact implements out.ContactExtractor.
func (e *Extractor) ExtractContact(ctx context.Context, subject, body, signature string) (*out.ContactInfo, error) {
	key := contactKey(subject, body, signature)
	if e.cache != nil {
		var cached out.ContactInfo
		if ok, err := e.cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	userPrompt := fmt.Sprintf("Subject: %s\n\nBody:\n%s\n\nSignature:\n%s",
		subject, truncate(body, 1000), signature)

	v, err := e.cb.Execute(func() (interface{}, error) {
		resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       e.model,
			MaxTokens:   e.maxTokens,
			Temperature: e.temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: contactPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("empty completion")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return nil, err
	}

	info, err := parseContact(v.(string))
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		if err := e.cache.SetJSON(ctx, key, info, e.cacheTTL); err != nil {
			e.log.Debug().Err(err).Msg("contact cache write failed")
		}
	}
	return info, nil
}

// parseContact tolerates fenced output from models that ignore JSON mode.
func parseContact(raw string) (*out.ContactInfo, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	raw = strings.TrimSpace(raw)

	var info out.ContactInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, fmt.Errorf("parse contact response: %w", err)
	}
	return &info, nil
}

func contactKey(subject, body, signature string) string {
	sum := sha256.Sum256([]byte(subject + "\x00" + body + "\x00" + signature))
	return "contact:" + hex.EncodeToString(sum[:8])
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
