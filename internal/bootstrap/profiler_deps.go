// Package bootstrap wires configuration, adapters, and services into a
// runnable application.
package bootstrap

import (
	"context"

	"github.com/redis/go-redis/v9"

	"mailprofiler/adapter/in/mailbox"
	"mailprofiler/adapter/out/geo"
	"mailprofiler/adapter/out/llm"
	"mailprofiler/adapter/out/nlp"
	"mailprofiler/config"
	"mailprofiler/core/domain"
	"mailprofiler/core/port/out"
	"mailprofiler/core/service/classification"
	"mailprofiler/core/service/consolidation"
	"mailprofiler/core/service/extraction"
	"mailprofiler/core/service/pipeline"
	"mailprofiler/infra/database"
	"mailprofiler/pkg/cache"
	"mailprofiler/pkg/logger"
	"mailprofiler/pkg/metrics"
)

// memoryCacheSize bounds the in-process lookup cache when Redis is absent.
const memoryCacheSize = 10000

// Dependencies is the wired object graph shared by the analyze and serve
// commands.
type Dependencies struct {
	Config *config.Config
	Rules  *config.Rules

	// Backends
	Redis      *redis.Client
	Cache      out.LookupCache
	RedisCache *cache.Redis // non-nil only when Cache is Redis-backed

	// Analyzers
	Capabilities *out.Capabilities

	// Services
	Classifier   *classification.Classifier
	Extractor    *extraction.Extractor
	Consolidator *consolidation.Consolidator
	Pipeline     *pipeline.Pipeline

	// Ingest
	Loader *mailbox.Loader
}

// NewDependencies builds the object graph. Optional backends degrade
// gracefully: a missing Redis falls back to the in-process cache, lookups
// and LLM extraction stay disabled unless configured.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()
	log := logger.Component("bootstrap")

	// Rules
	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		return nil, nil, err
	}
	deps.Rules = rules

	// Lookup cache: Redis when configured and reachable, in-process
	// otherwise.
	if cfg.RedisURL != "" {
		client, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using in-process cache")
		} else {
			deps.Redis = client
			cleanups = append(cleanups, func() { client.Close() })

			deps.RedisCache = cache.NewRedis(client)
			deps.Cache = deps.RedisCache
			log.Info().Msg("redis lookup cache connected")
		}
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemory(memoryCacheSize)
	}

	// Analyzers: heuristics always, network lookups only when enabled.
	caps := nlp.NewCapabilities()
	if cfg.GeoEnabled {
		caps.Geo = geo.NewClient(geo.Config{
			BaseURL:        cfg.GeoAPIURL,
			RequestsPerMin: cfg.GeoRatePerMin,
			CacheTTL:       cfg.LookupTTL,
		}, deps.Cache)
		log.Info().Str("url", cfg.GeoAPIURL).Msg("geolocation lookups enabled")
	}
	if cfg.WhoisEnabled {
		caps.Registry = geo.NewWhoisClient(geo.WhoisConfig{
			Timeout: cfg.LookupTimeout,
		}, deps.Cache)
		log.Info().Msg("whois lookups enabled")
	}
	if cfg.OpenAIAPIKey != "" {
		caps.Contacts = llm.NewExtractor(llm.Config{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
			CacheTTL:    cfg.LookupTTL,
		}, deps.Cache)
		log.Info().Str("model", cfg.LLMModel).Msg("llm contact extraction enabled")
	}
	deps.Capabilities = caps

	// Classifier
	classifier, err := classification.New(classifierConfig(rules))
	if err != nil {
		return nil, nil, err
	}
	deps.Classifier = classifier

	// Extractor
	extCfg := extraction.DefaultConfig()
	extCfg.Threshold = rules.HighConfidenceThreshold
	extCfg.StrategyTimeout = cfg.StrategyTimeout
	extCfg.BusinessStart = rules.BusinessHours.Start
	extCfg.BusinessEnd = rules.BusinessHours.End
	extCfg.IsPersonalDomain = rules.IsPersonalDomain
	deps.Extractor = extraction.NewExtractor(extCfg, classifier, caps, logger.Component("extract"))

	// Consolidator
	deps.Consolidator = consolidation.New(consolidation.Config{
		SentimentPriority: rules.SentimentPriority,
	}, logger.Component("consolidate"))

	// Pipeline
	pipeCfg := pipeline.DefaultConfig()
	pipeCfg.Workers = cfg.Workers
	deps.Pipeline = pipeline.New(
		pipeCfg,
		deps.Extractor,
		deps.Consolidator,
		metrics.NewStageRegistry(1000),
		logger.Component("pipeline"),
	)

	// Ingest
	deps.Loader = mailbox.NewLoader()

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	return deps, cleanup, nil
}

// HealthCheck pings the optional backends.
func (d *Dependencies) HealthCheck(ctx context.Context) error {
	if d.Redis != nil {
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}

// classifierConfig maps the loaded rule set onto the classifier knobs.
func classifierConfig(rules *config.Rules) classification.Config {
	patterns := make(map[domain.Category][]classification.PatternWeight, len(rules.Categories))
	for category, list := range rules.Categories {
		rows := make([]classification.PatternWeight, 0, len(list))
		for _, pw := range list {
			rows = append(rows, classification.PatternWeight{
				Pattern: pw.Pattern,
				Weight:  pw.Weight,
				Label:   pw.Label,
			})
		}
		patterns[category] = rows
	}

	adj := rules.Adjustments
	return classification.Config{
		Patterns:            patterns,
		BulkHeaderBonus:     adj.BulkHeaders,
		NoReplyBonus:        adj.NoReplySender,
		SignatureBlockBonus: adj.SignatureBlock,
		TitleMarkerBonus:    adj.TitleMarker,
		UrgentSubjectBonus:  adj.UrgentSubject,
		ShortBodyBonus:      adj.ShortBody,
		LongBodyBonus:       adj.LongBody,
		SignatureLines:      adj.SignatureLines,
		ShortBodyWords:      adj.ShortBodyWords,
		LongBodyWords:       adj.LongBodyWords,
	}
}
