package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"mailprofiler/pkg/apperr"
)

const maxWorkers = 32

type Config struct {
	Environment string
	Port        string

	// Input
	InputDir string
	MboxPath string

	// Output
	CSVPath  string
	JSONPath string

	// Pipeline
	Workers         int
	StrategyTimeout time.Duration

	// Rules
	RulesPath string

	// Logging
	LogLevel string
	LogFile  string

	// Redis (optional lookup cache)
	RedisURL  string
	LookupTTL time.Duration

	// OpenAI (optional contact extraction)
	OpenAIAPIKey   string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeout     time.Duration

	// External lookups
	GeoEnabled    bool
	GeoAPIURL     string
	GeoRatePerMin int
	WhoisEnabled  bool
	LookupTimeout time.Duration

	// Serve mode
	AllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		Port:        getEnv("PORT", "8080"),

		// Input
		InputDir: getEnv("INPUT_DIR", ""),
		MboxPath: getEnv("MBOX_PATH", ""),

		// Output
		CSVPath:  getEnv("CSV_PATH", "profiles.csv"),
		JSONPath: getEnv("JSON_PATH", ""),

		// Pipeline
		Workers:         getEnvInt("WORKERS", runtime.NumCPU()),
		StrategyTimeout: time.Duration(getEnvInt("STRATEGY_TIMEOUT_MS", 5000)) * time.Millisecond,

		// Rules
		RulesPath: getEnv("RULES_PATH", ""),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		// Redis
		RedisURL:  getEnv("REDIS_URL", ""),
		LookupTTL: time.Duration(getEnvInt("LOOKUP_TTL_HOUR", 24)) * time.Hour,

		// OpenAI
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 512),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.0),
		LLMTimeout:     time.Duration(getEnvInt("LLM_TIMEOUT_SEC", 20)) * time.Second,

		// External lookups
		GeoEnabled:    getEnvBool("GEO_ENABLED", false),
		GeoAPIURL:     getEnv("GEO_API_URL", "http://ip-api.com/json"),
		GeoRatePerMin: getEnvInt("GEO_RATE_PER_MIN", 40),
		WhoisEnabled:  getEnvBool("WHOIS_ENABLED", false),
		LookupTimeout: time.Duration(getEnvInt("LOOKUP_TIMEOUT_MS", 3000)) * time.Millisecond,

		// Serve mode
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	if cfg.Workers < 1 {
		return nil, apperr.ConfigError("WORKERS", "must be at least 1")
	}
	if cfg.Workers > maxWorkers {
		cfg.Workers = maxWorkers
	}
	if cfg.StrategyTimeout <= 0 {
		return nil, apperr.ConfigError("STRATEGY_TIMEOUT_MS", "must be positive")
	}
	if cfg.GeoRatePerMin < 1 {
		return nil, apperr.ConfigError("GEO_RATE_PER_MIN", "must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
