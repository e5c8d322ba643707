package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"ConsentCrawl/internal/models"

	"github.com/joho/godotenv"
)

// Cache backends accepted by CACHE_TYPE
const (
	CacheTypeFile   = "file"
	CacheTypeMemory = "memory"
	CacheTypeRedis  = "redis"
)

type Config struct {
	// Crawl
	BatchSize         int
	Headless          bool
	Screenshot        bool
	ScreenshotDir     string
	BrowserBin        string
	NavigationTimeout time.Duration
	ConsentTimeout    time.Duration
	SettleDelay       time.Duration
	ConsentWait       time.Duration
	ResultsFile       string
	DatabaseURL       string

	// Catalogs
	ConsentRulesFile string
	BlocklistsFile   string

	// Blocklists
	MaxBlocklistAgeDays    int
	ForceBlocklistRefresh  bool
	BlocklistRetentionDays int
	FetchTimeoutSeconds    int
	FetchRetries           int

	// Cache
	CacheType string
	CacheDir  string
	RedisURL  string

	// Logging
	LogLevel       string
	LogEncoding    string
	LogDatabaseURL string

	// Server
	Port                  string
	RateLimitPerSec       float64
	RateLimitBurst        int
	ServerReadTimeout     time.Duration
	ServerWriteTimeout    time.Duration
	ServerShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists (optional)
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Error loading .env file: %v", err)
	}

	return &Config{
		BatchSize:         getIntEnv("BATCH_SIZE", 15),
		Headless:          getBoolEnv("HEADLESS", true),
		Screenshot:        getBoolEnv("SCREENSHOT", false),
		ScreenshotDir:     getEnv("SCREENSHOT_DIR", "screenshots"),
		BrowserBin:        getEnv("BROWSER_BIN", ""),
		NavigationTimeout: getDurationEnv("NAVIGATION_TIMEOUT", 90*time.Second),
		ConsentTimeout:    getDurationEnv("CONSENT_TIMEOUT", 15*time.Second),
		SettleDelay:       getMillisEnv("SETTLE_DELAY_MS", 2000*time.Millisecond),
		ConsentWait:       getMillisEnv("CONSENT_WAIT_MS", 5000*time.Millisecond),
		ResultsFile:       getEnv("RESULTS_FILE", "crawl_results.jsonl"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),

		ConsentRulesFile: getEnv("CONSENT_RULES_FILE", ""),
		BlocklistsFile:   getEnv("BLOCKLISTS_FILE", ""),

		MaxBlocklistAgeDays:    getIntEnv("MAX_BLOCKLIST_AGE_DAYS", 7),
		ForceBlocklistRefresh:  getBoolEnv("FORCE_BLOCKLIST_REFRESH", false),
		BlocklistRetentionDays: getIntEnv("BLOCKLIST_RETENTION_DAYS", 90),
		FetchTimeoutSeconds:    getIntEnv("FETCH_TIMEOUT_SECONDS", 30),
		FetchRetries:           getIntEnv("FETCH_RETRIES", 3),

		CacheType: getEnv("CACHE_TYPE", CacheTypeFile),
		CacheDir:  getEnv("CACHE_DIR", "data"),
		RedisURL:  getEnv("REDIS_URL", "redis://localhost:6379"),

		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogEncoding:    getEnv("LOG_ENCODING", "console"),
		LogDatabaseURL: getEnv("LOG_DATABASE_URL", ""),

		Port:                  getEnv("PORT", "8080"),
		RateLimitPerSec:       getFloatEnv("RATE_LIMIT_PER_SEC", 2),
		RateLimitBurst:        getIntEnv("RATE_LIMIT_BURST", 4),
		ServerReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
		ServerWriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Minute),
		ServerShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// Validate reports the first invalid option as a models.ErrConfig
func (c *Config) Validate() error {
	switch {
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size must be positive, got %d", models.ErrConfig, c.BatchSize)
	case c.MaxBlocklistAgeDays < 0:
		return fmt.Errorf("%w: max blocklist age must not be negative, got %d", models.ErrConfig, c.MaxBlocklistAgeDays)
	case c.BlocklistRetentionDays <= 0:
		return fmt.Errorf("%w: blocklist retention must be positive, got %d", models.ErrConfig, c.BlocklistRetentionDays)
	case c.NavigationTimeout <= 0 || c.ConsentTimeout <= 0:
		return fmt.Errorf("%w: timeouts must be positive", models.ErrConfig)
	case c.SettleDelay < 0 || c.ConsentWait < 0:
		return fmt.Errorf("%w: delays must not be negative", models.ErrConfig)
	case c.RateLimitPerSec <= 0 || c.RateLimitBurst <= 0:
		return fmt.Errorf("%w: rate limit must be positive", models.ErrConfig)
	}

	switch c.CacheType {
	case CacheTypeFile:
		if c.CacheDir == "" {
			return fmt.Errorf("%w: CACHE_DIR is required for the file cache", models.ErrConfig)
		}
	case CacheTypeMemory:
	case CacheTypeRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: REDIS_URL is required for the redis cache", models.ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown cache type %q", models.ErrConfig, c.CacheType)
	}

	return nil
}

// BlocklistRetention is how long a persisted blocklist snapshot is kept
func (c *Config) BlocklistRetention() time.Duration {
	return time.Duration(c.BlocklistRetentionDays) * 24 * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getBoolEnv accepts yes/no, y/n, true/false, t/f and 1/0 in any case
func getBoolEnv(key string, defaultValue bool) bool {
	value, ok := ParseBool(os.Getenv(key))
	if !ok {
		return defaultValue
	}
	return value
}

// ParseBool parses the boolean spellings accepted on the command line and in the environment
func ParseBool(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "y", "true", "t", "1":
		return true, true
	case "no", "n", "false", "f", "0":
		return false, true
	}
	return false, false
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return time.Duration(intVal) * time.Second
		}
	}
	return defaultValue
}

func getMillisEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return time.Duration(intVal) * time.Millisecond
		}
	}
	return defaultValue
}
