package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // whole-request budget, ex: 60s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Outline endpoint. SettingsFile, when set, takes precedence and is re-read on every clip.
	OutlineURL     string
	OutlineToken   string
	SettingsFile   string
	CollectionName string // name used when the clippings collection is first created

	// Transport
	FetchTimeout   time.Duration // per-attempt timeout (default: 8s)
	MaxRetries     int           // retries after the first attempt (default: 3, 0 disables)
	InitialBackoff time.Duration // first backoff, doubled per retry (default: 500ms)

	Store         string        // "redis" | "memory"
	AuditInterval time.Duration // folder audit period, 0 disables

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts   []string // optional, restrict access to specific Host headers
	AllowedCIDRS   []string // optional, restrict access to specific IPs or CIDRs
	TrustProxy     bool     // true => trust X-Forwarded-For headers
	AllowedOrigins []string // CORS origins, ex: "chrome-extension://abcdef"
	RateBurst      int      // /clip burst per client IP
	RatePerMin     int      // /clip refill per client IP per minute
}

func Load() *Config {
	cfg := &Config{
		ListenPort:      getenv("CLIP_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("CLIP_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("CLIP_REQUEST_TIMEOUT", 60*time.Second),

		LogLevel:  getenv("CLIP_LOG_LEVEL", "info"),
		PrettyLog: mustBool("CLIP_PRETTY_LOG", true),

		OutlineURL:     getenv("CLIP_OUTLINE_URL", ""),
		OutlineToken:   getenv("CLIP_OUTLINE_TOKEN", ""),
		SettingsFile:   getenv("CLIP_SETTINGS_FILE", ""),
		CollectionName: getenv("CLIP_COLLECTION_NAME", "Chrome Clippings"),

		FetchTimeout:   mustDuration("CLIP_FETCH_TIMEOUT", 8*time.Second),
		MaxRetries:     getenvInt("CLIP_MAX_RETRIES", 3),
		InitialBackoff: mustDuration("CLIP_INITIAL_BACKOFF", 500*time.Millisecond),

		Store:         strings.ToLower(getenv("CLIP_STORE", StoreRedis)),
		AuditInterval: mustDuration("CLIP_AUDIT_INTERVAL", 0),

		AllowedHosts:   splitAndTrim(getenv("CLIP_ALLOWED_HOSTS", "")),
		AllowedCIDRS:   splitAndTrim(getenv("CLIP_ALLOWED_CIDRS", "")),
		TrustProxy:     mustBool("CLIP_TRUST_PROXY", false),
		AllowedOrigins: splitAndTrim(getenv("CLIP_ALLOWED_ORIGINS", "")),
		RateBurst:      getenvInt("CLIP_RATE_BURST", 10),
		RatePerMin:     getenvInt("CLIP_RATE_PER_MIN", 30),
	}

	switch cfg.Store {
	case StoreRedis:
		loadRedis(cfg)
	case StoreMemory:
	default:
		panic(fmt.Sprintf("❌ FATAL: CLIP_STORE must be %q or %q, got %q", StoreRedis, StoreMemory, cfg.Store))
	}

	if cfg.MaxRetries < 0 {
		panic(fmt.Sprintf("❌ FATAL: CLIP_MAX_RETRIES must be >= 0, got %d", cfg.MaxRetries))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

func loadRedis(cfg *Config) {
	cfg.RedisAddr = requireEnv("CLIP_REDIS_ADDR")
	cfg.RedisUser = getenv("CLIP_REDIS_USERNAME", "default")
	cfg.RedisPasswordRequired = mustBool("CLIP_REDIS_PASSWORD_REQUIRED", true)
	cfg.RedisPassword = getenv("CLIP_REDIS_PASSWORD", "")
	cfg.RedisDB = getenvInt("CLIP_REDIS_DB", 0)
	cfg.RedisDT = mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second)
	cfg.RedisRT = mustDuration("REDIS_READ_TIMEOUT", 3*time.Second)
	cfg.RedisWT = mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second)
	cfg.RedisMaxWait = mustDuration("REDIS_MAX_WAIT", 10*time.Second)
	cfg.RedisPingTimeout = mustDuration("REDIS_PING_TIMEOUT", 5*time.Second)
	cfg.RedisPoolSize = getenvInt("REDIS_POOL_SIZE", 10)
	cfg.RedisConnectTimeout = mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second)
	cfg.RedisRetryInterval = mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second)
	cfg.RedisWarnThreshold = getenvInt("REDIS_WARN_THRESHOLD", 3)

	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: CLIP_REDIS_PASSWORD is required when CLIP_REDIS_PASSWORD_REQUIRED=true")
	}
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.RedisPassword != "" {
		cp.RedisPassword = "***REDACTED***"
	}
	if cp.OutlineToken != "" {
		cp.OutlineToken = "***REDACTED***"
	}
	return cp
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
