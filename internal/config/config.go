package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/utils"
)

// Storage backends for the session keys.
const (
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

type Config struct {
	// Backend API
	APIURL      string        // ex: "https://api.example.com"
	RefreshPath string        // token refresh endpoint, relative to APIURL
	HTTPTimeout time.Duration // per backend call

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Session
	Profile           string        // isolates stored sessions, ex: "default", "work"
	Storage           string        // file | redis | sqlite | memory
	StoragePath       string        // file or sqlite path, empty = default location
	StoragePassphrase string        // encrypts the file backend when set
	SessionTimeout    time.Duration // inactivity before forced logout
	RefreshThrottle   time.Duration // minimum gap between token refreshes
	OrderedResponses  bool          // drop out-of-order bookmark responses

	// Local server
	ListenAddr         string        // ex: "127.0.0.1:8080"
	ShutdownTimeout    time.Duration // ex: 5s
	RequestTimeout     time.Duration // per HTTP request handled by the server
	NotificationBuffer int           // notifications kept for /api/notifications
	AuthBurst          int           // login attempts allowed at once per client
	AuthRefillPerMin   int           // login attempts regained per minute

	// Background jobs
	SyncInterval     time.Duration // bookmark refetch, 0 = disabled
	HomepageFile     string        // Homepage bookmarks.yaml or services.yaml, empty = disabled
	HomepageFormat   string        // auto | bookmarks | services
	HomepageInterval time.Duration // how often the file is checked for changes

	// Redis
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts
	RedisKeyTTL         time.Duration // expiry of stored session keys, 0 = none

	AllowedHosts   []string // optional, restrict access to specific Host headers
	AllowedCIDRS   []string // optional, restrict infra endpoints to specific IPs
	AllowedOrigins []string // browser origins allowed by CORS
	TrustProxy     bool     // true => trust X-Forwarded-For headers
}

// Load reads the SHELF_* environment. It never fails: missing or
// malformed values fall back to defaults and Validate reports what is
// still unusable.
func Load() *Config {
	return &Config{
		APIURL:      getenv("SHELF_API_URL", ""),
		RefreshPath: getenv("SHELF_REFRESH_PATH", "/auth/refresh"),
		HTTPTimeout: mustDuration("SHELF_HTTP_TIMEOUT", 15*time.Second),

		LogLevel:  getenv("SHELF_LOG_LEVEL", "warn"),
		PrettyLog: mustBool("SHELF_PRETTY_LOG", true),

		Profile:           getenv("SHELF_PROFILE", "default"),
		Storage:           strings.ToLower(getenv("SHELF_STORAGE", StorageFile)),
		StoragePath:       getenv("SHELF_STORAGE_PATH", ""),
		StoragePassphrase: getenv("SHELF_STORAGE_PASSPHRASE", ""),
		SessionTimeout:    mustDuration("SHELF_SESSION_TIMEOUT", 30*time.Minute),
		RefreshThrottle:   mustDuration("SHELF_REFRESH_THROTTLE", 5*time.Minute),
		OrderedResponses:  mustBool("SHELF_ORDERED_RESPONSES", false),

		ListenAddr:         getenv("SHELF_LISTEN_ADDR", "127.0.0.1:8080"),
		ShutdownTimeout:    mustDuration("SHELF_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:     mustDuration("SHELF_REQUEST_TIMEOUT", 30*time.Second),
		NotificationBuffer: getenvInt("SHELF_NOTIFICATION_BUFFER", 50),
		AuthBurst:          getenvInt("SHELF_AUTH_BURST", 10),
		AuthRefillPerMin:   getenvInt("SHELF_AUTH_REFILL_PER_MIN", 10),

		SyncInterval:     mustDuration("SHELF_SYNC_INTERVAL", 10*time.Minute),
		HomepageFile:     getenv("SHELF_HOMEPAGE_FILE", ""),
		HomepageFormat:   getenv("SHELF_HOMEPAGE_FORMAT", "auto"),
		HomepageInterval: mustDuration("SHELF_HOMEPAGE_INTERVAL", 5*time.Minute),

		RedisAddr:           getenv("SHELF_REDIS_ADDR", "localhost:6379"),
		RedisUser:           getenv("SHELF_REDIS_USERNAME", ""),
		RedisPassword:       getenv("SHELF_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("SHELF_REDIS_DB", 0),
		RedisDT:             mustDuration("SHELF_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("SHELF_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("SHELF_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("SHELF_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("SHELF_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("SHELF_REDIS_POOL_SIZE", 4),
		RedisConnectTimeout: mustDuration("SHELF_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("SHELF_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("SHELF_REDIS_WARN_THRESHOLD", 3),
		RedisKeyTTL:         mustDuration("SHELF_REDIS_KEY_TTL", 0),

		AllowedHosts:   splitAndTrim(getenv("SHELF_ALLOWED_HOSTS", "")),
		AllowedCIDRS:   parseAllowedIPs(getenv("SHELF_ALLOWED_CIDRS", strings.Join(utils.LoopbackCIDRs, ","))),
		AllowedOrigins: splitAndTrim(getenv("SHELF_ALLOWED_ORIGINS", "")),
		TrustProxy:     mustBool("SHELF_TRUST_PROXY", false),
	}
}

// Validate checks what Load cannot default.
func (c *Config) Validate() error {
	var errs []error
	if c.APIURL == "" {
		errs = append(errs, errors.New("SHELF_API_URL is required"))
	} else if u, err := url.Parse(c.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("SHELF_API_URL %q is not an http(s) URL", c.APIURL))
	}
	switch c.Storage {
	case StorageFile, StorageRedis, StorageSQLite, StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("SHELF_STORAGE %q is not one of file, redis, sqlite, memory", c.Storage))
	}
	if c.Profile == "" || strings.ContainsAny(c.Profile, `/\:`) {
		errs = append(errs, fmt.Errorf("SHELF_PROFILE %q is not a valid profile name", c.Profile))
	}
	if c.SessionTimeout <= 0 {
		errs = append(errs, errors.New("SHELF_SESSION_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.RedisPassword != "" {
		c.RedisPassword = "***REDACTED***"
	}
	if c.RedisUser != "" {
		c.RedisUser = "***REDACTED***"
	}
	if c.StoragePassphrase != "" {
		c.StoragePassphrase = "***REDACTED***"
	}
	return c
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
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

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
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
