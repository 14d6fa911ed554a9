package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SHELF_API_URL", "https://api.example.com")

	cfg := Load()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Storage != StorageFile || cfg.Profile != "default" {
		t.Errorf("storage/profile = %s/%s", cfg.Storage, cfg.Profile)
	}
	if cfg.SessionTimeout != 30*time.Minute || cfg.RefreshThrottle != 5*time.Minute {
		t.Errorf("timeouts = %v/%v", cfg.SessionTimeout, cfg.RefreshThrottle)
	}
	if cfg.RefreshPath != "/auth/refresh" {
		t.Errorf("RefreshPath = %q", cfg.RefreshPath)
	}
	if len(cfg.AllowedCIDRS) != 2 {
		t.Errorf("AllowedCIDRS = %v", cfg.AllowedCIDRS)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SHELF_API_URL", "http://localhost:3000")
	t.Setenv("SHELF_STORAGE", "SQLite")
	t.Setenv("SHELF_SESSION_TIMEOUT", "10m")
	t.Setenv("SHELF_ALLOWED_ORIGINS", `"http://localhost:5173", http://127.0.0.1:5173`)
	t.Setenv("SHELF_ORDERED_RESPONSES", "true")
	t.Setenv("SHELF_SYNC_INTERVAL", "0s")

	cfg := Load()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Storage != StorageSQLite {
		t.Errorf("Storage = %q", cfg.Storage)
	}
	if cfg.SessionTimeout != 10*time.Minute {
		t.Errorf("SessionTimeout = %v", cfg.SessionTimeout)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "http://localhost:5173" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if !cfg.OrderedResponses || cfg.SyncInterval != 0 {
		t.Errorf("ordered = %v, sync = %v", cfg.OrderedResponses, cfg.SyncInterval)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "missing api url", mutate: func(c *Config) { c.APIURL = "" }, wantErr: "SHELF_API_URL is required"},
		{name: "bad scheme", mutate: func(c *Config) { c.APIURL = "ftp://x" }, wantErr: "not an http(s) URL"},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage = "s3" }, wantErr: "SHELF_STORAGE"},
		{name: "bad profile", mutate: func(c *Config) { c.Profile = "../etc" }, wantErr: "SHELF_PROFILE"},
		{name: "zero timeout", mutate: func(c *Config) { c.SessionTimeout = 0 }, wantErr: "SHELF_SESSION_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				APIURL:         "https://api.example.com",
				Storage:        StorageMemory,
				Profile:        "default",
				SessionTimeout: time.Minute,
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := Config{RedisPassword: "hunter2", StoragePassphrase: "secret"}
	r := cfg.Redacted()
	if r.RedisPassword == "hunter2" || r.StoragePassphrase == "secret" {
		t.Errorf("Redacted() leaked secrets: %+v", r)
	}
	if cfg.RedisPassword != "hunter2" {
		t.Error("Redacted() modified the original")
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "TEST_DURATION",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "TEST_DURATION_INVALID",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_DURATION_MISSING",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}
			if got := mustDuration(tt.key, tt.def); got != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      bool
		expected bool
	}{
		{name: "true value", value: "true", def: false, expected: true},
		{name: "false value", value: "false", def: true, expected: false},
		{name: "invalid value uses default", value: "invalid", def: true, expected: true},
		{name: "missing variable uses default", value: "", def: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("TEST_BOOL", tt.value)
			}
			if got := mustBool("TEST_BOOL", tt.def); got != tt.expected {
				t.Errorf("mustBool() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(` a , "b",, 'c' `)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("splitAndTrim() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitAndTrim()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
