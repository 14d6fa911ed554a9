package utils

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		xff, real  string
		trustProxy bool
		want       string
	}{
		{name: "remote v4", remote: "10.0.0.1:5000", want: "10.0.0.1"},
		{name: "remote v6", remote: "[::1]:5000", want: "::1"},
		{name: "mapped v4", remote: "[::ffff:127.0.0.1]:5000", want: "127.0.0.1"},
		{name: "headers ignored without trust", remote: "10.0.0.1:5000", xff: "1.2.3.4", want: "10.0.0.1"},
		{name: "left-most forwarded", remote: "127.0.0.1:5000", xff: "1.2.3.4, 10.0.0.9", trustProxy: true, want: "1.2.3.4"},
		{name: "real ip fallback", remote: "127.0.0.1:5000", xff: "garbage", real: "5.6.7.8", trustProxy: true, want: "5.6.7.8"},
		{name: "unparsable", remote: "pipe", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.real != "" {
				r.Header.Set("X-Real-IP", tt.real)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIPMatcher(t *testing.T) {
	m, rejected := NewIPMatcher([]string{"10.0.0.0/8", "192.168.1.7", " ", "not-an-ip"})
	if len(rejected) != 1 || rejected[0] != "not-an-ip" {
		t.Errorf("rejected = %v", rejected)
	}
	tests := map[string]bool{
		"10.20.30.40": true,
		"192.168.1.7": true,
		"192.168.1.8": false,
		"::1":         false,
		"":            false,
	}
	for ip, want := range tests {
		if got := m.Allow(ip); got != want {
			t.Errorf("Allow(%q) = %v, want %v", ip, got, want)
		}
	}
}

func TestLoopbackDefault(t *testing.T) {
	m, rejected := NewIPMatcher(LoopbackCIDRs)
	if len(rejected) != 0 || m.IsEmpty() {
		t.Fatalf("loopback defaults did not compile: %v", rejected)
	}
	for _, ip := range []string{"127.0.0.1", "127.8.9.10", "::1", "::ffff:127.0.0.1"} {
		if !m.Allow(ip) {
			t.Errorf("Allow(%q) = false, want true", ip)
		}
	}
	for _, ip := range []string{"10.0.0.1", "fe80::1"} {
		if m.Allow(ip) {
			t.Errorf("Allow(%q) = true, want false", ip)
		}
	}
}
