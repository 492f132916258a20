package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientResolverIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		forward string
		want    string
	}{
		{"no proxies ignores header", nil, "203.0.113.7:5000", "1.1.1.1", "203.0.113.7"},
		{"untrusted peer ignores header", []string{"10.0.0.0/8"}, "203.0.113.7:5000", "1.1.1.1", "203.0.113.7"},
		{"trusted peer uses last untrusted hop", []string{"10.0.0.0/8"}, "10.0.0.2:5000", "6.6.6.6, 1.1.1.1, 10.0.0.9", "1.1.1.1"},
		{"bare address entry", []string{"10.0.0.2"}, "10.0.0.2:5000", "1.1.1.1", "1.1.1.1"},
		{"trusted peer without header", []string{"10.0.0.0/8"}, "10.0.0.2:5000", "", "10.0.0.2"},
		{"remote without port", nil, "203.0.113.7", "", "203.0.113.7"},
		{"ipv6 peer", []string{"::1"}, "[::1]:5000", "2001:db8::1", "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forward != "" {
				req.Header.Set("X-Forwarded-For", tt.forward)
			}

			if got := NewClientResolver(nil, tt.trusted).IP(req); got != tt.want {
				t.Errorf("IP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientResolverKey(t *testing.T) {
	clients := NewClientResolver([]string{"key-1"}, nil)

	tests := []struct {
		name       string
		apiKey     string
		remote     string
		wantPrefix string
	}{
		{"valid key", "key-1", "203.0.113.7:5000", "api_key:"},
		{"unknown key falls back to ip", "key-2", "203.0.113.7:5000", "ip:203.0.113.7"},
		{"no key", "", "203.0.113.7:5000", "ip:203.0.113.7"},
		{"nothing known", "", "", "ip:unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.apiKey != "" {
				req.Header.Set(APIKeyHeader, tt.apiKey)
			}

			got := clients.Key(req)
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("Key() = %q, want prefix %q", got, tt.wantPrefix)
			}
			if strings.Contains(got, "key-1") {
				t.Errorf("Key() = %q exposes the raw key", got)
			}
		})
	}
}

func TestNilClientResolverUsesPeer(t *testing.T) {
	var clients *ClientResolver
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5000"
	req.Header.Set(APIKeyHeader, "anything")
	req.Header.Set("X-Forwarded-For", "1.1.1.1")

	if got := clients.Key(req); got != "ip:203.0.113.7" {
		t.Errorf("Key() = %q", got)
	}
}

func TestParseProxy(t *testing.T) {
	for _, raw := range []string{"10.0.0.0/8", " 192.168.1.1 ", "::1", "fd00::/8"} {
		if _, ok := ParseProxy(raw); !ok {
			t.Errorf("ParseProxy(%q) rejected", raw)
		}
	}
	for _, raw := range []string{"", "proxy.internal", "10.0.0.0/40"} {
		if _, ok := ParseProxy(raw); ok {
			t.Errorf("ParseProxy(%q) accepted", raw)
		}
	}
}
