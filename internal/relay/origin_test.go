package relay

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNormalizeOrigin(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"http://Example.com", "http://example.com", true},
		{"HTTPS://example.com:8443", "https://example.com:8443", true},
		{"example.com", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := normalizeOrigin(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("normalizeOrigin(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizeOriginsWildcard(t *testing.T) {
	normalized, allowAll := normalizeOrigins([]string{"*", "http://example.com", "  ", "bogus"})

	if !allowAll {
		t.Error("Expected wildcard to enable allow-all")
	}
	if len(normalized) != 1 || normalized[0] != "http://example.com" {
		t.Errorf("Unexpected normalized origins: %v", normalized)
	}
}

func TestInvalidConfiguredOriginLogged(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	t.Cleanup(func() { SetLogger(zerolog.Nop()) })

	SetConfig(&Config{AllowedOrigins: []string{"://bad", "http://ok.example.com"}})
	t.Cleanup(func() { SetConfig(nil) })

	if !strings.Contains(buf.String(), "ignoring invalid origin") {
		t.Errorf("Expected invalid origin warning, got %q", buf.String())
	}
}

func TestIsOriginAllowed(t *testing.T) {
	SetConfig(&Config{AllowedOrigins: []string{"http://allowed.example.com"}})
	t.Cleanup(func() { SetConfig(nil) })

	allowed := httptest.NewRequest(http.MethodGet, "/ws", nil)
	allowed.Header.Set("Origin", "http://allowed.example.com")
	if !isOriginAllowed(allowed) {
		t.Error("Expected configured origin to be allowed")
	}

	denied := httptest.NewRequest(http.MethodGet, "/ws", nil)
	denied.Header.Set("Origin", "http://other.example.com")
	if isOriginAllowed(denied) {
		t.Error("Expected unlisted origin to be denied")
	}

	missing := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if isOriginAllowed(missing) {
		t.Error("Expected request without Origin header to be denied")
	}
}
