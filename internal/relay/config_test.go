package relay

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetConfigNilResetsToDefaults(t *testing.T) {
	SetConfig(nil)
	cfg := currentConfig()

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, int64(4096), cfg.MaxMessageSize)
	assert.Equal(t, 256, cfg.SendQueueSize)
	assert.Equal(t, 60, cfg.RateBurst)
	assert.Equal(t, time.Second, cfg.RateInterval)
}

func TestSetConfigSanitizesZeroValues(t *testing.T) {
	SetConfig(&Config{Port: "", MaxMessageSize: -1, SendQueueSize: 0, RateBurst: -5})
	cfg := currentConfig()

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, int64(4096), cfg.MaxMessageSize)
	assert.Equal(t, 256, cfg.SendQueueSize)
	assert.Equal(t, 60, cfg.RateBurst)
}

func TestOriginAllowList(t *testing.T) {
	SetConfig(&Config{AllowedOrigins: []string{"https://game.example.com", " HTTP://Other.Example.com "}})
	defer SetConfig(nil)

	cases := []struct {
		origin  string
		allowed bool
	}{
		{"https://game.example.com", true},
		{"HTTPS://GAME.EXAMPLE.COM", true},
		{"http://other.example.com", true},
		{"https://evil.example.com", false},
		{"not a url", false},
		{"", false},
	}

	for _, tc := range cases {
		r := httptest.NewRequest("GET", "/ws", nil)
		if tc.origin != "" {
			r.Header.Set("Origin", tc.origin)
		}
		assert.Equal(t, tc.allowed, isOriginAllowed(r), "origin %q", tc.origin)
	}
}

func TestOriginWildcardAllowsAnyOrigin(t *testing.T) {
	SetConfig(&Config{AllowedOrigins: []string{"*"}})
	defer SetConfig(nil)

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "https://anything.example.com")
	assert.True(t, isOriginAllowed(r))

	// A wildcard still requires the header to be present.
	bare := httptest.NewRequest("GET", "/ws", nil)
	assert.False(t, isOriginAllowed(bare))
}
