package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setBlocklist is a map-backed Blocklist for tests
type setBlocklist map[string]bool

func (s setBlocklist) Lookup(domain string) bool {
	return s[domain]
}

func TestIsThirdParty(t *testing.T) {
	tests := []struct {
		name       string
		requestURL string
		siteDomain string
		expected   bool
	}{
		{"foreign host", "https://ads.tracker.com/x", "example.com", true},
		{"subdomain of site", "https://cdn.example.com/x", "example.com", false},
		{"site itself", "https://example.com/", "example.com", false},
		{"www of site", "https://www.example.com/a.js", "example.com", false},
		{"site only in path", "https://tracker.io/?ref=example.com", "example.com", true},
		{"upper case host", "https://CDN.EXAMPLE.COM/x", "example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsThirdParty(tt.requestURL, tt.siteDomain))
		})
	}
}

func TestRegistrableDomain(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare domain", "example.com", "example.com"},
		{"with www", "www.example.com", "example.com"},
		{"with scheme and path", "https://www.example.com/path?q=1", "example.com"},
		{"keeps other subdomains", "http://shop.example.com", "shop.example.com"},
		{"drops port", "http://example.com:8080/", "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			domain, err := RegistrableDomain(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, domain)
		})
	}
}

func TestRegistrableDomain_NoHost(t *testing.T) {
	_, err := RegistrableDomain("http://")
	assert.Error(t, err)
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "http://example.com", NormalizeURL("example.com"))
	assert.Equal(t, "https://example.com", NormalizeURL("https://example.com"))
	assert.Equal(t, "http://httpbin.org", NormalizeURL(" httpbin.org "))
}

func TestTrackingSuffix(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"foo.bar.com", "bar.com"},
		{"bar.com", "bar.com"},
		{"a.b.c.tracker.io", "tracker.io"},
		{"Pixel.Tracker.IO.", "tracker.io"},
		{"ads.example.co.uk", "example.co.uk"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, TrackingSuffix(tt.input))
		})
	}
}

func TestClassify(t *testing.T) {
	requests := []string{
		"https://example.com/",
		"https://cdn.example.com/app.js",
		"https://tracker.io/pixel",
		"https://www.tracker.io/pixel?again=1",
		"https://sub.ads.net/a.js",
		"https://fonts.gstatic.com/font.woff",
		"data:image/png;base64,AAAA",
		"::not a url::",
	}
	blocklist := setBlocklist{"tracker.io": true, "ads.net": true}

	result := Classify(requests, "example.com", blocklist)

	assert.Equal(t, []string{"fonts.gstatic.com", "sub.ads.net", "tracker.io"}, result.ThirdPartyDomains)
	assert.Equal(t, []string{"ads.net", "tracker.io"}, result.TrackingDomains)
	assert.Len(t, result.Dropped, 2)
}

func TestClassify_FullHostMatch(t *testing.T) {
	// Blocklists may list a specific subdomain rather than the registrable domain
	blocklist := setBlocklist{"stats.vendor.com": true}

	result := Classify([]string{"https://stats.vendor.com/collect"}, "example.com", blocklist)

	assert.Equal(t, []string{"stats.vendor.com"}, result.ThirdPartyDomains)
	assert.Equal(t, []string{"vendor.com"}, result.TrackingDomains)
}

func TestClassify_NilBlocklist(t *testing.T) {
	result := Classify([]string{"https://tracker.io/pixel"}, "example.com", nil)

	assert.Equal(t, []string{"tracker.io"}, result.ThirdPartyDomains)
	assert.Empty(t, result.TrackingDomains)
}

func TestClassify_Empty(t *testing.T) {
	result := Classify(nil, "example.com", setBlocklist{})

	assert.Empty(t, result.ThirdPartyDomains)
	assert.Empty(t, result.TrackingDomains)
	assert.Empty(t, result.Dropped)
}

func TestCookieExpiryDays(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		expires  float64
		expected int
	}{
		{"session cookie", -1, -1},
		{"zero", 0, -1},
		{"out of range", 200000000000, -1},
		{"later today", float64(now.Add(2 * time.Hour).Unix()), 0},
		{"tomorrow", float64(now.Add(24 * time.Hour).Unix()), 1},
		{"one year", float64(now.AddDate(1, 0, 0).Unix()), 365},
		{"fractional seconds", float64(now.Add(48*time.Hour).Unix()) + 0.25, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CookieExpiryDays(tt.expires, now))
		})
	}
}

func TestNewCapturedCookie(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	cookie := NewCapturedCookie("_ga", ".example.com", float64(now.AddDate(0, 0, 30).Unix()), now)

	assert.Equal(t, "_ga", cookie.Name)
	assert.Equal(t, ".example.com", cookie.Domain)
	assert.Equal(t, 30, cookie.ExpiresInDays)
}
