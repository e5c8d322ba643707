package classifier

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"ConsentCrawl/internal/models"

	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// cookieExpiryCeiling is the expiry value (Unix seconds) above which a cookie is
// reported as non-expiring
const cookieExpiryCeiling = 200000000000

// Blocklist is the read-only lookup the classifier consults
type Blocklist interface {
	Lookup(domain string) bool
}

// Classification holds the domains derived from one request snapshot
type Classification struct {
	ThirdPartyDomains []string
	TrackingDomains   []string
	// Dropped lists request URLs whose host could not be extracted
	Dropped []string
}

// NormalizeURL prefixes http:// when the URL has no scheme
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if !strings.Contains(rawURL, "://") {
		return "http://" + rawURL
	}
	return rawURL
}

// RegistrableDomain returns the host of rawURL without a leading www.
func RegistrableDomain(rawURL string) (string, error) {
	host, err := hostOf(NormalizeURL(rawURL))
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(host, "www."), nil
}

// IsThirdParty reports whether requestURL's host does not contain siteDomain.
// Subdomains of the site count as first-party.
func IsThirdParty(requestURL, siteDomain string) bool {
	host, err := hostOf(requestURL)
	if err != nil {
		return !strings.Contains(strings.ToLower(requestURL), strings.ToLower(siteDomain))
	}
	return !strings.Contains(host, strings.ToLower(siteDomain))
}

// TrackingSuffix reduces a domain to its registrable part (eTLD+1), falling back
// to the last label pair when the public suffix list cannot decide
func TrackingSuffix(domain string) string {
	domain = normalizeDomain(domain)
	if registrable, err := publicsuffix.Domain(domain); err == nil && registrable != "" {
		return registrable
	}

	labels := strings.Split(domain, ".")
	if len(labels) <= 2 {
		return domain
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// Classify filters requestURLs to third-party hosts and intersects them with the blocklist.
// Output slices are sorted and de-duplicated.
func Classify(requestURLs []string, siteDomain string, blocklist Blocklist) Classification {
	var result Classification
	thirdParty := make(map[string]struct{})
	tracking := make(map[string]struct{})

	for _, requestURL := range requestURLs {
		host, err := hostOf(requestURL)
		if err != nil || !strings.Contains(host, ".") {
			result.Dropped = append(result.Dropped, requestURL)
			continue
		}
		if strings.Contains(host, strings.ToLower(siteDomain)) {
			continue
		}

		domain := strings.TrimPrefix(host, "www.")
		if _, seen := thirdParty[domain]; seen {
			continue
		}
		thirdParty[domain] = struct{}{}

		if blocklist == nil {
			continue
		}
		suffix := TrackingSuffix(domain)
		if blocklist.Lookup(domain) || blocklist.Lookup(suffix) {
			tracking[suffix] = struct{}{}
		}
	}

	result.ThirdPartyDomains = sortedKeys(thirdParty)
	result.TrackingDomains = sortedKeys(tracking)
	return result
}

// CookieExpiryDays returns the number of calendar days between now and expires
// (Unix seconds). Session cookies and out-of-range expiries yield -1.
func CookieExpiryDays(expires float64, now time.Time) int {
	if expires <= 0 || expires >= cookieExpiryCeiling || math.IsNaN(expires) {
		return -1
	}

	sec, frac := math.Modf(expires)
	expiry := time.Unix(int64(sec), int64(frac*1e9)).In(now.Location())

	expiryDate := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(expiryDate.Sub(today).Hours() / 24)
}

// NewCapturedCookie builds a captured cookie relative to now
func NewCapturedCookie(name, domain string, expires float64, now time.Time) models.CapturedCookie {
	return models.CapturedCookie{
		Name:          name,
		Domain:        domain,
		ExpiresInDays: CookieExpiryDays(expires, now),
	}
}

func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidURL, err)
	}
	host := normalizeDomain(parsed.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: no host in %q", models.ErrInvalidURL, rawURL)
	}
	return host, nil
}

func normalizeDomain(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
