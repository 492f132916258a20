package validation

import (
	"net"
	"net/url"
	"regexp"
	"strings"
)

var (
	codePattern       = regexp.MustCompile(`^[A-Za-z0-9]{6,8}$`)
	ipv4InHostPattern = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)
	nonStandardHost   = regexp.MustCompile(`[^a-z0-9.-]`)
	hostLabel         = regexp.MustCompile(`^[\p{L}\p{N}]([\p{L}\p{N}-]*[\p{L}\p{N}])?$`)
	tldPattern        = regexp.MustCompile(`^(\p{L}{2,}|xn--[a-z0-9-]{2,})$`)
)

// SanitizeURL trims surrounding whitespace.
func SanitizeURL(raw string) string {
	return strings.TrimSpace(raw)
}

// IsValidURL reports whether raw (after trimming) is an absolute http or
// https URL whose host is an IP address or a domain with a top-level label.
// Single-label hosts such as localhost are rejected.
func IsValidURL(raw string) bool {
	raw = SanitizeURL(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return validHost(u.Hostname())
}

func validHost(host string) bool {
	if host == "" {
		return false
	}
	if net.ParseIP(host) != nil {
		return true
	}
	labels := strings.Split(strings.ToLower(host), ".")
	if len(labels) < 2 || !tldPattern.MatchString(labels[len(labels)-1]) {
		return false
	}
	for _, l := range labels {
		if len(l) > 63 || !hostLabel.MatchString(l) {
			return false
		}
	}
	return true
}

// IsValidCode reports whether code is 6 to 8 ASCII letters or digits.
func IsValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// IsSuspiciousDomain flags hosts that look like raw IPs, contain unusual
// characters or repeat one character five or more times in a row. Unparseable
// URLs are suspicious.
func IsSuspiciousDomain(raw string) bool {
	u, err := url.Parse(SanitizeURL(raw))
	if err != nil {
		return true
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return true
	}
	if ipv4InHostPattern.MatchString(host) || net.ParseIP(host) != nil {
		return true
	}
	if nonStandardHost.MatchString(host) {
		return true
	}
	return hasRun(host, 5)
}

func hasRun(s string, n int) bool {
	run := 1
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1] {
			run++
			if run >= n {
				return true
			}
			continue
		}
		run = 1
	}
	return false
}
