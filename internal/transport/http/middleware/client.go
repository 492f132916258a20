package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientResolver identifies the caller of a request for rate limiting and
// click records. X-Forwarded-For is only read when the direct peer is a
// trusted proxy, and an API key only counts once it matches a configured key.
type ClientResolver struct {
	keys    [][sha256.Size]byte
	trusted []netip.Prefix
}

// NewClientResolver accepts proxies as CIDRs or bare addresses. Entries that
// do not parse are skipped; config.Load rejects them before this point.
func NewClientResolver(apiKeys, trustedProxies []string) *ClientResolver {
	c := &ClientResolver{keys: keyDigests(apiKeys)}
	for _, raw := range trustedProxies {
		if p, ok := ParseProxy(raw); ok {
			c.trusted = append(c.trusted, p)
		}
	}
	return c
}

// ParseProxy parses a trusted proxy entry as a prefix or a single address.
func ParseProxy(raw string) (netip.Prefix, bool) {
	raw = strings.TrimSpace(raw)
	if p, err := netip.ParsePrefix(raw); err == nil {
		return p.Masked(), true
	}
	if a, err := netip.ParseAddr(raw); err == nil {
		a = a.Unmap()
		return netip.PrefixFrom(a, a.BitLen()), true
	}
	return netip.Prefix{}, false
}

// Key is the rate limit bucket for r: a digest of a valid API key, else the
// client IP. The raw key never reaches the counter store.
func (c *ClientResolver) Key(r *http.Request) string {
	if c != nil && len(c.keys) > 0 {
		if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" && keyAllowed(c.keys, key) {
			sum := sha256.Sum256([]byte(key))
			return "api_key:" + hex.EncodeToString(sum[:8])
		}
	}
	if ip := c.IP(r); ip != "" {
		return "ip:" + ip
	}
	return "ip:unknown"
}

// IP returns the peer address. When the peer is a trusted proxy the
// X-Forwarded-For chain is walked from the right and the first untrusted
// hop wins.
func (c *ClientResolver) IP(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	if c == nil || len(c.trusted) == 0 || !c.isTrusted(peer) {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !c.isTrusted(hop) {
			return hop
		}
	}
	return peer
}

func (c *ClientResolver) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range c.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteHost(remote string) string {
	remote = strings.TrimSpace(remote)
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}
