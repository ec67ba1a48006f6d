package models

import (
	"net/netip"
	"strings"
	"time"
)

// EndpointClass categorizes endpoints for differentiated rate limiting.
type EndpointClass string

const (
	// ClassRegister covers anonymous account creation.
	ClassRegister EndpointClass = "register"
	// ClassLogin covers credential checks and token refresh.
	ClassLogin EndpointClass = "login"
)

// IsValid checks if the endpoint class is one of the supported enum values.
func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassRegister, ClassLogin:
		return true
	}
	return false
}

// Limit is the number of requests a key may make per fixed window.
type Limit struct {
	RequestsPerWindow int
	Window            time.Duration
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// NewIPRateLimitKey builds the bucket key for an IP address and endpoint class.
func NewIPRateLimitKey(ip string, class EndpointClass) string {
	return "rl:ip:" + SanitizeKeySegment(ip) + ":" + string(class)
}

// SanitizeKeySegment escapes delimiter characters so an IPv6 address or a
// forged header value cannot spill into the adjacent key segment.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// AnonymizeIP truncates an address to its /24 (IPv4) or /48 (IPv6) network
// for logging. Unparseable input is returned as "invalid".
func AnonymizeIP(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	bits := 48
	if addr.Is4() || addr.Is4In6() {
		addr = addr.Unmap()
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.String()
}
