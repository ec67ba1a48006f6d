// Package metadata records who is calling: the client address used for
// rate limiting and audit, and the User-Agent used for device labels.
package metadata

import (
	"net/http"
	"net/netip"
	"strings"

	"condo/pkg/requestcontext"
)

const (
	unknownIP    = "unknown"
	maxUserAgent = 512
)

// ClientMetadata stores the client address and User-Agent on the request
// context. It must run before rate limiting.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		if len(ua) > maxUserAgent {
			ua = ua[:maxUserAgent]
		}
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIP(r), ua)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns the first parseable address among X-Forwarded-For (left
// to right), X-Real-IP and the connection's remote address. IPv4-mapped IPv6
// addresses are reported in their IPv4 form so one client has one bucket.
func ClientIP(r *http.Request) string {
	for hop := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		if addr, ok := parseAddr(hop); ok {
			return addr
		}
	}
	if addr, ok := parseAddr(r.Header.Get("X-Real-IP")); ok {
		return addr
	}
	if ap, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return ap.Addr().Unmap().String()
	}
	if addr, ok := parseAddr(r.RemoteAddr); ok {
		return addr
	}
	return unknownIP
}

func parseAddr(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}
