package revocation

import "time"

// maxEntryTTL bounds how long a single revocation entry is kept.
const maxEntryTTL = 31 * 24 * time.Hour

// entryTTL returns how long the entry for jti has to live. It reports false
// when nothing needs storing: the token carries no ID or has already expired.
func entryTTL(jti string, ttl time.Duration) (time.Duration, bool) {
	if jti == "" || ttl <= 0 {
		return 0, false
	}
	return min(ttl, maxEntryTTL), true
}
