// Package email holds the address handling shared by the resident stores and
// the password similarity rule.
package email

import (
	"strings"
)

// Normalize trims surrounding whitespace and lowercases the address so that
// uniqueness checks are case-insensitive.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// LocalPart returns the part before the last '@', or the whole input when
// there is none.
func LocalPart(address string) string {
	if at := strings.LastIndexByte(address, '@'); at > 0 {
		return address[:at]
	}
	return address
}
