// Package device turns User-Agent headers into short labels for login audit
// records.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// ParseUserAgent returns a display name such as "Chrome on macOS".
func ParseUserAgent(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return unknownDevice
	}
	ua := useragent.New(userAgent)

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	platform := osName(ua)
	if platform == "" {
		platform = "Unknown OS"
	}
	if ua.Bot() {
		browser += " (bot)"
	}
	return strings.TrimSpace(browser + " on " + platform)
}

func osName(ua *useragent.UserAgent) string {
	info := ua.OSInfo()
	switch {
	case strings.Contains(ua.Platform(), "iPhone"):
		return "iPhone"
	case strings.Contains(ua.Platform(), "iPad"):
		return "iPad"
	case strings.HasPrefix(info.Name, "Mac OS X"), strings.HasPrefix(info.FullName, "Intel Mac OS X"):
		return "macOS"
	case info.Name != "":
		return info.Name
	default:
		return ua.Platform()
	}
}
