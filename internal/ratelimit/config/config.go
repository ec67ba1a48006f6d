package config

import (
	"net/netip"
	"time"

	"condo/internal/ratelimit/models"
)

// Config holds the per-IP limits for each endpoint class and the networks
// that bypass them.
type Config struct {
	IPLimits map[models.EndpointClass]models.Limit
	Exempt   []netip.Prefix
}

// DefaultConfig applies perMinute to every class, with registration at half
// that rate since it creates accounts.
func DefaultConfig(perMinute int) *Config {
	if perMinute <= 0 {
		perMinute = 20
	}
	register := max(perMinute/2, 1)
	return &Config{
		IPLimits: map[models.EndpointClass]models.Limit{
			models.ClassLogin:    {RequestsPerWindow: perMinute, Window: time.Minute},
			models.ClassRegister: {RequestsPerWindow: register, Window: time.Minute},
		},
	}
}

// GetIPLimit returns the limit configured for class.
func (c *Config) GetIPLimit(class models.EndpointClass) (int, time.Duration, bool) {
	limit, ok := c.IPLimits[class]
	if !ok || limit.RequestsPerWindow <= 0 || limit.Window <= 0 {
		return 0, 0, false
	}
	return limit.RequestsPerWindow, limit.Window, true
}

// IsExempt reports whether ip falls inside an exempt network. Unparseable
// addresses are never exempt.
func (c *Config) IsExempt(ip string) bool {
	if len(c.Exempt) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range c.Exempt {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
