package ratelimit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GetLastResponseStatus() int
	GetLastHeader(key string) string
	SetClientIP(ip string)
	Expand(s string) string
}

// RegisterSteps registers per-IP throttling step definitions for the
// anonymous register and login endpoints.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I am calling from IP "([^"]*)"$`, steps.callingFromIP)
	ctx.Step(`^I send (\d+) invalid registrations$`, steps.sendInvalidRegistrations)
	ctx.Step(`^I send (\d+) failed logins for "([^"]*)"$`, steps.sendFailedLogins)
	ctx.Step(`^at least one response should be throttled$`, steps.atLeastOneThrottled)
	ctx.Step(`^the throttled response should carry a Retry-After header$`, steps.retryAfterPresent)
}

type ratelimitSteps struct {
	tc         TestContext
	statuses   []int
	retryAfter string
}

func (s *ratelimitSteps) callingFromIP(ctx context.Context, ip string) error {
	s.tc.SetClientIP(s.tc.Expand(ip))
	return nil
}

func (s *ratelimitSteps) sendInvalidRegistrations(ctx context.Context, n int) error {
	return s.repeat(n, func() error {
		return s.tc.POST("/api/register", map[string]any{"email": "not-an-email"})
	})
}

func (s *ratelimitSteps) sendFailedLogins(ctx context.Context, n int, username string) error {
	username = s.tc.Expand(username)
	return s.repeat(n, func() error {
		return s.tc.POST("/api/login", map[string]any{"username": username, "password": "wrong-password"})
	})
}

func (s *ratelimitSteps) repeat(n int, send func() error) error {
	s.statuses = s.statuses[:0]
	s.retryAfter = ""
	for i := 0; i < n; i++ {
		if err := send(); err != nil {
			return err
		}
		status := s.tc.GetLastResponseStatus()
		s.statuses = append(s.statuses, status)
		if status == 429 && s.retryAfter == "" {
			s.retryAfter = s.tc.GetLastHeader("Retry-After")
		}
	}
	return nil
}

func (s *ratelimitSteps) atLeastOneThrottled(ctx context.Context) error {
	for _, status := range s.statuses {
		if status == 429 {
			return nil
		}
	}
	return fmt.Errorf("no request was throttled, statuses: %v", s.statuses)
}

func (s *ratelimitSteps) retryAfterPresent(ctx context.Context) error {
	if s.retryAfter == "" {
		return fmt.Errorf("throttled response had no Retry-After header")
	}
	if secs, err := strconv.Atoi(s.retryAfter); err != nil || secs < 0 {
		return fmt.Errorf("Retry-After %q is not a number of seconds", s.retryAfter)
	}
	return nil
}
