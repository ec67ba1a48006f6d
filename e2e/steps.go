package e2e

import (
	"github.com/cucumber/godog"

	"condo/e2e/steps/auth"
	"condo/e2e/steps/common"
	"condo/e2e/steps/ratelimit"
	"condo/e2e/steps/registration"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register authentication-specific steps
	auth.RegisterSteps(ctx, tc)

	// Register sign-up and principal residency steps
	registration.RegisterSteps(ctx, tc)

	// Register throttling steps
	ratelimit.RegisterSteps(ctx, tc)
}
