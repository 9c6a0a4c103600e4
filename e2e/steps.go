package e2e

import (
	"github.com/cucumber/godog"

	"trackgen/e2e/steps/common"
	"trackgen/e2e/steps/tracking"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (requests, status and field assertions)
	common.RegisterSteps(ctx, tc)

	// Register tracking number steps
	tracking.RegisterSteps(ctx, tc)
}
