package tracking

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/cucumber/godog"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{16}$`)

const generatePath = "/api/v1/generate-tracking-number"

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, params url.Values) error
	GET(path string) error
	GetLastStatusCode() int
	GetResponseField(field string) (any, error)
	RememberIssued(code string)
	Issued() []string
}

// RegisterSteps registers tracking number step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &trackingSteps{tc: tc}

	ctx.Step(`^I request a tracking number for customer "([^"]*)"$`, steps.requestForCustomer)
	ctx.Step(`^I request (\d+) tracking numbers for customer "([^"]*)"$`, steps.requestMany)
	ctx.Step(`^I request a tracking number with "([^"]*)" set to "([^"]*)"$`, steps.requestWithOverride)
	ctx.Step(`^the tracking number should be 16 uppercase alphanumeric characters$`, steps.codeShouldBeWellFormed)
	ctx.Step(`^all issued tracking numbers should be distinct$`, steps.issuedShouldBeDistinct)
	ctx.Step(`^I look up the issued tracking number$`, steps.lookupIssued)
	ctx.Step(`^the validation error for "([^"]*)" should be "([^"]*)"$`, steps.validationErrorShouldBe)
}

type trackingSteps struct {
	tc TestContext
}

func defaultParams(customerID string) url.Values {
	return url.Values{
		"origin_country_id":      {"US"},
		"destination_country_id": {"IN"},
		"weight":                 {"5.555"},
		"created_at":             {"2024-11-07T12:00:00+08:00"},
		"customer_id":            {customerID},
		"customer_name":          {"RedBox Logistics"},
		"customer_slug":          {"redbox-logistics"},
	}
}

func (s *trackingSteps) requestForCustomer(ctx context.Context, customerID string) error {
	if err := s.tc.POST(generatePath, defaultParams(customerID)); err != nil {
		return err
	}
	return s.rememberIfIssued()
}

// requestMany issues sequentially; one customer's requests share a lock key.
func (s *trackingSteps) requestMany(ctx context.Context, n int, customerID string) error {
	for i := 0; i < n; i++ {
		if err := s.requestForCustomer(ctx, customerID); err != nil {
			return err
		}
		if status := s.tc.GetLastStatusCode(); status != 200 {
			return fmt.Errorf("request %d: status %d", i+1, status)
		}
	}
	return nil
}

func (s *trackingSteps) requestWithOverride(ctx context.Context, param, value string) error {
	params := defaultParams("123e4567-e89b-12d3-a456-426614174000")
	params.Set(param, value)
	return s.tc.POST(generatePath, params)
}

func (s *trackingSteps) rememberIfIssued() error {
	if s.tc.GetLastStatusCode() != 200 {
		return nil
	}
	v, err := s.tc.GetResponseField("tracking_number")
	if err != nil {
		return err
	}
	code, ok := v.(string)
	if !ok {
		return fmt.Errorf("tracking_number is %T", v)
	}
	s.tc.RememberIssued(code)
	return nil
}

func (s *trackingSteps) codeShouldBeWellFormed(ctx context.Context) error {
	issued := s.tc.Issued()
	if len(issued) == 0 {
		return fmt.Errorf("no tracking number issued")
	}
	if code := issued[len(issued)-1]; !codePattern.MatchString(code) {
		return fmt.Errorf("malformed tracking number %q", code)
	}
	return nil
}

func (s *trackingSteps) issuedShouldBeDistinct(ctx context.Context) error {
	seen := make(map[string]struct{}, len(s.tc.Issued()))
	for _, code := range s.tc.Issued() {
		if _, dup := seen[code]; dup {
			return fmt.Errorf("tracking number %s issued twice", code)
		}
		seen[code] = struct{}{}
	}
	return nil
}

func (s *trackingSteps) lookupIssued(ctx context.Context) error {
	issued := s.tc.Issued()
	if len(issued) == 0 {
		return fmt.Errorf("no tracking number issued")
	}
	return s.tc.GET("/api/v1/tracking-numbers/" + issued[len(issued)-1])
}

func (s *trackingSteps) validationErrorShouldBe(ctx context.Context, field, want string) error {
	v, err := s.tc.GetResponseField("errors")
	if err != nil {
		return err
	}
	errs, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("errors is %T", v)
	}
	if got := fmt.Sprint(errs[field]); got != want {
		return fmt.Errorf("expected %s error %q, got %q", field, want, got)
	}
	return nil
}
