package registration

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	PATCH(path string, body any) error
	GET(path string) error
	DELETE(path string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Expand(s string) string
	Save(name, value string)
	Saved(name string) (string, bool)
}

const password = "Tr0pical-Harbor-91"

// RegisterSteps registers sign-up and principal residency step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &registrationSteps{tc: tc}

	ctx.Step(`^a unit "([^"]*)" exists$`, steps.unitExists)
	ctx.Step(`^I register "([^"]*)" with code "([^"]*)" in unit "([^"]*)"$`, steps.register)
	ctx.Step(`^I register "([^"]*)" with password "([^"]*)" in unit "([^"]*)"$`, steps.registerWithPassword)
	ctx.Step(`^"([^"]*)" has registered in unit "([^"]*)"$`, steps.hasRegistered)
	ctx.Step(`^I promote the residency of "([^"]*)" to principal$`, steps.promote)
	ctx.Step(`^the residency of "([^"]*)" should be principal$`, steps.shouldBePrincipal)
	ctx.Step(`^the conflict should name the residency of "([^"]*)"$`, steps.conflictNames)
	ctx.Step(`^I delete the person "([^"]*)"$`, steps.deletePerson)
}

type registrationSteps struct {
	tc  TestContext
	seq int
}

func (s *registrationSteps) unitExists(ctx context.Context, code string) error {
	if err := s.tc.POST("/api/units", map[string]any{"code": s.tc.Expand(code), "rooms": 2}); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 201 {
		return fmt.Errorf("create unit %s failed with %d: %s", code, status, s.tc.GetLastResponseBody())
	}
	return s.saveField("id", "unit:"+code)
}

func (s *registrationSteps) register(ctx context.Context, email, code, unit string) error {
	unitID, ok := s.tc.Saved("unit:" + unit)
	if !ok {
		return fmt.Errorf("unknown unit %q", unit)
	}
	if err := s.tc.POST("/api/register", map[string]any{
		"email":      s.tc.Expand(email),
		"password":   password,
		"code":       s.tc.Expand(code),
		"first_name": "E2E",
		"last_name":  "Resident",
		"unit_id":    unitID,
	}); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() == 201 {
		if err := s.saveField("residency_id", "residency:"+email); err != nil {
			return err
		}
		return s.saveField("person_id", "person:"+email)
	}
	return nil
}

func (s *registrationSteps) registerWithPassword(ctx context.Context, email, pw, unit string) error {
	unitID, _ := s.tc.Saved("unit:" + unit)
	return s.tc.POST("/api/register", map[string]any{
		"email":      s.tc.Expand(email),
		"password":   pw,
		"code":       s.tc.Expand("W-{run}"),
		"first_name": "E2E",
		"last_name":  "Resident",
		"unit_id":    unitID,
	})
}

func (s *registrationSteps) hasRegistered(ctx context.Context, email, unit string) error {
	s.seq++
	if err := s.register(ctx, email, fmt.Sprintf("C%d-{run}", s.seq), unit); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 201 {
		return fmt.Errorf("registration of %s failed with %d: %s", email, status, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *registrationSteps) promote(ctx context.Context, email string) error {
	residencyID, ok := s.tc.Saved("residency:" + email)
	if !ok {
		return fmt.Errorf("no residency recorded for %q", email)
	}
	return s.tc.PATCH("/api/residencies/"+residencyID, map[string]any{"is_principal": true})
}

func (s *registrationSteps) shouldBePrincipal(ctx context.Context, email string) error {
	residencyID, ok := s.tc.Saved("residency:" + email)
	if !ok {
		return fmt.Errorf("no residency recorded for %q", email)
	}
	if err := s.tc.GET("/api/residencies/" + residencyID); err != nil {
		return err
	}
	v, err := s.tc.GetResponseField("is_principal")
	if err != nil {
		return err
	}
	if v != true {
		return fmt.Errorf("residency of %s is not principal: %s", email, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *registrationSteps) conflictNames(ctx context.Context, email string) error {
	residencyID, _ := s.tc.Saved("residency:" + email)
	fields, err := s.tc.GetResponseField("fields")
	if err != nil {
		return err
	}
	m, ok := fields.(map[string]any)
	if !ok {
		return fmt.Errorf("fields is not an object: %v", fields)
	}
	ids, _ := m["conflicting_residency_id"].([]any)
	if len(ids) != 1 || ids[0] != residencyID {
		return fmt.Errorf("expected conflicting residency %s, got %v", residencyID, m["conflicting_residency_id"])
	}
	return nil
}

func (s *registrationSteps) deletePerson(ctx context.Context, email string) error {
	personID, ok := s.tc.Saved("person:" + email)
	if !ok {
		return fmt.Errorf("no person recorded for %q", email)
	}
	return s.tc.DELETE("/api/residents/" + personID)
}

func (s *registrationSteps) saveField(field, name string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	s.tc.Save(name, fmt.Sprint(v))
	return nil
}
