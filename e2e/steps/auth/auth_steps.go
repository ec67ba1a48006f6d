package auth

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Expand(s string) string
	SetAccessToken(token string)
	AdminCredentials() (string, string)
}

// RegisterSteps registers authentication-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^I log in as "([^"]*)" with password "([^"]*)"$`, steps.logIn)
	ctx.Step(`^I am logged in as "([^"]*)" with password "([^"]*)"$`, steps.loggedIn)
	ctx.Step(`^I am logged in as the administrator$`, steps.loggedInAsAdmin)
	ctx.Step(`^I am anonymous$`, steps.anonymous)
	ctx.Step(`^I request my profile$`, steps.requestProfile)
	ctx.Step(`^the previous error body should equal this one$`, steps.sameBodyAsPrevious)
}

type authSteps struct {
	tc           TestContext
	previousBody []byte
}

func (s *authSteps) logIn(ctx context.Context, username, password string) error {
	s.previousBody = s.tc.GetLastResponseBody()
	return s.tc.POST("/api/login", map[string]any{
		"username": s.tc.Expand(username),
		"password": password,
	})
}

func (s *authSteps) loggedIn(ctx context.Context, username, password string) error {
	if err := s.logIn(ctx, username, password); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("login as %s failed with %d: %s", username, status, s.tc.GetLastResponseBody())
	}
	access, err := s.tc.GetResponseField("access")
	if err != nil {
		return err
	}
	s.tc.SetAccessToken(fmt.Sprint(access))
	return nil
}

func (s *authSteps) loggedInAsAdmin(ctx context.Context) error {
	username, password := s.tc.AdminCredentials()
	if username == "" {
		return godog.ErrSkip
	}
	return s.loggedIn(ctx, username, password)
}

func (s *authSteps) anonymous(ctx context.Context) error {
	s.tc.SetAccessToken("")
	return nil
}

func (s *authSteps) requestProfile(ctx context.Context) error {
	return s.tc.GET("/api/users/me")
}

func (s *authSteps) sameBodyAsPrevious(ctx context.Context) error {
	if string(s.previousBody) != string(s.tc.GetLastResponseBody()) {
		return fmt.Errorf("responses differ: %s vs %s", s.previousBody, s.tc.GetLastResponseBody())
	}
	return nil
}
