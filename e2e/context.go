// Package e2e drives a running condo server through its HTTP API with
// godog scenarios.
package e2e

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext carries the HTTP state of one scenario.
type TestContext struct {
	BaseURL       string
	AdminUsername string
	AdminPassword string

	client       *http.Client
	runID        string
	forwardedFor string
	accessToken  string
	lastStatus   int
	lastBody     []byte
	lastHeader   http.Header
	saved        map[string]string
}

func NewTestContext(baseURL, adminUsername, adminPassword string) *TestContext {
	tc := &TestContext{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		AdminUsername: adminUsername,
		AdminPassword: adminPassword,
		client:        &http.Client{Timeout: 10 * time.Second},
	}
	tc.Reset()
	return tc
}

// Reset clears per-scenario state and picks a fresh run ID. Each scenario
// also gets its own client address so per-IP throttling stays scenario local.
func (tc *TestContext) Reset() {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	tc.runID = hex.EncodeToString(b)
	tc.forwardedFor = fmt.Sprintf("10.%d.%d.%d", b[0], b[1], b[2])
	tc.accessToken = ""
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastHeader = nil
	tc.saved = map[string]string{}
}

// Expand substitutes {run} and saved {name} placeholders so scenarios can be
// replayed against the same database.
func (tc *TestContext) Expand(s string) string {
	s = strings.ReplaceAll(s, "{run}", tc.runID)
	for k, v := range tc.saved {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

func (tc *TestContext) Save(name, value string) { tc.saved[name] = value }

func (tc *TestContext) Saved(name string) (string, bool) {
	v, ok := tc.saved[name]
	return v, ok
}

func (tc *TestContext) SetClientIP(ip string)         { tc.forwardedFor = ip }
func (tc *TestContext) SetAccessToken(token string)   { tc.accessToken = token }
func (tc *TestContext) GetAccessToken() string        { return tc.accessToken }
func (tc *TestContext) GetLastResponseStatus() int    { return tc.lastStatus }
func (tc *TestContext) GetLastResponseBody() []byte   { return tc.lastBody }
func (tc *TestContext) GetLastHeader(k string) string { return tc.lastHeader.Get(k) }

func (tc *TestContext) POST(path string, body any) error  { return tc.do(http.MethodPost, path, body) }
func (tc *TestContext) PATCH(path string, body any) error { return tc.do(http.MethodPatch, path, body) }
func (tc *TestContext) GET(path string) error             { return tc.do(http.MethodGet, path, nil) }
func (tc *TestContext) DELETE(path string) error          { return tc.do(http.MethodDelete, path, nil) }

func (tc *TestContext) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.BaseURL+tc.Expand(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.accessToken)
	}
	if tc.forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", tc.forwardedFor)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastHeader = resp.Header
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

// GetResponseField reads a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var body map[string]any
	if err := json.Unmarshal(tc.lastBody, &body); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %s", tc.lastBody)
	}
	v, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("field %q missing in %s", field, tc.lastBody)
	}
	return v, nil
}

// AdminCredentials returns the login created with condoctl create-admin.
func (tc *TestContext) AdminCredentials() (string, string) {
	return tc.AdminUsername, tc.AdminPassword
}
