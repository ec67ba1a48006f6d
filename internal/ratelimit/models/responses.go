package models

// ThrottledResponse is the 429 body. It uses the same error envelope as the
// rest of the API and adds how long to wait and which class was exhausted.
type ThrottledResponse struct {
	Error            string        `json:"error"`
	ErrorDescription string        `json:"error_description"`
	Class            EndpointClass `json:"class"`
	RetryAfter       int           `json:"retry_after"`
}
