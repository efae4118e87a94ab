// Package testutil provides common test utilities for handler and integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Envelope mirrors the API response shape: success flag plus either data
// or a message with optional per-field errors.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  []FieldError    `json:"errors"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewJSONRequest creates an HTTP request with a JSON-marshaled body.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewRequest creates a simple HTTP request without a body.
func NewRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, path, nil)
}

// NewRequestWithBody creates an HTTP request with a raw string body.
func NewRequestWithBody(t *testing.T, method, path string, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DoRequest executes a request against a handler and returns the recorder.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// ReadBody reads the response body as bytes without consuming the
// recorder's buffer, so it can be called more than once per response.
func ReadBody(t *testing.T, rr *httptest.ResponseRecorder) []byte {
	t.Helper()
	return rr.Body.Bytes()
}

// UnmarshalEnvelope unmarshals the response into the API envelope.
func UnmarshalEnvelope(t *testing.T, rr *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(ReadBody(t, rr), &env), "failed to unmarshal envelope")
	return env
}

// UnmarshalData asserts success and unmarshals the envelope's data field
// into the target type.
func UnmarshalData[T any](t *testing.T, rr *httptest.ResponseRecorder) *T {
	t.Helper()
	env := UnmarshalEnvelope(t, rr)
	require.True(t, env.Success, "expected success envelope, got message %q", env.Message)
	var result T
	require.NoError(t, json.Unmarshal(env.Data, &result), "failed to unmarshal data")
	return &result
}

// UnmarshalResponse unmarshals the whole response body into the target
// type, for endpoints that return fields outside the data envelope.
func UnmarshalResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) *T {
	t.Helper()
	var result T
	require.NoError(t, json.Unmarshal(ReadBody(t, rr), &result), "failed to unmarshal response")
	return &result
}

// AssertStatus asserts the response status code matches expected.
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rr.Code, "unexpected status code: body=%s", rr.Body.String())
}

// AssertFailure asserts the response carries a failure envelope with the
// expected status and message substring.
func AssertFailure(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus int, messageContains string) {
	t.Helper()
	AssertStatus(t, rr, expectedStatus)
	env := UnmarshalEnvelope(t, rr)
	assert.False(t, env.Success, "expected failure envelope")
	if messageContains != "" {
		assert.Contains(t, env.Message, messageContains, "unexpected failure message")
	}
}

// AssertFieldError asserts a validation failure mentions the given field.
func AssertFieldError(t *testing.T, rr *httptest.ResponseRecorder, field string) {
	t.Helper()
	env := UnmarshalEnvelope(t, rr)
	for _, fe := range env.Errors {
		if fe.Field == field {
			return
		}
	}
	t.Errorf("no validation error for field %q in %+v", field, env.Errors)
}
