// Package testutil provides common test utilities and helpers for StudyPipe tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/BTreeMap/StudyPipe/internal/api"
	"github.com/BTreeMap/StudyPipe/internal/assistant"
	"github.com/BTreeMap/StudyPipe/internal/prompt"
	"github.com/BTreeMap/StudyPipe/internal/store"
)

// FakeCompleter returns a fixed completion or error and records every prompt.
type FakeCompleter struct {
	mu      sync.Mutex
	Text    string
	Err     error
	Prompts []string
}

// Generate implements assistant.Completer.
func (f *FakeCompleter) Generate(ctx context.Context, p string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, p)
	return f.Text, f.Err
}

// Calls returns how many prompts the fake has received.
func (f *FakeCompleter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Prompts)
}

// NewTestServer creates a test API server backed by the built-in templates,
// the given completer, and an in-memory history store.
func NewTestServer(t *testing.T, c assistant.Completer) (*api.Server, *store.InMemoryStore) {
	t.Helper()
	gen, err := prompt.LoadDefault()
	if err != nil {
		t.Fatalf("failed to load built-in templates: %v", err)
	}
	st := store.NewInMemoryStore()
	a, err := assistant.New(gen, c, assistant.WithRecorder(st))
	if err != nil {
		t.Fatalf("failed to create assistant: %v", err)
	}
	return api.NewServer(a, st), st
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// ResultField returns response["result"][key] as a string.
func ResultField(t *testing.T, response map[string]interface{}, key string) string {
	t.Helper()
	result, ok := response["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("response missing result object: %v", response)
	}
	v, ok := result[key].(string)
	if !ok {
		t.Fatalf("result missing string field %q: %v", key, result)
	}
	return v
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}
