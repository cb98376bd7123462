package testutil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewTestServer(t *testing.T) {
	fc := &FakeCompleter{Text: "X"}
	server, st := NewTestServer(t, fc)
	if server == nil || st == nil {
		t.Fatal("NewTestServer returned nil")
	}

	req := CreateHTTPRequest(t, http.MethodPost, "/create_guide", map[string]string{"topic": "Algebra"})
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)
	AssertHTTPStatus(t, http.StatusOK, rr.Code, "create_guide")
	resp := AssertJSONResponse(t, rr, "ok")
	if got := ResultField(t, resp, "guide"); got != "X" {
		t.Errorf("expected guide 'X', got %q", got)
	}

	gens, err := st.ListGenerations(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gens) != 1 {
		t.Errorf("expected the generation to be recorded, got %d", len(gens))
	}
}

func TestFakeCompleter(t *testing.T) {
	fc := &FakeCompleter{Err: errors.New("offline")}
	if _, err := fc.Generate(context.Background(), "p1"); err == nil {
		t.Error("expected configured error")
	}
	fc.Generate(context.Background(), "p2")
	if fc.Calls() != 2 || fc.Prompts[1] != "p2" {
		t.Errorf("expected prompts to be recorded in order, got %v", fc.Prompts)
	}
}

func TestCreateHTTPRequest_NoBody(t *testing.T) {
	req := CreateHTTPRequest(t, http.MethodGet, "/history", nil)
	if req.Method != http.MethodGet || req.URL.Path != "/history" {
		t.Errorf("unexpected request: %s %s", req.Method, req.URL.Path)
	}
}
