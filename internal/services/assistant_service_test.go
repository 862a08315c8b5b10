package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/plantguardian/garden-helper/internal/api"
	apperrors "github.com/plantguardian/garden-helper/internal/errors"
)

func TestAssistantResolvesWebsiteShortcuts(t *testing.T) {
	// Website requests resolve locally; the backend must not be called.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("website shortcut must not reach the backend")
	}))
	t.Cleanup(server.Close)
	svc := NewAssistantService(api.NewClient(server.URL, 5*time.Second), nil)

	answer, err := svc.Ask(context.Background(), "please open YouTube for me")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if answer.OpenURL != "https://www.youtube.com" {
		t.Fatalf("unexpected url: %q", answer.OpenURL)
	}
}

func TestAssistantRejectsEmptyQuery(t *testing.T) {
	svc := NewAssistantService(api.NewClient("http://localhost:0", time.Second), nil)
	_, err := svc.Ask(context.Background(), "   ")
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAssistantForwardsToBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ask-google" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["query"] != "how often to water basil" {
			t.Errorf("unexpected query: %q", req["query"])
		}
		json.NewEncoder(w).Encode(map[string]string{"answer": "Every 2-3 days."})
	}))
	t.Cleanup(server.Close)
	svc := NewAssistantService(api.NewClient(server.URL, 5*time.Second), nil)

	answer, err := svc.Ask(context.Background(), "how often to water basil")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if answer.OpenURL != "" || answer.Text != "Every 2-3 days." {
		t.Fatalf("unexpected answer: %+v", answer)
	}
}

func TestAssistantErrorWithoutFallback(t *testing.T) {
	// No Gemini client configured: a backend failure surfaces as-is.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()
	svc := NewAssistantService(api.NewClient(server.URL, time.Second), nil)

	_, err := svc.Ask(context.Background(), "how often to water basil")
	if !apperrors.IsType(err, apperrors.ErrorTypeNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}
