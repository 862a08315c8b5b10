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

func TestDiagnoseBackendPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("not multipart: %v", err)
		}
		if r.FormValue("language") != "en" {
			t.Errorf("default language not applied: %q", r.FormValue("language"))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"plant_name": "Tomato", "disease_name": "Early Blight", "confidence": 0.87,
			"details": map[string]interface{}{
				"name": "Early Blight", "severity": "High",
				"symptoms": "Dark spots", "prevention": "Rotate crops",
				"treatments": []map[string]string{},
			},
		})
	}))
	t.Cleanup(server.Close)
	svc := NewDiagnosisService(api.NewClient(server.URL, 5*time.Second), nil, nil, "en")

	result, err := svc.Diagnose(context.Background(), 100, 42, []byte("img"), "photo.jpg", "")
	if err != nil {
		t.Fatalf("diagnose failed: %v", err)
	}
	if result.PlantName != "Tomato" || result.Details.Severity != "High" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestDiagnoseRejectsEmptyImage(t *testing.T) {
	svc := NewDiagnosisService(api.NewClient("http://localhost:0", time.Second), nil, nil, "en")
	_, err := svc.Diagnose(context.Background(), 100, 42, nil, "photo.jpg", "")
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDiagnoseNoFallbackConfigured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()
	svc := NewDiagnosisService(api.NewClient(server.URL, time.Second), nil, nil, "en")

	_, err := svc.Diagnose(context.Background(), 100, 42, []byte("img"), "photo.jpg", "")
	if !apperrors.IsType(err, apperrors.ErrorTypeNetwork) {
		t.Fatalf("expected network error without fallback, got %v", err)
	}
}

func TestFallbackWorthy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", apperrors.NewNetworkError(nil), true},
		{"external", apperrors.New(apperrors.ErrorTypeExternal, "BACKEND", "boom"), true},
		{"timeout", apperrors.New(apperrors.ErrorTypeTimeout, "TIMEOUT", "slow"), true},
		{"validation", apperrors.NewValidationError("bad input"), false},
		{"auth", apperrors.NewAuthError("nope"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fallbackWorthy(tt.err); got != tt.want {
				t.Errorf("fallbackWorthy(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestHistoryWithoutDatabase(t *testing.T) {
	svc := NewDiagnosisService(api.NewClient("http://localhost:0", time.Second), nil, nil, "en")
	entries, err := svc.History(context.Background(), 100, 10)
	if err != nil || entries != nil {
		t.Fatalf("history without db should be empty, got %v, %v", entries, err)
	}
}
