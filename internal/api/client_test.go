package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/plantguardian/garden-helper/internal/errors"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	return NewClient(server.URL, 5*time.Second), server
}

func TestLoginNormalizesUserID(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["username"] != "gardener" || req["password"] != "secret" {
			t.Errorf("unexpected credentials: %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "Login successful", "user_id": 42, "username": "gardener",
		})
	}))
	defer server.Close()

	result, err := client.Login(context.Background(), "gardener", "secret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.UserID != 42 || result.Username != "gardener" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRegisterNormalizesID(t *testing.T) {
	// Register returns "id" where login returns "user_id"; both must land in
	// AuthResult.UserID.
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": 7, "username": "newbie", "email": "n@example.com",
		})
	}))
	defer server.Close()

	result, err := client.Register(context.Background(), "newbie", "n@example.com", "pw")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if result.UserID != 7 {
		t.Fatalf("register id not normalized: %+v", result)
	}
}

func TestAuthRejectionMapped(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid username or password"})
	}))
	defer server.Close()

	_, err := client.Login(context.Background(), "gardener", "wrong")
	if !apperrors.IsType(err, apperrors.ErrorTypeAuth) {
		t.Fatalf("expected auth rejection, got %v", err)
	}
	if apperrors.UserMessage(err) != "Invalid username or password" {
		t.Fatalf("backend detail lost: %q", apperrors.UserMessage(err))
	}
}

func TestListPlantsMapsRecords(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/my-garden/42" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 1, "user_id": 42, "plant_name": "Balcony tomato", "species": "Tomato",
				"date_planted": "2024-05-17", "image_url": "http://img/1.jpg"},
		})
	}))
	defer server.Close()

	plants, err := client.ListPlants(context.Background(), 42)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(plants) != 1 || plants[0].Name != "Balcony tomato" || plants[0].Species != "Tomato" {
		t.Fatalf("mapping mismatch: %+v", plants)
	}
}

func TestPredictSendsMultipartAndMapsResult(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("not multipart: %v", err)
		}
		if r.FormValue("language") != "en" {
			t.Errorf("language field missing: %q", r.FormValue("language"))
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("file part missing: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"plant_name": "Tomato", "disease_name": "Early Blight", "confidence": 0.87,
			"details": map[string]interface{}{
				"name": "Early Blight", "severity": "High",
				"symptoms": "Dark spots", "prevention": "Rotate crops",
				"treatments": []map[string]string{
					{"type": "Organic", "description": "Neem oil", "cost_approx": "$10"},
				},
			},
		})
	}))
	defer server.Close()

	result, err := client.Predict(context.Background(), "photo.jpg", []byte("imgdata"), "en")
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if result.PlantName != "Tomato" || result.DiseaseName != "Early Blight" {
		t.Fatalf("result mismatch: %+v", result)
	}
	if result.Details == nil || len(result.Details.Treatments) != 1 {
		t.Fatalf("details mismatch: %+v", result.Details)
	}
	if result.Details.Treatments[0].CostApprox != "$10" {
		t.Fatalf("treatment mismatch: %+v", result.Details.Treatments[0])
	}
}

func TestUploadReturnsURL(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"url": "http://cdn/x.jpg"})
	}))
	defer server.Close()

	url, err := client.Upload(context.Background(), "x.jpg", []byte("img"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if url != "http://cdn/x.jpg" {
		t.Fatalf("unexpected url: %q", url)
	}
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   apperrors.ErrorType
	}{
		{"not found", http.StatusNotFound, apperrors.ErrorTypeNotFound},
		{"validation", http.StatusUnprocessableEntity, apperrors.ErrorTypeValidation},
		{"server error", http.StatusInternalServerError, apperrors.ErrorTypeExternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]string{"detail": "nope"})
			}))
			defer server.Close()

			_, err := client.ListPlants(context.Background(), 1)
			if !apperrors.IsType(err, tt.want) {
				t.Fatalf("status %d mapped to %v, want %v", tt.status, err, tt.want)
			}
		})
	}
}

func TestUnreachableBackendIsNetworkError(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	_, err := client.ListPlants(context.Background(), 1)
	if !apperrors.IsType(err, apperrors.ErrorTypeNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestMalformedResponseIsValidationError(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	_, err := client.ListPlants(context.Background(), 1)
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("expected validation error for malformed payload, got %v", err)
	}
}
