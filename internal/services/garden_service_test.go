package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/plantguardian/garden-helper/internal/api"
	apperrors "github.com/plantguardian/garden-helper/internal/errors"
	"github.com/plantguardian/garden-helper/internal/store"
)

// fakeBackend is an in-memory stand-in for the Plant Guardian REST backend.
type fakeBackend struct {
	mu       sync.Mutex
	plants   []map[string]interface{}
	logs     map[int][]map[string]interface{}
	nextID   int
	failList bool
	blockAdd chan struct{}
	addBegan chan struct{}
	uploads  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		logs:   make(map[int][]map[string]interface{}),
		nextID: 1,
	}
}

func (f *fakeBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/my-garden/logs/"):
			plantID, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/my-garden/logs/"))
			f.mu.Lock()
			logs := append([]map[string]interface{}{}, f.logs[plantID]...)
			f.mu.Unlock()
			json.NewEncoder(w).Encode(logs)

		case r.Method == http.MethodPost && r.URL.Path == "/my-garden/logs/add":
			var req map[string]interface{}
			json.NewDecoder(r.Body).Decode(&req)
			f.mu.Lock()
			plantID := int(req["user_plant_id"].(float64))
			req["id"] = f.nextID
			f.nextID++
			f.logs[plantID] = append(f.logs[plantID], req)
			f.mu.Unlock()
			json.NewEncoder(w).Encode(req)

		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/my-garden/"):
			f.mu.Lock()
			fail := f.failList
			plants := append([]map[string]interface{}{}, f.plants...)
			f.mu.Unlock()
			if fail {
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"detail": "database offline"})
				return
			}
			json.NewEncoder(w).Encode(plants)

		case r.Method == http.MethodPost && r.URL.Path == "/my-garden/add":
			f.mu.Lock()
			began := f.addBegan
			block := f.blockAdd
			f.mu.Unlock()
			if began != nil {
				close(began)
				f.mu.Lock()
				f.addBegan = nil
				f.mu.Unlock()
			}
			if block != nil {
				<-block
			}
			var req map[string]interface{}
			json.NewDecoder(r.Body).Decode(&req)
			f.mu.Lock()
			req["id"] = f.nextID
			f.nextID++
			f.plants = append(f.plants, req)
			f.mu.Unlock()
			json.NewEncoder(w).Encode(req)

		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/my-garden/"):
			plantID, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/my-garden/"))
			f.mu.Lock()
			kept := f.plants[:0]
			for _, p := range f.plants {
				if int(p["id"].(int)) != plantID {
					kept = append(kept, p)
				}
			}
			f.plants = kept
			f.mu.Unlock()
			w.Write([]byte(`{"message":"deleted"}`))

		case r.Method == http.MethodPost && r.URL.Path == "/upload":
			f.mu.Lock()
			f.uploads++
			f.mu.Unlock()
			json.NewEncoder(w).Encode(map[string]string{"url": "http://cdn/uploaded.jpg"})

		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"detail": "not found"})
		}
	})
}

func newGardenService(t *testing.T, backend *fakeBackend) (*GardenService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)
	client := api.NewClient(server.URL, 5*time.Second)
	return NewGardenService(client, store.New()), server
}

func TestGardenAddListDelete(t *testing.T) {
	backend := newFakeBackend()
	svc, _ := newGardenService(t, backend)
	ctx := context.Background()

	if err := svc.AddPlant(ctx, 1, "Balcony tomato", "Tomato", "2024-05-17"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	plants, err := svc.Plants(ctx, 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(plants) != 1 || plants[0].Name != "Balcony tomato" {
		t.Fatalf("unexpected plants: %+v", plants)
	}

	if err := svc.AddPlant(ctx, 1, "Kitchen basil", "Basil", ""); err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if err := svc.DeletePlant(ctx, 1, plants[0].ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	plants, err = svc.Plants(ctx, 1)
	if err != nil {
		t.Fatalf("list after delete failed: %v", err)
	}
	if len(plants) != 1 || plants[0].Name != "Kitchen basil" {
		t.Fatalf("delete not reflected: %+v", plants)
	}
}

func TestPlantsReturnsStaleOnFailure(t *testing.T) {
	backend := newFakeBackend()
	svc, _ := newGardenService(t, backend)
	ctx := context.Background()

	if err := svc.AddPlant(ctx, 1, "Fern", "Fern", ""); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := svc.Plants(ctx, 1); err != nil {
		t.Fatalf("initial list failed: %v", err)
	}

	backend.mu.Lock()
	backend.failList = true
	backend.mu.Unlock()

	plants, err := svc.Plants(ctx, 1)
	if err == nil {
		t.Fatal("expected refresh error")
	}
	if len(plants) != 1 || plants[0].Name != "Fern" {
		t.Fatalf("stale collection lost: %+v", plants)
	}
}

func TestConcurrentGardenMutationRejectedBusy(t *testing.T) {
	backend := newFakeBackend()
	backend.blockAdd = make(chan struct{})
	backend.addBegan = make(chan struct{})
	began := backend.addBegan
	svc, _ := newGardenService(t, backend)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.AddPlant(ctx, 1, "Slow plant", "Cactus", "")
	}()

	<-began
	err := svc.DeletePlant(ctx, 1, 99)
	if !apperrors.IsType(err, apperrors.ErrorTypeBusy) {
		t.Fatalf("expected busy rejection while add is in flight, got %v", err)
	}

	close(backend.blockAdd)
	wg.Wait()
}

func TestAddPlantValidatesBeforeNetwork(t *testing.T) {
	backend := newFakeBackend()
	svc, _ := newGardenService(t, backend)

	err := svc.AddPlant(context.Background(), 1, "", "Tomato", "")
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	err = svc.AddPlant(context.Background(), 1, "Tomato", "Tomato", "17.05.2024")
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("expected date validation error, got %v", err)
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.plants) != 0 {
		t.Fatalf("invalid input must not reach the backend: %+v", backend.plants)
	}
}

func TestLogsSortedNewestFirst(t *testing.T) {
	backend := newFakeBackend()
	backend.logs[5] = []map[string]interface{}{
		{"id": 1, "user_plant_id": 5, "date": "2024-05-01", "note": "old", "status": "Healthy"},
		{"id": 2, "user_plant_id": 5, "date": "2024-06-01", "note": "new", "status": "Sick"},
		{"id": 3, "user_plant_id": 5, "date": "2024-05-15", "note": "mid", "status": "Healthy"},
	}
	svc, _ := newGardenService(t, backend)

	logs, err := svc.Logs(context.Background(), 5)
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("unexpected log count: %d", len(logs))
	}
	if logs[0].Note != "new" || logs[1].Note != "mid" || logs[2].Note != "old" {
		t.Fatalf("logs not newest first: %+v", logs)
	}
}

func TestAddLogUploadsAttachedImage(t *testing.T) {
	backend := newFakeBackend()
	svc, _ := newGardenService(t, backend)
	ctx := context.Background()

	err := svc.AddLog(ctx, 5, "2024-06-02", "spots on leaves", "Sick", []byte("img"), "leaf.jpg")
	if err != nil {
		t.Fatalf("add log failed: %v", err)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.uploads != 1 {
		t.Fatalf("expected one upload, got %d", backend.uploads)
	}
	entries := backend.logs[5]
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if entries[0]["image_url"] != "http://cdn/uploaded.jpg" {
		t.Fatalf("log entry missing uploaded image url: %+v", entries[0])
	}
}
