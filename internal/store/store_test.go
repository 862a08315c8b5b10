package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/plantguardian/garden-helper/internal/errors"
)

func TestLoadCachesResult(t *testing.T) {
	s := New()
	snap, err := s.Load(context.Background(), "plants:1", func(ctx context.Context) (interface{}, error) {
		return []string{"tomato"}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.State != StateSucceeded || !snap.HasData {
		t.Fatalf("expected succeeded snapshot with data, got %+v", snap)
	}

	cached := s.Get("plants:1")
	data, ok := cached.Data.([]string)
	if !ok || len(data) != 1 || data[0] != "tomato" {
		t.Fatalf("cached data mismatch: %+v", cached.Data)
	}
}

func TestLoadWithoutLoaderFails(t *testing.T) {
	s := New()
	_, err := s.Load(context.Background(), "plants:1", nil)
	if err == nil {
		t.Fatal("expected error for missing loader")
	}
}

func TestConcurrentLoadsCoalesce(t *testing.T) {
	s := New()
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	loader := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		once.Do(func() { close(started) })
		<-release
		return []int{1, 2, 3}, nil
	}

	const callers = 5
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := s.Load(context.Background(), "plants:1", loader)
			if err != nil {
				t.Errorf("load failed: %v", err)
				return
			}
			if data, ok := snap.Data.([]int); !ok || len(data) != 3 {
				t.Errorf("unexpected data: %+v", snap.Data)
			}
		}()
	}

	<-started
	// Give the remaining callers time to attach to the in-flight fetch.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly 1 fetch, got %d", got)
	}
}

func TestFailedReloadKeepsStaleData(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.Load(ctx, "plants:1", func(ctx context.Context) (interface{}, error) {
		return []string{"tomato", "basil"}, nil
	}); err != nil {
		t.Fatalf("initial load failed: %v", err)
	}

	wantErr := errors.New("backend down")
	snap, err := s.Load(ctx, "plants:1", func(ctx context.Context) (interface{}, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected load error, got %v", err)
	}
	if snap.State != StateFailed {
		t.Fatalf("expected failed state, got %v", snap.State)
	}
	if !snap.HasData {
		t.Fatal("stale data should survive a failed reload")
	}
	data := snap.Data.([]string)
	if len(data) != 2 || data[0] != "tomato" {
		t.Fatalf("stale data mismatch: %+v", data)
	}
}

func TestMutateTriggersReload(t *testing.T) {
	s := New()
	ctx := context.Background()

	items := []string{"tomato"}
	var mu sync.Mutex
	loader := func(ctx context.Context) (interface{}, error) {
		mu.Lock()
		defer mu.Unlock()
		out := make([]string, len(items))
		copy(out, items)
		return out, nil
	}

	if _, err := s.Load(ctx, "plants:1", loader); err != nil {
		t.Fatalf("initial load failed: %v", err)
	}

	err := s.Mutate(ctx, "plants:1", func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		items = append(items, "basil")
		return nil
	})
	if err != nil {
		t.Fatalf("mutate failed: %v", err)
	}

	snap := s.Get("plants:1")
	data := snap.Data.([]string)
	if len(data) != 2 || data[1] != "basil" {
		t.Fatalf("expected reloaded collection, got %+v", data)
	}
}

func TestMutateFailureLeavesCollectionUntouched(t *testing.T) {
	s := New()
	ctx := context.Background()
	var loads int32

	loader := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&loads, 1)
		return []string{"tomato"}, nil
	}
	if _, err := s.Load(ctx, "plants:1", loader); err != nil {
		t.Fatalf("initial load failed: %v", err)
	}

	wantErr := errors.New("rejected")
	err := s.Mutate(ctx, "plants:1", func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected op error, got %v", err)
	}
	if got := atomic.LoadInt32(&loads); got != 1 {
		t.Fatalf("failed mutation must not reload, loads=%d", got)
	}
	snap := s.Get("plants:1")
	if data := snap.Data.([]string); len(data) != 1 {
		t.Fatalf("collection changed after failed mutation: %+v", data)
	}
}

func TestSecondMutationRejectedBusy(t *testing.T) {
	s := New()
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	var opCalls int32

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Mutate(ctx, "plants:1", func(ctx context.Context) error {
			atomic.AddInt32(&opCalls, 1)
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	err := s.Mutate(ctx, "plants:1", func(ctx context.Context) error {
		atomic.AddInt32(&opCalls, 1)
		return nil
	})
	if !apperrors.IsType(err, apperrors.ErrorTypeBusy) {
		t.Fatalf("expected busy rejection, got %v", err)
	}
	if got := atomic.LoadInt32(&opCalls); got != 1 {
		t.Fatalf("rejected mutation must not run its op, calls=%d", got)
	}

	close(release)
	wg.Wait()

	// A different key is not affected by the busy window.
	if err := s.Mutate(ctx, "logs:7", func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("unrelated key should not be busy: %v", err)
	}
}

func TestInvalidateAllDiscardsInFlightResult(t *testing.T) {
	s := New()
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})

	var notified int32
	s.Subscribe("plants:1", func(snap Snapshot) {
		if snap.HasData {
			atomic.AddInt32(&notified, 1)
		}
	})

	var wg sync.WaitGroup
	wg.Add(1)
	var loadErr error
	go func() {
		defer wg.Done()
		_, loadErr = s.Load(ctx, "plants:1", func(ctx context.Context) (interface{}, error) {
			close(started)
			<-release
			return []string{"old-account-data"}, nil
		})
	}()

	<-started
	s.InvalidateAll()
	close(release)
	wg.Wait()

	if !errors.Is(loadErr, ErrSessionEnded) {
		t.Fatalf("expected session-ended error, got %v", loadErr)
	}
	snap := s.Get("plants:1")
	if snap.HasData {
		t.Fatalf("late result must not be cached: %+v", snap)
	}
	if atomic.LoadInt32(&notified) != 0 {
		t.Fatal("observers must not see data from a discarded flight")
	}
}

func TestInvalidateAllClearsEveryKey(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, key := range []string{"plants:1", "logs:7"} {
		key := key
		if _, err := s.Load(ctx, key, func(ctx context.Context) (interface{}, error) {
			return key, nil
		}); err != nil {
			t.Fatalf("load %s failed: %v", key, err)
		}
	}

	s.InvalidateAll()

	for _, key := range []string{"plants:1", "logs:7"} {
		snap := s.Get(key)
		if snap.HasData || snap.State != StateIdle {
			t.Fatalf("key %s not cleared: %+v", key, snap)
		}
	}
}

func TestSubscribeNotifiesOnSuccess(t *testing.T) {
	s := New()
	ctx := context.Background()

	var got []Snapshot
	unsubscribe := s.Subscribe("plants:1", func(snap Snapshot) {
		got = append(got, snap)
	})

	if _, err := s.Load(ctx, "plants:1", func(ctx context.Context) (interface{}, error) {
		return []string{"tomato"}, nil
	}); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got) != 1 || got[0].State != StateSucceeded {
		t.Fatalf("expected one success notification, got %+v", got)
	}

	unsubscribe()
	if _, err := s.Load(ctx, "plants:1", func(ctx context.Context) (interface{}, error) {
		return []string{"tomato", "basil"}, nil
	}); err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("unsubscribed observer must not be notified, got %d notifications", len(got))
	}
}

func TestKeys(t *testing.T) {
	if got := PlantsKey(1); got != "plants:1" {
		t.Errorf("PlantsKey(1) = %q", got)
	}
	if got := LogsKey(7); got != "logs:7" {
		t.Errorf("LogsKey(7) = %q", got)
	}
}
