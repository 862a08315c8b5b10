// Package store is the synchronization layer between chat views and the
// remote garden backend. Views never hold their own copies of remote
// collections: they load, mutate and observe through the store, which owns
// the cached state and keeps concurrent chat events from issuing duplicate
// or out-of-order requests.
package store

import (
	"context"
	"sync"

	apperrors "github.com/plantguardian/garden-helper/internal/errors"
	"golang.org/x/sync/singleflight"
)

// State is the lifecycle of the last operation on a resource key.
type State int

const (
	StateIdle State = iota
	StateInFlight
	StateSucceeded
	StateFailed
)

// Snapshot is what observers and callers see for a resource key. Data stays
// populated with the last known good collection even after a failed reload;
// stale but present beats empty.
type Snapshot struct {
	State   State
	Data    interface{}
	HasData bool
	Err     error
}

// LoadFunc fetches the current remote collection for a key.
type LoadFunc func(ctx context.Context) (interface{}, error)

// Observer is notified when the cached collection for a key changes.
type Observer func(Snapshot)

// ErrSessionEnded is returned to load callers whose request outlived an
// InvalidateAll; their result is discarded, never cached.
var ErrSessionEnded = apperrors.New(apperrors.ErrorTypeInternal, "SESSION_ENDED", "session ended before the request completed")

type entry struct {
	data    interface{}
	hasData bool
	state   State
	err     error
}

// Store caches remote collections keyed by resource key.
//
// Guarantees, per key: concurrent loads coalesce into a single fetch
// (single-flight); mutations are serialized with an immediate busy rejection
// instead of queueing; successful mutations trigger a reload from the backend
// rather than patching the cache locally; InvalidateAll discards everything,
// including the eventual results of in-flight fetches.
type Store struct {
	mu       sync.Mutex
	group    *singleflight.Group
	gen      uint64
	entries  map[string]*entry
	loaders  map[string]LoadFunc
	mutating map[string]bool
	cancels  map[string]context.CancelFunc
	subs     map[string]map[int]Observer
	nextSub  int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		group:    &singleflight.Group{},
		entries:  make(map[string]*entry),
		loaders:  make(map[string]LoadFunc),
		mutating: make(map[string]bool),
		cancels:  make(map[string]context.CancelFunc),
		subs:     make(map[string]map[int]Observer),
	}
}

// Load fetches the collection for key. If a load for the same key is already
// in flight the call attaches to it instead of issuing a second fetch. On
// success the cached collection is replaced wholesale and observers are
// notified synchronously. On failure the last known good collection is kept
// and returned alongside the error.
//
// The loader is remembered per key and reused for mutate-triggered reloads.
func (s *Store) Load(ctx context.Context, key string, loader LoadFunc) (Snapshot, error) {
	s.mu.Lock()
	if loader != nil {
		s.loaders[key] = loader
	} else {
		loader = s.loaders[key]
	}
	if loader == nil {
		s.mu.Unlock()
		err := apperrors.New(apperrors.ErrorTypeInternal, "NO_LOADER", "no loader registered for resource key").
			WithContext("resource_key", key)
		return Snapshot{State: StateFailed, Err: err}, err
	}
	gen := s.gen
	group := s.group
	e := s.entry(key)
	e.state = StateInFlight
	s.mu.Unlock()

	// The flight runs under its own context so that attached callers share
	// its fate and InvalidateAll can cancel it.
	result, err, _ := group.Do(key, func() (interface{}, error) {
		flightCtx, cancel := context.WithCancel(context.Background())
		s.mu.Lock()
		s.cancels[key] = cancel
		s.mu.Unlock()
		defer func() {
			cancel()
			s.mu.Lock()
			delete(s.cancels, key)
			s.mu.Unlock()
		}()
		return loader(flightCtx)
	})

	s.mu.Lock()
	if s.gen != gen {
		// Invalidated while in flight: the result belongs to a session that
		// no longer exists. Do not cache, do not notify.
		s.mu.Unlock()
		return Snapshot{State: StateIdle, Err: ErrSessionEnded}, ErrSessionEnded
	}
	e = s.entry(key)
	if err != nil {
		e.state = StateFailed
		e.err = err
		snap := snapshotOf(e)
		s.mu.Unlock()
		return snap, err
	}
	e.data = result
	e.hasData = true
	e.state = StateSucceeded
	e.err = nil
	snap := snapshotOf(e)
	observers := s.observersOf(key)
	s.mu.Unlock()

	for _, notify := range observers {
		notify(snap)
	}
	return snap, nil
}

// Mutate performs a remote write for key. A second mutation for the same key
// while one is in flight is rejected with a busy error and causes no network
// call. On success the store does not patch the cached collection; it reloads
// it from the backend, which is the sole source of truth. On failure the
// collection is left untouched.
func (s *Store) Mutate(ctx context.Context, key string, op func(ctx context.Context) error) error {
	s.mu.Lock()
	if s.mutating[key] {
		s.mu.Unlock()
		return apperrors.NewBusyError(key)
	}
	s.mutating[key] = true
	gen := s.gen
	s.mu.Unlock()

	err := op(ctx)

	s.mu.Lock()
	delete(s.mutating, key)
	stale := s.gen != gen
	loader := s.loaders[key]
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if stale || loader == nil {
		return nil
	}
	// Re-synchronize from the authoritative source. A reload failure leaves
	// the entry flagged Failed with stale data; the mutation itself stands.
	s.Load(ctx, key, loader)
	return nil
}

// Get returns the current snapshot for key without touching the network.
func (s *Store) Get(key string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Snapshot{State: StateIdle}
	}
	return snapshotOf(e)
}

// Subscribe registers an observer for key and returns its unsubscribe
// handle. Multiple observers may watch the same key.
func (s *Store) Subscribe(key string, observer Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[key] == nil {
		s.subs[key] = make(map[int]Observer)
	}
	id := s.nextSub
	s.nextSub++
	s.subs[key][id] = observer
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[key], id)
	}
}

// InvalidateAll clears every cached collection and discards the eventual
// results of every in-flight request. Called on logout, before the session
// record is removed, so a late response for one account can never be rendered
// under the next.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	s.gen++
	s.entries = make(map[string]*entry)
	s.loaders = make(map[string]LoadFunc)
	s.mutating = make(map[string]bool)
	cancels := s.cancels
	s.cancels = make(map[string]context.CancelFunc)
	s.group = &singleflight.Group{}
	var notifications []func()
	for _, observers := range s.subs {
		for _, notify := range observers {
			notify := notify
			notifications = append(notifications, func() { notify(Snapshot{State: StateIdle}) })
		}
	}
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	for _, fire := range notifications {
		fire()
	}
}

func (s *Store) entry(key string) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{state: StateIdle}
		s.entries[key] = e
	}
	return e
}

func (s *Store) observersOf(key string) []Observer {
	observers := make([]Observer, 0, len(s.subs[key]))
	for _, notify := range s.subs[key] {
		observers = append(observers, notify)
	}
	return observers
}

func snapshotOf(e *entry) Snapshot {
	return Snapshot{State: e.state, Data: e.data, HasData: e.hasData, Err: e.err}
}
