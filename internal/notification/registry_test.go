package notification

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/lumen-collective/lumenhub-api/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: slog.LevelError, Format: "json"})
}

type fakeHandle struct {
	mu         sync.Mutex
	frames     [][]byte
	enqueueErr error
	closed     bool
}

func (f *fakeHandle) Enqueue(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeHandle) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeHandle) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeHandle) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry(testLogger())
	h := &fakeHandle{}

	r.Register("u1", h)

	got, ok := r.Lookup("u1")
	if !ok {
		t.Fatal("expected handle for u1")
	}
	if got != Handle(h) {
		t.Error("lookup returned a different handle")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 live connection, got %d", r.Len())
	}
}

func TestRegistryLookupAbsent(t *testing.T) {
	r := NewRegistry(testLogger())

	if _, ok := r.Lookup("nobody"); ok {
		t.Error("expected no handle for unknown recipient")
	}
}

func TestRegistryLastConnectWins(t *testing.T) {
	r := NewRegistry(testLogger())
	first := &fakeHandle{}
	second := &fakeHandle{}

	r.Register("u1", first)
	r.Register("u1", second)

	got, ok := r.Lookup("u1")
	if !ok {
		t.Fatal("expected handle for u1")
	}
	if got != Handle(second) {
		t.Error("expected the newer handle after reconnect")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 live connection, got %d", r.Len())
	}
	// The registry drops the superseded handle but does not close it.
	if first.isClosed() {
		t.Error("registry must not close the superseded handle")
	}
}

func TestRegistryUnregisterGuard(t *testing.T) {
	r := NewRegistry(testLogger())
	stale := &fakeHandle{}
	current := &fakeHandle{}

	r.Register("u1", stale)
	r.Register("u1", current)

	// A disconnect event for the superseded connection must not evict the
	// newer one.
	r.Unregister("u1", stale)

	got, ok := r.Lookup("u1")
	if !ok {
		t.Fatal("newer handle was evicted by a stale disconnect")
	}
	if got != Handle(current) {
		t.Error("lookup returned the wrong handle")
	}

	r.Unregister("u1", current)
	if _, ok := r.Lookup("u1"); ok {
		t.Error("expected no handle after unregistering the current one")
	}
}

func TestRegistryCloseAll(t *testing.T) {
	r := NewRegistry(testLogger())
	h1 := &fakeHandle{}
	h2 := &fakeHandle{}

	r.Register("u1", h1)
	r.Register("u2", h2)

	r.CloseAll()

	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d entries", r.Len())
	}
	if !h1.isClosed() || !h2.isClosed() {
		t.Error("expected all handles closed")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry(testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := &fakeHandle{}
			r.Register("u1", h)
			r.Lookup("u1")
			r.Unregister("u1", h)
		}()
	}
	wg.Wait()

	// Every goroutine unregistered its own handle; guarded unregister means
	// at most the last writer's entry may linger, never a panic or a stale
	// mapping pointing at an unregistered handle.
	if r.Len() > 1 {
		t.Errorf("expected at most 1 entry, got %d", r.Len())
	}
}
