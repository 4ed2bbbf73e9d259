package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/Showrunner/internal/domain"
	"github.com/shaiso/Showrunner/internal/repo"
)

// memCache — кэш адресов в памяти.
type memCache struct {
	mu   sync.Mutex
	addr map[string]string
	puts int
}

func newMemCache() *memCache {
	return &memCache{addr: make(map[string]string)}
}

func (c *memCache) Get(_ context.Context, propertyID string) (*domain.AddressCacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	addr, ok := c.addr[propertyID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &domain.AddressCacheEntry{PropertyID: propertyID, Address: addr}, nil
}

func (c *memCache) Put(_ context.Context, propertyID, address string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addr[propertyID] = address
	c.puts++
	return nil
}

func TestResolver_CacheHit(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Write([]byte(`{"address": "123 Main St"}`))
	}))
	defer server.Close()

	cache := newMemCache()
	cache.addr["p1"] = "55 King St W, Toronto"

	r := New(Config{Cache: cache, BaseURL: server.URL})

	address, err := r.Resolve(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if address != "55 King St W, Toronto" {
		t.Errorf("unexpected address: %s", address)
	}
	// Кэш-попадание — без обращения к сервису
	if calls != 0 {
		t.Errorf("expected no lookup calls, got %d", calls)
	}
}

func TestResolver_LookupAndCache(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Write([]byte(`{"address": "123 Main St, Toronto, ON"}`))
	}))
	defer server.Close()

	cache := newMemCache()
	r := New(Config{Cache: cache, BaseURL: server.URL})

	address, err := r.Resolve(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if address != "123 Main St, Toronto, ON" {
		t.Errorf("unexpected address: %s", address)
	}
	if cache.puts != 1 {
		t.Errorf("resolved address should be cached, puts=%d", cache.puts)
	}

	// Повторное разрешение — из кэша
	if _, err := r.Resolve(context.Background(), "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 lookup call total, got %d", calls)
	}
}

func TestResolver_RetryableThenExhausted(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	r := New(Config{
		Cache:       newMemCache(),
		BaseURL:     server.URL,
		MaxAttempts: 3,
		RetryDelay:  time.Minute,
	})

	// Первые две попытки — retryable
	for attempt := 1; attempt <= 2; attempt++ {
		_, err := r.Resolve(context.Background(), "p1")
		if !errors.Is(err, ErrRetryable) {
			t.Fatalf("attempt %d: expected ErrRetryable, got %v", attempt, err)
		}
	}

	// Третья — исчерпание
	_, err := r.Resolve(context.Background(), "p1")
	if !errors.Is(err, ErrNoAddress) {
		t.Fatalf("expected ErrNoAddress, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 lookup calls, got %d", calls)
	}

	// Терминальный property больше не дёргает сервис
	_, err = r.Resolve(context.Background(), "p1")
	if !errors.Is(err, ErrNoAddress) {
		t.Fatalf("expected ErrNoAddress for terminal property, got %v", err)
	}
	if calls != 3 {
		t.Errorf("terminal property must not trigger lookups, got %d calls", calls)
	}
}

func TestResolver_RetryStateTracksAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	r := New(Config{
		Cache:       newMemCache(),
		BaseURL:     server.URL,
		MaxAttempts: 3,
		RetryDelay:  time.Minute,
	})

	before := time.Now()
	r.Resolve(context.Background(), "p1")

	state, ok := r.RetryState("p1")
	if !ok {
		t.Fatal("expected retry state after failure")
	}
	if state.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", state.Attempts)
	}
	if state.Terminal {
		t.Error("should not be terminal after first failure")
	}
	// NotBefore — не раньше чем через retryDelay
	if state.NotBefore.Before(before.Add(time.Minute)) {
		t.Errorf("NotBefore too early: %v", state.NotBefore)
	}
}

func TestResolver_SuccessClearsRetryState(t *testing.T) {
	fail := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"address": "1 Front St"}`))
	}))
	defer server.Close()

	r := New(Config{
		Cache:       newMemCache(),
		BaseURL:     server.URL,
		MaxAttempts: 3,
		RetryDelay:  time.Minute,
	})

	if _, err := r.Resolve(context.Background(), "p1"); !errors.Is(err, ErrRetryable) {
		t.Fatalf("expected ErrRetryable, got %v", err)
	}

	fail = false
	address, err := r.Resolve(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if address != "1 Front St" {
		t.Errorf("unexpected address: %s", address)
	}

	if _, ok := r.RetryState("p1"); ok {
		t.Error("retry state should be cleared after success")
	}
}

func TestResolver_UnrecognizablePayloadIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"name": "no address here"}`))
	}))
	defer server.Close()

	r := New(Config{
		Cache:       newMemCache(),
		BaseURL:     server.URL,
		MaxAttempts: 2,
		RetryDelay:  time.Minute,
	})

	_, err := r.Resolve(context.Background(), "p1")
	if !errors.Is(err, ErrRetryable) {
		t.Errorf("expected ErrRetryable, got %v", err)
	}
}

func TestResolver_Defaults(t *testing.T) {
	r := New(Config{Cache: newMemCache()})

	if r.maxAttempts != defaultMaxAttempts {
		t.Errorf("expected default max attempts %d, got %d", defaultMaxAttempts, r.maxAttempts)
	}
	if r.RetryDelay() != defaultRetryDelay {
		t.Errorf("expected default retry delay %v, got %v", defaultRetryDelay, r.RetryDelay())
	}
}
