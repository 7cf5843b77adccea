package ristretto

import (
	"testing"
	"time"

	"github.com/keyward/keyward/cache"
)

var _ cache.Cache[string, string] = (*Cache[string, string])(nil)

func TestNewLevels(t *testing.T) {
	testCases := []struct {
		level   string
		wantErr bool
	}{
		{level: "small"},
		{level: "medium"},
		{level: "large"},
		{level: "very-large"},
		{level: "", wantErr: true},
		{level: "huge", wantErr: true},
		{level: " medium", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			c, err := New[string](tc.level)
			if tc.wantErr {
				if err == nil || c != nil {
					t.Fatalf("New(%q) = (%v, %v), want (nil, error)", tc.level, c, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q) failed: %v", tc.level, err)
			}
			c.Close()
		})
	}
}

func newStateStore(t *testing.T) *Cache[string, string] {
	t.Helper()
	c, err := New[string]("small")
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestStateRoundTrip(t *testing.T) {
	c := newStateStore(t)

	if !c.SetWithTTL("state-1", "verifier-1", 1, time.Minute) {
		t.Fatal("SetWithTTL rejected a fresh state")
	}
	c.Wait()

	got, ok := c.Get("state-1")
	if !ok || got != "verifier-1" {
		t.Fatalf("Get() = (%q, %v), want (%q, true)", got, ok, "verifier-1")
	}

	// an empty verifier (pkce off) is still a present state
	c.SetWithTTL("state-2", "", 1, time.Minute)
	c.Wait()
	if _, ok := c.Get("state-2"); !ok {
		t.Error("expected state with empty verifier to be found")
	}

	if _, ok := c.Get("never-issued"); ok {
		t.Error("expected unknown state to miss")
	}
}

func TestStateExpires(t *testing.T) {
	c := newStateStore(t)
	ttl := 50 * time.Millisecond

	c.SetWithTTL("state", "verifier", 1, ttl)
	c.Wait()
	if _, ok := c.Get("state"); !ok {
		t.Fatal("state missing before its ttl")
	}

	time.Sleep(3 * ttl)
	if v, ok := c.Get("state"); ok {
		t.Errorf("state %q still present after its ttl", v)
	}
}

func TestStateIsSingleUse(t *testing.T) {
	c := newStateStore(t)
	c.SetWithTTL("state", "verifier", 1, time.Minute)
	c.Wait()

	v, ok := cache.Take[string, string](c, "state")
	if !ok || v != "verifier" {
		t.Fatalf("Take() = (%q, %v), want (%q, true)", v, ok, "verifier")
	}
	if _, ok := cache.Take[string, string](c, "state"); ok {
		t.Error("second Take of the same state succeeded")
	}
}
