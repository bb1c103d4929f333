package cache

import (
	"testing"
	"time"

	"github.com/finlens/statement-analyzer/internal/domain"
)

func TestKeyIsContentHash(t *testing.T) {
	a := Key([]byte("document one"))
	b := Key([]byte("document one"))
	c := Key([]byte("document two"))

	if a != b {
		t.Error("same content must produce the same key")
	}
	if a == c {
		t.Error("different content must produce different keys")
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(a))
	}
}

func TestGetPutRoundTrip(t *testing.T) {
	c := New(time.Minute)
	res := &domain.AnalysisResult{Success: true, Method: domain.MethodTextLayer}

	key := Key([]byte("doc"))
	if _, ok := c.Get(key); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	c.Put(key, res)
	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if got != res {
		t.Error("cached pointer differs")
	}
}

func TestExpiry(t *testing.T) {
	c := New(time.Minute)
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	key := Key([]byte("doc"))
	c.Put(key, &domain.AnalysisResult{Success: true})

	current = current.Add(30 * time.Second)
	if _, ok := c.Get(key); !ok {
		t.Error("entry expired too early")
	}

	current = current.Add(45 * time.Second)
	if _, ok := c.Get(key); ok {
		t.Error("entry should have expired")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not removed, len = %d", c.Len())
	}
}

func TestPutSweepsExpired(t *testing.T) {
	c := New(time.Minute)
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	c.Put("a", &domain.AnalysisResult{})
	current = current.Add(2 * time.Minute)
	c.Put("b", &domain.AnalysisResult{})

	if c.Len() != 1 {
		t.Errorf("len = %d, want 1 after sweep", c.Len())
	}
}
