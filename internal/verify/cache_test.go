package verify

import (
	"strconv"
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := NewCache(CacheOptions{TTL: time.Hour})
	c.Set("a@b.com", "123456")

	code, ok := c.Get("a@b.com")
	if !ok {
		t.Fatal("expected code to be present")
	}
	if code != "123456" {
		t.Errorf("code = %q, want %q", code, "123456")
	}
}

func TestCache_MissingKey(t *testing.T) {
	c := NewCache(CacheOptions{})
	if _, ok := c.Get("nobody@example.com"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestCache_OverwriteOnRetry(t *testing.T) {
	c := NewCache(CacheOptions{TTL: time.Hour})
	c.Set("a@b.com", "111111")
	c.Set("a@b.com", "222222")

	code, ok := c.Get("a@b.com")
	if !ok || code != "222222" {
		t.Errorf("got (%q, %v), want retry code to win", code, ok)
	}
}

func TestCache_Expiry(t *testing.T) {
	c := NewCache(CacheOptions{TTL: time.Hour})
	now := time.Now()
	c.SetAt("a@b.com", "123456", now)

	if _, ok := c.GetAt("a@b.com", now.Add(59*time.Minute)); !ok {
		t.Error("code should still be live before TTL")
	}
	if _, ok := c.GetAt("a@b.com", now.Add(61*time.Minute)); ok {
		t.Error("code should have expired after TTL")
	}
}

func TestCache_DefaultTTLIs24Hours(t *testing.T) {
	c := NewCache(CacheOptions{})
	now := time.Now()
	c.SetAt("a@b.com", "123456", now)

	if _, ok := c.GetAt("a@b.com", now.Add(23*time.Hour)); !ok {
		t.Error("code should survive 23 hours under the default TTL")
	}
	if _, ok := c.GetAt("a@b.com", now.Add(25*time.Hour)); ok {
		t.Error("code should be gone after 24 hours")
	}
}

func TestCache_Delete(t *testing.T) {
	c := NewCache(CacheOptions{})
	c.Set("a@b.com", "123456")
	c.Delete("a@b.com")

	if _, ok := c.Get("a@b.com"); ok {
		t.Error("deleted entry should not be readable")
	}
}

func TestCache_Sweep(t *testing.T) {
	c := NewCache(CacheOptions{TTL: time.Minute})
	now := time.Now()
	c.SetAt("old", "111111", now.Add(-2*time.Minute))
	c.SetAt("fresh", "222222", now)

	removed := c.SweepAt(now)
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if c.Size() != 1 {
		t.Errorf("size = %d, want 1", c.Size())
	}
	if _, ok := c.GetAt("fresh", now); !ok {
		t.Error("fresh entry should survive a sweep")
	}
}

func TestCache_MaxSizeEvictsClosestToExpiry(t *testing.T) {
	c := NewCache(CacheOptions{TTL: time.Hour, MaxSize: 2})
	now := time.Now()
	c.SetAt("first", "1", now.Add(-30*time.Minute))
	c.SetAt("second", "2", now.Add(-10*time.Minute))
	c.SetAt("third", "3", now)

	if c.Size() != 2 {
		t.Fatalf("size = %d, want 2", c.Size())
	}
	if _, ok := c.GetAt("first", now); ok {
		t.Error("entry closest to expiry should have been evicted")
	}
	if _, ok := c.GetAt("third", now); !ok {
		t.Error("newest entry should remain")
	}
}

func TestNewCode_SixDigits(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code := NewCode()
		if len(code) != 6 {
			t.Fatalf("len(%q) = %d, want 6", code, len(code))
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code %q is not numeric: %v", code, err)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code %d outside [100000, 999999]", n)
		}
	}
}
