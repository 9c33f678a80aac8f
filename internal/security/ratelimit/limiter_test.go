package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinLimit(t *testing.T) {
	l := NewLimiter(3, time.Minute)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("user-1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("user-1") {
		t.Fatalf("fourth request should be rejected")
	}
	if !l.Allow("user-2") {
		t.Fatalf("another caller must have its own bucket")
	}
}

func TestWindowSlides(t *testing.T) {
	l := NewLimiter(1, 50*time.Millisecond)
	defer l.Stop()

	if !l.Allow("user-1") {
		t.Fatalf("first request should be allowed")
	}
	if l.Allow("user-1") {
		t.Fatalf("second request inside the window should be rejected")
	}

	time.Sleep(60 * time.Millisecond)
	if !l.Allow("user-1") {
		t.Fatalf("request after the window should be allowed")
	}
}

func TestEmptyKeyBypasses(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	defer l.Stop()

	for i := 0; i < 5; i++ {
		if !l.Allow("") {
			t.Fatalf("empty key must never be limited")
		}
	}
}

func TestStrictLimitIsSeparate(t *testing.T) {
	l := NewLimiter(100, time.Minute)
	defer l.Stop()

	if !l.AllowStrict("1.2.3.4", 1, time.Minute) {
		t.Fatalf("first strict request should be allowed")
	}
	if l.AllowStrict("1.2.3.4", 1, time.Minute) {
		t.Fatalf("second strict request should be rejected")
	}
	if !l.Allow("1.2.3.4") {
		t.Fatalf("the regular bucket must not be affected by strict rejections")
	}
}
