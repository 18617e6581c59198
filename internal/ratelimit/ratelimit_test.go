package ratelimit

import (
	"testing"

	"golang.org/x/time/rate"
)

func TestAllowRespectsBurst(t *testing.T) {
	p := New(rate.Limit(0), 2)
	if !p.Allow("alice") {
		t.Fatal("expected the first request within burst to be allowed")
	}
	if !p.Allow("alice") {
		t.Fatal("expected the second request within burst to be allowed")
	}
	if p.Allow("alice") {
		t.Fatal("expected the third request to exceed the burst and be denied")
	}
}

func TestAllowIsPerKey(t *testing.T) {
	p := New(rate.Limit(0), 1)
	if !p.Allow("alice") {
		t.Fatal("expected alice's first request to be allowed")
	}
	if !p.Allow("bob") {
		t.Fatal("expected bob to have an independent bucket from alice")
	}
	if p.Allow("alice") {
		t.Fatal("expected alice's second request to be denied")
	}
}
