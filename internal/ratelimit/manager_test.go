package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mr := miniredis.RunT(t)
	m, err := NewManager("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestNewManager_InvalidURL(t *testing.T) {
	if _, err := NewManager("not-a-url"); err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}

func TestAllow_WithinBudget(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, _, err := m.Allow(ctx, "client-a", 5)
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
}

func TestAllow_ExhaustedBudget(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, _, err := m.Allow(ctx, "client-a", 3); err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
	}

	allowed, resetSec, err := m.Allow(ctx, "client-a", 3)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Error("fourth request should be rejected")
	}
	if resetSec < 1 || resetSec > 60 {
		t.Errorf("resetSec = %d, want within (0, 60]", resetSec)
	}
}

func TestAllow_ClientsAreIndependent(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, _, err := m.Allow(ctx, "client-a", 1); err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed, _, _ := m.Allow(ctx, "client-a", 1); allowed {
		t.Error("client-a should be exhausted")
	}

	allowed, _, err := m.Allow(ctx, "client-b", 1)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("client-b should have its own budget")
	}
}
