package common

import (
	"errors"
	"math"
	"testing"
)

func TestCheckCredentialWithinBalance(t *testing.T) {
	quota := CredentialQuota{Balance: 2, Opened: 1}
	next, err := CheckCredential(quota, 1)
	if err != nil {
		t.Fatalf("expected open permitted, got %v", err)
	}
	if next.Opened != 2 {
		t.Fatalf("expected opened counter 2, got %d", next.Opened)
	}
}

func TestCheckCredentialExceeded(t *testing.T) {
	quota := CredentialQuota{Balance: 1, Opened: 1}
	if _, err := CheckCredential(quota, 1); !errors.Is(err, ErrQuotaCredentialExceeded) {
		t.Fatalf("expected ErrQuotaCredentialExceeded, got %v", err)
	}
}

func TestCheckCredentialOverflow(t *testing.T) {
	quota := CredentialQuota{Balance: math.MaxUint64, Opened: math.MaxUint64}
	if _, err := CheckCredential(quota, 1); !errors.Is(err, ErrQuotaCounterOverflow) {
		t.Fatalf("expected ErrQuotaCounterOverflow, got %v", err)
	}
}

func TestCheckCredentialZeroOpens(t *testing.T) {
	quota := CredentialQuota{Balance: 0, Opened: 0}
	next, err := CheckCredential(quota, 0)
	if err != nil {
		t.Fatalf("expected no-op check to pass, got %v", err)
	}
	if next != quota {
		t.Fatalf("expected counters unchanged")
	}
}

type stubPauses struct{ modules map[string]bool }

func (s stubPauses) IsPaused(module string) bool { return s.modules[module] }

func TestGuard(t *testing.T) {
	if err := Guard(nil, "credit"); err != nil {
		t.Fatalf("nil view must not block, got %v", err)
	}
	view := stubPauses{modules: map[string]bool{"credit": true}}
	if err := Guard(view, "credit"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(view, "other"); err != nil {
		t.Fatalf("unpaused module must pass, got %v", err)
	}
}
