package common

import (
	"errors"
	"testing"
)

type pauseMap map[string]bool

func (p pauseMap) IsPaused(module string) bool { return p[module] }

func TestGuardNilView(t *testing.T) {
	if err := Guard(nil, "marketplace"); err != nil {
		t.Fatalf("nil view should not guard: %v", err)
	}
}

func TestGuardEmptyModule(t *testing.T) {
	if err := Guard(pauseMap{"": true}, ""); err != nil {
		t.Fatalf("empty module should not guard: %v", err)
	}
}

func TestGuardPaused(t *testing.T) {
	view := pauseMap{"marketplace": true}
	if err := Guard(view, "marketplace"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if err := Guard(view, "registry"); err != nil {
		t.Fatalf("unpaused module should pass: %v", err)
	}
}
