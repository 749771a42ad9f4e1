package registry

import (
	"bytes"
	"errors"
	"testing"

	"github.com/chronogist/iNS-intelligent-name-service-sub001/storage"
)

func addr(fill byte) [20]byte {
	var a [20]byte
	copy(a[:], bytes.Repeat([]byte{fill}, 20))
	return a
}

func TestNodeCaseFolding(t *testing.T) {
	if Node("Alice.0g") != Node("alice.0g") {
		t.Fatal("node derivation should be case-insensitive")
	}
	if Node("alice.0g") == Node("bob.0g") {
		t.Fatal("distinct names must produce distinct nodes")
	}
}

func TestLedgerRegisterResolve(t *testing.T) {
	ledger := NewLedger()
	owner := addr(0x01)
	node, err := ledger.Register("alice.0g", owner)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	got, err := ledger.Resolve(node)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != owner {
		t.Fatalf("resolved owner mismatch")
	}
	name, err := ledger.NameOf(node)
	if err != nil || name != "alice.0g" {
		t.Fatalf("name lookup: %q %v", name, err)
	}
	if _, err := ledger.Register("ALICE.0g", owner); !errors.Is(err, ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken, got %v", err)
	}
}

func TestLedgerTransferOwnership(t *testing.T) {
	ledger := NewLedger()
	alice, bob := addr(0x01), addr(0x02)
	node, err := ledger.Register("alice.0g", alice)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := ledger.TransferOwnership(node, bob, alice); !errors.Is(err, ErrWrongOwner) {
		t.Fatalf("expected ErrWrongOwner, got %v", err)
	}
	if err := ledger.TransferOwnership(node, alice, bob); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	got, err := ledger.Resolve(node)
	if err != nil || got != bob {
		t.Fatalf("ownership should have moved to bob: %v", err)
	}
	var unknown [32]byte
	if _, err := ledger.Resolve(unknown); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}
}

func TestPersistentLedgerReload(t *testing.T) {
	db := storage.NewMemDB()
	alice, bob := addr(0x01), addr(0x02)

	ledger, err := NewPersistentLedger(db)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	node, err := ledger.Register("alice.0g", alice)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := ledger.Register("bob.0g", bob); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := ledger.TransferOwnership(node, alice, bob); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	reloaded, err := NewPersistentLedger(db)
	if err != nil {
		t.Fatalf("reload ledger: %v", err)
	}
	owner, err := reloaded.Resolve(node)
	if err != nil || owner != bob {
		t.Fatalf("reloaded owner mismatch: %v", err)
	}
	name, err := reloaded.NameOf(node)
	if err != nil || name != "alice.0g" {
		t.Fatalf("reloaded name mismatch: %q %v", name, err)
	}
	if _, err := reloaded.Register("alice.0g", alice); !errors.Is(err, ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken after reload, got %v", err)
	}
}
