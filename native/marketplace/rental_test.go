package marketplace

import (
	"errors"
	"math/big"
	"testing"
)

func TestListForRentValidations(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := newTestAddress(0x01), newTestAddress(0x02)
	node := env.register(t, "alice.0g", alice)

	if err := env.engine.ListForRent(bob, node, big.NewInt(10), 1, 30); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := env.engine.ListForRent(alice, node, big.NewInt(0), 1, 30); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if err := env.engine.ListForRent(alice, node, big.NewInt(10), 10, 5); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("min above max: expected ErrInvalidDuration, got %v", err)
	}
	if err := env.engine.ListForRent(alice, node, big.NewInt(10), 0, 30); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("zero min: expected ErrInvalidDuration, got %v", err)
	}
	if err := env.engine.ListForRent(alice, node, big.NewInt(10), 1, 366); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("max above year: expected ErrInvalidDuration, got %v", err)
	}
	if env.engine.IsListedForRent(node) {
		t.Fatal("no state may be written by failed listings")
	}
	if err := env.engine.ListForRent(alice, node, big.NewInt(10), 1, 30); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := env.engine.ListForRent(alice, node, big.NewInt(10), 1, 30); !errors.Is(err, ErrAlreadyListed) {
		t.Fatalf("double listing: expected ErrAlreadyListed, got %v", err)
	}
}

func TestRentDomainLifecycle(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := newTestAddress(0x01), newTestAddress(0x02)
	node := env.register(t, "alice.0g", alice)
	env.state.fund(bob, 1000)

	if err := env.engine.ListForRent(alice, node, big.NewInt(10), 1, 30); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := env.engine.RentDomain(bob, node, 31, big.NewInt(310)); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("over max: expected ErrInvalidDuration, got %v", err)
	}
	if err := env.engine.RentDomain(alice, node, 5, big.NewInt(50)); !errors.Is(err, ErrSelfTransaction) {
		t.Fatalf("self rent: expected ErrSelfTransaction, got %v", err)
	}
	if err := env.engine.RentDomain(bob, node, 5, big.NewInt(49)); !errors.Is(err, ErrInsufficientPayment) {
		t.Fatalf("underpay: expected ErrInsufficientPayment, got %v", err)
	}
	if err := env.engine.RentDomain(bob, node, 5, big.NewInt(50)); err != nil {
		t.Fatalf("rent: %v", err)
	}

	rental, ok := env.engine.GetActiveRental(node)
	if !ok || !rental.Active {
		t.Fatal("active rental should exist")
	}
	if rental.EndTime != rental.StartTime+5*SecondsPerDay {
		t.Fatalf("end time = %d, want start+5d", rental.EndTime)
	}
	if rental.TotalPaid.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("total paid = %s, want 50", rental.TotalPaid)
	}
	// 250 bps of 50 = 1 to treasury, 49 to the owner.
	if got := env.state.balance(env.treasury); got.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("treasury = %s, want 1", got)
	}
	if got := env.state.balance(alice); got.Cmp(big.NewInt(49)) != 0 {
		t.Fatalf("owner = %s, want 49", got)
	}
	if got := env.state.balance(bob); got.Cmp(big.NewInt(950)) != 0 {
		t.Fatalf("renter = %s, want 950", got)
	}

	// Occupied assets cannot be sold, re-listed or re-rented.
	if err := env.engine.ListForSale(alice, node, big.NewInt(1000)); !errors.Is(err, ErrAssetLocked) {
		t.Fatalf("sale while rented: expected ErrAssetLocked, got %v", err)
	}
	if err := env.engine.CancelRentalListing(alice, node); !errors.Is(err, ErrAssetLocked) {
		t.Fatalf("cancel while rented: expected ErrAssetLocked, got %v", err)
	}
	if err := env.engine.RentDomain(bob, node, 5, big.NewInt(50)); !errors.Is(err, ErrAssetLocked) {
		t.Fatalf("re-rent: expected ErrAssetLocked, got %v", err)
	}

	// Time gate: end fails strictly before expiry, succeeds at expiry.
	if err := env.engine.EndRental(bob, node); !errors.Is(err, ErrRentalNotExpired) {
		t.Fatalf("early end: expected ErrRentalNotExpired, got %v", err)
	}
	env.advance(5*SecondsPerDay - 1)
	if err := env.engine.EndRental(bob, node); !errors.Is(err, ErrRentalNotExpired) {
		t.Fatalf("one second early: expected ErrRentalNotExpired, got %v", err)
	}
	env.advance(1)
	if err := env.engine.EndRental(newTestAddress(0x77), node); err != nil {
		t.Fatalf("anyone may end an expired rental: %v", err)
	}
	if err := env.engine.EndRental(bob, node); !errors.Is(err, ErrNoActiveRental) {
		t.Fatalf("double end: expected ErrNoActiveRental, got %v", err)
	}

	// The ended record persists as history.
	history, ok := env.engine.GetActiveRental(node)
	if !ok || history.Active {
		t.Fatal("ended rental should persist deactivated")
	}
	// The asset unlocks for sale listing again.
	if err := env.engine.ListForSale(alice, node, big.NewInt(1000)); err != nil {
		t.Fatalf("list after rental end: %v", err)
	}

	stats, err := env.engine.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalRentals != 1 || stats.RentalVolume.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("stats = %d/%s, want 1/50", stats.TotalRentals, stats.RentalVolume)
	}
}

func TestRentDomainOverpaymentRefund(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := newTestAddress(0x01), newTestAddress(0x02)
	node := env.register(t, "alice.0g", alice)
	env.state.fund(bob, 1000)

	if err := env.engine.ListForRent(alice, node, big.NewInt(10), 1, 30); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := env.engine.RentDomain(bob, node, 5, big.NewInt(80)); err != nil {
		t.Fatalf("rent: %v", err)
	}
	if got := env.state.balance(bob); got.Cmp(big.NewInt(950)) != 0 {
		t.Fatalf("net outflow must equal 50, balance = %s", got)
	}
	if got := env.state.balance(env.state.vault); got.Sign() != 0 {
		t.Fatalf("vault should not retain funds, holds %s", got)
	}
}

func TestEndRentalWithoutRental(t *testing.T) {
	env := newTestEnv(t)
	alice := newTestAddress(0x01)
	node := env.register(t, "alice.0g", alice)
	if err := env.engine.EndRental(alice, node); !errors.Is(err, ErrNoActiveRental) {
		t.Fatalf("expected ErrNoActiveRental, got %v", err)
	}
}

func TestRentalListingBlockedWhileOccupied(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := newTestAddress(0x01), newTestAddress(0x02)
	node := env.register(t, "alice.0g", alice)
	env.state.fund(bob, 1000)

	if err := env.engine.ListForRent(alice, node, big.NewInt(10), 1, 30); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := env.engine.RentDomain(bob, node, 2, big.NewInt(20)); err != nil {
		t.Fatalf("rent: %v", err)
	}
	if err := env.engine.CancelRentalListing(alice, node); !errors.Is(err, ErrAssetLocked) {
		t.Fatalf("expected ErrAssetLocked, got %v", err)
	}
	env.advance(2*SecondsPerDay + 1)
	// Expired but not yet ended: the lock lifts on expiry, not on EndRental.
	if err := env.engine.CancelRentalListing(alice, node); err != nil {
		t.Fatalf("cancel after expiry: %v", err)
	}
}
