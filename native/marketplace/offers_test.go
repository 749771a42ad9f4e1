package marketplace

import (
	"errors"
	"math/big"
	"testing"
)

func TestMakeOfferValidations(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := newTestAddress(0x01), newTestAddress(0x02)
	node := env.register(t, "alice.0g", alice)
	env.state.fund(bob, 1000)

	if _, err := env.engine.MakeOffer(alice, node, big.NewInt(500), OfferBuy, 0); !errors.Is(err, ErrSelfTransaction) {
		t.Fatalf("self offer: expected ErrSelfTransaction, got %v", err)
	}
	if _, err := env.engine.MakeOffer(bob, node, big.NewInt(0), OfferBuy, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := env.engine.MakeOffer(bob, node, big.NewInt(100), OfferRent, 0); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("zero duration rent: expected ErrInvalidDuration, got %v", err)
	}
	if _, err := env.engine.MakeOffer(bob, node, big.NewInt(100), OfferRent, 366); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("year-plus rent: expected ErrInvalidDuration, got %v", err)
	}
	if _, err := env.engine.MakeOffer(bob, node, big.NewInt(2000), OfferBuy, 0); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("unfunded offer: expected ErrInsufficientFunds, got %v", err)
	}
	var unknown [32]byte
	if _, err := env.engine.MakeOffer(bob, unknown, big.NewInt(100), OfferBuy, 0); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("unknown asset: expected ErrAssetNotFound, got %v", err)
	}

	index, err := env.engine.MakeOffer(bob, node, big.NewInt(500), OfferBuy, 0)
	if err != nil {
		t.Fatalf("offer: %v", err)
	}
	if index != 0 {
		t.Fatalf("first offer index = %d, want 0", index)
	}
	// The full amount is escrowed immediately.
	if got := env.state.balance(bob); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("offerer balance = %s, want 500", got)
	}
	if got := env.state.balance(env.state.vault); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("vault = %s, want 500", got)
	}
	offers := env.engine.GetOffers(node)
	if len(offers) != 1 || !offers[0].Active {
		t.Fatalf("expected one active offer, got %+v", offers)
	}
	if offers[0].ExpiresAt != testEpoch+OfferWindowSeconds {
		t.Fatalf("expiry = %d, want submission+7d", offers[0].ExpiresAt)
	}
	// Duplicate offers are permitted; indices are append-only.
	index, err = env.engine.MakeOffer(bob, node, big.NewInt(100), OfferBuy, 0)
	if err != nil || index != 1 {
		t.Fatalf("second offer index = %d (%v), want 1", index, err)
	}
}

func TestAcceptBuyOffer(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := newTestAddress(0x01), newTestAddress(0x02)
	node := env.register(t, "zeta.0g", alice)
	env.state.fund(bob, 500)

	// Pre-existing listings must be force-deactivated by the transfer.
	if err := env.engine.ListForSale(alice, node, big.NewInt(9000)); err != nil {
		t.Fatalf("list sale: %v", err)
	}
	if err := env.engine.ListForRent(alice, node, big.NewInt(10), 1, 30); err != nil {
		t.Fatalf("list rent: %v", err)
	}

	if _, err := env.engine.MakeOffer(bob, node, big.NewInt(500), OfferBuy, 0); err != nil {
		t.Fatalf("offer: %v", err)
	}
	if err := env.engine.AcceptOffer(bob, node, 0); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner accept: expected ErrNotOwner, got %v", err)
	}
	if err := env.engine.AcceptOffer(alice, node, 3); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("bad index: expected ErrInvalidIndex, got %v", err)
	}
	if err := env.engine.AcceptOffer(alice, node, 0); err != nil {
		t.Fatalf("accept: %v", err)
	}

	owner, err := env.ledger.Resolve(node)
	if err != nil || owner != bob {
		t.Fatalf("ownership should have moved to offerer: %v", err)
	}
	// Fee split on 500 at 250 bps: 12 treasury, 488 seller.
	if got := env.state.balance(env.treasury); got.Cmp(big.NewInt(12)) != 0 {
		t.Fatalf("treasury = %s, want 12", got)
	}
	if got := env.state.balance(alice); got.Cmp(big.NewInt(488)) != 0 {
		t.Fatalf("seller = %s, want 488", got)
	}
	if env.engine.IsListedForSale(node) || env.engine.IsListedForRent(node) {
		t.Fatal("stale listings must be force-deactivated on transfer")
	}
	stats, err := env.engine.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalSales != 1 || stats.SaleVolume.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("stats = %d/%s, want 1/500", stats.TotalSales, stats.SaleVolume)
	}

	// At-most-one-payout: a second acceptance must fail.
	if err := env.engine.AcceptOffer(bob, node, 0); !errors.Is(err, ErrOfferNotActive) {
		t.Fatalf("double accept: expected ErrOfferNotActive, got %v", err)
	}
}

func TestAcceptRentOffer(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := newTestAddress(0x01), newTestAddress(0x02)
	node := env.register(t, "alice.0g", alice)
	env.state.fund(bob, 300)

	if _, err := env.engine.MakeOffer(bob, node, big.NewInt(300), OfferRent, 10); err != nil {
		t.Fatalf("offer: %v", err)
	}
	if err := env.engine.AcceptOffer(alice, node, 0); err != nil {
		t.Fatalf("accept: %v", err)
	}
	rental, ok := env.engine.GetActiveRental(node)
	if !ok || !rental.Active || rental.Renter != bob {
		t.Fatalf("rental should be active for offerer, got %+v", rental)
	}
	if rental.EndTime != testEpoch+10*SecondsPerDay {
		t.Fatalf("end time = %d, want now+10d", rental.EndTime)
	}
	if rental.TotalPaid.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("total paid = %s, want 300", rental.TotalPaid)
	}
	// Ownership does not move on a rent offer.
	owner, err := env.ledger.Resolve(node)
	if err != nil || owner != alice {
		t.Fatalf("owner must stay alice: %v", err)
	}
	stats, err := env.engine.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalRentals != 1 || stats.RentalVolume.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("stats = %d/%s, want 1/300", stats.TotalRentals, stats.RentalVolume)
	}
}

func TestAcceptOfferRespectsRentalLock(t *testing.T) {
	env := newTestEnv(t)
	alice, bob, carol := newTestAddress(0x01), newTestAddress(0x02), newTestAddress(0x03)
	node := env.register(t, "alice.0g", alice)
	env.state.fund(bob, 1000)
	env.state.fund(carol, 1000)

	if err := env.engine.ListForRent(alice, node, big.NewInt(10), 1, 30); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := env.engine.RentDomain(bob, node, 3, big.NewInt(30)); err != nil {
		t.Fatalf("rent: %v", err)
	}
	// Offers may still be queued against an occupied asset.
	if _, err := env.engine.MakeOffer(carol, node, big.NewInt(400), OfferBuy, 0); err != nil {
		t.Fatalf("offer against occupied asset: %v", err)
	}
	// ...but acceptance is blocked until the occupancy lapses.
	if err := env.engine.AcceptOffer(alice, node, 0); !errors.Is(err, ErrAssetLocked) {
		t.Fatalf("expected ErrAssetLocked, got %v", err)
	}
	env.advance(3 * SecondsPerDay)
	if err := env.engine.AcceptOffer(alice, node, 0); err != nil {
		t.Fatalf("accept after occupancy lapses: %v", err)
	}
	owner, err := env.ledger.Resolve(node)
	if err != nil || owner != carol {
		t.Fatalf("ownership should have moved to carol: %v", err)
	}
}

func TestOfferExpiryGate(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := newTestAddress(0x01), newTestAddress(0x02)
	node := env.register(t, "alice.0g", alice)
	env.state.fund(bob, 500)

	if _, err := env.engine.MakeOffer(bob, node, big.NewInt(500), OfferBuy, 0); err != nil {
		t.Fatalf("offer: %v", err)
	}
	env.advance(OfferWindowSeconds + 1)
	if err := env.engine.AcceptOffer(alice, node, 0); !errors.Is(err, ErrOfferExpired) {
		t.Fatalf("stale accept: expected ErrOfferExpired, got %v", err)
	}
	// Expired offers stay fund-locked until cancelled; no auto-refund.
	if got := env.state.balance(env.state.vault); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("vault = %s, want 500", got)
	}
	if err := env.engine.CancelOffer(bob, node, 0); err != nil {
		t.Fatalf("cancel expired offer: %v", err)
	}
	if got := env.state.balance(bob); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("offerer refunded %s, want full 500", got)
	}
}

func TestCancelOfferRefundsInFull(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := newTestAddress(0x01), newTestAddress(0x02)
	node := env.register(t, "wally.0g", alice)
	env.state.fund(bob, 200)

	if _, err := env.engine.MakeOffer(bob, node, big.NewInt(200), OfferBuy, 0); err != nil {
		t.Fatalf("offer: %v", err)
	}
	if err := env.engine.CancelOffer(alice, node, 0); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("foreign cancel: expected ErrUnauthorized, got %v", err)
	}
	if err := env.engine.CancelOffer(bob, node, 0); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	// No fee on cancellation.
	if got := env.state.balance(bob); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("refund = %s, want 200", got)
	}
	if got := env.state.balance(env.treasury); got.Sign() != 0 {
		t.Fatalf("treasury must receive nothing on cancel, got %s", got)
	}
	// Accept after cancel must fail and never pay twice.
	if err := env.engine.AcceptOffer(alice, node, 0); !errors.Is(err, ErrOfferNotActive) {
		t.Fatalf("accept after cancel: expected ErrOfferNotActive, got %v", err)
	}
	if err := env.engine.CancelOffer(bob, node, 0); !errors.Is(err, ErrOfferNotActive) {
		t.Fatalf("double cancel: expected ErrOfferNotActive, got %v", err)
	}
}

func TestOfferIndicesStayStable(t *testing.T) {
	env := newTestEnv(t)
	alice, bob, carol := newTestAddress(0x01), newTestAddress(0x02), newTestAddress(0x03)
	node := env.register(t, "alice.0g", alice)
	env.state.fund(bob, 1000)
	env.state.fund(carol, 1000)

	if _, err := env.engine.MakeOffer(bob, node, big.NewInt(100), OfferBuy, 0); err != nil {
		t.Fatalf("offer 0: %v", err)
	}
	if _, err := env.engine.MakeOffer(carol, node, big.NewInt(200), OfferBuy, 0); err != nil {
		t.Fatalf("offer 1: %v", err)
	}
	if err := env.engine.CancelOffer(bob, node, 0); err != nil {
		t.Fatalf("cancel 0: %v", err)
	}
	offers := env.engine.GetOffers(node)
	if len(offers) != 2 {
		t.Fatalf("cancel must not compact the book, len = %d", len(offers))
	}
	if offers[0].Active || !offers[1].Active {
		t.Fatal("slot 0 inactive, slot 1 active expected")
	}
	// Index 1 still addresses carol's offer.
	if err := env.engine.AcceptOffer(alice, node, 1); err != nil {
		t.Fatalf("accept 1: %v", err)
	}
	owner, err := env.ledger.Resolve(node)
	if err != nil || owner != carol {
		t.Fatalf("owner should be carol: %v", err)
	}
}
