package marketplace

import (
	"math/big"
)

// RentDomain settles an active rental listing for the requested number of
// whole days. The renter attaches payment of at least pricePerDay times
// the duration; the total is fee-split between treasury and the listing
// owner, any excess is refunded and an exclusive ActiveRental record is
// created ending durationDays from now.
func (e *Engine) RentDomain(renter [20]byte, node [32]byte, durationDays uint32, payment *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.guard(); err != nil {
		return err
	}
	listing, ok := e.state.RentalListingGet(node)
	if !ok || !listing.Active {
		return ErrNotListed
	}
	if durationDays < listing.MinDuration || durationDays > listing.MaxDuration {
		return ErrInvalidDuration
	}
	if listing.Owner == renter {
		return ErrSelfTransaction
	}
	now := e.now()
	if e.rentalLock(node, now) {
		return ErrAssetLocked
	}
	total := new(big.Int).Mul(listing.PricePerDay, new(big.Int).SetUint64(uint64(durationDays)))
	attached := cloneBigInt(payment)
	if attached.Cmp(total) < 0 {
		return ErrInsufficientPayment
	}
	if err := e.ensureTreasuryConfigured(); err != nil {
		return err
	}
	balance, err := e.balanceOf(renter)
	if err != nil {
		return err
	}
	if balance.Cmp(attached) < 0 {
		return ErrInsufficientFunds
	}

	rental := &ActiveRental{
		Renter:    renter,
		StartTime: now,
		EndTime:   now + int64(durationDays)*SecondsPerDay,
		TotalPaid: total,
		Active:    true,
	}
	if err := e.state.ActiveRentalPut(node, rental); err != nil {
		return err
	}
	vault := e.state.VaultAddress()
	if err := e.transferFunds(renter, vault, attached); err != nil {
		return err
	}
	fee, proceeds := e.splitFee(total)
	if err := e.transferFunds(vault, e.treasury, fee); err != nil {
		return err
	}
	if err := e.transferFunds(vault, listing.Owner, proceeds); err != nil {
		return err
	}
	if excess := new(big.Int).Sub(attached, total); excess.Sign() > 0 {
		if err := e.transferFunds(vault, renter, excess); err != nil {
			return err
		}
	}
	if err := e.recordRental(total); err != nil {
		return err
	}
	e.emit(NewRentalStartedEvent(node, e.nameOf(node), listing.Owner, rental))
	return nil
}

// EndRental clears an expired rental. Anyone may call it once the rental
// window has elapsed; it stays callable while the marketplace is paused so
// occupancy can always be released. The record persists deactivated as
// history.
func (e *Engine) EndRental(caller [20]byte, node [32]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	rental, ok := e.state.ActiveRentalGet(node)
	if !ok || !rental.Active {
		return ErrNoActiveRental
	}
	now := e.now()
	if now < rental.EndTime {
		return ErrRentalNotExpired
	}
	rental.Active = false
	if err := e.state.ActiveRentalPut(node, rental); err != nil {
		return err
	}
	e.emit(NewRentalEndedEvent(node, e.nameOf(node), caller, rental, now))
	return nil
}
