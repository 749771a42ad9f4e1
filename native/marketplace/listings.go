package marketplace

import (
	"math/big"
)

// ListForSale publishes an active sale listing for the node at the given
// price. The caller must be the current registry owner, the node must not
// already carry an active sale listing and must not be occupied by an
// unexpired rental.
func (e *Engine) ListForSale(caller [20]byte, node [32]byte, price *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.guard(); err != nil {
		return err
	}
	owner, err := e.ownerOf(node)
	if err != nil {
		return err
	}
	if owner != caller {
		return ErrNotOwner
	}
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	now := e.now()
	if existing, ok := e.state.SaleListingGet(node); ok && existing.Active {
		return ErrAlreadyListed
	}
	if e.rentalLock(node, now) {
		return ErrAssetLocked
	}
	listing := &SaleListing{
		Seller:   caller,
		Price:    cloneBigInt(price),
		ListedAt: now,
		Active:   true,
	}
	if err := e.state.SaleListingPut(node, listing); err != nil {
		return err
	}
	e.emit(NewSaleListedEvent(node, e.nameOf(node), listing))
	return nil
}

// UpdateSalePrice mutates the price of an active sale listing in place
// without touching its listing timestamp or active flag.
func (e *Engine) UpdateSalePrice(caller [20]byte, node [32]byte, newPrice *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.guard(); err != nil {
		return err
	}
	listing, ok := e.state.SaleListingGet(node)
	if !ok || !listing.Active {
		return ErrNotListed
	}
	if listing.Seller != caller {
		return ErrNotOwner
	}
	if newPrice == nil || newPrice.Sign() <= 0 {
		return ErrInvalidPrice
	}
	listing.Price = cloneBigInt(newPrice)
	if err := e.state.SaleListingPut(node, listing); err != nil {
		return err
	}
	e.emit(NewSalePriceUpdatedEvent(node, e.nameOf(node), listing, e.now()))
	return nil
}

// CancelSaleListing deactivates the caller's active sale listing.
func (e *Engine) CancelSaleListing(caller [20]byte, node [32]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.guard(); err != nil {
		return err
	}
	listing, ok := e.state.SaleListingGet(node)
	if !ok || !listing.Active {
		return ErrNotListed
	}
	if listing.Seller != caller {
		return ErrNotOwner
	}
	listing.Active = false
	if err := e.state.SaleListingPut(node, listing); err != nil {
		return err
	}
	e.emit(NewSaleCancelledEvent(node, e.nameOf(node), caller, e.now()))
	return nil
}

// BuyDomain settles an active sale listing. The buyer attaches payment of
// at least the listed price; the listing is deactivated before any funds
// move, the price is fee-split between treasury and seller, any excess is
// refunded to the buyer and registry ownership transfers to the buyer.
func (e *Engine) BuyDomain(buyer [20]byte, node [32]byte, payment *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.guard(); err != nil {
		return err
	}
	listing, ok := e.state.SaleListingGet(node)
	if !ok || !listing.Active {
		return ErrNotListed
	}
	if listing.Seller == buyer {
		return ErrSelfTransaction
	}
	owner, err := e.ownerOf(node)
	if err != nil {
		return err
	}
	if owner != listing.Seller {
		// Ownership moved outside the marketplace since listing time; the
		// listing is stale and cannot settle.
		return ErrNotListed
	}
	now := e.now()
	if e.rentalLock(node, now) {
		return ErrAssetLocked
	}
	attached := cloneBigInt(payment)
	if attached.Cmp(listing.Price) < 0 {
		return ErrInsufficientPayment
	}
	if err := e.ensureTreasuryConfigured(); err != nil {
		return err
	}
	balance, err := e.balanceOf(buyer)
	if err != nil {
		return err
	}
	if balance.Cmp(attached) < 0 {
		return ErrInsufficientFunds
	}

	price := cloneBigInt(listing.Price)
	listing.Active = false
	if err := e.state.SaleListingPut(node, listing); err != nil {
		return err
	}
	vault := e.state.VaultAddress()
	if err := e.transferFunds(buyer, vault, attached); err != nil {
		return err
	}
	fee, proceeds := e.splitFee(price)
	if err := e.transferFunds(vault, e.treasury, fee); err != nil {
		return err
	}
	if err := e.transferFunds(vault, listing.Seller, proceeds); err != nil {
		return err
	}
	if excess := new(big.Int).Sub(attached, price); excess.Sign() > 0 {
		if err := e.transferFunds(vault, buyer, excess); err != nil {
			return err
		}
	}
	if err := e.registry.TransferOwnership(node, listing.Seller, buyer); err != nil {
		return ErrTransferFailed
	}
	e.deactivateRentalListing(node)
	if err := e.recordSale(price); err != nil {
		return err
	}
	e.emit(NewSoldEvent(node, e.nameOf(node), listing.Seller, buyer, price, now))
	return nil
}

// deactivateRentalListing force-clears any rental listing left behind by
// an ownership transfer. Errors are not surfaced: the listing belongs to
// the previous owner and keeping it active would be worse than a stale
// store write failing.
func (e *Engine) deactivateRentalListing(node [32]byte) {
	listing, ok := e.state.RentalListingGet(node)
	if !ok || !listing.Active {
		return
	}
	listing.Active = false
	_ = e.state.RentalListingPut(node, listing)
}

// deactivateSaleListing force-clears any sale listing left behind by an
// ownership transfer driven from the offer book.
func (e *Engine) deactivateSaleListing(node [32]byte) {
	listing, ok := e.state.SaleListingGet(node)
	if !ok || !listing.Active {
		return
	}
	listing.Active = false
	_ = e.state.SaleListingPut(node, listing)
}

// ListForRent publishes an active rental listing with per-day pricing and
// an allowed duration window in whole days.
func (e *Engine) ListForRent(caller [20]byte, node [32]byte, pricePerDay *big.Int, minDuration, maxDuration uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.guard(); err != nil {
		return err
	}
	owner, err := e.ownerOf(node)
	if err != nil {
		return err
	}
	if owner != caller {
		return ErrNotOwner
	}
	if pricePerDay == nil || pricePerDay.Sign() <= 0 {
		return ErrInvalidPrice
	}
	if !validDurationBounds(minDuration, maxDuration) {
		return ErrInvalidDuration
	}
	now := e.now()
	if existing, ok := e.state.RentalListingGet(node); ok && existing.Active {
		return ErrAlreadyListed
	}
	if e.rentalLock(node, now) {
		return ErrAssetLocked
	}
	listing := &RentalListing{
		Owner:       caller,
		PricePerDay: cloneBigInt(pricePerDay),
		MinDuration: minDuration,
		MaxDuration: maxDuration,
		ListedAt:    now,
		Active:      true,
	}
	if err := e.state.RentalListingPut(node, listing); err != nil {
		return err
	}
	e.emit(NewRentalListedEvent(node, e.nameOf(node), listing))
	return nil
}

// CancelRentalListing deactivates the caller's active rental listing. The
// listing cannot be withdrawn while a rental is in force.
func (e *Engine) CancelRentalListing(caller [20]byte, node [32]byte) error {
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
	if listing.Owner != caller {
		return ErrNotOwner
	}
	if e.rentalLock(node, e.now()) {
		return ErrAssetLocked
	}
	listing.Active = false
	if err := e.state.RentalListingPut(node, listing); err != nil {
		return err
	}
	e.emit(NewRentalCancelledEvent(node, e.nameOf(node), caller, e.now()))
	return nil
}
