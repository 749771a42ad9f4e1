package marketplace

import (
	"math/big"
)

// MakeOffer escrows amount against the node and appends an offer to its
// append-only book. Offers may target unlisted and even currently rented
// assets; the rental lock is only enforced at acceptance time. The full
// amount moves into the module vault immediately and stays locked until
// the offer is accepted or cancelled.
func (e *Engine) MakeOffer(offerer [20]byte, node [32]byte, amount *big.Int, offerType OfferType, durationDays uint32) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := e.guard(); err != nil {
		return 0, err
	}
	owner, err := e.ownerOf(node)
	if err != nil {
		return 0, err
	}
	if owner == offerer {
		return 0, ErrSelfTransaction
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	if !offerType.Valid() {
		return 0, ErrInvalidAmount
	}
	if offerType == OfferRent && !validDuration(durationDays) {
		return 0, ErrInvalidDuration
	}
	escrowed := cloneBigInt(amount)
	balance, err := e.balanceOf(offerer)
	if err != nil {
		return 0, err
	}
	if balance.Cmp(escrowed) < 0 {
		return 0, ErrInsufficientFunds
	}
	now := e.now()
	offer := &Offer{
		Offerer:   offerer,
		Amount:    escrowed,
		Type:      offerType,
		Duration:  durationDays,
		CreatedAt: now,
		ExpiresAt: now + OfferWindowSeconds,
		Active:    true,
	}
	if err := e.transferFunds(offerer, e.state.VaultAddress(), escrowed); err != nil {
		return 0, err
	}
	index, err := e.state.OffersAppend(node, offer)
	if err != nil {
		return 0, err
	}
	e.emit(NewOfferMadeEvent(node, e.nameOf(node), index, offer))
	return index, nil
}

// AcceptOffer settles the offer at the given index in favour of its
// offerer. Only the current asset owner may accept; the offer must be
// active and inside its validity window. The active flag is flipped and
// persisted before any funds or ownership move, so a second acceptance or
// a concurrent cancellation can never pay out twice.
//
// Both branches respect the rental lock: a buy offer cannot transfer an
// occupied asset and a rent offer cannot double-book it.
func (e *Engine) AcceptOffer(caller [20]byte, node [32]byte, index int) error {
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
	offers, err := e.state.OffersGet(node)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(offers) {
		return ErrInvalidIndex
	}
	offer := offers[index]
	if !offer.Active {
		return ErrOfferNotActive
	}
	now := e.now()
	if now > offer.ExpiresAt {
		return ErrOfferExpired
	}
	if offer.Offerer == caller {
		return ErrSelfTransaction
	}
	if e.rentalLock(node, now) {
		return ErrAssetLocked
	}
	if err := e.ensureTreasuryConfigured(); err != nil {
		return err
	}

	offer.Active = false
	if err := e.state.OfferUpdate(node, index, offer); err != nil {
		return err
	}

	amount := cloneBigInt(offer.Amount)
	switch offer.Type {
	case OfferBuy:
		if err := e.registry.TransferOwnership(node, caller, offer.Offerer); err != nil {
			return ErrTransferFailed
		}
		e.deactivateSaleListing(node)
		e.deactivateRentalListing(node)
		if err := e.recordSale(amount); err != nil {
			return err
		}
	case OfferRent:
		rental := &ActiveRental{
			Renter:    offer.Offerer,
			StartTime: now,
			EndTime:   now + int64(offer.Duration)*SecondsPerDay,
			TotalPaid: amount,
			Active:    true,
		}
		if err := e.state.ActiveRentalPut(node, rental); err != nil {
			return err
		}
		if err := e.recordRental(amount); err != nil {
			return err
		}
	}
	vault := e.state.VaultAddress()
	fee, proceeds := e.splitFee(amount)
	if err := e.transferFunds(vault, e.treasury, fee); err != nil {
		return err
	}
	if err := e.transferFunds(vault, caller, proceeds); err != nil {
		return err
	}
	e.emit(NewOfferAcceptedEvent(node, e.nameOf(node), index, caller, offer, now))
	return nil
}

// CancelOffer refunds the caller's own offer in full. No fee is levied on
// cancellation; the flag flip is persisted before the refund so the offer
// can never be refunded and accepted both. Cancellation stays available
// while the marketplace is paused so escrowed funds are always
// recoverable, and it works on expired offers since the system never
// auto-refunds.
func (e *Engine) CancelOffer(caller [20]byte, node [32]byte, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return err
	}
	offers, err := e.state.OffersGet(node)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(offers) {
		return ErrInvalidIndex
	}
	offer := offers[index]
	if offer.Offerer != caller {
		return ErrUnauthorized
	}
	if !offer.Active {
		return ErrOfferNotActive
	}
	offer.Active = false
	if err := e.state.OfferUpdate(node, index, offer); err != nil {
		return err
	}
	refund := cloneBigInt(offer.Amount)
	if err := e.transferFunds(e.state.VaultAddress(), caller, refund); err != nil {
		return err
	}
	e.emit(NewOfferCancelledEvent(node, e.nameOf(node), index, offer, e.now()))
	return nil
}
