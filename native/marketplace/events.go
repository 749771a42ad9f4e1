package marketplace

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	"github.com/chronogist/iNS-intelligent-name-service-sub001/core/types"
)

const (
	EventTypeSaleListed       = "marketplace.sale.listed"
	EventTypeSalePriceUpdated = "marketplace.sale.price_updated"
	EventTypeSaleCancelled    = "marketplace.sale.cancelled"
	EventTypeSold             = "marketplace.sale.sold"
	EventTypeRentalListed     = "marketplace.rental.listed"
	EventTypeRentalCancelled  = "marketplace.rental.cancelled"
	EventTypeRentalStarted    = "marketplace.rental.started"
	EventTypeRentalEnded      = "marketplace.rental.ended"
	EventTypeOfferMade        = "marketplace.offer.made"
	EventTypeOfferAccepted    = "marketplace.offer.accepted"
	EventTypeOfferCancelled   = "marketplace.offer.cancelled"
	EventTypeFeeUpdated       = "marketplace.fee_updated"
	EventTypeTreasuryUpdated  = "marketplace.treasury_updated"
	EventTypePaused           = "marketplace.paused"
	EventTypeUnpaused         = "marketplace.unpaused"
)

func baseAttrs(eventType string, node [32]byte, name string) (*types.Event, map[string]string) {
	attrs := map[string]string{
		"node": hex.EncodeToString(node[:]),
	}
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		attrs["name"] = trimmed
	}
	return &types.Event{Type: eventType, Attributes: attrs}, attrs
}

// NewSaleListedEvent returns the canonical payload for a new sale listing.
func NewSaleListedEvent(node [32]byte, name string, l *SaleListing) *types.Event {
	evt, attrs := baseAttrs(EventTypeSaleListed, node, name)
	if l != nil {
		attrs["seller"] = hex.EncodeToString(l.Seller[:])
		attrs["price"] = cloneBigInt(l.Price).String()
		attrs["listedAt"] = strconv.FormatInt(l.ListedAt, 10)
	}
	return evt
}

// NewSalePriceUpdatedEvent returns the payload emitted when a sale price
// is mutated in place.
func NewSalePriceUpdatedEvent(node [32]byte, name string, l *SaleListing, ts int64) *types.Event {
	evt, attrs := baseAttrs(EventTypeSalePriceUpdated, node, name)
	if l != nil {
		attrs["seller"] = hex.EncodeToString(l.Seller[:])
		attrs["price"] = cloneBigInt(l.Price).String()
	}
	attrs["timestamp"] = strconv.FormatInt(ts, 10)
	return evt
}

// NewSaleCancelledEvent returns the payload emitted when a sale listing is
// withdrawn by its seller.
func NewSaleCancelledEvent(node [32]byte, name string, seller [20]byte, ts int64) *types.Event {
	evt, attrs := baseAttrs(EventTypeSaleCancelled, node, name)
	attrs["seller"] = hex.EncodeToString(seller[:])
	attrs["timestamp"] = strconv.FormatInt(ts, 10)
	return evt
}

// NewSoldEvent returns the payload emitted when a sale settles, either via
// direct purchase or an accepted buy offer.
func NewSoldEvent(node [32]byte, name string, seller, buyer [20]byte, price *big.Int, ts int64) *types.Event {
	evt, attrs := baseAttrs(EventTypeSold, node, name)
	attrs["seller"] = hex.EncodeToString(seller[:])
	attrs["buyer"] = hex.EncodeToString(buyer[:])
	attrs["price"] = cloneBigInt(price).String()
	attrs["timestamp"] = strconv.FormatInt(ts, 10)
	return evt
}

// NewRentalListedEvent returns the payload for a new rental listing.
func NewRentalListedEvent(node [32]byte, name string, l *RentalListing) *types.Event {
	evt, attrs := baseAttrs(EventTypeRentalListed, node, name)
	if l != nil {
		attrs["owner"] = hex.EncodeToString(l.Owner[:])
		attrs["pricePerDay"] = cloneBigInt(l.PricePerDay).String()
		attrs["minDuration"] = strconv.FormatUint(uint64(l.MinDuration), 10)
		attrs["maxDuration"] = strconv.FormatUint(uint64(l.MaxDuration), 10)
		attrs["listedAt"] = strconv.FormatInt(l.ListedAt, 10)
	}
	return evt
}

// NewRentalCancelledEvent returns the payload emitted when a rental
// listing is withdrawn.
func NewRentalCancelledEvent(node [32]byte, name string, owner [20]byte, ts int64) *types.Event {
	evt, attrs := baseAttrs(EventTypeRentalCancelled, node, name)
	attrs["owner"] = hex.EncodeToString(owner[:])
	attrs["timestamp"] = strconv.FormatInt(ts, 10)
	return evt
}

// NewRentalStartedEvent returns the payload emitted when a rental settles,
// either via direct rent or an accepted rent offer.
func NewRentalStartedEvent(node [32]byte, name string, owner [20]byte, r *ActiveRental) *types.Event {
	evt, attrs := baseAttrs(EventTypeRentalStarted, node, name)
	attrs["owner"] = hex.EncodeToString(owner[:])
	if r != nil {
		attrs["renter"] = hex.EncodeToString(r.Renter[:])
		attrs["startTime"] = strconv.FormatInt(r.StartTime, 10)
		attrs["endTime"] = strconv.FormatInt(r.EndTime, 10)
		attrs["totalPaid"] = cloneBigInt(r.TotalPaid).String()
	}
	return evt
}

// NewRentalEndedEvent returns the payload emitted when an expired rental
// is cleared.
func NewRentalEndedEvent(node [32]byte, name string, caller [20]byte, r *ActiveRental, ts int64) *types.Event {
	evt, attrs := baseAttrs(EventTypeRentalEnded, node, name)
	attrs["caller"] = hex.EncodeToString(caller[:])
	if r != nil {
		attrs["renter"] = hex.EncodeToString(r.Renter[:])
		attrs["endTime"] = strconv.FormatInt(r.EndTime, 10)
	}
	attrs["timestamp"] = strconv.FormatInt(ts, 10)
	return evt
}

// NewOfferMadeEvent returns the payload emitted when an offer is escrowed.
func NewOfferMadeEvent(node [32]byte, name string, index int, o *Offer) *types.Event {
	evt, attrs := baseAttrs(EventTypeOfferMade, node, name)
	attrs["index"] = strconv.Itoa(index)
	if o != nil {
		attrs["offerer"] = hex.EncodeToString(o.Offerer[:])
		attrs["amount"] = cloneBigInt(o.Amount).String()
		attrs["offerType"] = o.Type.String()
		if o.Type == OfferRent {
			attrs["duration"] = strconv.FormatUint(uint64(o.Duration), 10)
		}
		attrs["expiresAt"] = strconv.FormatInt(o.ExpiresAt, 10)
	}
	return evt
}

// NewOfferAcceptedEvent returns the payload emitted when an offer settles.
func NewOfferAcceptedEvent(node [32]byte, name string, index int, owner [20]byte, o *Offer, ts int64) *types.Event {
	evt, attrs := baseAttrs(EventTypeOfferAccepted, node, name)
	attrs["index"] = strconv.Itoa(index)
	attrs["owner"] = hex.EncodeToString(owner[:])
	if o != nil {
		attrs["offerer"] = hex.EncodeToString(o.Offerer[:])
		attrs["amount"] = cloneBigInt(o.Amount).String()
		attrs["offerType"] = o.Type.String()
	}
	attrs["timestamp"] = strconv.FormatInt(ts, 10)
	return evt
}

// NewOfferCancelledEvent returns the payload emitted when an offer is
// refunded to its offerer.
func NewOfferCancelledEvent(node [32]byte, name string, index int, o *Offer, ts int64) *types.Event {
	evt, attrs := baseAttrs(EventTypeOfferCancelled, node, name)
	attrs["index"] = strconv.Itoa(index)
	if o != nil {
		attrs["offerer"] = hex.EncodeToString(o.Offerer[:])
		attrs["amount"] = cloneBigInt(o.Amount).String()
	}
	attrs["timestamp"] = strconv.FormatInt(ts, 10)
	return evt
}

// NewFeeUpdatedEvent returns the payload emitted for a fee change.
func NewFeeUpdatedEvent(operator [20]byte, feeBps uint32, ts int64) *types.Event {
	return &types.Event{Type: EventTypeFeeUpdated, Attributes: map[string]string{
		"operator":  hex.EncodeToString(operator[:]),
		"feeBps":    strconv.FormatUint(uint64(feeBps), 10),
		"timestamp": strconv.FormatInt(ts, 10),
	}}
}

// NewTreasuryUpdatedEvent returns the payload emitted for a treasury
// change.
func NewTreasuryUpdatedEvent(operator [20]byte, treasury [20]byte, ts int64) *types.Event {
	return &types.Event{Type: EventTypeTreasuryUpdated, Attributes: map[string]string{
		"operator":  hex.EncodeToString(operator[:]),
		"treasury":  hex.EncodeToString(treasury[:]),
		"timestamp": strconv.FormatInt(ts, 10),
	}}
}

// NewPausedEvent returns the payload emitted when the module is paused.
func NewPausedEvent(operator [20]byte, ts int64) *types.Event {
	return &types.Event{Type: EventTypePaused, Attributes: map[string]string{
		"operator":  hex.EncodeToString(operator[:]),
		"timestamp": strconv.FormatInt(ts, 10),
	}}
}

// NewUnpausedEvent returns the payload emitted when the pause is lifted.
func NewUnpausedEvent(operator [20]byte, ts int64) *types.Event {
	return &types.Event{Type: EventTypeUnpaused, Attributes: map[string]string{
		"operator":  hex.EncodeToString(operator[:]),
		"timestamp": strconv.FormatInt(ts, 10),
	}}
}
