package marketplace

import (
	"fmt"
	"math/big"
)

const (
	// SecondsPerDay converts rental durations (whole days) to timestamps.
	SecondsPerDay int64 = 86_400
	// MinRentalDays and MaxRentalDays bound every rental duration and
	// rental-listing window.
	MinRentalDays uint32 = 1
	MaxRentalDays uint32 = 365
	// OfferWindowSeconds is the fixed validity window applied to every
	// offer at submission time.
	OfferWindowSeconds int64 = 7 * 86_400
	// MaxPlatformFeeBps is the hard ceiling on the configurable platform
	// fee (5%).
	MaxPlatformFeeBps uint32 = 500

	feeDenominator int64 = 10_000
)

// OfferType distinguishes buy offers from rent offers.
type OfferType uint8

const (
	OfferBuy OfferType = iota
	OfferRent
)

// Valid reports whether the offer type is a known value.
func (t OfferType) Valid() bool {
	switch t {
	case OfferBuy, OfferRent:
		return true
	default:
		return false
	}
}

func (t OfferType) String() string {
	switch t {
	case OfferBuy:
		return "buy"
	case OfferRent:
		return "rent"
	default:
		return fmt.Sprintf("offer(%d)", uint8(t))
	}
}

// SaleListing records an owner's intent to sell an asset at a fixed price.
// At most one record exists per node; sold or cancelled listings stay
// stored with Active set to false.
type SaleListing struct {
	Seller   [20]byte
	Price    *big.Int
	ListedAt int64
	Active   bool
}

// Clone returns a deep copy so callers can mutate the result without
// affecting the stored instance.
func (l *SaleListing) Clone() *SaleListing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Price != nil {
		clone.Price = new(big.Int).Set(l.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// RentalListing records an owner's intent to rent an asset for a bounded
// number of whole days at a daily rate.
type RentalListing struct {
	Owner       [20]byte
	PricePerDay *big.Int
	MinDuration uint32
	MaxDuration uint32
	ListedAt    int64
	Active      bool
}

// Clone returns a deep copy of the rental listing.
func (l *RentalListing) Clone() *RentalListing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.PricePerDay != nil {
		clone.PricePerDay = new(big.Int).Set(l.PricePerDay)
	} else {
		clone.PricePerDay = big.NewInt(0)
	}
	return &clone
}

// ActiveRental is the exclusive time-boxed occupancy created when a rental
// settles. Ended rentals persist as history with Active set to false until
// the next rental overwrites the slot.
type ActiveRental struct {
	Renter    [20]byte
	StartTime int64
	EndTime   int64
	TotalPaid *big.Int
	Active    bool
}

// Clone returns a deep copy of the rental record.
func (r *ActiveRental) Clone() *ActiveRental {
	if r == nil {
		return nil
	}
	clone := *r
	if r.TotalPaid != nil {
		clone.TotalPaid = new(big.Int).Set(r.TotalPaid)
	} else {
		clone.TotalPaid = big.NewInt(0)
	}
	return &clone
}

// Expired reports whether the rental window has elapsed at the supplied
// timestamp. Inactive records are always expired.
func (r *ActiveRental) Expired(now int64) bool {
	if r == nil || !r.Active {
		return true
	}
	return now >= r.EndTime
}

// Offer is an escrow-backed proposal to buy or rent an asset. Offers are
// stored append-only per node; cancellation and acceptance flip Active but
// never remove the slot, so indices stay stable.
type Offer struct {
	Offerer   [20]byte
	Amount    *big.Int
	Type      OfferType
	Duration  uint32
	CreatedAt int64
	ExpiresAt int64
	Active    bool
}

// Clone returns a deep copy of the offer.
func (o *Offer) Clone() *Offer {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Amount != nil {
		clone.Amount = new(big.Int).Set(o.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// Stats aggregates settlement totals across the marketplace lifetime. All
// fields are monotonically non-decreasing.
type Stats struct {
	TotalSales   uint64
	TotalRentals uint64
	SaleVolume   *big.Int
	RentalVolume *big.Int
}

// Clone returns a deep copy of the stats record.
func (s *Stats) Clone() *Stats {
	if s == nil {
		return NewStats()
	}
	clone := &Stats{TotalSales: s.TotalSales, TotalRentals: s.TotalRentals}
	if s.SaleVolume != nil {
		clone.SaleVolume = new(big.Int).Set(s.SaleVolume)
	} else {
		clone.SaleVolume = big.NewInt(0)
	}
	if s.RentalVolume != nil {
		clone.RentalVolume = new(big.Int).Set(s.RentalVolume)
	} else {
		clone.RentalVolume = big.NewInt(0)
	}
	return clone
}

// NewStats returns a zeroed stats record with non-nil volumes.
func NewStats() *Stats {
	return &Stats{SaleVolume: big.NewInt(0), RentalVolume: big.NewInt(0)}
}

func validDurationBounds(min, max uint32) bool {
	return min >= MinRentalDays && min <= max && max <= MaxRentalDays
}

func validDuration(days uint32) bool {
	return days >= MinRentalDays && days <= MaxRentalDays
}
