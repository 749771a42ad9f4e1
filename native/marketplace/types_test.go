package marketplace

import (
	"math/big"
	"testing"
)

func TestCloneIndependence(t *testing.T) {
	listing := &SaleListing{Seller: newTestAddress(0x01), Price: big.NewInt(100), Active: true}
	clone := listing.Clone()
	clone.Price.SetInt64(999)
	clone.Active = false
	if listing.Price.Cmp(big.NewInt(100)) != 0 || !listing.Active {
		t.Fatal("mutating a clone must not affect the original")
	}

	offer := &Offer{Offerer: newTestAddress(0x02), Amount: big.NewInt(50), Active: true}
	oc := offer.Clone()
	oc.Amount.SetInt64(0)
	if offer.Amount.Cmp(big.NewInt(50)) != 0 {
		t.Fatal("offer clone aliases the amount")
	}

	var nilListing *SaleListing
	if nilListing.Clone() != nil {
		t.Fatal("nil clone should stay nil")
	}
}

func TestRentalExpired(t *testing.T) {
	rental := &ActiveRental{StartTime: 100, EndTime: 200, Active: true}
	if rental.Expired(199) {
		t.Fatal("rental should not be expired before end time")
	}
	if !rental.Expired(200) {
		t.Fatal("rental expires exactly at end time")
	}
	rental.Active = false
	if !rental.Expired(0) {
		t.Fatal("inactive rentals are always expired")
	}
	var nilRental *ActiveRental
	if !nilRental.Expired(0) {
		t.Fatal("nil rentals are always expired")
	}
}

func TestOfferTypeValid(t *testing.T) {
	if !OfferBuy.Valid() || !OfferRent.Valid() {
		t.Fatal("known offer types must validate")
	}
	if OfferType(7).Valid() {
		t.Fatal("unknown offer type must not validate")
	}
	if OfferBuy.String() != "buy" || OfferRent.String() != "rent" {
		t.Fatal("unexpected offer type names")
	}
}

func TestDurationBounds(t *testing.T) {
	cases := []struct {
		min, max uint32
		ok       bool
	}{
		{1, 1, true},
		{1, 365, true},
		{30, 10, false},
		{0, 30, false},
		{1, 366, false},
	}
	for _, tc := range cases {
		if got := validDurationBounds(tc.min, tc.max); got != tc.ok {
			t.Fatalf("validDurationBounds(%d, %d) = %v, want %v", tc.min, tc.max, got, tc.ok)
		}
	}
}

func TestStatsClone(t *testing.T) {
	stats := NewStats()
	stats.TotalSales = 3
	stats.SaleVolume.SetInt64(400)
	clone := stats.Clone()
	clone.SaleVolume.SetInt64(0)
	if stats.SaleVolume.Cmp(big.NewInt(400)) != 0 {
		t.Fatal("stats clone aliases the volume")
	}
	var nilStats *Stats
	zero := nilStats.Clone()
	if zero == nil || zero.SaleVolume == nil || zero.RentalVolume == nil {
		t.Fatal("nil stats clone should normalise to zero values")
	}
}
