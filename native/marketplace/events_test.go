package marketplace

import (
	"encoding/hex"
	"math/big"
	"testing"
)

func TestSaleListedEventAttributes(t *testing.T) {
	var node [32]byte
	node[0] = 0xAB
	listing := &SaleListing{Seller: newTestAddress(0x01), Price: big.NewInt(1000), ListedAt: 42, Active: true}
	evt := NewSaleListedEvent(node, "alice.0g", listing)
	if evt.Type != EventTypeSaleListed {
		t.Fatalf("type = %s", evt.Type)
	}
	if evt.Attributes["node"] != hex.EncodeToString(node[:]) {
		t.Fatalf("node attr = %s", evt.Attributes["node"])
	}
	if evt.Attributes["name"] != "alice.0g" {
		t.Fatalf("name attr = %s", evt.Attributes["name"])
	}
	if evt.Attributes["price"] != "1000" || evt.Attributes["listedAt"] != "42" {
		t.Fatalf("economic attrs wrong: %+v", evt.Attributes)
	}
}

func TestOfferEventCarriesDurationForRentOnly(t *testing.T) {
	var node [32]byte
	rentOffer := &Offer{Offerer: newTestAddress(0x02), Amount: big.NewInt(10), Type: OfferRent, Duration: 7, ExpiresAt: 99}
	evt := NewOfferMadeEvent(node, "", 0, rentOffer)
	if evt.Attributes["duration"] != "7" {
		t.Fatalf("rent offer should carry duration, got %+v", evt.Attributes)
	}
	buyOffer := &Offer{Offerer: newTestAddress(0x02), Amount: big.NewInt(10), Type: OfferBuy}
	evt = NewOfferMadeEvent(node, "", 1, buyOffer)
	if _, ok := evt.Attributes["duration"]; ok {
		t.Fatal("buy offer must not carry a duration")
	}
	if _, ok := evt.Attributes["name"]; ok {
		t.Fatal("empty names should be omitted")
	}
}

func TestEventsSurviveNilRecords(t *testing.T) {
	var node [32]byte
	for _, evt := range []interface{ EventType() string }{
		marketplaceEvent{evt: NewSaleListedEvent(node, "", nil)},
		marketplaceEvent{evt: NewRentalListedEvent(node, "", nil)},
		marketplaceEvent{evt: NewOfferMadeEvent(node, "", 0, nil)},
	} {
		if evt.EventType() == "" {
			t.Fatal("nil records should still produce a typed event")
		}
	}
}
