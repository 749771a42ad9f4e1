package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/chronogist/iNS-intelligent-name-service-sub001/core/types"
	"github.com/chronogist/iNS-intelligent-name-service-sub001/native/marketplace"
	"github.com/chronogist/iNS-intelligent-name-service-sub001/storage"
)

const (
	saleKeyPrefix    = "market/sale/"
	rentalKeyPrefix  = "market/rental/"
	occupancyPrefix  = "market/occupancy/"
	offersKeyPrefix  = "market/offers/"
	statsKey         = "market/stats"
	accountKeyPrefix = "account/"

	vaultSeed = "ins/marketplace/vault"
)

// Manager persists marketplace records and accounts in a key-value store,
// implementing the engine's State interface. Serialization of concurrent
// writers is the engine's job; the manager is a thin codec layer.
type Manager struct {
	db    storage.Database
	vault [20]byte
}

// NewManager wraps the supplied database. The module vault address is
// derived deterministically so every node agrees on where escrowed funds
// sit.
func NewManager(db storage.Database) *Manager {
	var vault [20]byte
	digest := ethcrypto.Keccak256([]byte(vaultSeed))
	copy(vault[:], digest[12:])
	return &Manager{db: db, vault: vault}
}

func nodeKey(prefix string, node [32]byte) []byte {
	return []byte(prefix + hex.EncodeToString(node[:]))
}

func addrKey(addr [20]byte) []byte {
	return []byte(accountKeyPrefix + hex.EncodeToString(addr[:]))
}

func (m *Manager) put(key []byte, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	return m.db.Put(key, raw)
}

// get decodes the stored value into out, reporting whether the key exists.
func (m *Manager) get(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	return true, nil
}

func (m *Manager) SaleListingPut(node [32]byte, listing *marketplace.SaleListing) error {
	return m.put(nodeKey(saleKeyPrefix, node), listing.Clone())
}

func (m *Manager) SaleListingGet(node [32]byte) (*marketplace.SaleListing, bool) {
	listing := &marketplace.SaleListing{}
	ok, err := m.get(nodeKey(saleKeyPrefix, node), listing)
	if err != nil || !ok {
		return nil, false
	}
	return listing, true
}

func (m *Manager) RentalListingPut(node [32]byte, listing *marketplace.RentalListing) error {
	return m.put(nodeKey(rentalKeyPrefix, node), listing.Clone())
}

func (m *Manager) RentalListingGet(node [32]byte) (*marketplace.RentalListing, bool) {
	listing := &marketplace.RentalListing{}
	ok, err := m.get(nodeKey(rentalKeyPrefix, node), listing)
	if err != nil || !ok {
		return nil, false
	}
	return listing, true
}

func (m *Manager) ActiveRentalPut(node [32]byte, rental *marketplace.ActiveRental) error {
	return m.put(nodeKey(occupancyPrefix, node), rental.Clone())
}

func (m *Manager) ActiveRentalGet(node [32]byte) (*marketplace.ActiveRental, bool) {
	rental := &marketplace.ActiveRental{}
	ok, err := m.get(nodeKey(occupancyPrefix, node), rental)
	if err != nil || !ok {
		return nil, false
	}
	return rental, true
}

func (m *Manager) OffersAppend(node [32]byte, offer *marketplace.Offer) (int, error) {
	offers, err := m.OffersGet(node)
	if err != nil {
		return 0, err
	}
	offers = append(offers, offer.Clone())
	if err := m.put(nodeKey(offersKeyPrefix, node), offers); err != nil {
		return 0, err
	}
	return len(offers) - 1, nil
}

func (m *Manager) OffersGet(node [32]byte) ([]*marketplace.Offer, error) {
	var offers []*marketplace.Offer
	if _, err := m.get(nodeKey(offersKeyPrefix, node), &offers); err != nil {
		return nil, err
	}
	return offers, nil
}

func (m *Manager) OfferUpdate(node [32]byte, index int, offer *marketplace.Offer) error {
	offers, err := m.OffersGet(node)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(offers) {
		return marketplace.ErrInvalidIndex
	}
	offers[index] = offer.Clone()
	return m.put(nodeKey(offersKeyPrefix, node), offers)
}

func (m *Manager) StatsGet() (*marketplace.Stats, error) {
	stats := marketplace.NewStats()
	if _, err := m.get([]byte(statsKey), stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (m *Manager) StatsPut(stats *marketplace.Stats) error {
	return m.put([]byte(statsKey), stats.Clone())
}

func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	account := &types.Account{}
	ok, err := m.get(addrKey(addr), account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return (&types.Account{}).EnsureBalances(), nil
	}
	return account.EnsureBalances(), nil
}

func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	return m.put(addrKey(addr), account.Clone())
}

func (m *Manager) VaultAddress() [20]byte { return m.vault }
