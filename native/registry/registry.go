package registry

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/chronogist/iNS-intelligent-name-service-sub001/storage"
)

var (
	ErrUnknownAsset = errors.New("registry: unknown asset")
	ErrWrongOwner   = errors.New("registry: transfer from non-owner")
	ErrEmptyName    = errors.New("registry: empty name")
	ErrNameTaken    = errors.New("registry: name already registered")
)

// Registry is the external asset-ownership collaborator consulted by the
// marketplace. The marketplace never caches ownership; it resolves the
// current owner on every check and delegates the actual transfer here.
type Registry interface {
	Resolve(node [32]byte) ([20]byte, error)
	TransferOwnership(node [32]byte, from, to [20]byte) error
	NameOf(node [32]byte) (string, error)
}

// Node derives the deterministic 32-byte asset identifier for a domain
// name. Names are case-folded before hashing so "Alice.0g" and "alice.0g"
// address the same asset.
func Node(name string) [32]byte {
	normalized := strings.ToLower(strings.TrimSpace(name))
	return ethcrypto.Keccak256Hash([]byte(normalized))
}

type record struct {
	owner [20]byte
	name  string
}

// Ledger is a Registry implementation used by the daemon and by tests. It
// keeps every record in memory and, when constructed with a database,
// writes each mutation through so ownership survives restarts. Production
// deployments are expected to swap in an adapter backed by the on-chain
// name registry.
type Ledger struct {
	mu      sync.RWMutex
	records map[[32]byte]*record
	db      storage.Database
	index   [][32]byte
}

// NewLedger constructs an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{records: make(map[[32]byte]*record)}
}

// NewPersistentLedger constructs a ledger backed by db, replaying any
// records persisted by a previous run.
func NewPersistentLedger(db storage.Database) (*Ledger, error) {
	l := &Ledger{records: make(map[[32]byte]*record), db: db}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

// Register records a new name under the supplied owner and returns its
// node. Registering an already-known name fails with ErrNameTaken.
func (l *Ledger) Register(name string, owner [20]byte) ([32]byte, error) {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" {
		return [32]byte{}, ErrEmptyName
	}
	node := Node(trimmed)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[node]; ok {
		return [32]byte{}, ErrNameTaken
	}
	rec := &record{owner: owner, name: trimmed}
	l.index = append(l.index, node)
	if err := l.persist(node, rec); err != nil {
		l.index = l.index[:len(l.index)-1]
		return [32]byte{}, err
	}
	l.records[node] = rec
	return node, nil
}

// Resolve returns the current owner of the node.
func (l *Ledger) Resolve(node [32]byte) ([20]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[node]
	if !ok {
		return [20]byte{}, ErrUnknownAsset
	}
	return rec.owner, nil
}

// TransferOwnership moves the node from one owner to another. The from
// address must match the current owner.
func (l *Ledger) TransferOwnership(node [32]byte, from, to [20]byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[node]
	if !ok {
		return ErrUnknownAsset
	}
	if rec.owner != from {
		return ErrWrongOwner
	}
	prev := rec.owner
	rec.owner = to
	if err := l.persist(node, rec); err != nil {
		rec.owner = prev
		return err
	}
	return nil
}

const (
	indexKey        = "registry/nodes"
	recordKeyPrefix = "registry/node/"
)

type storedRecord struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

func recordKey(node [32]byte) []byte {
	return []byte(recordKeyPrefix + hex.EncodeToString(node[:]))
}

// persist writes the record and the node index through to the database.
// Callers hold the write lock. A nil database makes this a no-op.
func (l *Ledger) persist(node [32]byte, rec *record) error {
	if l.db == nil {
		return nil
	}
	encoded, err := json.Marshal(storedRecord{
		Name:  rec.name,
		Owner: hex.EncodeToString(rec.owner[:]),
	})
	if err != nil {
		return err
	}
	if err := l.db.Put(recordKey(node), encoded); err != nil {
		return err
	}
	nodes := make([]string, len(l.index))
	for i, n := range l.index {
		nodes[i] = hex.EncodeToString(n[:])
	}
	encodedIndex, err := json.Marshal(nodes)
	if err != nil {
		return err
	}
	return l.db.Put([]byte(indexKey), encodedIndex)
}

func (l *Ledger) load() error {
	raw, err := l.db.Get([]byte(indexKey))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var nodes []string
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return fmt.Errorf("registry: corrupt node index: %w", err)
	}
	for _, encoded := range nodes {
		rawNode, err := hex.DecodeString(encoded)
		if err != nil || len(rawNode) != 32 {
			return fmt.Errorf("registry: corrupt node entry %q", encoded)
		}
		var node [32]byte
		copy(node[:], rawNode)
		rawRec, err := l.db.Get(recordKey(node))
		if err != nil {
			return fmt.Errorf("registry: missing record for node %s: %w", encoded, err)
		}
		var stored storedRecord
		if err := json.Unmarshal(rawRec, &stored); err != nil {
			return fmt.Errorf("registry: corrupt record for node %s: %w", encoded, err)
		}
		rawOwner, err := hex.DecodeString(stored.Owner)
		if err != nil || len(rawOwner) != 20 {
			return fmt.Errorf("registry: corrupt owner for node %s", encoded)
		}
		rec := &record{name: stored.Name}
		copy(rec.owner[:], rawOwner)
		l.records[node] = rec
		l.index = append(l.index, node)
	}
	return nil
}

// NameOf returns the human-readable name registered for the node.
func (l *Ledger) NameOf(node [32]byte) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[node]
	if !ok {
		return "", ErrUnknownAsset
	}
	return rec.name, nil
}
