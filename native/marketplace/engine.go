package marketplace

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/chronogist/iNS-intelligent-name-service-sub001/core/events"
	"github.com/chronogist/iNS-intelligent-name-service-sub001/core/types"
	nativecommon "github.com/chronogist/iNS-intelligent-name-service-sub001/native/common"
	"github.com/chronogist/iNS-intelligent-name-service-sub001/native/registry"
)

const moduleName = "marketplace"

// State is the persistence backend consumed by the engine. Implementations
// must return defensive copies from every getter; the engine never hands a
// stored pointer to callers.
type State interface {
	SaleListingPut(node [32]byte, listing *SaleListing) error
	SaleListingGet(node [32]byte) (*SaleListing, bool)
	RentalListingPut(node [32]byte, listing *RentalListing) error
	RentalListingGet(node [32]byte) (*RentalListing, bool)
	ActiveRentalPut(node [32]byte, rental *ActiveRental) error
	ActiveRentalGet(node [32]byte) (*ActiveRental, bool)
	OffersAppend(node [32]byte, offer *Offer) (int, error)
	OffersGet(node [32]byte) ([]*Offer, error)
	OfferUpdate(node [32]byte, index int, offer *Offer) error
	StatsGet() (*Stats, error)
	StatsPut(stats *Stats) error
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
	VaultAddress() [20]byte
}

type marketplaceEvent struct {
	evt *types.Event
}

func (e marketplaceEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketplaceEvent) Event() *types.Event { return e.evt }

// pauseSwitch is the default PauseView toggled by Pause/Unpause when no
// external view is wired in.
type pauseSwitch struct {
	mu     sync.RWMutex
	paused bool
}

func (p *pauseSwitch) IsPaused(string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused
}

func (p *pauseSwitch) set(paused bool) {
	p.mu.Lock()
	p.paused = paused
	p.mu.Unlock()
}

// Engine wires the marketplace business logic with external state, the
// asset registry and an event emitter. A single mutex serializes every
// mutating operation so each call observes and commits state atomically.
type Engine struct {
	mu        sync.Mutex
	state     State
	registry  registry.Registry
	emitter   events.Emitter
	nowFn     func() int64
	pauses    nativecommon.PauseView
	pauseCtl  *pauseSwitch
	feeBps    uint32
	treasury  [20]byte
	operators map[[20]byte]struct{}
}

// NewEngine creates a marketplace engine with a no-op emitter and the
// default platform fee. Callers wire state, registry and emitter through
// the setters before use.
func NewEngine() *Engine {
	ctl := &pauseSwitch{}
	return &Engine{
		emitter:   events.NoopEmitter{},
		nowFn:     func() int64 { return time.Now().Unix() },
		pauses:    ctl,
		pauseCtl:  ctl,
		feeBps:    250,
		operators: make(map[[20]byte]struct{}),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetRegistry configures the asset-ownership collaborator.
func (e *Engine) SetRegistry(reg registry.Registry) { e.registry = reg }

// SetEmitter configures the event emitter. Passing nil resets the emitter
// to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily
// intended for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetPauses replaces the pause view consulted by every guarded operation.
// Pause and Unpause only act on the engine's internal switch, so wiring an
// external view also hands pause control to that view's owner.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if p == nil {
		e.pauses = e.pauseCtl
		return
	}
	e.pauses = p
}

// SetFeeTreasury configures the address receiving platform fees at wiring
// time. Runtime changes go through SetTreasury.
func (e *Engine) SetFeeTreasury(addr [20]byte) { e.treasury = addr }

// SetFeeBps configures the platform fee at wiring time. Runtime changes go
// through SetPlatformFee.
func (e *Engine) SetFeeBps(bps uint32) error {
	if bps > MaxPlatformFeeBps {
		return ErrFeeTooHigh
	}
	e.feeBps = bps
	return nil
}

// AddOperator grants the administrative role to the supplied address.
func (e *Engine) AddOperator(addr [20]byte) {
	e.mu.Lock()
	e.operators[addr] = struct{}{}
	e.mu.Unlock()
}

func (e *Engine) isOperator(addr [20]byte) bool {
	_, ok := e.operators[addr]
	return ok
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(marketplaceEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) guard() error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return ErrPaused
	}
	return nil
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.registry == nil {
		return errNilRegistry
	}
	return nil
}

// ownerOf resolves the current asset owner, mapping an unknown node onto
// the marketplace taxonomy.
func (e *Engine) ownerOf(node [32]byte) ([20]byte, error) {
	owner, err := e.registry.Resolve(node)
	if err != nil {
		return [20]byte{}, ErrAssetNotFound
	}
	return owner, nil
}

func (e *Engine) nameOf(node [32]byte) string {
	if e == nil || e.registry == nil {
		return ""
	}
	name, err := e.registry.NameOf(node)
	if err != nil {
		return ""
	}
	return name
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// splitFee computes the platform fee and counterparty remainder for the
// supplied gross amount. fee + remainder always equals amount exactly.
func (e *Engine) splitFee(amount *big.Int) (fee, remainder *big.Int) {
	total := cloneBigInt(amount)
	fee = new(big.Int).Mul(total, new(big.Int).SetUint64(uint64(e.feeBps)))
	fee.Div(fee, big.NewInt(feeDenominator))
	remainder = new(big.Int).Sub(total, fee)
	return fee, remainder
}

// transferFunds moves amount between two accounts. Zero amounts are a
// no-op; shortfalls fail before any balance is written.
func (e *Engine) transferFunds(from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("%w: negative amount", ErrTransferFailed)
	}
	fromAcc, err := e.state.GetAccount(from)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	toAcc, err := e.state.GetAccount(to)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	fromAcc = fromAcc.EnsureBalances()
	toAcc = toAcc.EnsureBalances()
	if fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if err := e.state.PutAccount(to, toAcc); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}

// balanceOf reads the current account balance without mutating anything.
func (e *Engine) balanceOf(addr [20]byte) (*big.Int, error) {
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return cloneBigInt(acc.EnsureBalances().Balance), nil
}

func (e *Engine) ensureTreasuryConfigured() error {
	if e.treasury == ([20]byte{}) {
		return ErrZeroTreasury
	}
	return nil
}

// recordSale bumps the aggregate sale counters by one settlement of the
// supplied volume.
func (e *Engine) recordSale(amount *big.Int) error {
	stats, err := e.state.StatsGet()
	if err != nil {
		return err
	}
	stats = stats.Clone()
	stats.TotalSales++
	stats.SaleVolume = new(big.Int).Add(stats.SaleVolume, cloneBigInt(amount))
	return e.state.StatsPut(stats)
}

// recordRental bumps the aggregate rental counters by one settlement of
// the supplied volume.
func (e *Engine) recordRental(amount *big.Int) error {
	stats, err := e.state.StatsGet()
	if err != nil {
		return err
	}
	stats = stats.Clone()
	stats.TotalRentals++
	stats.RentalVolume = new(big.Int).Add(stats.RentalVolume, cloneBigInt(amount))
	return e.state.StatsPut(stats)
}

// rentalLock reports whether an unexpired active rental occupies the node.
func (e *Engine) rentalLock(node [32]byte, now int64) bool {
	rental, ok := e.state.ActiveRentalGet(node)
	if !ok {
		return false
	}
	return !rental.Expired(now)
}

// --- Administration ---

// SetPlatformFee updates the platform fee, bounded by MaxPlatformFeeBps.
// Operator role required.
func (e *Engine) SetPlatformFee(caller [20]byte, feeBps uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.isOperator(caller) {
		return ErrUnauthorized
	}
	if feeBps > MaxPlatformFeeBps {
		return ErrFeeTooHigh
	}
	e.feeBps = feeBps
	e.emit(NewFeeUpdatedEvent(caller, feeBps, e.now()))
	return nil
}

// SetTreasury updates the platform fee recipient. Operator role required;
// the zero address is rejected.
func (e *Engine) SetTreasury(caller [20]byte, treasury [20]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.isOperator(caller) {
		return ErrUnauthorized
	}
	if treasury == ([20]byte{}) {
		return ErrZeroTreasury
	}
	e.treasury = treasury
	e.emit(NewTreasuryUpdatedEvent(caller, treasury, e.now()))
	return nil
}

// Pause blocks all listing-creating and money-moving operations. EndRental
// and CancelOffer stay available as escape hatches.
func (e *Engine) Pause(caller [20]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.isOperator(caller) {
		return ErrUnauthorized
	}
	e.pauseCtl.set(true)
	e.emit(NewPausedEvent(caller, e.now()))
	return nil
}

// Unpause lifts an administrative pause.
func (e *Engine) Unpause(caller [20]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.isOperator(caller) {
		return ErrUnauthorized
	}
	e.pauseCtl.set(false)
	e.emit(NewUnpausedEvent(caller, e.now()))
	return nil
}

// PlatformFeeBps returns the currently configured fee rate.
func (e *Engine) PlatformFeeBps() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feeBps
}

// Treasury returns the currently configured fee recipient.
func (e *Engine) Treasury() [20]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.treasury
}
