// Package escrow implements the conditional-sale protocol for tokenized
// real-estate titles: a seller lists a deed, the buyer places earnest funds
// into custody, an inspector records a verdict, all three stakeholders
// approve, and the sale either finalizes (funds to seller, deed to buyer)
// or cancels (settlement keyed on the inspection verdict).
package escrow

import (
	"math/big"
	"sync"
	"time"

	"titlevault/core/events"
	"titlevault/core/ledger"
	"titlevault/core/types"
)

// engineState is the persistence surface the engine needs. Held funds are
// ledgered per asset so concurrent escrows on multiple assets stay
// segregated.
type engineState interface {
	ListingPut(*Listing) error
	ListingGet(assetID uint64) (*Listing, bool)
	EscrowCredit(assetID uint64, amount *big.Int) error
	EscrowDebit(assetID uint64, amount *big.Int) error
	EscrowBalance(assetID uint64) *big.Int
}

// AssetRegistry is the collaborator that owns deed identity and custody.
type AssetRegistry interface {
	Address() [20]byte
	OwnerOf(assetID uint64) ([20]byte, error)
	Transfer(caller, from, to [20]byte, assetID uint64) error
}

// FundsLedger is the value-transfer primitive the engine settles through.
type FundsLedger interface {
	Transfer(from, to [20]byte, amount *big.Int) error
	BalanceOf(addr [20]byte) *big.Int
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// Engine is the escrow state machine. The seller, inspector and lender
// roles are fixed at construction; every mutator runs under one lock so
// transitions are fully ordered.
type Engine struct {
	mu       sync.RWMutex
	state    engineState
	registry AssetRegistry
	funds    FundsLedger
	emitter  events.Emitter
	nowFn    func() int64

	vault     [20]byte
	seller    [20]byte
	inspector [20]byte
	lender    [20]byte
}

// NewEngine creates an escrow engine bound to a deed registry and a funds
// ledger, with the three fixed stakeholder identities. Events default to a
// no-op emitter; callers can override via SetEmitter.
func NewEngine(registry AssetRegistry, funds FundsLedger, seller, inspector, lender [20]byte) *Engine {
	return &Engine{
		registry:  registry,
		funds:     funds,
		emitter:   events.NoopEmitter{},
		nowFn:     func() int64 { return time.Now().Unix() },
		vault:     ledger.ModuleAddress("escrow/vault"),
		seller:    seller,
		inspector: inspector,
		lender:    lender,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for listing timestamps.
// Primarily intended for tests to provide deterministic values.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(escrowEvent{evt: evt})
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// openListing loads the active listing for an asset, rejecting closed or
// missing records.
func (e *Engine) openListing(assetID uint64) (*Listing, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	listing, ok := e.state.ListingGet(assetID)
	if !ok || !listing.Status.Open() {
		return nil, ErrNotListed
	}
	return listing, nil
}

// List creates an active listing for an asset and takes custody of the deed.
// Only the fixed seller may list. The seller must have delegated transfer
// rights for the deed to the engine's vault beforehand; if the custody
// transfer fails, no record is created.
func (e *Engine) List(assetID uint64, caller, buyer [20]byte, purchasePrice, escrowAmount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(nil, caller, Roles(RoleSeller)); err != nil {
		return err
	}
	price := cloneAmount(purchasePrice)
	earnest := cloneAmount(escrowAmount)
	if price.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if earnest.Sign() < 0 || earnest.Cmp(price) > 0 {
		return ErrInvalidTerms
	}
	if existing, ok := e.state.ListingGet(assetID); ok && existing.Status.Open() {
		return ErrAlreadyListed
	}
	// External custody transfer first: a failure here aborts the whole
	// operation before any record exists.
	if err := e.registry.Transfer(e.vault, e.seller, e.vault, assetID); err != nil {
		return err
	}
	listing := &Listing{
		AssetID:       assetID,
		Buyer:         buyer,
		PurchasePrice: price,
		EscrowAmount:  earnest,
		Status:        StatusListed,
		Approvals:     make(map[[20]byte]bool),
		CreatedAt:     e.nowFn(),
	}
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	e.emit(NewCreatedEvent(listing))
	return nil
}

// DepositEarnest places buyer funds into the listing's custodial balance.
// Only the listed buyer may deposit. The amount is not forced to equal the
// agreed earnest: any positive amount is accepted and accumulates, leaving
// the finalize funds gate to judge sufficiency.
func (e *Engine) DepositEarnest(assetID uint64, from [20]byte, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	listing, err := e.openListing(assetID)
	if err != nil {
		return err
	}
	if err := e.authorize(listing, from, Roles(RoleBuyer)); err != nil {
		return err
	}
	if err := e.credit(listing, from, amount); err != nil {
		return err
	}
	e.emit(NewDepositedEvent(listing, amount))
	return nil
}

// Contribute tops up the listing's custodial balance from any party. This
// is how the lender funds the remainder of the purchase price before
// finalize.
func (e *Engine) Contribute(assetID uint64, from [20]byte, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	listing, err := e.openListing(assetID)
	if err != nil {
		return err
	}
	if err := e.credit(listing, from, amount); err != nil {
		return err
	}
	e.emit(NewContributedEvent(listing, from, amount))
	return nil
}

func (e *Engine) credit(listing *Listing, from [20]byte, amount *big.Int) error {
	amt := cloneAmount(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := e.funds.Transfer(from, e.vault, amt); err != nil {
		return err
	}
	return e.state.EscrowCredit(listing.AssetID, amt)
}

// UpdateInspectionStatus records the inspector's verdict. The latest call
// wins, supporting corrective re-inspection before finalize.
func (e *Engine) UpdateInspectionStatus(assetID uint64, caller [20]byte, passed bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	listing, err := e.openListing(assetID)
	if err != nil {
		return err
	}
	if err := e.authorize(listing, caller, Roles(RoleInspector)); err != nil {
		return err
	}
	if passed {
		listing.Status = StatusInspected
	} else {
		listing.Status = StatusListed
	}
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	e.emit(NewInspectionEvent(listing, passed))
	return nil
}

// ApproveSale records the caller's approval. Only the buyer, seller and
// lender may approve; approving twice is a no-op.
func (e *Engine) ApproveSale(assetID uint64, caller [20]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	listing, err := e.openListing(assetID)
	if err != nil {
		return err
	}
	if err := e.authorize(listing, caller, Roles(RoleBuyer, RoleSeller, RoleLender)); err != nil {
		return err
	}
	if listing.Approvals[caller] {
		return nil
	}
	listing.Approvals[caller] = true
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	e.emit(NewApprovedEvent(listing, caller))
	return nil
}

// FinalizeSale settles the sale: the purchase price moves to the seller,
// any surplus held for the listing refunds to the buyer, and the deed
// transfers to the buyer. All gates are checked before any effect: the
// inspection must have passed, all three stakeholders must have approved,
// and the listing balance must cover the purchase price. Only the seller
// may finalize.
func (e *Engine) FinalizeSale(assetID uint64, caller [20]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	listing, err := e.openListing(assetID)
	if err != nil {
		return err
	}
	if err := e.authorize(listing, caller, Roles(RoleSeller)); err != nil {
		return err
	}
	if listing.Status != StatusInspected {
		return preconditionErr(GateInspection, "inspection has not passed")
	}
	for _, party := range [][20]byte{listing.Buyer, e.seller, e.lender} {
		if !listing.Approvals[party] {
			return preconditionErr(GateApprovals, "missing stakeholder approval")
		}
	}
	held := e.state.EscrowBalance(assetID)
	if held.Cmp(listing.PurchasePrice) < 0 {
		return preconditionErr(GateFunds, "held %s below purchase price %s", held, listing.PurchasePrice)
	}
	// Deed custody moves first; the registry call is the external effect
	// that can fail for reasons outside the engine's control.
	if err := e.registry.Transfer(e.vault, e.vault, listing.Buyer, assetID); err != nil {
		return err
	}
	surplus := new(big.Int).Sub(held, listing.PurchasePrice)
	if err := e.funds.Transfer(e.vault, e.seller, listing.PurchasePrice); err != nil {
		return err
	}
	if surplus.Sign() > 0 {
		if err := e.funds.Transfer(e.vault, listing.Buyer, surplus); err != nil {
			return err
		}
	}
	if err := e.state.EscrowDebit(assetID, held); err != nil {
		return err
	}
	listing.Status = StatusFinalized
	listing.ClosedAt = e.nowFn()
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	e.emit(NewFinalizedEvent(listing, listing.PurchasePrice, surplus))
	return nil
}

// CancelSale aborts the sale. Only the buyer or the seller may cancel. When
// the inspection has not passed the full held balance refunds to the buyer;
// when it has passed the buyer forfeits the held funds to the seller. The
// deed returns to the seller either way.
func (e *Engine) CancelSale(assetID uint64, caller [20]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	listing, err := e.openListing(assetID)
	if err != nil {
		return err
	}
	if err := e.authorize(listing, caller, Roles(RoleBuyer, RoleSeller)); err != nil {
		return err
	}
	forfeited := listing.Status == StatusInspected
	recipient := listing.Buyer
	if forfeited {
		recipient = e.seller
	}
	if err := e.registry.Transfer(e.vault, e.vault, e.seller, assetID); err != nil {
		return err
	}
	held := e.state.EscrowBalance(assetID)
	if held.Sign() > 0 {
		if err := e.funds.Transfer(e.vault, recipient, held); err != nil {
			return err
		}
		if err := e.state.EscrowDebit(assetID, held); err != nil {
			return err
		}
	}
	listing.Status = StatusCancelled
	listing.ForfeitedEarnest = forfeited
	listing.ClosedAt = e.nowFn()
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	e.emit(NewCancelledEvent(listing, recipient, held))
	return nil
}
