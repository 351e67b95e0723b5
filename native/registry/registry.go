// Package registry implements the deed registry: the system of record for
// ownership of tokenized real-estate titles. The escrow engine consumes it
// through the small interface it re-declares; this package owns minting,
// ownership queries, operator approval and custody transfer.
package registry

import (
	"errors"
	"sync"
	"time"

	"titlevault/core/events"
	"titlevault/core/ledger"
	"titlevault/core/types"
)

var (
	ErrNilState      = errors.New("registry: state not configured")
	ErrUnknownAsset  = errors.New("registry: unknown asset")
	ErrNotOwner      = errors.New("registry: from is not the current owner")
	ErrNotAuthorized = errors.New("registry: caller is neither owner nor approved operator")
	ErrEmptyMetaURI  = errors.New("registry: metadata URI required")
)

// Deed records the ownership state of a single tokenized title.
type Deed struct {
	ID       uint64
	Owner    [20]byte
	Approved [20]byte // operator delegated transfer rights; zero when unset
	MetaURI  string
	MintedAt int64
}

// Clone returns a copy of the deed.
func (d *Deed) Clone() *Deed {
	if d == nil {
		return nil
	}
	clone := *d
	return &clone
}

// State is the persistence surface required by the registry.
type State interface {
	DeedPut(*Deed) error
	DeedGet(id uint64) (*Deed, bool)
	DeedNextID() (uint64, error)
}

type registryEvent struct {
	evt *types.Event
}

func (e registryEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e registryEvent) Event() *types.Event { return e.evt }

// Engine owns deed identity and custody.
type Engine struct {
	mu      sync.RWMutex
	state   State
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a deed registry engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the registry.
func (e *Engine) SetState(state State) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily used in tests.
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
	e.emitter.Emit(registryEvent{evt: evt})
}

// Address returns the registry's module address, exposed so callers can
// report which registry an escrow engine is bound to.
func (e *Engine) Address() [20]byte {
	return ledger.ModuleAddress("registry/deeds")
}

// Mint creates a new deed owned by the given party and returns its
// sequential identifier.
func (e *Engine) Mint(owner [20]byte, metaURI string) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	if metaURI == "" {
		return 0, ErrEmptyMetaURI
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	id, err := e.state.DeedNextID()
	if err != nil {
		return 0, err
	}
	deed := &Deed{
		ID:       id,
		Owner:    owner,
		MetaURI:  metaURI,
		MintedAt: e.nowFn(),
	}
	if err := e.state.DeedPut(deed); err != nil {
		return 0, err
	}
	e.emit(NewMintedEvent(deed))
	return id, nil
}

// OwnerOf reports the current owner of a deed.
func (e *Engine) OwnerOf(id uint64) ([20]byte, error) {
	if e == nil || e.state == nil {
		return [20]byte{}, ErrNilState
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	deed, ok := e.state.DeedGet(id)
	if !ok {
		return [20]byte{}, ErrUnknownAsset
	}
	return deed.Owner, nil
}

// MetaURI reports the metadata URI recorded at mint time.
func (e *Engine) MetaURI(id uint64) (string, error) {
	if e == nil || e.state == nil {
		return "", ErrNilState
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	deed, ok := e.state.DeedGet(id)
	if !ok {
		return "", ErrUnknownAsset
	}
	return deed.MetaURI, nil
}

// ApprovedOperator reports the operator currently delegated transfer rights
// for a deed, and whether one is set.
func (e *Engine) ApprovedOperator(id uint64) ([20]byte, bool, error) {
	if e == nil || e.state == nil {
		return [20]byte{}, false, ErrNilState
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	deed, ok := e.state.DeedGet(id)
	if !ok {
		return [20]byte{}, false, ErrUnknownAsset
	}
	return deed.Approved, deed.Approved != ([20]byte{}), nil
}

// Approve delegates transfer rights for a deed to an operator. Only the
// current owner may approve; approving the zero address clears the grant.
func (e *Engine) Approve(caller, operator [20]byte, id uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	deed, ok := e.state.DeedGet(id)
	if !ok {
		return ErrUnknownAsset
	}
	if deed.Owner != caller {
		return ErrNotAuthorized
	}
	deed.Approved = operator
	if err := e.state.DeedPut(deed); err != nil {
		return err
	}
	e.emit(NewApprovedEvent(deed))
	return nil
}

// Transfer moves deed custody from one party to another. The caller must be
// the current owner or its approved operator, and from must match the
// current owner. A successful transfer clears any operator approval.
func (e *Engine) Transfer(caller, from, to [20]byte, id uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	deed, ok := e.state.DeedGet(id)
	if !ok {
		return ErrUnknownAsset
	}
	if deed.Owner != from {
		return ErrNotOwner
	}
	if caller != deed.Owner && (deed.Approved == ([20]byte{}) || caller != deed.Approved) {
		return ErrNotAuthorized
	}
	deed.Owner = to
	deed.Approved = [20]byte{}
	if err := e.state.DeedPut(deed); err != nil {
		return err
	}
	e.emit(NewTransferredEvent(deed, from))
	return nil
}
