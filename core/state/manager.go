// Package state persists accounts, deeds, listings and per-listing escrow
// balances in a storage.Database, implementing the state interfaces of the
// ledger, registry and escrow engines.
package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"titlevault/core/types"
	"titlevault/native/escrow"
	"titlevault/native/registry"
	"titlevault/storage"
)

const (
	accountPrefix     = "acct/"
	deedPrefix        = "deed/"
	listingPrefix     = "listing/"
	escrowFundsPrefix = "lfunds/"
	deedSequenceKey   = "deedseq"
)

// Manager is the single state backend shared by the engines. Documents are
// stored as JSON under prefixed keys.
type Manager struct {
	mu sync.Mutex
	db storage.Database
}

// NewManager wraps a key-value database in a state manager.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) getJSON(key string, out any) (bool, error) {
	raw, err := m.db.Get([]byte(key))
	if errors.Is(err, storage.ErrNotFound) {
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

func (m *Manager) putJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	return m.db.Put([]byte(key), raw)
}

// --- accounts (ledger.State) ---

type storedAccount struct {
	Nonce   uint64 `json:"nonce"`
	Balance string `json:"balance"`
}

// GetAccount loads an account. Unknown addresses yield a zero-balance
// account rather than an error.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stored storedAccount
	ok, err := m.getJSON(accountPrefix+hex.EncodeToString(addr[:]), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	balance, err := parseAmount(stored.Balance)
	if err != nil {
		return nil, fmt.Errorf("state: account %x: %w", addr, err)
	}
	return &types.Account{Nonce: stored.Nonce, Balance: balance}, nil
}

// PutAccount persists an account.
func (m *Manager) PutAccount(addr [20]byte, acc *types.Account) error {
	if acc == nil {
		return fmt.Errorf("state: nil account")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc = types.EnsureAccount(acc)
	stored := storedAccount{Nonce: acc.Nonce, Balance: acc.Balance.String()}
	return m.putJSON(accountPrefix+hex.EncodeToString(addr[:]), stored)
}

// --- deeds (registry.State) ---

type storedDeed struct {
	ID       uint64 `json:"id"`
	Owner    string `json:"owner"`
	Approved string `json:"approved,omitempty"`
	MetaURI  string `json:"metaURI"`
	MintedAt int64  `json:"mintedAt"`
}

// DeedPut persists a deed record.
func (m *Manager) DeedPut(d *registry.Deed) error {
	if d == nil {
		return fmt.Errorf("state: nil deed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := storedDeed{
		ID:       d.ID,
		Owner:    hex.EncodeToString(d.Owner[:]),
		MetaURI:  d.MetaURI,
		MintedAt: d.MintedAt,
	}
	if d.Approved != ([20]byte{}) {
		stored.Approved = hex.EncodeToString(d.Approved[:])
	}
	return m.putJSON(deedPrefix+strconv.FormatUint(d.ID, 10), stored)
}

// DeedGet loads a deed record.
func (m *Manager) DeedGet(id uint64) (*registry.Deed, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stored storedDeed
	ok, err := m.getJSON(deedPrefix+strconv.FormatUint(id, 10), &stored)
	if err != nil || !ok {
		return nil, false
	}
	owner, err := parseAddress(stored.Owner)
	if err != nil {
		return nil, false
	}
	deed := &registry.Deed{
		ID:       stored.ID,
		Owner:    owner,
		MetaURI:  stored.MetaURI,
		MintedAt: stored.MintedAt,
	}
	if stored.Approved != "" {
		approved, err := parseAddress(stored.Approved)
		if err != nil {
			return nil, false
		}
		deed.Approved = approved
	}
	return deed, true
}

// DeedNextID increments and returns the deed id sequence. The first minted
// deed gets id 1.
func (m *Manager) DeedNextID() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var seq uint64
	ok, err := m.getJSON(deedSequenceKey, &seq)
	if err != nil {
		return 0, err
	}
	if !ok {
		seq = 0
	}
	seq++
	if err := m.putJSON(deedSequenceKey, seq); err != nil {
		return 0, err
	}
	return seq, nil
}

// --- listings and held funds (escrow engine state) ---

type storedListing struct {
	AssetID          uint64   `json:"assetId"`
	Buyer            string   `json:"buyer"`
	PurchasePrice    string   `json:"purchasePrice"`
	EscrowAmount     string   `json:"escrowAmount"`
	Status           uint8    `json:"status"`
	Approvals        []string `json:"approvals,omitempty"`
	ForfeitedEarnest bool     `json:"forfeitedEarnest,omitempty"`
	CreatedAt        int64    `json:"createdAt"`
	ClosedAt         int64    `json:"closedAt,omitempty"`
}

// ListingPut persists a listing record after sanitising it.
func (m *Manager) ListingPut(l *escrow.Listing) error {
	sanitized, err := escrow.SanitizeListing(l)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := storedListing{
		AssetID:          sanitized.AssetID,
		Buyer:            hex.EncodeToString(sanitized.Buyer[:]),
		PurchasePrice:    sanitized.PurchasePrice.String(),
		EscrowAmount:     sanitized.EscrowAmount.String(),
		Status:           uint8(sanitized.Status),
		ForfeitedEarnest: sanitized.ForfeitedEarnest,
		CreatedAt:        sanitized.CreatedAt,
		ClosedAt:         sanitized.ClosedAt,
	}
	for party := range sanitized.Approvals {
		stored.Approvals = append(stored.Approvals, hex.EncodeToString(party[:]))
	}
	return m.putJSON(listingPrefix+strconv.FormatUint(sanitized.AssetID, 10), stored)
}

// ListingGet loads a listing record, closed records included.
func (m *Manager) ListingGet(assetID uint64) (*escrow.Listing, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stored storedListing
	ok, err := m.getJSON(listingPrefix+strconv.FormatUint(assetID, 10), &stored)
	if err != nil || !ok {
		return nil, false
	}
	buyer, err := parseAddress(stored.Buyer)
	if err != nil {
		return nil, false
	}
	price, err := parseAmount(stored.PurchasePrice)
	if err != nil {
		return nil, false
	}
	earnest, err := parseAmount(stored.EscrowAmount)
	if err != nil {
		return nil, false
	}
	listing := &escrow.Listing{
		AssetID:          stored.AssetID,
		Buyer:            buyer,
		PurchasePrice:    price,
		EscrowAmount:     earnest,
		Status:           escrow.ListingStatus(stored.Status),
		Approvals:        make(map[[20]byte]bool, len(stored.Approvals)),
		ForfeitedEarnest: stored.ForfeitedEarnest,
		CreatedAt:        stored.CreatedAt,
		ClosedAt:         stored.ClosedAt,
	}
	for _, encoded := range stored.Approvals {
		party, err := parseAddress(encoded)
		if err != nil {
			return nil, false
		}
		listing.Approvals[party] = true
	}
	return listing, true
}

// EscrowCredit adds amount to the funds held for a listing.
func (m *Manager) EscrowCredit(assetID uint64, amount *big.Int) error {
	return m.adjustEscrowFunds(assetID, amount, false)
}

// EscrowDebit removes amount from the funds held for a listing, rejecting
// debits beyond the held balance.
func (m *Manager) EscrowDebit(assetID uint64, amount *big.Int) error {
	return m.adjustEscrowFunds(assetID, amount, true)
}

func (m *Manager) adjustEscrowFunds(assetID uint64, amount *big.Int, debit bool) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: invalid escrow fund amount")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	held, err := m.escrowBalanceLocked(assetID)
	if err != nil {
		return err
	}
	if debit {
		if held.Cmp(amount) < 0 {
			return fmt.Errorf("state: escrow debit %s exceeds held %s for asset %d", amount, held, assetID)
		}
		held = new(big.Int).Sub(held, amount)
	} else {
		held = new(big.Int).Add(held, amount)
	}
	return m.putJSON(escrowFundsPrefix+strconv.FormatUint(assetID, 10), held.String())
}

// EscrowBalance reports the funds held for a listing; assets with no held
// funds report zero.
func (m *Manager) EscrowBalance(assetID uint64) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	held, err := m.escrowBalanceLocked(assetID)
	if err != nil {
		return big.NewInt(0)
	}
	return held
}

func (m *Manager) escrowBalanceLocked(assetID uint64) (*big.Int, error) {
	var stored string
	ok, err := m.getJSON(escrowFundsPrefix+strconv.FormatUint(assetID, 10), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return parseAmount(stored)
}

// --- helpers ---

func parseAddress(encoded string) ([20]byte, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return [20]byte{}, fmt.Errorf("state: bad address %q: %w", encoded, err)
	}
	if len(raw) != 20 {
		return [20]byte{}, fmt.Errorf("state: address %q is %d bytes", encoded, len(raw))
	}
	var addr [20]byte
	copy(addr[:], raw)
	return addr, nil
}

func parseAmount(encoded string) (*big.Int, error) {
	if encoded == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(encoded, 10)
	if !ok {
		return nil, fmt.Errorf("state: bad amount %q", encoded)
	}
	return amount, nil
}
