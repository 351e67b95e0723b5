// Package ledger provides the funds-transfer primitive consumed by the
// escrow engine: a balance ledger that can move value between party
// addresses and module vaults.
package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"titlevault/core/types"
)

var (
	ErrNilState          = errors.New("ledger: state not configured")
	ErrInsufficientFunds = errors.New("ledger: insufficient balance")
)

// State is the persistence surface the ledger needs.
type State interface {
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, acc *types.Account) error
}

// Ledger moves value between accounts held in a State backend.
type Ledger struct {
	mu    sync.Mutex
	state State
}

// New constructs a ledger over the given state backend.
func New(state State) *Ledger {
	return &Ledger{state: state}
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Transfer moves amount from one account to another. A zero amount is a
// no-op; negative amounts are rejected. The debit and credit are written
// together or not at all.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	amt := cloneAmount(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("ledger: negative transfer amount")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fromAcc, err := l.state.GetAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := l.state.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc = types.EnsureAccount(fromAcc)
	toAcc = types.EnsureAccount(toAcc)
	if fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := l.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	if err := l.state.PutAccount(to, toAcc); err != nil {
		return err
	}
	return nil
}

// Credit mints amount into an account. Used when provisioning party
// balances; the escrow engine itself never mints.
func (l *Ledger) Credit(addr [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	amt := cloneAmount(amount)
	if amt.Sign() < 0 {
		return fmt.Errorf("ledger: negative credit amount")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, err := l.state.GetAccount(addr)
	if err != nil {
		return err
	}
	acc = types.EnsureAccount(acc)
	acc.Balance = new(big.Int).Add(acc.Balance, amt)
	return l.state.PutAccount(addr, acc)
}

// BalanceOf reports the current balance of an account. Unknown accounts
// report zero.
func (l *Ledger) BalanceOf(addr [20]byte) *big.Int {
	if l == nil || l.state == nil {
		return big.NewInt(0)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, err := l.state.GetAccount(addr)
	if err != nil {
		return big.NewInt(0)
	}
	return types.EnsureAccount(acc).Clone().Balance
}

// ModuleAddress derives a deterministic vault address for a named module.
// The address has no known private key, so funds held there can only move
// through engine transitions.
func ModuleAddress(tag string) [20]byte {
	hash := ethcrypto.Keccak256([]byte("titlevault/module/" + tag))
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}
