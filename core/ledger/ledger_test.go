package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"titlevault/core/types"
)

type mapState struct {
	accounts map[[20]byte]*types.Account
}

func newMapState() *mapState {
	return &mapState{accounts: make(map[[20]byte]*types.Account)}
}

func (m *mapState) GetAccount(addr [20]byte) (*types.Account, error) {
	acc, ok := m.accounts[addr]
	if !ok {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	return acc.Clone(), nil
}

func (m *mapState) PutAccount(addr [20]byte, acc *types.Account) error {
	if acc == nil {
		return fmt.Errorf("nil account")
	}
	m.accounts[addr] = acc.Clone()
	return nil
}

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestTransferMovesFunds(t *testing.T) {
	l := New(newMapState())
	alice, bob := addr(0x01), addr(0x02)
	if err := l.Credit(alice, big.NewInt(10)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := l.Transfer(alice, bob, big.NewInt(4)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := l.BalanceOf(alice); got.Cmp(big.NewInt(6)) != 0 {
		t.Fatalf("alice balance = %s, want 6", got)
	}
	if got := l.BalanceOf(bob); got.Cmp(big.NewInt(4)) != 0 {
		t.Fatalf("bob balance = %s, want 4", got)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	l := New(newMapState())
	alice, bob := addr(0x01), addr(0x02)
	if err := l.Credit(alice, big.NewInt(3)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	err := l.Transfer(alice, bob, big.NewInt(5))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := l.BalanceOf(alice); got.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("failed transfer mutated balance: %s", got)
	}
}

func TestTransferRejectsNegative(t *testing.T) {
	l := New(newMapState())
	if err := l.Transfer(addr(0x01), addr(0x02), big.NewInt(-1)); err == nil {
		t.Fatal("expected negative amount rejection")
	}
}

func TestTransferZeroIsNoop(t *testing.T) {
	l := New(newMapState())
	if err := l.Transfer(addr(0x01), addr(0x02), big.NewInt(0)); err != nil {
		t.Fatalf("zero transfer should succeed: %v", err)
	}
}

func TestModuleAddressDeterministic(t *testing.T) {
	a := ModuleAddress("escrow/vault")
	b := ModuleAddress("escrow/vault")
	if a != b {
		t.Fatal("module address not deterministic")
	}
	if a == ModuleAddress("registry/deeds") {
		t.Fatal("distinct tags collided")
	}
	if a == ([20]byte{}) {
		t.Fatal("module address is zero")
	}
}
