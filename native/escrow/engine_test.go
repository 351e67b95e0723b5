package escrow

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"titlevault/core/events"
)

type mockState struct {
	listings map[uint64]*Listing
	funds    map[uint64]*big.Int
}

func newMockState() *mockState {
	return &mockState{
		listings: make(map[uint64]*Listing),
		funds:    make(map[uint64]*big.Int),
	}
}

func (m *mockState) ListingPut(l *Listing) error {
	sanitized, err := SanitizeListing(l)
	if err != nil {
		return err
	}
	m.listings[sanitized.AssetID] = sanitized
	return nil
}

func (m *mockState) ListingGet(assetID uint64) (*Listing, bool) {
	listing, ok := m.listings[assetID]
	if !ok {
		return nil, false
	}
	return listing.Clone(), true
}

func (m *mockState) EscrowCredit(assetID uint64, amount *big.Int) error {
	held, ok := m.funds[assetID]
	if !ok {
		held = big.NewInt(0)
	}
	m.funds[assetID] = new(big.Int).Add(held, amount)
	return nil
}

func (m *mockState) EscrowDebit(assetID uint64, amount *big.Int) error {
	held, ok := m.funds[assetID]
	if !ok || held.Cmp(amount) < 0 {
		return fmt.Errorf("debit exceeds held funds")
	}
	m.funds[assetID] = new(big.Int).Sub(held, amount)
	return nil
}

func (m *mockState) EscrowBalance(assetID uint64) *big.Int {
	held, ok := m.funds[assetID]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(held)
}

type mockLedger struct {
	balances map[[20]byte]*big.Int
}

func newMockLedger() *mockLedger {
	return &mockLedger{balances: make(map[[20]byte]*big.Int)}
}

func (m *mockLedger) credit(addr [20]byte, amount int64) {
	m.balances[addr] = new(big.Int).Add(m.BalanceOf(addr), big.NewInt(amount))
}

func (m *mockLedger) Transfer(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("bad amount")
	}
	if m.BalanceOf(from).Cmp(amount) < 0 {
		return fmt.Errorf("insufficient balance")
	}
	m.balances[from] = new(big.Int).Sub(m.BalanceOf(from), amount)
	m.balances[to] = new(big.Int).Add(m.BalanceOf(to), amount)
	return nil
}

func (m *mockLedger) BalanceOf(addr [20]byte) *big.Int {
	bal, ok := m.balances[addr]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(bal)
}

type mockRegistry struct {
	addr     [20]byte
	owners   map[uint64][20]byte
	approved map[uint64][20]byte
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{
		addr:     newTestAddress(0xEE),
		owners:   make(map[uint64][20]byte),
		approved: make(map[uint64][20]byte),
	}
}

func (m *mockRegistry) Address() [20]byte { return m.addr }

func (m *mockRegistry) OwnerOf(assetID uint64) ([20]byte, error) {
	owner, ok := m.owners[assetID]
	if !ok {
		return [20]byte{}, fmt.Errorf("unknown asset")
	}
	return owner, nil
}

func (m *mockRegistry) Transfer(caller, from, to [20]byte, assetID uint64) error {
	owner, ok := m.owners[assetID]
	if !ok {
		return fmt.Errorf("unknown asset")
	}
	if owner != from {
		return fmt.Errorf("from is not owner")
	}
	if caller != owner && caller != m.approved[assetID] {
		return fmt.Errorf("caller not authorized")
	}
	m.owners[assetID] = to
	delete(m.approved, assetID)
	return nil
}

type captureEmitter struct {
	emitted []string
}

func (c *captureEmitter) Emit(evt events.Event) {
	c.emitted = append(c.emitted, evt.EventType())
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

type testEnv struct {
	engine    *Engine
	state     *mockState
	ledger    *mockLedger
	registry  *mockRegistry
	emitter   *captureEmitter
	seller    [20]byte
	buyer     [20]byte
	inspector [20]byte
	lender    [20]byte
}

const assetID uint64 = 1

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		state:     newMockState(),
		ledger:    newMockLedger(),
		registry:  newMockRegistry(),
		emitter:   &captureEmitter{},
		seller:    newTestAddress(0x01),
		buyer:     newTestAddress(0x02),
		inspector: newTestAddress(0x03),
		lender:    newTestAddress(0x04),
	}
	env.engine = NewEngine(env.registry, env.ledger, env.seller, env.inspector, env.lender)
	env.engine.SetState(env.state)
	env.engine.SetEmitter(env.emitter)
	env.engine.SetNowFunc(func() int64 { return 1700000000 })

	// Deed 1 belongs to the seller, with transfer rights delegated to the
	// engine's vault, matching the listing preconditions.
	env.registry.owners[assetID] = env.seller
	env.registry.approved[assetID] = env.engine.VaultAddress()
	env.ledger.credit(env.buyer, 100)
	env.ledger.credit(env.lender, 100)
	return env
}

func (env *testEnv) list(t *testing.T) {
	t.Helper()
	if err := env.engine.List(assetID, env.seller, env.buyer, big.NewInt(10), big.NewInt(5)); err != nil {
		t.Fatalf("list: %v", err)
	}
}

func (env *testEnv) fullyApprove(t *testing.T) {
	t.Helper()
	for _, party := range [][20]byte{env.buyer, env.seller, env.lender} {
		if err := env.engine.ApproveSale(assetID, party); err != nil {
			t.Fatalf("approve by %x: %v", party, err)
		}
	}
}

func TestListUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	err := env.engine.List(assetID, env.buyer, env.buyer, big.NewInt(10), big.NewInt(5))
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if env.engine.IsListed(assetID) {
		t.Fatal("rejected listing created a record")
	}
	owner, err := env.registry.OwnerOf(assetID)
	if err != nil || owner != env.seller {
		t.Fatalf("owner changed on rejected listing: %x (%v)", owner, err)
	}
}

func TestListInvalidTerms(t *testing.T) {
	env := newTestEnv(t)
	err := env.engine.List(assetID, env.seller, env.buyer, big.NewInt(10), big.NewInt(11))
	if !errors.Is(err, ErrInvalidTerms) {
		t.Fatalf("expected ErrInvalidTerms, got %v", err)
	}
	if env.engine.IsListed(assetID) {
		t.Fatal("rejected listing created a record")
	}
}

func TestListTakesCustody(t *testing.T) {
	env := newTestEnv(t)
	env.list(t)

	owner, err := env.registry.OwnerOf(assetID)
	if err != nil {
		t.Fatalf("ownerOf: %v", err)
	}
	if owner != env.engine.VaultAddress() {
		t.Fatalf("owner = %x, want engine vault", owner)
	}
	if !env.engine.IsListed(assetID) {
		t.Fatal("isListed = false after listing")
	}
	if env.engine.Buyer(assetID) != env.buyer {
		t.Fatal("buyer query mismatch")
	}
	if env.engine.PurchasePrice(assetID).Cmp(big.NewInt(10)) != 0 {
		t.Fatal("purchase price query mismatch")
	}
	if env.engine.EscrowAmount(assetID).Cmp(big.NewInt(5)) != 0 {
		t.Fatal("escrow amount query mismatch")
	}
}

func TestListAtomicOnRegistryFailure(t *testing.T) {
	env := newTestEnv(t)
	// Without the operator grant the custody transfer must fail and leave
	// no record behind.
	delete(env.registry.approved, assetID)
	err := env.engine.List(assetID, env.seller, env.buyer, big.NewInt(10), big.NewInt(5))
	if err == nil {
		t.Fatal("expected custody transfer failure")
	}
	if _, ok := env.engine.GetListing(assetID); ok {
		t.Fatal("partial record created after registry failure")
	}
}

func TestListRejectsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.list(t)
	err := env.engine.List(assetID, env.seller, env.buyer, big.NewInt(10), big.NewInt(5))
	if !errors.Is(err, ErrAlreadyListed) {
		t.Fatalf("expected ErrAlreadyListed, got %v", err)
	}
}

func TestDepositAccumulates(t *testing.T) {
	env := newTestEnv(t)
	env.list(t)

	if err := env.engine.DepositEarnest(assetID, env.buyer, big.NewInt(5)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := env.engine.Balance(); got.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("balance = %s, want 5", got)
	}
	if err := env.engine.DepositEarnest(assetID, env.buyer, big.NewInt(3)); err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	if got := env.engine.Balance(); got.Cmp(big.NewInt(8)) != 0 {
		t.Fatalf("balance = %s, want 8", got)
	}
	if got := env.engine.ListingBalance(assetID); got.Cmp(big.NewInt(8)) != 0 {
		t.Fatalf("listing balance = %s, want 8", got)
	}
}

func TestDepositRestrictedToBuyer(t *testing.T) {
	env := newTestEnv(t)
	env.list(t)

	err := env.engine.DepositEarnest(assetID, env.lender, big.NewInt(5))
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if env.engine.Balance().Sign() != 0 {
		t.Fatal("rejected deposit moved funds")
	}
}

func TestDepositRequiresActiveListing(t *testing.T) {
	env := newTestEnv(t)
	err := env.engine.DepositEarnest(assetID, env.buyer, big.NewInt(5))
	if !errors.Is(err, ErrNotListed) {
		t.Fatalf("expected ErrNotListed, got %v", err)
	}
}

func TestDepositRejectsNonPositiveAmount(t *testing.T) {
	env := newTestEnv(t)
	env.list(t)
	if err := env.engine.DepositEarnest(assetID, env.buyer, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestDepositFailsWhenBuyerShort(t *testing.T) {
	env := newTestEnv(t)
	env.list(t)
	err := env.engine.DepositEarnest(assetID, env.buyer, big.NewInt(1000))
	if err == nil {
		t.Fatal("expected ledger rejection")
	}
	if env.engine.ListingBalance(assetID).Sign() != 0 {
		t.Fatal("failed deposit credited the listing")
	}
}

func TestInspectionRestrictedToInspector(t *testing.T) {
	env := newTestEnv(t)
	env.list(t)
	err := env.engine.UpdateInspectionStatus(assetID, env.seller, true)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestInspectionLatestVerdictWins(t *testing.T) {
	env := newTestEnv(t)
	env.list(t)

	if err := env.engine.UpdateInspectionStatus(assetID, env.inspector, true); err != nil {
		t.Fatalf("inspection pass: %v", err)
	}
	if !env.engine.InspectionPassed(assetID) {
		t.Fatal("inspectionPassed = false after pass")
	}
	if err := env.engine.UpdateInspectionStatus(assetID, env.inspector, false); err != nil {
		t.Fatalf("inspection correction: %v", err)
	}
	if env.engine.InspectionPassed(assetID) {
		t.Fatal("inspectionPassed = true after corrective fail")
	}
}

func TestApprovalIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.list(t)

	if err := env.engine.ApproveSale(assetID, env.lender); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := env.engine.ApproveSale(assetID, env.lender); err != nil {
		t.Fatalf("repeat approve: %v", err)
	}
	if !env.engine.Approval(assetID, env.lender) {
		t.Fatal("approval not recorded")
	}
	listing, _ := env.engine.GetListing(assetID)
	if len(listing.Approvals) != 1 {
		t.Fatalf("approvals = %d entries, want 1", len(listing.Approvals))
	}
}

func TestApprovalRestrictedToStakeholders(t *testing.T) {
	env := newTestEnv(t)
	env.list(t)
	stranger := newTestAddress(0x99)
	if err := env.engine.ApproveSale(assetID, stranger); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if env.engine.Approval(assetID, stranger) {
		t.Fatal("stranger approval recorded")
	}
}

func TestFinalizeRequiresAllGates(t *testing.T) {
	setup := func(t *testing.T) *testEnv {
		env := newTestEnv(t)
		env.list(t)
		if err := env.engine.DepositEarnest(assetID, env.buyer, big.NewInt(5)); err != nil {
			t.Fatalf("deposit: %v", err)
		}
		return env
	}
	assertGate := func(t *testing.T, err error, gate Gate) {
		t.Helper()
		if !errors.Is(err, ErrPreconditionFailed) {
			t.Fatalf("expected precondition failure, got %v", err)
		}
		var pre *PreconditionError
		if !errors.As(err, &pre) {
			t.Fatalf("expected PreconditionError, got %T", err)
		}
		if pre.Gate != gate {
			t.Fatalf("gate = %s, want %s", pre.Gate, gate)
		}
	}

	t.Run("inspection unmet", func(t *testing.T) {
		env := setup(t)
		env.fullyApprove(t)
		if err := env.engine.Contribute(assetID, env.lender, big.NewInt(5)); err != nil {
			t.Fatalf("contribute: %v", err)
		}
		assertGate(t, env.engine.FinalizeSale(assetID, env.seller), GateInspection)
	})
	t.Run("approval missing", func(t *testing.T) {
		env := setup(t)
		if err := env.engine.UpdateInspectionStatus(assetID, env.inspector, true); err != nil {
			t.Fatalf("inspection: %v", err)
		}
		if err := env.engine.ApproveSale(assetID, env.buyer); err != nil {
			t.Fatalf("approve: %v", err)
		}
		if err := env.engine.ApproveSale(assetID, env.seller); err != nil {
			t.Fatalf("approve: %v", err)
		}
		if err := env.engine.Contribute(assetID, env.lender, big.NewInt(5)); err != nil {
			t.Fatalf("contribute: %v", err)
		}
		assertGate(t, env.engine.FinalizeSale(assetID, env.seller), GateApprovals)
	})
	t.Run("funds short", func(t *testing.T) {
		env := setup(t)
		if err := env.engine.UpdateInspectionStatus(assetID, env.inspector, true); err != nil {
			t.Fatalf("inspection: %v", err)
		}
		env.fullyApprove(t)
		assertGate(t, env.engine.FinalizeSale(assetID, env.seller), GateFunds)
	})
	t.Run("failure leaves state unchanged", func(t *testing.T) {
		env := setup(t)
		env.fullyApprove(t)
		_ = env.engine.FinalizeSale(assetID, env.seller)
		if env.engine.Balance().Cmp(big.NewInt(5)) != 0 {
			t.Fatal("failed finalize moved funds")
		}
		owner, _ := env.registry.OwnerOf(assetID)
		if owner != env.engine.VaultAddress() {
			t.Fatal("failed finalize moved the deed")
		}
		if !env.engine.IsListed(assetID) {
			t.Fatal("failed finalize closed the record")
		}
	})
}

func TestFinalizeRestrictedToSeller(t *testing.T) {
	env := newTestEnv(t)
	env.list(t)
	if err := env.engine.FinalizeSale(assetID, env.buyer); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestFinalizeHappyPath(t *testing.T) {
	env := newTestEnv(t)
	env.list(t)

	if err := env.engine.DepositEarnest(assetID, env.buyer, big.NewInt(5)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := env.engine.UpdateInspectionStatus(assetID, env.inspector, true); err != nil {
		t.Fatalf("inspection: %v", err)
	}
	env.fullyApprove(t)
	if err := env.engine.Contribute(assetID, env.lender, big.NewInt(5)); err != nil {
		t.Fatalf("lender contribution: %v", err)
	}
	if err := env.engine.FinalizeSale(assetID, env.seller); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	owner, err := env.registry.OwnerOf(assetID)
	if err != nil {
		t.Fatalf("ownerOf: %v", err)
	}
	if owner != env.buyer {
		t.Fatalf("owner = %x, want buyer", owner)
	}
	if env.engine.Balance().Sign() != 0 {
		t.Fatalf("balance = %s, want 0", env.engine.Balance())
	}
	if got := env.ledger.BalanceOf(env.seller); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("seller received %s, want 10", got)
	}
	if env.engine.IsListed(assetID) {
		t.Fatal("finalized listing still active")
	}
	listing, _ := env.engine.GetListing(assetID)
	if listing.Status != StatusFinalized {
		t.Fatalf("status = %s, want finalized", listing.Status)
	}
}

func TestFinalizeRefundsSurplusToBuyer(t *testing.T) {
	env := newTestEnv(t)
	env.list(t)

	if err := env.engine.DepositEarnest(assetID, env.buyer, big.NewInt(7)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := env.engine.Contribute(assetID, env.lender, big.NewInt(5)); err != nil {
		t.Fatalf("contribute: %v", err)
	}
	if err := env.engine.UpdateInspectionStatus(assetID, env.inspector, true); err != nil {
		t.Fatalf("inspection: %v", err)
	}
	env.fullyApprove(t)
	if err := env.engine.FinalizeSale(assetID, env.seller); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	// 12 held, 10 to the seller, 2 back to the buyer.
	if got := env.ledger.BalanceOf(env.seller); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("seller received %s, want 10", got)
	}
	if got := env.ledger.BalanceOf(env.buyer); got.Cmp(big.NewInt(95)) != 0 {
		t.Fatalf("buyer balance = %s, want 95", got)
	}
	if env.engine.Balance().Sign() != 0 {
		t.Fatal("vault not drained")
	}
}

func TestCancelRefundsBuyerOnFailedInspection(t *testing.T) {
	env := newTestEnv(t)
	env.list(t)

	if err := env.engine.DepositEarnest(assetID, env.buyer, big.NewInt(5)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := env.engine.UpdateInspectionStatus(assetID, env.inspector, false); err != nil {
		t.Fatalf("inspection: %v", err)
	}
	if err := env.engine.CancelSale(assetID, env.buyer); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if env.engine.Balance().Sign() != 0 {
		t.Fatalf("balance = %s, want 0", env.engine.Balance())
	}
	if got := env.ledger.BalanceOf(env.buyer); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("buyer refunded to %s, want 100", got)
	}
	if got := env.ledger.BalanceOf(env.seller); got.Sign() != 0 {
		t.Fatalf("seller received %s on refund cancel", got)
	}
	owner, _ := env.registry.OwnerOf(assetID)
	if owner != env.seller {
		t.Fatalf("deed owner = %x, want seller", owner)
	}
}

func TestCancelForfeitsEarnestAfterCleanInspection(t *testing.T) {
	env := newTestEnv(t)
	env.list(t)

	if err := env.engine.DepositEarnest(assetID, env.buyer, big.NewInt(5)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := env.engine.UpdateInspectionStatus(assetID, env.inspector, true); err != nil {
		t.Fatalf("inspection: %v", err)
	}
	if err := env.engine.CancelSale(assetID, env.buyer); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if got := env.ledger.BalanceOf(env.seller); got.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("seller received %s, want forfeited 5", got)
	}
	if got := env.ledger.BalanceOf(env.buyer); got.Cmp(big.NewInt(95)) != 0 {
		t.Fatalf("buyer balance = %s, want 95", got)
	}
	// The closed record retains the verdict it settled under.
	if !env.engine.InspectionPassed(assetID) {
		t.Fatal("closed record lost its inspection verdict")
	}
}

func TestCancelRestrictedToBuyerOrSeller(t *testing.T) {
	env := newTestEnv(t)
	env.list(t)
	if err := env.engine.CancelSale(assetID, env.lender); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("lender cancel: expected ErrUnauthorized, got %v", err)
	}
	if err := env.engine.CancelSale(assetID, newTestAddress(0x99)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("stranger cancel: expected ErrUnauthorized, got %v", err)
	}
}

func TestNoDoubleTerminalTransition(t *testing.T) {
	env := newTestEnv(t)
	env.list(t)

	if err := env.engine.DepositEarnest(assetID, env.buyer, big.NewInt(5)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := env.engine.UpdateInspectionStatus(assetID, env.inspector, true); err != nil {
		t.Fatalf("inspection: %v", err)
	}
	env.fullyApprove(t)
	if err := env.engine.Contribute(assetID, env.lender, big.NewInt(5)); err != nil {
		t.Fatalf("contribute: %v", err)
	}
	if err := env.engine.FinalizeSale(assetID, env.seller); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if err := env.engine.FinalizeSale(assetID, env.seller); !errors.Is(err, ErrNotListed) {
		t.Fatalf("double finalize: expected ErrNotListed, got %v", err)
	}
	if err := env.engine.CancelSale(assetID, env.seller); !errors.Is(err, ErrNotListed) {
		t.Fatalf("cancel after finalize: expected ErrNotListed, got %v", err)
	}
}

func TestRelistAfterCancel(t *testing.T) {
	env := newTestEnv(t)
	env.list(t)
	if err := env.engine.CancelSale(assetID, env.seller); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	// The deed is back with the seller; a fresh operator grant allows a
	// second listing under the same asset id.
	env.registry.approved[assetID] = env.engine.VaultAddress()
	if err := env.engine.List(assetID, env.seller, env.buyer, big.NewInt(20), big.NewInt(4)); err != nil {
		t.Fatalf("relist: %v", err)
	}
	if !env.engine.IsListed(assetID) {
		t.Fatal("relisted asset not active")
	}
	if env.engine.PurchasePrice(assetID).Cmp(big.NewInt(20)) != 0 {
		t.Fatal("relisting kept stale terms")
	}
	if len(env.state.listings[assetID].Approvals) != 0 {
		t.Fatal("relisting kept stale approvals")
	}
}

func TestEventSequence(t *testing.T) {
	env := newTestEnv(t)
	env.list(t)
	if err := env.engine.DepositEarnest(assetID, env.buyer, big.NewInt(5)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := env.engine.UpdateInspectionStatus(assetID, env.inspector, true); err != nil {
		t.Fatalf("inspection: %v", err)
	}
	if err := env.engine.ApproveSale(assetID, env.buyer); err != nil {
		t.Fatalf("approve: %v", err)
	}
	// Idempotent approval repeat emits nothing.
	if err := env.engine.ApproveSale(assetID, env.buyer); err != nil {
		t.Fatalf("repeat approve: %v", err)
	}

	want := []string{
		EventTypeListingCreated,
		EventTypeListingDeposited,
		EventTypeListingInspection,
		EventTypeListingApproved,
	}
	if len(env.emitter.emitted) != len(want) {
		t.Fatalf("emitted %v, want %v", env.emitter.emitted, want)
	}
	for i, evt := range want {
		if env.emitter.emitted[i] != evt {
			t.Fatalf("event[%d] = %s, want %s", i, env.emitter.emitted[i], evt)
		}
	}
}
