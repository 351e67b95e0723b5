package escrow

import (
	"fmt"
	"math/big"
)

// ListingStatus enumerates the lifecycle states of a listing. Terminal
// statuses make "finalized but still listed" unrepresentable.
type ListingStatus uint8

const (
	// StatusListed is the initial state after a successful listing. The
	// inspection verdict is unset or currently failed.
	StatusListed ListingStatus = iota + 1
	// StatusInspected means the latest inspection verdict is a pass. A
	// corrective re-inspection moves the listing back to StatusListed.
	StatusInspected
	// StatusFinalized is the terminal success state: funds settled to the
	// seller, deed transferred to the buyer.
	StatusFinalized
	// StatusCancelled is the terminal abort state: funds settled according
	// to the inspection verdict, deed returned to the seller.
	StatusCancelled
)

// Valid reports whether the status value is within the supported range.
func (s ListingStatus) Valid() bool {
	switch s {
	case StatusListed, StatusInspected, StatusFinalized, StatusCancelled:
		return true
	default:
		return false
	}
}

// Open reports whether the listing is still active, i.e. mutating calls are
// permitted on it.
func (s ListingStatus) Open() bool {
	return s == StatusListed || s == StatusInspected
}

func (s ListingStatus) String() string {
	switch s {
	case StatusListed:
		return "listed"
	case StatusInspected:
		return "inspected"
	case StatusFinalized:
		return "finalized"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Listing captures the terms and runtime state of a single asset escrow.
type Listing struct {
	AssetID       uint64
	Buyer         [20]byte
	PurchasePrice *big.Int
	EscrowAmount  *big.Int
	Status        ListingStatus
	Approvals     map[[20]byte]bool
	// ForfeitedEarnest records, for cancelled listings, that the held funds
	// went to the seller because the buyer walked away after a clean
	// inspection.
	ForfeitedEarnest bool
	CreatedAt        int64
	ClosedAt         int64
}

// Clone returns a deep copy of the listing so callers can safely mutate the
// copy without affecting the stored instance.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.PurchasePrice != nil {
		clone.PurchasePrice = new(big.Int).Set(l.PurchasePrice)
	} else {
		clone.PurchasePrice = big.NewInt(0)
	}
	if l.EscrowAmount != nil {
		clone.EscrowAmount = new(big.Int).Set(l.EscrowAmount)
	} else {
		clone.EscrowAmount = big.NewInt(0)
	}
	clone.Approvals = make(map[[20]byte]bool, len(l.Approvals))
	for party, ok := range l.Approvals {
		if ok {
			clone.Approvals[party] = true
		}
	}
	return &clone
}

// InspectionPassed reports whether the latest inspection verdict is a pass.
// Closed listings report the verdict they settled under: a finalized sale
// required a pass, and a cancellation forfeited the earnest money only when
// the inspection had passed.
func (l *Listing) InspectionPassed() bool {
	if l == nil {
		return false
	}
	switch l.Status {
	case StatusInspected, StatusFinalized:
		return true
	case StatusCancelled:
		return l.ForfeitedEarnest
	default:
		return false
	}
}

// SanitizeListing validates and normalises the supplied listing, returning a
// cloned instance with non-nil amounts and approvals. The original value is
// not mutated.
func SanitizeListing(l *Listing) (*Listing, error) {
	if l == nil {
		return nil, fmt.Errorf("escrow: nil listing")
	}
	clone := l.Clone()
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("escrow: invalid listing status: %d", clone.Status)
	}
	if clone.PurchasePrice.Sign() < 0 {
		return nil, fmt.Errorf("escrow: purchase price must be non-negative")
	}
	if clone.EscrowAmount.Sign() < 0 {
		return nil, fmt.Errorf("escrow: escrow amount must be non-negative")
	}
	if clone.EscrowAmount.Cmp(clone.PurchasePrice) > 0 {
		return nil, fmt.Errorf("escrow: escrow amount exceeds purchase price")
	}
	return clone, nil
}
