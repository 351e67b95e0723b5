package escrow

import (
	"errors"
	"fmt"
)

var (
	// ErrNilState is returned when the engine is used before a state
	// backend has been configured.
	ErrNilState = errors.New("escrow engine: state not configured")
	// ErrUnauthorized is returned when the caller lacks the role the
	// operation requires.
	ErrUnauthorized = errors.New("escrow: caller not authorized")
	// ErrAlreadyListed is returned when listing an asset that already has
	// an active record.
	ErrAlreadyListed = errors.New("escrow: asset already has an active listing")
	// ErrNotListed is returned when a mutating call targets an asset
	// without an active record.
	ErrNotListed = errors.New("escrow: no active listing for asset")
	// ErrInvalidTerms is returned when the escrow amount exceeds the
	// purchase price at listing time.
	ErrInvalidTerms = errors.New("escrow: escrow amount exceeds purchase price")
	// ErrInvalidAmount is returned for zero or negative fund movements.
	ErrInvalidAmount = errors.New("escrow: amount must be positive")
	// ErrPreconditionFailed is the target for errors.Is against any
	// finalize gate failure.
	ErrPreconditionFailed = errors.New("escrow: finalize precondition failed")
)

// Gate names the finalize precondition that was not satisfied.
type Gate uint8

const (
	GateInspection Gate = iota + 1
	GateApprovals
	GateFunds
)

func (g Gate) String() string {
	switch g {
	case GateInspection:
		return "inspection"
	case GateApprovals:
		return "approvals"
	case GateFunds:
		return "funds"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(g))
	}
}

// PreconditionError reports which finalize gate failed so callers can
// distinguish an unpassed inspection from missing approvals or short funds.
type PreconditionError struct {
	Gate   Gate
	Detail string
}

func (e *PreconditionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("escrow: finalize precondition failed: %s", e.Gate)
	}
	return fmt.Sprintf("escrow: finalize precondition failed: %s: %s", e.Gate, e.Detail)
}

// Is makes the error match ErrPreconditionFailed under errors.Is.
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPreconditionFailed
}

func preconditionErr(gate Gate, format string, args ...any) error {
	return &PreconditionError{Gate: gate, Detail: fmt.Sprintf(format, args...)}
}
