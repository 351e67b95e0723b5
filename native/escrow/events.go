package escrow

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"titlevault/core/types"
)

const (
	EventTypeListingCreated     = "escrow.listing.created"
	EventTypeListingDeposited   = "escrow.listing.deposited"
	EventTypeListingContributed = "escrow.listing.contributed"
	EventTypeListingInspection  = "escrow.listing.inspection"
	EventTypeListingApproved    = "escrow.listing.approved"
	EventTypeListingFinalized   = "escrow.listing.finalized"
	EventTypeListingCancelled   = "escrow.listing.cancelled"
)

// NewCreatedEvent returns the canonical event payload for a new listing.
func NewCreatedEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypeListingCreated, l, nil)
}

// NewDepositedEvent returns the event payload emitted when the buyer places
// earnest funds into custody.
func NewDepositedEvent(l *Listing, amount *big.Int) *types.Event {
	evt := newListingEvent(EventTypeListingDeposited, l, nil)
	if amount != nil {
		evt.Attributes["amount"] = amount.String()
	}
	return evt
}

// NewContributedEvent returns the event payload emitted when any party tops
// up the listing's custodial balance.
func NewContributedEvent(l *Listing, from [20]byte, amount *big.Int) *types.Event {
	evt := newListingEvent(EventTypeListingContributed, l, nil)
	evt.Attributes["from"] = hex.EncodeToString(from[:])
	if amount != nil {
		evt.Attributes["amount"] = amount.String()
	}
	return evt
}

// NewInspectionEvent returns the event payload emitted when the inspector
// records a verdict.
func NewInspectionEvent(l *Listing, passed bool) *types.Event {
	evt := newListingEvent(EventTypeListingInspection, l, nil)
	evt.Attributes["passed"] = strconv.FormatBool(passed)
	return evt
}

// NewApprovedEvent returns the event payload emitted when a stakeholder
// records approval.
func NewApprovedEvent(l *Listing, party [20]byte) *types.Event {
	evt := newListingEvent(EventTypeListingApproved, l, nil)
	evt.Attributes["party"] = hex.EncodeToString(party[:])
	return evt
}

// NewFinalizedEvent returns the event payload for the terminal success
// transition.
func NewFinalizedEvent(l *Listing, paid, surplus *big.Int) *types.Event {
	evt := newListingEvent(EventTypeListingFinalized, l, nil)
	if paid != nil {
		evt.Attributes["paid"] = paid.String()
	}
	if surplus != nil && surplus.Sign() > 0 {
		evt.Attributes["surplus"] = surplus.String()
	}
	return evt
}

// NewCancelledEvent returns the event payload for the terminal abort
// transition, naming the party the held funds were settled to.
func NewCancelledEvent(l *Listing, recipient [20]byte, refunded *big.Int) *types.Event {
	evt := newListingEvent(EventTypeListingCancelled, l, &recipient)
	if refunded != nil {
		evt.Attributes["refunded"] = refunded.String()
	}
	return evt
}

func newListingEvent(eventType string, l *Listing, recipient *[20]byte) *types.Event {
	attrs := make(map[string]string)
	if l == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["assetId"] = strconv.FormatUint(l.AssetID, 10)
	attrs["buyer"] = hex.EncodeToString(l.Buyer[:])
	if l.PurchasePrice != nil {
		attrs["purchasePrice"] = l.PurchasePrice.String()
	}
	if l.EscrowAmount != nil {
		attrs["escrowAmount"] = l.EscrowAmount.String()
	}
	attrs["status"] = l.Status.String()
	if recipient != nil {
		attrs["recipient"] = hex.EncodeToString(recipient[:])
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
