package registry

import (
	"encoding/hex"
	"strconv"

	"titlevault/core/types"
)

const (
	EventTypeDeedMinted      = "registry.deed.minted"
	EventTypeDeedApproved    = "registry.deed.approved"
	EventTypeDeedTransferred = "registry.deed.transferred"
)

// NewMintedEvent returns the canonical event payload for a freshly minted
// deed.
func NewMintedEvent(d *Deed) *types.Event { return newDeedEvent(EventTypeDeedMinted, d, nil) }

// NewApprovedEvent returns the canonical event payload emitted when an
// operator grant changes.
func NewApprovedEvent(d *Deed) *types.Event { return newDeedEvent(EventTypeDeedApproved, d, nil) }

// NewTransferredEvent returns the canonical event payload for a custody
// transfer, including the previous owner.
func NewTransferredEvent(d *Deed, from [20]byte) *types.Event {
	return newDeedEvent(EventTypeDeedTransferred, d, &from)
}

func newDeedEvent(eventType string, d *Deed, from *[20]byte) *types.Event {
	attrs := make(map[string]string)
	if d == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["assetId"] = strconv.FormatUint(d.ID, 10)
	attrs["owner"] = hex.EncodeToString(d.Owner[:])
	attrs["metaURI"] = d.MetaURI
	if d.Approved != ([20]byte{}) {
		attrs["approved"] = hex.EncodeToString(d.Approved[:])
	}
	if from != nil {
		attrs["from"] = hex.EncodeToString(from[:])
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
