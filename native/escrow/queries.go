package escrow

import "math/big"

// Query accessors. Scalar getters mirror the mutator surface: they report
// zero values for assets that were never listed, so callers that need to
// distinguish absence should use GetListing.

// RegistryAddress reports the deed registry the engine is bound to.
func (e *Engine) RegistryAddress() [20]byte {
	if e == nil || e.registry == nil {
		return [20]byte{}
	}
	return e.registry.Address()
}

// VaultAddress reports the engine's custodial identity. Listed deeds are
// owned by this address for the lifetime of the listing.
func (e *Engine) VaultAddress() [20]byte { return e.vault }

// Seller reports the fixed seller identity.
func (e *Engine) Seller() [20]byte { return e.seller }

// Inspector reports the fixed inspector identity.
func (e *Engine) Inspector() [20]byte { return e.inspector }

// Lender reports the fixed lender identity.
func (e *Engine) Lender() [20]byte { return e.lender }

// GetListing returns a snapshot of the record for an asset, closed records
// included.
func (e *Engine) GetListing(assetID uint64) (*Listing, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	listing, ok := e.state.ListingGet(assetID)
	if !ok {
		return nil, false
	}
	return listing.Clone(), true
}

// Buyer reports the party authorized to deposit and to receive the deed at
// finalize.
func (e *Engine) Buyer(assetID uint64) [20]byte {
	listing, ok := e.GetListing(assetID)
	if !ok {
		return [20]byte{}
	}
	return listing.Buyer
}

// PurchasePrice reports the total consideration owed to the seller.
func (e *Engine) PurchasePrice(assetID uint64) *big.Int {
	listing, ok := e.GetListing(assetID)
	if !ok {
		return big.NewInt(0)
	}
	return listing.PurchasePrice
}

// EscrowAmount reports the agreed earnest deposit.
func (e *Engine) EscrowAmount(assetID uint64) *big.Int {
	listing, ok := e.GetListing(assetID)
	if !ok {
		return big.NewInt(0)
	}
	return listing.EscrowAmount
}

// IsListed reports whether the asset has an active listing.
func (e *Engine) IsListed(assetID uint64) bool {
	listing, ok := e.GetListing(assetID)
	return ok && listing.Status.Open()
}

// InspectionPassed reports the latest inspection verdict for the asset.
func (e *Engine) InspectionPassed(assetID uint64) bool {
	listing, ok := e.GetListing(assetID)
	return ok && listing.InspectionPassed()
}

// Approval reports whether the given party has recorded approval.
func (e *Engine) Approval(assetID uint64, party [20]byte) bool {
	listing, ok := e.GetListing(assetID)
	return ok && listing.Approvals[party]
}

// Balance reports the aggregate funds currently in the engine's custody
// across all open listings.
func (e *Engine) Balance() *big.Int {
	if e == nil || e.funds == nil {
		return big.NewInt(0)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.funds.BalanceOf(e.vault)
}

// ListingBalance reports the funds held for a single listing. The per-asset
// ledger keeps concurrent escrows segregated even though Balance exposes
// the pooled total.
func (e *Engine) ListingBalance(assetID uint64) *big.Int {
	if e == nil || e.state == nil {
		return big.NewInt(0)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.EscrowBalance(assetID)
}
