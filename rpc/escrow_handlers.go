package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"

	"titlevault/crypto"
	"titlevault/native/escrow"
)

type listParams struct {
	AssetID       uint64 `json:"assetId"`
	Caller        string `json:"caller"`
	Buyer         string `json:"buyer"`
	PurchasePrice string `json:"purchasePrice"`
	EscrowAmount  string `json:"escrowAmount"`
}

type fundParams struct {
	AssetID uint64 `json:"assetId"`
	From    string `json:"from"`
	Amount  string `json:"amount"`
}

type inspectionParams struct {
	AssetID uint64 `json:"assetId"`
	Caller  string `json:"caller"`
	Passed  bool   `json:"passed"`
}

type actorParams struct {
	AssetID uint64 `json:"assetId"`
	Caller  string `json:"caller"`
}

type assetParams struct {
	AssetID uint64 `json:"assetId"`
}

type approvalParams struct {
	AssetID uint64 `json:"assetId"`
	Party   string `json:"party"`
}

type listingJSON struct {
	AssetID          uint64   `json:"assetId"`
	Buyer            string   `json:"buyer"`
	PurchasePrice    string   `json:"purchasePrice"`
	EscrowAmount     string   `json:"escrowAmount"`
	Status           string   `json:"status"`
	IsListed         bool     `json:"isListed"`
	InspectionPassed bool     `json:"inspectionPassed"`
	Approvals        []string `json:"approvals,omitempty"`
	HeldBalance      string   `json:"heldBalance"`
	CreatedAt        int64    `json:"createdAt"`
	ClosedAt         int64    `json:"closedAt,omitempty"`
}

type rolesJSON struct {
	Registry  string `json:"registry"`
	Vault     string `json:"vault"`
	Seller    string `json:"seller"`
	Inspector string `json:"inspector"`
	Lender    string `json:"lender"`
}

func (s *Server) registerHandlers() {
	s.handlers = map[string]handlerEntry{
		"escrow_list":             {fn: s.handleList, mutating: true},
		"escrow_depositEarnest":   {fn: s.handleDepositEarnest, mutating: true},
		"escrow_contribute":       {fn: s.handleContribute, mutating: true},
		"escrow_updateInspection": {fn: s.handleUpdateInspection, mutating: true},
		"escrow_approveSale":      {fn: s.handleApproveSale, mutating: true},
		"escrow_finalizeSale":     {fn: s.handleFinalizeSale, mutating: true},
		"escrow_cancelSale":       {fn: s.handleCancelSale, mutating: true},

		"escrow_getListing":     {fn: s.handleGetListing},
		"escrow_balance":        {fn: s.handleBalance},
		"escrow_listingBalance": {fn: s.handleListingBalance},
		"escrow_approval":       {fn: s.handleApproval},
		"escrow_roles":          {fn: s.handleRoles},

		"registry_mint":    {fn: s.handleRegistryMint, mutating: true},
		"registry_approve": {fn: s.handleRegistryApprove, mutating: true},
		"registry_ownerOf": {fn: s.handleRegistryOwnerOf},
		"registry_metaURI": {fn: s.handleRegistryMetaURI},

		"ledger_credit":    {fn: s.handleLedgerCredit, mutating: true},
		"ledger_balanceOf": {fn: s.handleLedgerBalanceOf},
	}
}

func decodeParams(params []json.RawMessage, out any) *RPCError {
	if len(params) != 1 {
		return rpcErr(codeInvalidParams, "invalid_params", "exactly one parameter object expected")
	}
	if err := json.Unmarshal(params[0], out); err != nil {
		return rpcErr(codeInvalidParams, "invalid_params", err.Error())
	}
	return nil
}

func parseBech32Address(encoded string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(encoded)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Bytes(), nil
}

func parsePositiveBigInt(encoded string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(encoded, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", encoded)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}

func encodeAddress(raw [20]byte) string {
	return crypto.NewAddress(raw).String()
}

func (s *Server) handleList(params []json.RawMessage) (any, *RPCError) {
	var p listParams
	if rpcError := decodeParams(params, &p); rpcError != nil {
		return nil, rpcError
	}
	caller, err := parseBech32Address(p.Caller)
	if err != nil {
		return nil, rpcErr(codeInvalidParams, "invalid_params", err.Error())
	}
	buyer, err := parseBech32Address(p.Buyer)
	if err != nil {
		return nil, rpcErr(codeInvalidParams, "invalid_params", err.Error())
	}
	price, err := parsePositiveBigInt(p.PurchasePrice)
	if err != nil {
		return nil, rpcErr(codeInvalidParams, "invalid_params", err.Error())
	}
	earnest, ok := new(big.Int).SetString(p.EscrowAmount, 10)
	if !ok || earnest.Sign() < 0 {
		return nil, rpcErr(codeInvalidParams, "invalid_params", "invalid escrow amount")
	}
	if err := s.engine.List(p.AssetID, caller, buyer, price, earnest); err != nil {
		return nil, engineErr(err)
	}
	return map[string]bool{"listed": true}, nil
}

func (s *Server) fundHandler(params []json.RawMessage, apply func(uint64, [20]byte, *big.Int) error) (any, *RPCError) {
	var p fundParams
	if rpcError := decodeParams(params, &p); rpcError != nil {
		return nil, rpcError
	}
	from, err := parseBech32Address(p.From)
	if err != nil {
		return nil, rpcErr(codeInvalidParams, "invalid_params", err.Error())
	}
	amount, err := parsePositiveBigInt(p.Amount)
	if err != nil {
		return nil, rpcErr(codeInvalidParams, "invalid_params", err.Error())
	}
	if err := apply(p.AssetID, from, amount); err != nil {
		return nil, engineErr(err)
	}
	return map[string]string{"balance": s.engine.ListingBalance(p.AssetID).String()}, nil
}

func (s *Server) handleDepositEarnest(params []json.RawMessage) (any, *RPCError) {
	return s.fundHandler(params, s.engine.DepositEarnest)
}

func (s *Server) handleContribute(params []json.RawMessage) (any, *RPCError) {
	return s.fundHandler(params, s.engine.Contribute)
}

func (s *Server) handleUpdateInspection(params []json.RawMessage) (any, *RPCError) {
	var p inspectionParams
	if rpcError := decodeParams(params, &p); rpcError != nil {
		return nil, rpcError
	}
	caller, err := parseBech32Address(p.Caller)
	if err != nil {
		return nil, rpcErr(codeInvalidParams, "invalid_params", err.Error())
	}
	if err := s.engine.UpdateInspectionStatus(p.AssetID, caller, p.Passed); err != nil {
		return nil, engineErr(err)
	}
	return map[string]bool{"inspectionPassed": p.Passed}, nil
}

func (s *Server) actorHandler(params []json.RawMessage, apply func(uint64, [20]byte) error) (any, *RPCError) {
	var p actorParams
	if rpcError := decodeParams(params, &p); rpcError != nil {
		return nil, rpcError
	}
	caller, err := parseBech32Address(p.Caller)
	if err != nil {
		return nil, rpcErr(codeInvalidParams, "invalid_params", err.Error())
	}
	if err := apply(p.AssetID, caller); err != nil {
		return nil, engineErr(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) handleApproveSale(params []json.RawMessage) (any, *RPCError) {
	return s.actorHandler(params, s.engine.ApproveSale)
}

func (s *Server) handleFinalizeSale(params []json.RawMessage) (any, *RPCError) {
	return s.actorHandler(params, s.engine.FinalizeSale)
}

func (s *Server) handleCancelSale(params []json.RawMessage) (any, *RPCError) {
	return s.actorHandler(params, s.engine.CancelSale)
}

func (s *Server) handleGetListing(params []json.RawMessage) (any, *RPCError) {
	var p assetParams
	if rpcError := decodeParams(params, &p); rpcError != nil {
		return nil, rpcError
	}
	listing, ok := s.engine.GetListing(p.AssetID)
	if !ok {
		return nil, rpcErr(codeEscrowNotFound, "not_found", escrow.ErrNotListed.Error())
	}
	result := listingJSON{
		AssetID:          listing.AssetID,
		Buyer:            encodeAddress(listing.Buyer),
		PurchasePrice:    listing.PurchasePrice.String(),
		EscrowAmount:     listing.EscrowAmount.String(),
		Status:           listing.Status.String(),
		IsListed:         listing.Status.Open(),
		InspectionPassed: listing.InspectionPassed(),
		HeldBalance:      s.engine.ListingBalance(p.AssetID).String(),
		CreatedAt:        listing.CreatedAt,
		ClosedAt:         listing.ClosedAt,
	}
	for party := range listing.Approvals {
		result.Approvals = append(result.Approvals, encodeAddress(party))
	}
	return result, nil
}

func (s *Server) handleBalance(params []json.RawMessage) (any, *RPCError) {
	return map[string]string{"balance": s.engine.Balance().String()}, nil
}

func (s *Server) handleListingBalance(params []json.RawMessage) (any, *RPCError) {
	var p assetParams
	if rpcError := decodeParams(params, &p); rpcError != nil {
		return nil, rpcError
	}
	return map[string]string{"balance": s.engine.ListingBalance(p.AssetID).String()}, nil
}

func (s *Server) handleApproval(params []json.RawMessage) (any, *RPCError) {
	var p approvalParams
	if rpcError := decodeParams(params, &p); rpcError != nil {
		return nil, rpcError
	}
	party, err := parseBech32Address(p.Party)
	if err != nil {
		return nil, rpcErr(codeInvalidParams, "invalid_params", err.Error())
	}
	return map[string]bool{"approved": s.engine.Approval(p.AssetID, party)}, nil
}

func (s *Server) handleRoles(params []json.RawMessage) (any, *RPCError) {
	return rolesJSON{
		Registry:  encodeAddress(s.engine.RegistryAddress()),
		Vault:     encodeAddress(s.engine.VaultAddress()),
		Seller:    encodeAddress(s.engine.Seller()),
		Inspector: encodeAddress(s.engine.Inspector()),
		Lender:    encodeAddress(s.engine.Lender()),
	}, nil
}
