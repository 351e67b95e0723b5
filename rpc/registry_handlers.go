package rpc

import (
	"encoding/json"
)

type mintParams struct {
	Owner   string `json:"owner"`
	MetaURI string `json:"metaUri"`
}

type approveParams struct {
	AssetID  uint64 `json:"assetId"`
	Caller   string `json:"caller"`
	Operator string `json:"operator"`
}

type creditParams struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type addressParams struct {
	Address string `json:"address"`
}

func (s *Server) handleRegistryMint(params []json.RawMessage) (any, *RPCError) {
	var p mintParams
	if rpcError := decodeParams(params, &p); rpcError != nil {
		return nil, rpcError
	}
	owner, err := parseBech32Address(p.Owner)
	if err != nil {
		return nil, rpcErr(codeInvalidParams, "invalid_params", err.Error())
	}
	id, err := s.deeds.Mint(owner, p.MetaURI)
	if err != nil {
		return nil, engineErr(err)
	}
	return map[string]uint64{"assetId": id}, nil
}

func (s *Server) handleRegistryApprove(params []json.RawMessage) (any, *RPCError) {
	var p approveParams
	if rpcError := decodeParams(params, &p); rpcError != nil {
		return nil, rpcError
	}
	caller, err := parseBech32Address(p.Caller)
	if err != nil {
		return nil, rpcErr(codeInvalidParams, "invalid_params", err.Error())
	}
	operator, err := parseBech32Address(p.Operator)
	if err != nil {
		return nil, rpcErr(codeInvalidParams, "invalid_params", err.Error())
	}
	if err := s.deeds.Approve(caller, operator, p.AssetID); err != nil {
		return nil, engineErr(err)
	}
	return map[string]bool{"approved": true}, nil
}

func (s *Server) handleRegistryOwnerOf(params []json.RawMessage) (any, *RPCError) {
	var p assetParams
	if rpcError := decodeParams(params, &p); rpcError != nil {
		return nil, rpcError
	}
	owner, err := s.deeds.OwnerOf(p.AssetID)
	if err != nil {
		return nil, engineErr(err)
	}
	return map[string]string{"owner": encodeAddress(owner)}, nil
}

func (s *Server) handleRegistryMetaURI(params []json.RawMessage) (any, *RPCError) {
	var p assetParams
	if rpcError := decodeParams(params, &p); rpcError != nil {
		return nil, rpcError
	}
	uri, err := s.deeds.MetaURI(p.AssetID)
	if err != nil {
		return nil, engineErr(err)
	}
	return map[string]string{"metaUri": uri}, nil
}

func (s *Server) handleLedgerCredit(params []json.RawMessage) (any, *RPCError) {
	var p creditParams
	if rpcError := decodeParams(params, &p); rpcError != nil {
		return nil, rpcError
	}
	addr, err := parseBech32Address(p.Address)
	if err != nil {
		return nil, rpcErr(codeInvalidParams, "invalid_params", err.Error())
	}
	amount, err := parsePositiveBigInt(p.Amount)
	if err != nil {
		return nil, rpcErr(codeInvalidParams, "invalid_params", err.Error())
	}
	if err := s.funds.Credit(addr, amount); err != nil {
		return nil, engineErr(err)
	}
	return map[string]string{"balance": s.funds.BalanceOf(addr).String()}, nil
}

func (s *Server) handleLedgerBalanceOf(params []json.RawMessage) (any, *RPCError) {
	var p addressParams
	if rpcError := decodeParams(params, &p); rpcError != nil {
		return nil, rpcError
	}
	addr, err := parseBech32Address(p.Address)
	if err != nil {
		return nil, rpcErr(codeInvalidParams, "invalid_params", err.Error())
	}
	return map[string]string{"balance": s.funds.BalanceOf(addr).String()}, nil
}
