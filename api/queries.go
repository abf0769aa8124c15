// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/bridge"
	"github.com/luxfi/tokenbridge/signatures"
	"github.com/luxfi/tokenbridge/state"
)

type VersionResponse struct {
	Version string `json:"version"`
}

type InfoResponse struct {
	Mode        string `json:"mode"`
	ModeTag     string `json:"mode-tag"`
	Side        string `json:"side"`
	ChainID     string `json:"chain-id"`
	BridgeID    string `json:"bridge-id"`
	Owner       string `json:"owner"`
	MaxGasPerTx uint32 `json:"max-gas-per-tx"`
	Nonce       uint64 `json:"nonce"`
	Day         uint64 `json:"day"`
}

type EventResponse struct {
	Seq             uint64 `json:"seq"`
	Type            string `json:"type"`
	MessageID       string `json:"message-id,omitempty"`
	Hash            string `json:"hash"`
	TransactionHash string `json:"transaction-hash,omitempty"`
	Asset           string `json:"asset,omitempty"`
	Sender          string `json:"sender,omitempty"`
	Recipient       string `json:"recipient,omitempty"`
	Responsible     string `json:"responsible,omitempty"`
	Value           string `json:"value,omitempty"`
	Remaining       string `json:"remaining,omitempty"`
	NumSignatures   uint64 `json:"num-signatures,omitempty"`
	Status          bool   `json:"status"`
	Data            string `json:"data,omitempty"`
}

type StatusResponse struct {
	Hash      string   `json:"hash"`
	Collected bool     `json:"collected"`
	Count     uint64   `json:"count"`
	Signers   []string `json:"signers"`
}

type SignaturesResponse struct {
	StatusResponse
	Message    string   `json:"message,omitempty"`
	Signatures []string `json:"signatures"`
}

type ExecutionResponse struct {
	Hash     string `json:"hash"`
	Executed bool   `json:"executed"`
	Success  bool   `json:"success"`
	Deferred bool   `json:"deferred"`
}

type MessageResponse struct {
	MessageID          string `json:"message-id"`
	Nonce              uint64 `json:"nonce"`
	Hash               string `json:"hash"`
	Sender             string `json:"sender"`
	Executor           string `json:"executor"`
	GasLimit           uint32 `json:"gas-limit"`
	DataType           uint8  `json:"data-type"`
	SourceChainID      string `json:"source-chain-id"`
	DestinationChainID string `json:"destination-chain-id"`
	Data               string `json:"data"`
	Encoded            string `json:"encoded"`
}

type CallResponse struct {
	MessageID string `json:"message-id"`
	Success   bool   `json:"success"`
	Sender    string `json:"sender"`
	Executor  string `json:"executor"`
	GasLimit  uint32 `json:"gas-limit"`
	DataHash  string `json:"data-hash"`
	Retries   uint64 `json:"retries"`
}

type LimitsResponse struct {
	Asset               string `json:"asset"`
	DailyLimit          string `json:"daily-limit"`
	MaxPerTx            string `json:"max-per-tx"`
	MinPerTx            string `json:"min-per-tx"`
	ExecutionDailyLimit string `json:"execution-daily-limit"`
	ExecutionMaxPerTx   string `json:"execution-max-per-tx"`
	Day                 uint64 `json:"day"`
	TotalSpent          string `json:"total-spent"`
	TotalExecuted       string `json:"total-executed"`
	WithinLimit         *bool  `json:"within-limit,omitempty"`
}

type FeesResponse struct {
	Kind       string `json:"kind"`
	Mode       string `json:"mode"`
	HomeFee    string `json:"home-fee"`
	ForeignFee string `json:"foreign-fee"`
}

type OutOfLimitResponse struct {
	TransactionHash string `json:"transaction-hash"`
	Asset           string `json:"asset"`
	Recipient       string `json:"recipient"`
	Value           string `json:"value"`
	Remaining       string `json:"remaining"`
}

type OutOfLimitTotalResponse struct {
	Total string `json:"total"`
}

func (h *handler) version(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, VersionResponse{Version: tokenbridge.Version.String()})
}

func (h *handler) info(w http.ResponseWriter, r *http.Request) {
	core := coreOf(r)
	owner, err := core.Owner()
	if err != nil {
		h.writeError(w, err)
		return
	}
	maxGas, err := core.MaxGasPerTx()
	if err != nil {
		h.writeError(w, err)
		return
	}
	nonce, err := core.Nonce()
	if err != nil {
		h.writeError(w, err)
		return
	}
	bridgeID := core.BridgeID()
	h.writeJSON(w, http.StatusOK, InfoResponse{
		Mode:        core.Mode().String(),
		ModeTag:     core.Mode().TagHex(),
		Side:        core.Side().String(),
		ChainID:     core.ChainID().Dec(),
		BridgeID:    hexOf(bridgeID[:]),
		Owner:       owner.Hex(),
		MaxGasPerTx: maxGas,
		Nonce:       nonce,
		Day:         core.Today(),
	})
}

func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	after, err := parseUint(r, "after", 0)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	limit, err := parseUint(r, "limit", defaultEventsLimit)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	limit = min(limit, maxEventsLimit)

	events, err := coreOf(r).Events(after, int(limit))
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := make([]EventResponse, len(events))
	for i, e := range events {
		resp[i] = newEventResponse(e)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func newEventResponse(e *tokenbridge.Event) EventResponse {
	resp := EventResponse{
		Seq:           e.Seq,
		Type:          e.Type.String(),
		Hash:          e.Hash.Hex(),
		NumSignatures: e.NumSignatures,
		Status:        e.Status,
	}
	if e.MessageID != ids.Empty {
		resp.MessageID = e.MessageID.String()
	}
	if e.TransactionHash != (common.Hash{}) {
		resp.TransactionHash = e.TransactionHash.Hex()
	}
	if e.Asset != (common.Address{}) {
		resp.Asset = e.Asset.Hex()
	}
	if e.Sender != (common.Address{}) {
		resp.Sender = e.Sender.Hex()
	}
	if e.Recipient != (common.Address{}) {
		resp.Recipient = e.Recipient.Hex()
	}
	if e.Responsible != (common.Address{}) {
		resp.Responsible = e.Responsible.Hex()
	}
	if e.Value != nil {
		resp.Value = e.Value.Dec()
	}
	if e.Remaining != nil {
		resp.Remaining = e.Remaining.Dec()
	}
	if len(e.Data) > 0 {
		resp.Data = hexOf(e.Data)
	}
	return resp
}

func (h *handler) statusResponse(core *bridge.Core, ns state.Namespace, hash common.Hash) (StatusResponse, error) {
	var (
		status signatures.Status
		err    error
	)
	if ns == state.Affirmations {
		status, err = core.AffirmationStatus(hash)
	} else {
		status, err = core.SignatureStatus(hash)
	}
	if err != nil {
		return StatusResponse{}, err
	}
	signers, err := core.Signers(ns, hash)
	if err != nil {
		return StatusResponse{}, err
	}
	resp := StatusResponse{
		Hash:      hash.Hex(),
		Collected: status.Collected,
		Count:     status.Count,
		Signers:   make([]string, len(signers)),
	}
	for i, s := range signers {
		resp.Signers[i] = s.Hex()
	}
	return resp, nil
}

func (h *handler) signatures(w http.ResponseWriter, r *http.Request) {
	hash, err := parseHash("hash", chi.URLParam(r, "hash"))
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	core := coreOf(r)
	status, err := h.statusResponse(core, state.MessageSignatures, hash)
	if err != nil {
		h.writeError(w, err)
		return
	}
	sigs, err := core.Signatures(hash)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(sigs) == 0 {
		h.writeError(w, fmt.Errorf("%w: no signatures for %s", tokenbridge.ErrMessageNotFound, hash))
		return
	}
	message, err := core.SignedMessage(hash)
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := SignaturesResponse{
		StatusResponse: status,
		Message:        hexOf(message),
		Signatures:     make([]string, len(sigs)),
	}
	for i, sig := range sigs {
		resp.Signatures[i] = hexOf(sig)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) affirmation(w http.ResponseWriter, r *http.Request) {
	hash, err := parseHash("hash", chi.URLParam(r, "hash"))
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := h.statusResponse(coreOf(r), state.Affirmations, hash)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) execution(w http.ResponseWriter, r *http.Request) {
	hash, err := parseHash("hash", chi.URLParam(r, "hash"))
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	status, err := coreOf(r).ExecutionStatus(hash)
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := ExecutionResponse{Hash: hash.Hex()}
	if status != nil {
		resp.Executed = true
		resp.Success = status.Success
		resp.Deferred = status.Deferred
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) message(w http.ResponseWriter, r *http.Request) {
	id, err := parseMessageID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	msg, err := coreOf(r).Message(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newMessageResponse(msg))
}

func newMessageResponse(msg *tokenbridge.Message) MessageResponse {
	return MessageResponse{
		MessageID:          msg.MessageID.String(),
		Nonce:              msg.Nonce(),
		Hash:               msg.Hash().Hex(),
		Sender:             msg.Sender.Hex(),
		Executor:           msg.Executor.Hex(),
		GasLimit:           msg.GasLimit,
		DataType:           msg.DataType,
		SourceChainID:      msg.SourceChainID.Dec(),
		DestinationChainID: msg.DestinationChainID.Dec(),
		Data:               hexOf(msg.Data),
		Encoded:            hexOf(msg.Bytes()),
	}
}

func (h *handler) call(w http.ResponseWriter, r *http.Request) {
	id, err := parseMessageID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	status, err := coreOf(r).CallStatus(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if status == nil {
		h.writeError(w, fmt.Errorf("%w: %s", tokenbridge.ErrMessageNotFound, id))
		return
	}
	h.writeJSON(w, http.StatusOK, CallResponse{
		MessageID: status.MessageID.String(),
		Success:   status.Success,
		Sender:    status.Sender.Hex(),
		Executor:  status.Executor.Hex(),
		GasLimit:  status.GasLimit,
		DataHash:  status.DataHash.Hex(),
		Retries:   status.Retries,
	})
}

func (h *handler) limits(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAddress("asset", chi.URLParam(r, "asset"))
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	core := coreOf(r)
	status, err := core.Limits(asset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	l := &state.Limits{}
	if status.Limits != nil {
		l = status.Limits.Copy()
	}
	resp := LimitsResponse{
		Asset:               asset.Hex(),
		DailyLimit:          decOf(l.DailyLimit),
		MaxPerTx:            decOf(l.MaxPerTx),
		MinPerTx:            decOf(l.MinPerTx),
		ExecutionDailyLimit: decOf(l.ExecutionDailyLimit),
		ExecutionMaxPerTx:   decOf(l.ExecutionMaxPerTx),
		Day:                 status.Day,
		TotalSpent:          decOf(status.TotalSpent),
		TotalExecuted:       decOf(status.TotalExecuted),
	}
	if s := r.URL.Query().Get("value"); s != "" {
		value, err := parseAmount("value", s)
		if err != nil {
			h.writeJSONError(w, http.StatusBadRequest, err)
			return
		}
		ok, err := core.WithinLimit(asset, value)
		if err != nil {
			h.writeError(w, err)
			return
		}
		resp.WithinLimit = &ok
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) fees(w http.ResponseWriter, r *http.Request) {
	status, err := coreOf(r).Fees()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, FeesResponse{
		Kind:       status.Kind.String(),
		Mode:       hexOf(status.Mode[:]),
		HomeFee:    decOf(status.HomeFee),
		ForeignFee: decOf(status.ForeignFee),
	})
}

func (h *handler) outOfLimit(w http.ResponseWriter, r *http.Request) {
	txHash, err := parseHash("transaction hash", chi.URLParam(r, "txHash"))
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	entry, err := coreOf(r).OutOfLimit(txHash)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if entry == nil {
		h.writeError(w, fmt.Errorf("%w: %s", tokenbridge.ErrNoSuchEntry, txHash))
		return
	}
	h.writeJSON(w, http.StatusOK, OutOfLimitResponse{
		TransactionHash: txHash.Hex(),
		Asset:           entry.Asset.Hex(),
		Recipient:       entry.Recipient.Hex(),
		Value:           decOf(entry.Value),
		Remaining:       decOf(entry.Remaining),
	})
}

func (h *handler) outOfLimitTotal(w http.ResponseWriter, r *http.Request) {
	total, err := coreOf(r).OutOfLimitTotal()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, OutOfLimitTotalResponse{Total: decOf(total)})
}
