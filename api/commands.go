// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"fmt"
	"net/http"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/signatures"
	"github.com/luxfi/tokenbridge/signer"
)

// SubmitSignatureRequest carries a validator signature over an outbound
// message. The signature must recover to Signer.
type SubmitSignatureRequest struct {
	Signer    string `json:"signer"`
	Signature string `json:"signature"`
	Message   string `json:"message"`
}

// ExecuteAffirmationRequest affirms a token transfer seen on the foreign
// side. Signature is the validator's signature over the affirmation hash.
type ExecuteAffirmationRequest struct {
	Validator       string `json:"validator"`
	Signature       string `json:"signature"`
	Asset           string `json:"asset,omitempty"`
	Recipient       string `json:"recipient"`
	Value           string `json:"value"`
	TransactionHash string `json:"transaction-hash"`
}

// ExecuteMessageAffirmationRequest affirms an arbitrary message seen on the
// foreign side. Signature is the validator's signature over the message.
type ExecuteMessageAffirmationRequest struct {
	Validator string `json:"validator"`
	Signature string `json:"signature"`
	Message   string `json:"message"`
}

type ExecuteSignaturesRequest struct {
	Message    string   `json:"message"`
	Signatures []string `json:"signatures"`
}

type RelayTokensRequest struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Asset     string `json:"asset,omitempty"`
	Value     string `json:"value"`
}

type RequestToPassRequest struct {
	Sender   string `json:"sender"`
	Executor string `json:"executor"`
	Data     string `json:"data"`
	GasLimit uint32 `json:"gas-limit"`
}

type OutcomeResponse struct {
	Hash      string `json:"hash"`
	Collected bool   `json:"collected"`
	Count     uint64 `json:"count"`
	Required  uint64 `json:"required"`
	Completed bool   `json:"completed"`
}

func newOutcomeResponse(o *signatures.Outcome) OutcomeResponse {
	return OutcomeResponse{
		Hash:      o.Hash.Hex(),
		Collected: o.Status.Collected,
		Count:     o.Status.Count,
		Required:  o.Required,
		Completed: o.Completed,
	}
}

func (h *handler) submitSignature(w http.ResponseWriter, r *http.Request) {
	var req SubmitSignatureRequest
	if !h.decode(w, r, &req) {
		return
	}
	validator, err := parseAddress("signer", req.Signer)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	sig, err := parseHex("signature", req.Signature)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	message, err := parseHex("message", req.Message)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	outcome, err := coreOf(r).SubmitSignature(validator, sig, message)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newOutcomeResponse(outcome))
}

func (h *handler) executeAffirmation(w http.ResponseWriter, r *http.Request) {
	var req ExecuteAffirmationRequest
	if !h.decode(w, r, &req) {
		return
	}
	validator, err := parseAddress("validator", req.Validator)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	sig, err := parseHex("signature", req.Signature)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	a := &tokenbridge.Affirmation{}
	if req.Asset != "" {
		if a.Asset, err = parseAddress("asset", req.Asset); err != nil {
			h.writeJSONError(w, http.StatusBadRequest, err)
			return
		}
	}
	if a.Recipient, err = parseAddress("recipient", req.Recipient); err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	if a.Value, err = parseAmount("value", req.Value); err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	if a.TransactionHash, err = parseHash("transaction-hash", req.TransactionHash); err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	core := coreOf(r)
	hash := a.Hash(core.Mode() == tokenbridge.MultiTokenMode)
	if err := h.authenticate(validator, hash[:], sig); err != nil {
		h.writeError(w, err)
		return
	}
	outcome, err := core.ExecuteAffirmation(validator, a)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newOutcomeResponse(outcome))
}

func (h *handler) executeMessageAffirmation(w http.ResponseWriter, r *http.Request) {
	var req ExecuteMessageAffirmationRequest
	if !h.decode(w, r, &req) {
		return
	}
	validator, err := parseAddress("validator", req.Validator)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	sig, err := parseHex("signature", req.Signature)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	message, err := parseHex("message", req.Message)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.authenticate(validator, message, sig); err != nil {
		h.writeError(w, err)
		return
	}

	outcome, err := coreOf(r).ExecuteMessageAffirmation(r.Context(), validator, message)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newOutcomeResponse(outcome))
}

// authenticate checks that sig over message recovers to validator
func (*handler) authenticate(validator common.Address, message, sig []byte) error {
	addr, err := signer.RecoverAddress(signer.Digest(message), sig)
	if err != nil {
		return fmt.Errorf("%w: %w", tokenbridge.ErrInvalidSignature, err)
	}
	if addr != validator {
		return fmt.Errorf("%w: %w", tokenbridge.ErrNotAValidator, errSignerMissing)
	}
	return nil
}

func (h *handler) executeSignatures(w http.ResponseWriter, r *http.Request) {
	var req ExecuteSignaturesRequest
	if !h.decode(w, r, &req) {
		return
	}
	message, err := parseHex("message", req.Message)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	sigs := make([][]byte, len(req.Signatures))
	for i, s := range req.Signatures {
		if sigs[i], err = parseHex(fmt.Sprintf("signature %d", i), s); err != nil {
			h.writeJSONError(w, http.StatusBadRequest, err)
			return
		}
	}

	e, err := coreOf(r).ExecuteSignatures(r.Context(), message, sigs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newEventResponse(e))
}

func (h *handler) relayTokens(w http.ResponseWriter, r *http.Request) {
	var req RelayTokensRequest
	if !h.decode(w, r, &req) {
		return
	}
	sender, err := parseAddress("sender", req.Sender)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	recipient, err := parseAddress("recipient", req.Recipient)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	var asset common.Address
	if req.Asset != "" {
		if asset, err = parseAddress("asset", req.Asset); err != nil {
			h.writeJSONError(w, http.StatusBadRequest, err)
			return
		}
	}
	value, err := parseAmount("value", req.Value)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	e, err := coreOf(r).RelayTokens(sender, recipient, asset, value)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newEventResponse(e))
}

func (h *handler) requestToPass(w http.ResponseWriter, r *http.Request) {
	var req RequestToPassRequest
	if !h.decode(w, r, &req) {
		return
	}
	sender, err := parseAddress("sender", req.Sender)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	executor, err := parseAddress("executor", req.Executor)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	data, err := parseHex("data", req.Data)
	if err != nil {
		h.writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	msg, err := coreOf(r).RequestToPass(sender, executor, data, req.GasLimit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newMessageResponse(msg))
}
