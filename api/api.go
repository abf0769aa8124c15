// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package api serves the query and command surface of the bridge cores over
// HTTP.
package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/bridge"
)

const (
	HealthPath  = "/health"
	MetricsPath = "/metrics"
	VersionPath = "/version"
	APIPrefix   = "/v1/{side}"

	defaultEventsLimit = 100
	maxEventsLimit     = 1000
	maxBodyBytes       = 1 << 20
)

var (
	errUnknownSide   = errors.New("side not served")
	errBadHex        = errors.New("invalid hex")
	errBadHash       = errors.New("invalid hash")
	errBadAddress    = errors.New("invalid address")
	errBadAmount     = errors.New("invalid amount")
	errBadQuery      = errors.New("invalid query parameter")
	errBadMessageID  = errors.New("invalid message id")
	errBadBody       = errors.New("could not decode request body")
	errSignerMissing = errors.New("signature does not recover to the submitting validator")
)

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type contextKey struct{}

// Options selects the optional parts of the command surface
type Options struct {
	// UserEndpoints serves the unauthenticated transfer and message
	// submission endpoints. They move any sender's funds and are meant for
	// development ledgers only.
	UserEndpoints bool
}

type handler struct {
	log   log.Logger
	cores map[tokenbridge.Side]*bridge.Core
}

// NewHandler returns the router of the bridge daemon. Every core is served
// under /v1/{side}.
func NewHandler(logger log.Logger, gatherer prometheus.Gatherer, opts Options, cores ...*bridge.Core) http.Handler {
	h := &handler{
		log:   logger,
		cores: make(map[tokenbridge.Side]*bridge.Core, len(cores)),
	}
	for _, c := range cores {
		h.cores[c.Side()] = c
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Handle(HealthPath, NewHealthHandler(cores...))
	r.Handle(MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get(VersionPath, h.version)

	r.Route(APIPrefix, func(r chi.Router) {
		r.Use(h.withCore)

		r.Get("/", h.info)
		r.Get("/events", h.events)
		r.Get("/signatures/{hash}", h.signatures)
		r.Get("/affirmations/{hash}", h.affirmation)
		r.Get("/executions/{hash}", h.execution)
		r.Get("/messages/{id}", h.message)
		r.Get("/calls/{id}", h.call)
		r.Get("/limits/{asset}", h.limits)
		r.Get("/fees", h.fees)
		r.Get("/out-of-limit", h.outOfLimitTotal)
		r.Get("/out-of-limit/{txHash}", h.outOfLimit)

		r.Post("/signatures", h.submitSignature)
		r.Post("/affirmations", h.executeAffirmation)
		r.Post("/message-affirmations", h.executeMessageAffirmation)
		r.Post("/executions", h.executeSignatures)
		if opts.UserEndpoints {
			r.Post("/transfers", h.relayTokens)
			r.Post("/messages", h.requestToPass)
		}
	})
	return r
}

func (h *handler) withCore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		side, err := tokenbridge.ParseSide(chi.URLParam(r, "side"))
		if err != nil {
			h.writeJSONError(w, http.StatusNotFound, err)
			return
		}
		core, ok := h.cores[side]
		if !ok {
			h.writeJSONError(w, http.StatusNotFound, fmt.Errorf("%w: %s", errUnknownSide, side))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, core)))
	})
}

func coreOf(r *http.Request) *bridge.Core {
	return r.Context().Value(contextKey{}).(*bridge.Core)
}

// statusOf maps a bridge error to an HTTP status code
func statusOf(err error) int {
	switch {
	case errors.Is(err, tokenbridge.ErrMessageNotFound),
		errors.Is(err, tokenbridge.ErrNoSuchEntry):
		return http.StatusNotFound
	case errors.Is(err, tokenbridge.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, tokenbridge.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, tokenbridge.ErrReplay):
		return http.StatusConflict
	case errors.Is(err, tokenbridge.ErrLimit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, tokenbridge.ErrDownstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", log.Err(err))
	} else {
		h.log.Debug("Request rejected", log.Err(err))
	}
	h.writeJSONError(w, status, err)
}

func (h *handler) writeJSONError(w http.ResponseWriter, httpStatusCode int, err error) {
	resp := ErrorResponse{Error: err.Error()}
	if kind := tokenbridge.KindOf(err); kind != 0 {
		resp.Kind = kind.String()
	}
	h.writeJSON(w, httpStatusCode, resp)
}

func (h *handler) writeJSON(w http.ResponseWriter, httpStatusCode int, v any) {
	resp, err := json.Marshal(v)
	if err != nil {
		msg := "Error marshalling JSON response"
		h.log.Error(msg, log.Err(err))
		http.Error(w, msg, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	if _, err := w.Write(resp); err != nil {
		h.log.Error("Error writing response", log.Err(err))
	}
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		h.writeJSONError(w, http.StatusBadRequest, fmt.Errorf("%w: %w", errBadBody, err))
		return false
	}
	return true
}

// sanitizeHexString removes the "0x" prefix from a hex string if it exists.
func sanitizeHexString(hex string) string {
	return strings.TrimPrefix(strings.TrimPrefix(hex, "0x"), "0X")
}

func parseHex(name, s string) ([]byte, error) {
	b, err := hex.DecodeString(sanitizeHexString(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errBadHex, name, err)
	}
	return b, nil
}

func parseHash(name, s string) (common.Hash, error) {
	b, err := parseHex(name, s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: %s has %d bytes", errBadHash, name, len(b))
	}
	return common.BytesToHash(b), nil
}

func parseAddress(name, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %s %q", errBadAddress, name, s)
	}
	return common.HexToAddress(s), nil
}

func parseAmount(name, s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %w", errBadAmount, name, s, err)
	}
	return v, nil
}

// parseMessageID accepts the cb58 or the hex form of an id
func parseMessageID(s string) (ids.ID, error) {
	if strings.HasPrefix(s, "0x") || len(s) == 2*common.HashLength {
		b, err := parseHex("message id", s)
		if err != nil {
			return ids.Empty, err
		}
		id, err := ids.ToID(b)
		if err != nil {
			return ids.Empty, fmt.Errorf("%w: %w", errBadMessageID, err)
		}
		return id, nil
	}
	id, err := ids.FromString(s)
	if err != nil {
		return ids.Empty, fmt.Errorf("%w: %w", errBadMessageID, err)
	}
	return id, nil
}

func parseUint(r *http.Request, name string, def uint64) (uint64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", errBadQuery, name, err)
	}
	return v, nil
}

func hexOf(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func decOf(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
