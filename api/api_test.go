// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/tokenbridge"
	"github.com/luxfi/tokenbridge/bridge"
	"github.com/luxfi/tokenbridge/chain"
	"github.com/luxfi/tokenbridge/metrics"
	"github.com/luxfi/tokenbridge/signer"
	"github.com/luxfi/tokenbridge/state"
	"github.com/luxfi/tokenbridge/validators"
)

var (
	homeAddress    = common.HexToAddress("0x1000000000000000000000000000000000000001")
	foreignAddress = common.HexToAddress("0x2000000000000000000000000000000000000002")
	token          = common.HexToAddress("0x3000000000000000000000000000000000000003")
	owner          = common.HexToAddress("0x4000000000000000000000000000000000000004")
	alice          = common.HexToAddress("0x5000000000000000000000000000000000000005")
	bob            = common.HexToAddress("0x6000000000000000000000000000000000000006")
)

type testServer struct {
	server                  *httptest.Server
	home, foreign           *bridge.Core
	homeChain, foreignChain *chain.MemoryChain
	validator               *signer.LocalSigner
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWithOptions(t, Options{UserEndpoints: true})
}

func newTestServerWithOptions(t *testing.T, opts Options) *testServer {
	require := require.New(t)

	s, err := signer.GenerateLocalSigner()
	require.NoError(err)
	vdrs, err := validators.NewStatic(1, validators.Validator{Address: s.Address(), RewardAddress: s.Address()})
	require.NoError(err)

	ts := &testServer{
		homeChain:    chain.NewMemoryChain(),
		foreignChain: chain.NewMemoryChain(),
		validator:    s,
	}
	registry := prometheus.NewRegistry()
	bridgeMetrics := metrics.NewBridgeMetrics(registry)
	newLimits := func() map[common.Address]*state.Limits {
		return map[common.Address]*state.Limits{token: {
			DailyLimit:          uint256.NewInt(1_000),
			MaxPerTx:            uint256.NewInt(500),
			MinPerTx:            uint256.NewInt(1),
			ExecutionDailyLimit: uint256.NewInt(1_000),
			ExecutionMaxPerTx:   uint256.NewInt(500),
		}}
	}
	ts.home, err = bridge.New(bridge.Config{
		Mode:          tokenbridge.ErcToErcMode,
		Side:          tokenbridge.Home,
		ChainID:       uint256.NewInt(100),
		RemoteChainID: uint256.NewInt(200),
		Address:       homeAddress,
		RemoteAddress: foreignAddress,
		Asset:         token,
		Owner:         owner,
		Limits:        newLimits(),
		DB:            memdb.New(),
		Validators:    vdrs,
		Assets:        ts.homeChain,
		Metrics:       bridgeMetrics,
	})
	require.NoError(err)
	ts.foreign, err = bridge.New(bridge.Config{
		Mode:          tokenbridge.ErcToErcMode,
		Side:          tokenbridge.Foreign,
		ChainID:       uint256.NewInt(200),
		RemoteChainID: uint256.NewInt(100),
		Address:       foreignAddress,
		RemoteAddress: homeAddress,
		Asset:         token,
		Owner:         owner,
		Limits:        newLimits(),
		DB:            memdb.New(),
		Validators:    vdrs,
		Assets:        ts.foreignChain,
		Metrics:       bridgeMetrics,
	})
	require.NoError(err)

	ts.server = httptest.NewServer(NewHandler(log.NewNoOpLogger(), registry, opts, ts.home, ts.foreign))
	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) get(t *testing.T, path string, out any) int {
	resp, err := http.Get(ts.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (ts *testServer) post(t *testing.T, path string, body any, out any) int {
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.server.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestInfo(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t)

	var info InfoResponse
	require.Equal(http.StatusOK, ts.get(t, "/v1/home/", &info))
	require.Equal(tokenbridge.ErcToErcMode.String(), info.Mode)
	require.Equal("home", info.Side)
	require.Equal("100", info.ChainID)
	require.Equal(owner.Hex(), info.Owner)
	require.Equal(bridge.DefaultMaxGasPerTx, info.MaxGasPerTx)

	var version VersionResponse
	require.Equal(http.StatusOK, ts.get(t, VersionPath, &version))
	require.Equal(tokenbridge.Version.String(), version.Version)

	var errResp ErrorResponse
	require.Equal(http.StatusNotFound, ts.get(t, "/v1/sideways/", &errResp))
	require.NotEmpty(errResp.Error)
}

func TestTransferRoundTrip(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t)
	ts.homeChain.Mint(token, alice, uint256.NewInt(1_000))

	var transfer EventResponse
	require.Equal(http.StatusOK, ts.post(t, "/v1/home/transfers", RelayTokensRequest{
		Sender:    alice.Hex(),
		Recipient: bob.Hex(),
		Value:     "400",
	}, &transfer))
	require.Equal(tokenbridge.UserRequestForSignature.String(), transfer.Type)
	require.Equal("400", transfer.Value)
	require.Equal(uint256.NewInt(600), ts.homeChain.BalanceOf(token, alice))

	message, err := parseHex("data", transfer.Data)
	require.NoError(err)
	sig, err := ts.validator.Sign(message)
	require.NoError(err)

	var outcome OutcomeResponse
	require.Equal(http.StatusOK, ts.post(t, "/v1/home/signatures", SubmitSignatureRequest{
		Signer:    ts.validator.Address().Hex(),
		Signature: hexOf(sig),
		Message:   transfer.Data,
	}, &outcome))
	require.True(outcome.Collected)
	require.True(outcome.Completed)
	require.Equal(transfer.Hash, outcome.Hash)

	var collected SignaturesResponse
	require.Equal(http.StatusOK, ts.get(t, "/v1/home/signatures/"+transfer.Hash, &collected))
	require.True(collected.Collected)
	require.Equal([]string{ts.validator.Address().Hex()}, collected.Signers)
	require.Equal([]string{hexOf(sig)}, collected.Signatures)
	require.Equal(transfer.Data, collected.Message)

	var relayed EventResponse
	require.Equal(http.StatusOK, ts.post(t, "/v1/foreign/executions", ExecuteSignaturesRequest{
		Message:    collected.Message,
		Signatures: collected.Signatures,
	}, &relayed))
	require.Equal(tokenbridge.RelayedMessage.String(), relayed.Type)
	require.True(relayed.Status)
	require.Equal(uint256.NewInt(400), ts.foreignChain.BalanceOf(token, bob))

	var errResp ErrorResponse
	require.Equal(http.StatusConflict, ts.post(t, "/v1/foreign/executions", ExecuteSignaturesRequest{
		Message:    collected.Message,
		Signatures: collected.Signatures,
	}, &errResp))
	require.Equal("replay", errResp.Kind)

	var events []EventResponse
	require.Equal(http.StatusOK, ts.get(t, "/v1/home/events?after=1&limit=10", &events))
	require.NotEmpty(events)
	for _, e := range events {
		require.Greater(e.Seq, uint64(1))
	}
}

func TestExecuteAffirmation(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t)

	txHash := common.HexToHash("0xabcdef")
	a := &tokenbridge.Affirmation{
		Recipient:       bob,
		Value:           uint256.NewInt(250),
		TransactionHash: txHash,
	}
	hash := a.Hash(false)
	req := ExecuteAffirmationRequest{
		Validator:       ts.validator.Address().Hex(),
		Recipient:       bob.Hex(),
		Value:           "250",
		TransactionHash: txHash.Hex(),
	}

	stranger, err := signer.GenerateLocalSigner()
	require.NoError(err)
	forged, err := stranger.Sign(hash[:])
	require.NoError(err)
	req.Signature = hexOf(forged)

	var errResp ErrorResponse
	require.Equal(http.StatusForbidden, ts.post(t, "/v1/home/affirmations", req, &errResp))
	require.Equal("authorization", errResp.Kind)
	require.True(ts.homeChain.BalanceOf(token, bob).IsZero())

	sig, err := ts.validator.Sign(hash[:])
	require.NoError(err)
	req.Signature = hexOf(sig)

	var outcome OutcomeResponse
	require.Equal(http.StatusOK, ts.post(t, "/v1/home/affirmations", req, &outcome))
	require.True(outcome.Completed)
	require.Equal(hash.Hex(), outcome.Hash)
	require.Equal(uint256.NewInt(250), ts.homeChain.BalanceOf(token, bob))

	var status StatusResponse
	require.Equal(http.StatusOK, ts.get(t, "/v1/home/affirmations/"+hash.Hex(), &status))
	require.True(status.Collected)

	var execution ExecutionResponse
	require.Equal(http.StatusOK, ts.get(t, "/v1/home/executions/"+hash.Hex(), &execution))
	require.True(execution.Executed)
	require.True(execution.Success)
}

func TestQueries(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t)

	var limits LimitsResponse
	require.Equal(http.StatusOK, ts.get(t, "/v1/home/limits/"+token.Hex()+"?value=600", &limits))
	require.Equal("1000", limits.DailyLimit)
	require.Equal("500", limits.MaxPerTx)
	require.Equal("0", limits.TotalSpent)
	require.NotNil(limits.WithinLimit)
	require.False(*limits.WithinLimit)

	var fees FeesResponse
	require.Equal(http.StatusOK, ts.get(t, "/v1/home/fees", &fees))
	require.Equal("no-fee", fees.Kind)

	var total OutOfLimitTotalResponse
	require.Equal(http.StatusOK, ts.get(t, "/v1/home/out-of-limit", &total))
	require.Equal("0", total.Total)

	var errResp ErrorResponse
	require.Equal(http.StatusNotFound, ts.get(t, "/v1/home/out-of-limit/"+common.HexToHash("0x01").Hex(), &errResp))
	require.Equal(http.StatusBadRequest, ts.get(t, "/v1/home/signatures/0x1234", &errResp))
	require.Equal(http.StatusNotFound, ts.get(t, "/v1/home/signatures/"+common.HexToHash("0x02").Hex(), &errResp))
	require.Equal(http.StatusBadRequest, ts.get(t, "/v1/home/events?limit=many", &errResp))
	require.Equal(http.StatusBadRequest, ts.get(t, "/v1/home/limits/nowhere", &errResp))
}

func TestCommandRejections(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		kind   string
	}{
		{
			name:   "unknown field",
			path:   "/v1/home/transfers",
			body:   map[string]string{"from": alice.Hex()},
			status: http.StatusBadRequest,
		},
		{
			name: "over max per tx",
			path: "/v1/home/transfers",
			body: RelayTokensRequest{
				Sender:    alice.Hex(),
				Recipient: bob.Hex(),
				Value:     "501",
			},
			status: http.StatusUnprocessableEntity,
			kind:   "limit",
		},
		{
			name: "zero recipient",
			path: "/v1/home/transfers",
			body: RelayTokensRequest{
				Sender:    alice.Hex(),
				Recipient: common.Address{}.Hex(),
				Value:     "10",
			},
			status: http.StatusBadRequest,
			kind:   "validation",
		},
		{
			name: "messages unsupported by token mode",
			path: "/v1/home/messages",
			body: RequestToPassRequest{
				Sender:   alice.Hex(),
				Executor: bob.Hex(),
				Data:     "0x01",
				GasLimit: 100_000,
			},
			status: http.StatusBadRequest,
			kind:   "validation",
		},
		{
			name: "executions on the home side",
			path: "/v1/home/executions",
			body: ExecuteSignaturesRequest{
				Message: "0x01",
			},
			status: http.StatusBadRequest,
			kind:   "validation",
		},
		{
			name: "signature from a stranger",
			path: "/v1/home/signatures",
			body: SubmitSignatureRequest{
				Signer:    alice.Hex(),
				Signature: hexOf(make([]byte, 65)),
				Message:   "0x01",
			},
			status: http.StatusBadRequest,
			kind:   "validation",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var errResp ErrorResponse
			require.Equal(t, test.status, ts.post(t, test.path, test.body, &errResp))
			require.Equal(t, test.kind, errResp.Kind)
		})
	}
}

func TestUserEndpointsDisabled(t *testing.T) {
	require := require.New(t)

	ts := newTestServerWithOptions(t, Options{})
	ts.homeChain.Mint(token, alice, uint256.NewInt(100))

	status := ts.post(t, "/v1/home/transfers", RelayTokensRequest{
		Sender:    alice.Hex(),
		Recipient: bob.Hex(),
		Value:     "10",
	}, nil)
	require.Equal(http.StatusNotFound, status)
	require.Equal(uint256.NewInt(100), ts.homeChain.BalanceOf(token, alice))

	status = ts.post(t, "/v1/foreign/messages", RequestToPassRequest{}, nil)
	require.Equal(http.StatusNotFound, status)

	// validator and query endpoints stay available
	var info InfoResponse
	require.Equal(http.StatusOK, ts.get(t, "/v1/home/", &info))
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{tokenbridge.ErrMessageNotFound, http.StatusNotFound},
		{tokenbridge.ErrNoSuchEntry, http.StatusNotFound},
		{tokenbridge.ErrMalformedMessage, http.StatusBadRequest},
		{tokenbridge.ErrNotOwner, http.StatusForbidden},
		{tokenbridge.ErrAlreadyProcessed, http.StatusConflict},
		{tokenbridge.ErrDailyLimitExceeded, http.StatusUnprocessableEntity},
		{tokenbridge.ErrCallFailed, http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, test := range tests {
		t.Run(test.err.Error(), func(t *testing.T) {
			require.Equal(t, test.status, statusOf(test.err))
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t)

	var health map[string]any
	require.Equal(http.StatusOK, ts.get(t, HealthPath, &health))
	require.Equal("up", health["status"])

	resp, err := http.Get(ts.server.URL + MetricsPath)
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusOK, resp.StatusCode)
}

func TestParseMessageID(t *testing.T) {
	require := require.New(t)

	bridgeID := tokenbridge.ComputeBridgeID(uint256.NewInt(100), homeAddress)
	id := tokenbridge.NewMessageID(bridgeID, 7)

	parsed, err := parseMessageID(id.String())
	require.NoError(err)
	require.Equal(id, parsed)

	parsed, err = parseMessageID(hexOf(id[:]))
	require.NoError(err)
	require.Equal(id, parsed)

	_, err = parseMessageID("0x1234")
	require.ErrorIs(err, errBadMessageID)
}
