// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/luxfi/tokenbridge"
)

const (
	sourceChainKey  = "source-chain"
	destChainKey    = "dest-chain"
	bridgeKey       = "bridge"
	nonceKey        = "nonce"
	senderKey       = "sender"
	executorKey     = "executor"
	gasKey          = "gas"
	maxGasKey       = "max-gas"
	dataKey         = "data"
	tokenKey        = "token"
	multiTokenKey   = "multi-token"
	defaultMaxGas   = 2_000_000
	defaultGasLimit = 100_000
)

func messageCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "message",
		Short: "Encode and decode bridge messages",
	}
	c.AddCommand(encodeCmd(), decodeCmd())
	return c
}

func encodeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "encode",
		Short: "Encode an arbitrary message",
		Long:  `Build the wire encoding of an arbitrary message sent by a bridge deployment.`,
		RunE:  encodeFunc,
	}
	addEncodeFlags(c.Flags())
	return c
}

func addEncodeFlags(fs *pflag.FlagSet) {
	fs.Uint64(sourceChainKey, 0, "Chain id of the sending bridge")
	fs.Uint64(destChainKey, 0, "Chain id of the destination bridge")
	fs.String(bridgeKey, "", "Address of the sending bridge deployment")
	fs.Uint64(nonceKey, 0, "Message nonce")
	fs.String(senderKey, "", "Sender address")
	fs.String(executorKey, "", "Executor address on the destination chain")
	fs.Uint32(gasKey, defaultGasLimit, "Gas limit of the call")
	fs.Uint32(maxGasKey, defaultMaxGas, "Maximum gas per message of the sending bridge")
	fs.String(dataKey, "", "Hex call data")
}

func encodeFunc(c *cobra.Command, _ []string) error {
	flags := c.Flags()
	src, _ := flags.GetUint64(sourceChainKey)
	dst, _ := flags.GetUint64(destChainKey)
	nonce, _ := flags.GetUint64(nonceKey)
	gas, _ := flags.GetUint32(gasKey)
	maxGas, _ := flags.GetUint32(maxGasKey)
	bridgeAddr, _ := flags.GetString(bridgeKey)
	sender, _ := flags.GetString(senderKey)
	executor, _ := flags.GetString(executorKey)
	dataHex, _ := flags.GetString(dataKey)

	for name, addr := range map[string]string{
		bridgeKey:   bridgeAddr,
		senderKey:   sender,
		executorKey: executor,
	} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid %s address %q", name, addr)
		}
	}
	data, err := decodeHex(dataHex)
	if err != nil {
		return fmt.Errorf("invalid data: %w", err)
	}

	builder, err := tokenbridge.NewBuilder(uint256.NewInt(src), common.HexToAddress(bridgeAddr))
	if err != nil {
		return err
	}
	msg, err := builder.Build(
		nonce,
		common.HexToAddress(sender),
		common.HexToAddress(executor),
		data,
		gas,
		maxGas,
		uint256.NewInt(dst),
	)
	if err != nil {
		return err
	}
	c.Printf("0x%x\n", msg.Bytes())
	return nil
}

func decodeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a bridge message",
		Long: `Decode an arbitrary message, or with --token a token transfer message,
and print it as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: decodeFunc,
	}
	c.Flags().Bool(tokenKey, false, "Decode a token transfer message")
	c.Flags().Bool(multiTokenKey, false, "Token message carries the asset address")
	return c
}

type decodedMessage struct {
	MessageID          string `json:"message-id"`
	Nonce              uint64 `json:"nonce"`
	BridgeID           string `json:"bridge-id"`
	Hash               string `json:"hash"`
	Sender             string `json:"sender"`
	Executor           string `json:"executor"`
	GasLimit           uint32 `json:"gas-limit"`
	DataType           uint8  `json:"data-type"`
	SourceChainID      string `json:"source-chain-id"`
	DestinationChainID string `json:"destination-chain-id"`
	Data               string `json:"data"`
}

type decodedTokenMessage struct {
	Asset           string `json:"asset,omitempty"`
	Recipient       string `json:"recipient"`
	Value           string `json:"value"`
	TransactionHash string `json:"transaction-hash"`
	Bridge          string `json:"bridge"`
	Hash            string `json:"hash"`
}

func decodeFunc(c *cobra.Command, args []string) error {
	b, err := decodeHex(args[0])
	if err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	isToken, _ := c.Flags().GetBool(tokenKey)
	multiToken, _ := c.Flags().GetBool(multiTokenKey)

	var out any
	if isToken || multiToken {
		t, err := tokenbridge.DecodeTokenMessage(b, multiToken)
		if err != nil {
			return err
		}
		decoded := decodedTokenMessage{
			Recipient:       t.Recipient.Hex(),
			Value:           t.Value.Dec(),
			TransactionHash: t.TransactionHash.Hex(),
			Bridge:          t.Bridge.Hex(),
			Hash:            tokenbridge.Keccak256(b).Hex(),
		}
		if multiToken {
			decoded.Asset = t.Asset.Hex()
		}
		out = decoded
	} else {
		m, err := tokenbridge.DecodeMessage(b)
		if err != nil {
			return err
		}
		bridgeID := tokenbridge.MessageBridgeID(m.MessageID)
		out = decodedMessage{
			MessageID:          m.MessageID.String(),
			Nonce:              m.Nonce(),
			BridgeID:           "0x" + hex.EncodeToString(bridgeID[:]),
			Hash:               m.Hash().Hex(),
			Sender:             m.Sender.Hex(),
			Executor:           m.Executor.Hex(),
			GasLimit:           m.GasLimit,
			DataType:           m.DataType,
			SourceChainID:      m.SourceChainID.Dec(),
			DestinationChainID: m.DestinationChainID.Dec(),
			Data:               "0x" + hex.EncodeToString(m.Data),
		}
	}

	enc := json.NewEncoder(c.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
