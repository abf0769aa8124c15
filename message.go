// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package tokenbridge

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

const (
	// MessageVersion is the four byte tag every message id starts with
	MessageVersion uint32 = 0x00050000

	// MinimumGasUsage is the protocol floor for a message's gas limit
	MinimumGasUsage uint32 = 21000

	// DataTypeCall is the only supported payload type: a plain call
	DataTypeCall uint8 = 0

	BridgeIDLen = 20

	// messageId | sender | executor | gasLimit | srcLen | dstLen | dataType
	messageHeaderLen = ids.IDLen + common.AddressLength*2 + 4 + 3
	maxChainIDLen    = 32
)

// BridgeID is the per-bridge unique prefix of every message id
type BridgeID [BridgeIDLen]byte

// ComputeBridgeID derives the bridge id from the source chain id and the
// deployment address. It is stable for the bridge's lifetime.
func ComputeBridgeID(sourceChainID *uint256.Int, deployment common.Address) BridgeID {
	chainID := sourceChainID.Bytes32()
	digest := Keccak256(chainID[:], deployment.Bytes())
	var id BridgeID
	copy(id[:], digest[common.HashLength-BridgeIDLen:])
	return id
}

// NewMessageID returns version ‖ bridgeID ‖ nonce as a 32 byte id
func NewMessageID(bridgeID BridgeID, nonce uint64) ids.ID {
	var id ids.ID
	binary.BigEndian.PutUint32(id[:4], MessageVersion)
	copy(id[4:4+BridgeIDLen], bridgeID[:])
	binary.BigEndian.PutUint64(id[4+BridgeIDLen:], nonce)
	return id
}

// MessageNonce recovers the nonce from a message id
func MessageNonce(id ids.ID) uint64 {
	return binary.BigEndian.Uint64(id[4+BridgeIDLen:])
}

// MessageBridgeID recovers the bridge id from a message id
func MessageBridgeID(id ids.ID) BridgeID {
	var b BridgeID
	copy(b[:], id[4:4+BridgeIDLen])
	return b
}

// Message is an arbitrary message envelope
type Message struct {
	MessageID          ids.ID
	Sender             common.Address
	Executor           common.Address
	GasLimit           uint32
	DataType           uint8
	SourceChainID      *uint256.Int
	DestinationChainID *uint256.Int
	Data               []byte
}

// Nonce returns the nonce the message id was built from
func (m *Message) Nonce() uint64 {
	return MessageNonce(m.MessageID)
}

// Bytes returns the canonical wire encoding of the message
func (m *Message) Bytes() []byte {
	src := m.SourceChainID.Bytes()
	dst := m.DestinationChainID.Bytes()

	b := make([]byte, 0, messageHeaderLen+len(src)+len(dst)+len(m.Data))
	b = append(b, m.MessageID[:]...)
	b = append(b, m.Sender.Bytes()...)
	b = append(b, m.Executor.Bytes()...)
	b = binary.BigEndian.AppendUint32(b, m.GasLimit)
	b = append(b, byte(len(src)), byte(len(dst)), m.DataType)
	b = append(b, src...)
	b = append(b, dst...)
	return append(b, m.Data...)
}

// Hash returns the keccak256 digest of the wire encoding
func (m *Message) Hash() common.Hash {
	return Keccak256(m.Bytes())
}

// ValidateGasLimit checks MinimumGasUsage <= gasLimit <= maxGasPerTx
func ValidateGasLimit(gasLimit, maxGasPerTx uint32) error {
	if gasLimit < MinimumGasUsage || gasLimit > maxGasPerTx {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrGasOutOfBounds, gasLimit, MinimumGasUsage, maxGasPerTx)
	}
	return nil
}

// Builder constructs outbound messages for one bridge instance
type Builder struct {
	bridgeID      BridgeID
	sourceChainID *uint256.Int
}

// NewBuilder returns a builder for the bridge deployed at deployment on the
// chain sourceChainID
func NewBuilder(sourceChainID *uint256.Int, deployment common.Address) (*Builder, error) {
	if sourceChainID == nil || sourceChainID.IsZero() {
		return nil, fmt.Errorf("%w: source chain id must be non-zero", ErrInvalidChainID)
	}
	return &Builder{
		bridgeID:      ComputeBridgeID(sourceChainID, deployment),
		sourceChainID: new(uint256.Int).Set(sourceChainID),
	}, nil
}

// BridgeID returns the bridge id of every message this builder produces
func (b *Builder) BridgeID() BridgeID {
	return b.bridgeID
}

// Build validates the gas limit and assembles the message for nonce. The
// caller owns nonce allocation.
func (b *Builder) Build(
	nonce uint64,
	sender, executor common.Address,
	data []byte,
	gasLimit, maxGasPerTx uint32,
	destinationChainID *uint256.Int,
) (*Message, error) {
	if err := ValidateGasLimit(gasLimit, maxGasPerTx); err != nil {
		return nil, err
	}
	if destinationChainID == nil || destinationChainID.IsZero() {
		return nil, fmt.Errorf("%w: destination chain id must be non-zero", ErrInvalidChainID)
	}
	return &Message{
		MessageID:          NewMessageID(b.bridgeID, nonce),
		Sender:             sender,
		Executor:           executor,
		GasLimit:           gasLimit,
		DataType:           DataTypeCall,
		SourceChainID:      new(uint256.Int).Set(b.sourceChainID),
		DestinationChainID: new(uint256.Int).Set(destinationChainID),
		Data:               common.CopyBytes(data),
	}, nil
}

// DecodeMessage parses the wire encoding without checking the destination
func DecodeMessage(b []byte) (*Message, error) {
	if len(b) < messageHeaderLen {
		return nil, fmt.Errorf("%w: length %d shorter than header", ErrMalformedMessage, len(b))
	}

	m := &Message{}
	copy(m.MessageID[:], b[:ids.IDLen])
	if v := binary.BigEndian.Uint32(m.MessageID[:4]); v != MessageVersion {
		return nil, fmt.Errorf("%w: unsupported version %#08x", ErrMalformedMessage, v)
	}
	offset := ids.IDLen
	m.Sender = common.BytesToAddress(b[offset : offset+common.AddressLength])
	offset += common.AddressLength
	m.Executor = common.BytesToAddress(b[offset : offset+common.AddressLength])
	offset += common.AddressLength
	m.GasLimit = binary.BigEndian.Uint32(b[offset : offset+4])
	offset += 4

	srcLen, dstLen := int(b[offset]), int(b[offset+1])
	m.DataType = b[offset+2]
	offset += 3
	if m.DataType != DataTypeCall {
		return nil, fmt.Errorf("%w: unsupported data type %d", ErrMalformedMessage, m.DataType)
	}
	if srcLen == 0 || srcLen > maxChainIDLen || dstLen == 0 || dstLen > maxChainIDLen {
		return nil, fmt.Errorf("%w: chain id lengths %d/%d", ErrMalformedMessage, srcLen, dstLen)
	}
	if len(b) < offset+srcLen+dstLen {
		return nil, fmt.Errorf("%w: truncated chain ids", ErrMalformedMessage)
	}

	var err error
	if m.SourceChainID, err = parseChainID(b[offset : offset+srcLen]); err != nil {
		return nil, err
	}
	offset += srcLen
	if m.DestinationChainID, err = parseChainID(b[offset : offset+dstLen]); err != nil {
		return nil, err
	}
	offset += dstLen
	m.Data = common.CopyBytes(b[offset:])
	return m, nil
}

// ParseMessage decodes b and checks that it is addressed to chainID
func ParseMessage(b []byte, chainID *uint256.Int) (*Message, error) {
	m, err := DecodeMessage(b)
	if err != nil {
		return nil, err
	}
	if !m.DestinationChainID.Eq(chainID) {
		return nil, fmt.Errorf("%w: message for chain %s, bridge on chain %s",
			ErrWrongDestination, m.DestinationChainID.Dec(), chainID.Dec())
	}
	return m, nil
}

// Chain ids are minimal big-endian; a leading zero byte is not canonical.
func parseChainID(b []byte) (*uint256.Int, error) {
	if b[0] == 0 {
		return nil, fmt.Errorf("%w: non-canonical chain id", ErrMalformedMessage)
	}
	return new(uint256.Int).SetBytes(b), nil
}
