// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package tokenbridge

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

// EventType names an entry of the bridge event log
type EventType uint8

const (
	UserRequestForSignature EventType = iota + 1
	UserRequestForAffirmation
	SignedForUserRequest
	SignedForAffirmation
	CollectedSignatures
	AffirmationCompleted
	RelayedMessage
	AmountLimitExceeded
	AssetAboveLimitsFixed
	FeeDistributed
	DownstreamCallFailed
	FailedMessageRetried
	LimitsChanged
	FeeConfigChanged
	OwnershipTransferred
	TokensClaimed
)

var eventNames = map[EventType]string{
	UserRequestForSignature:   "UserRequestForSignature",
	UserRequestForAffirmation: "UserRequestForAffirmation",
	SignedForUserRequest:      "SignedForUserRequest",
	SignedForAffirmation:      "SignedForAffirmation",
	CollectedSignatures:       "CollectedSignatures",
	AffirmationCompleted:      "AffirmationCompleted",
	RelayedMessage:            "RelayedMessage",
	AmountLimitExceeded:       "AmountLimitExceeded",
	AssetAboveLimitsFixed:     "AssetAboveLimitsFixed",
	FeeDistributed:            "FeeDistributed",
	DownstreamCallFailed:      "DownstreamCallFailed",
	FailedMessageRetried:      "FailedMessageRetried",
	LimitsChanged:             "LimitsChanged",
	FeeConfigChanged:          "FeeConfigChanged",
	OwnershipTransferred:      "OwnershipTransferred",
	TokensClaimed:             "TokensClaimed",
}

func (t EventType) String() string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Event is one entry of the append-only event log. Fields that do not apply to
// a type are left zero.
type Event struct {
	Seq             uint64
	Type            EventType
	MessageID       ids.ID
	Hash            common.Hash
	TransactionHash common.Hash
	Asset           common.Address
	Sender          common.Address
	Recipient       common.Address
	// Responsible is the signer of the signature or affirmation the event
	// reports, and for CollectedSignatures the one that completed quorum.
	Responsible   common.Address
	Value         *uint256.Int
	Remaining     *uint256.Int
	NumSignatures uint64
	Status        bool
	Data          []byte
}
