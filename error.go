// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package tokenbridge

import (
	"errors"
	"fmt"
)

// ErrorKind classifies protocol errors. Every kind is deterministic given
// state and input.
type ErrorKind int32

const (
	KindValidation ErrorKind = iota + 1
	KindAuthorization
	KindReplay
	KindLimit
	KindDownstream
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindReplay:
		return "replay"
	case KindLimit:
		return "limit"
	case KindDownstream:
		return "downstream call"
	default:
		return "unknown"
	}
}

// Error represents a bridge protocol error
type Error struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s error", e.Kind)
	}
	return e.Message
}

// Is reports whether target is the class sentinel of e's kind, so that
// errors.Is(ErrAlreadySigned, ErrReplay) holds.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// KindOf returns the kind of the first protocol error in err's chain, or 0
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Class sentinels
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrReplay        = &Error{Kind: KindReplay}
	ErrLimit         = &Error{Kind: KindLimit}
	ErrDownstream    = &Error{Kind: KindDownstream}
)

var (
	ErrMalformedMessage      = newError(KindValidation, "malformed message")
	ErrWrongDestination      = newError(KindValidation, "wrong destination chain")
	ErrGasOutOfBounds        = newError(KindValidation, "gas limit out of bounds")
	ErrInvalidSignature      = newError(KindValidation, "invalid signature")
	ErrInvalidLimits         = newError(KindValidation, "invalid limits")
	ErrFeeTooHigh            = newError(KindValidation, "fee too high")
	ErrInvalidDecimalShift   = newError(KindValidation, "decimal shift out of range")
	ErrInvalidChainID        = newError(KindValidation, "invalid chain id")
	ErrValueOverflow         = newError(KindValidation, "value overflow")
	ErrZeroValue             = newError(KindValidation, "zero value")
	ErrZeroAddress           = newError(KindValidation, "zero address")
	ErrUnsupportedMode       = newError(KindValidation, "operation not supported by bridge mode")
	ErrUnsupportedSide       = newError(KindValidation, "operation not supported on this bridge side")
	ErrUnsupportedAsset      = newError(KindValidation, "asset is not bridged")
	ErrBridgedAsset          = newError(KindValidation, "asset is bridged and cannot be claimed")
	ErrNothingToClaim        = newError(KindValidation, "nothing to claim")
	ErrDebitFailed           = newError(KindValidation, "asset debit failed")
	ErrNoSuchEntry           = newError(KindValidation, "no such out-of-limit entry")
	ErrAmountTooHigh         = newError(KindValidation, "amount exceeds remaining out-of-limit value")
	ErrDuplicateSignature    = newError(KindValidation, "duplicate signature")
	ErrFeeManagerNotSet      = newError(KindValidation, "fee manager not set")
	ErrMessageNotFound       = newError(KindValidation, "message not found")
	ErrNotFailed             = newError(KindValidation, "message call did not fail")
	ErrInvalidThreshold      = newError(KindValidation, "invalid required signatures")
	ErrNotAValidator         = newError(KindAuthorization, "not a validator")
	ErrNotOwner              = newError(KindAuthorization, "caller is not the owner")
	ErrInsufficientSignature = newError(KindAuthorization, "insufficient signatures")
	ErrAlreadySigned         = newError(KindReplay, "already signed")
	ErrAlreadyProcessed      = newError(KindReplay, "already processed")
	ErrBelowMinPerTx         = newError(KindLimit, "value below min per tx")
	ErrAboveMaxPerTx         = newError(KindLimit, "value above max per tx")
	ErrDailyLimitExceeded    = newError(KindLimit, "daily limit exceeded")
	ErrAssetDisabled         = newError(KindLimit, "asset disabled")
	ErrCallFailed            = newError(KindDownstream, "downstream call failed")
)
