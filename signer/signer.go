// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package signer produces and verifies validator signatures over bridge
// messages. Signatures are 65 byte recoverable secp256k1 signatures
// (r ‖ s ‖ v, v in {27, 28}) over the personal-message digest of the payload.
package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/accounts"
	"github.com/luxfi/geth/common"
)

const (
	SignatureLen = crypto.SignatureLength

	// signatures leave this package with v shifted by 27
	recoveryBase = 27
)

var (
	ErrInvalidKey      = errors.New("invalid private key")
	errSignatureLength = errors.New("invalid signature length")
	errRecoveryID      = errors.New("invalid recovery id")
)

// Signer signs bridge messages on behalf of one validator
type Signer interface {
	// Sign returns a signature over message's personal-message digest
	Sign(message []byte) ([]byte, error)

	// Address returns the validator address the signatures recover to
	Address() common.Address
}

// LocalSigner signs messages with an in-memory secp256k1 key
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewLocalSigner creates a new local signer
func NewLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{
		key:     key,
		address: common.Address(crypto.PubkeyToAddress(key.PublicKey)),
	}
}

// NewLocalSignerFromHex parses a hex encoded 32 byte private key
func NewLocalSignerFromHex(s string) (*LocalSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return NewLocalSigner(key), nil
}

// GenerateLocalSigner creates a signer with a fresh random key
func GenerateLocalSigner() (*LocalSigner, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return NewLocalSigner(key), nil
}

// Sign signs a message
func (s *LocalSigner) Sign(message []byte) ([]byte, error) {
	digest := Digest(message)
	sig, err := crypto.Sign(digest[:], s.key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += recoveryBase
	return sig, nil
}

// Address returns the signer's validator address
func (s *LocalSigner) Address() common.Address {
	return s.address
}

// Digest returns keccak256("\x19Ethereum Signed Message:\n" ‖ len ‖ message)
func Digest(message []byte) common.Hash {
	return common.BytesToHash(accounts.TextHash(message))
}

// RecoverAddress returns the address whose key produced sig over digest. Both
// v in {27, 28} and raw recovery ids are accepted.
func RecoverAddress(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLen {
		return common.Address{}, fmt.Errorf("%w: %d", errSignatureLength, len(sig))
	}
	v := sig[crypto.RecoveryIDOffset]
	if v >= recoveryBase {
		v -= recoveryBase
	}
	if v > 1 {
		return common.Address{}, fmt.Errorf("%w: %d", errRecoveryID, sig[crypto.RecoveryIDOffset])
	}

	raw := common.CopyBytes(sig)
	raw[crypto.RecoveryIDOffset] = v
	pub, err := crypto.SigToPub(digest[:], raw)
	if err != nil {
		return common.Address{}, err
	}
	return common.Address(crypto.PubkeyToAddress(*pub)), nil
}
