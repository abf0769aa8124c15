// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

// Package state persists bridge state in namespaced key-value tables. The
// protocol logic holds no state of its own and operates through Store, so the
// backing database can be swapped without migrating logic.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"

	"github.com/luxfi/tokenbridge"
)

// Namespace separates signature bookkeeping for outbound messages from
// bookkeeping for inbound affirmations
type Namespace uint8

const (
	MessageSignatures Namespace = iota
	Affirmations
)

var (
	metaPrefix         = []byte("meta")
	messagePrefix      = []byte("message")
	signaturePrefix    = []byte("signature")
	affirmationPrefix  = []byte("affirmation")
	executionPrefix    = []byte("execution")
	limitsPrefix       = []byte("limits")
	spentPrefix        = []byte("spent")
	executedPrefix     = []byte("executed")
	outOfLimitPrefix   = []byte("outoflimit")
	pendingFeePrefix   = []byte("pendingfee")
	callPrefix         = []byte("call")
	relayedPrefix      = []byte("relayed")
	eventPrefix        = []byte("event")
	nonceKey           = []byte("nonce")
	ownerKey           = []byte("owner")
	maxGasKey          = []byte("maxgas")
	feeConfigKey       = []byte("fees")
	outOfLimitTotalKey = []byte("outoflimit")
	eventSeqKey        = []byte("eventseq")

	relayedValue = []byte{1}
)

// Store is the typed view of bridge state over a database
type Store struct {
	meta         database.Database
	messages     database.Database
	signatures   database.Database
	affirmations database.Database
	execution    database.Database
	limits       database.Database
	spent        database.Database
	executed     database.Database
	outOfLimit   database.Database
	pendingFees  database.Database
	calls        database.Database
	relayed      database.Database
	events       database.Database
}

// New returns a store over db
func New(db database.Database) *Store {
	return &Store{
		meta:         prefixdb.New(metaPrefix, db),
		messages:     prefixdb.New(messagePrefix, db),
		signatures:   prefixdb.New(signaturePrefix, db),
		affirmations: prefixdb.New(affirmationPrefix, db),
		execution:    prefixdb.New(executionPrefix, db),
		limits:       prefixdb.New(limitsPrefix, db),
		spent:        prefixdb.New(spentPrefix, db),
		executed:     prefixdb.New(executedPrefix, db),
		outOfLimit:   prefixdb.New(outOfLimitPrefix, db),
		pendingFees:  prefixdb.New(pendingFeePrefix, db),
		calls:        prefixdb.New(callPrefix, db),
		relayed:      prefixdb.New(relayedPrefix, db),
		events:       prefixdb.New(eventPrefix, db),
	}
}

// Nonce returns the next outbound nonce
func (s *Store) Nonce() (uint64, error) {
	return getUint64(s.meta, nonceKey)
}

// SetNonce stores the next outbound nonce
func (s *Store) SetNonce(n uint64) error {
	return putUint64(s.meta, nonceKey, n)
}

// Owner returns the governance identity
func (s *Store) Owner() (common.Address, error) {
	b, err := s.meta.Get(ownerKey)
	if errors.Is(err, database.ErrNotFound) {
		return common.Address{}, nil
	}
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(b), nil
}

func (s *Store) SetOwner(owner common.Address) error {
	return s.meta.Put(ownerKey, owner.Bytes())
}

// MaxGasPerTx returns the stored gas ceiling, and false if none is stored
func (s *Store) MaxGasPerTx() (uint32, bool, error) {
	b, err := s.meta.Get(maxGasKey)
	if errors.Is(err, database.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(b) != 4 {
		return 0, false, fmt.Errorf("corrupt max gas value of length %d", len(b))
	}
	return binary.BigEndian.Uint32(b), true, nil
}

func (s *Store) SetMaxGasPerTx(gas uint32) error {
	return s.meta.Put(maxGasKey, binary.BigEndian.AppendUint32(nil, gas))
}

// Message returns the encoded outbound message with the given id
func (s *Store) Message(id ids.ID) ([]byte, error) {
	b, err := s.messages.Get(id[:])
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", tokenbridge.ErrMessageNotFound, common.Hash(id).Hex())
	}
	return b, err
}

func (s *Store) PutMessage(id ids.ID, b []byte) error {
	return s.messages.Put(id[:], b)
}

// Signatures returns the record for hash, empty if nothing was signed
func (s *Store) Signatures(ns Namespace, hash common.Hash) (*SignatureRecord, error) {
	r := &SignatureRecord{}
	if _, err := getRecord(s.signatureDB(ns), hash.Bytes(), r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) PutSignatures(ns Namespace, hash common.Hash, r *SignatureRecord) error {
	return putRecord(s.signatureDB(ns), hash.Bytes(), r)
}

func (s *Store) signatureDB(ns Namespace) database.Database {
	if ns == Affirmations {
		return s.affirmations
	}
	return s.signatures
}

// ExecutionStatus returns the outcome recorded for hash, or nil
func (s *Store) ExecutionStatus(hash common.Hash) (*ExecutionStatus, error) {
	r := &ExecutionStatus{}
	found, err := getRecord(s.execution, hash.Bytes(), r)
	if err != nil || !found {
		return nil, err
	}
	return r, nil
}

func (s *Store) PutExecutionStatus(hash common.Hash, r *ExecutionStatus) error {
	return putRecord(s.execution, hash.Bytes(), r)
}

// Limits returns the configuration of asset. Unconfigured assets have all
// limits zero.
func (s *Store) Limits(asset common.Address) (*Limits, error) {
	l := &Limits{}
	if _, err := getRecord(s.limits, asset.Bytes(), l); err != nil {
		return nil, err
	}
	return l.Copy(), nil
}

func (s *Store) PutLimits(asset common.Address, l *Limits) error {
	return putRecord(s.limits, asset.Bytes(), l.Copy())
}

// TotalSpent returns the outbound value reserved for asset on day
func (s *Store) TotalSpent(asset common.Address, day uint64) (*uint256.Int, error) {
	return getUint256(s.spent, dayKey(asset, day))
}

func (s *Store) SetTotalSpent(asset common.Address, day uint64, v *uint256.Int) error {
	return putUint256(s.spent, dayKey(asset, day), v)
}

// TotalExecuted returns the inbound value executed for asset on day
func (s *Store) TotalExecuted(asset common.Address, day uint64) (*uint256.Int, error) {
	return getUint256(s.executed, dayKey(asset, day))
}

func (s *Store) SetTotalExecuted(asset common.Address, day uint64, v *uint256.Int) error {
	return putUint256(s.executed, dayKey(asset, day), v)
}

// OutOfLimit returns the entry for txHash, or nil
func (s *Store) OutOfLimit(txHash common.Hash) (*OutOfLimitEntry, error) {
	e := &OutOfLimitEntry{}
	found, err := getRecord(s.outOfLimit, txHash.Bytes(), e)
	if err != nil || !found {
		return nil, err
	}
	return e, nil
}

func (s *Store) PutOutOfLimit(txHash common.Hash, e *OutOfLimitEntry) error {
	return putRecord(s.outOfLimit, txHash.Bytes(), e)
}

// OutOfLimitTotal is the sum of all remaining out-of-limit value
func (s *Store) OutOfLimitTotal() (*uint256.Int, error) {
	return getUint256(s.meta, outOfLimitTotalKey)
}

func (s *Store) SetOutOfLimitTotal(v *uint256.Int) error {
	return putUint256(s.meta, outOfLimitTotalKey, v)
}

// FeeConfig returns the fee configuration, NoFee when unset
func (s *Store) FeeConfig() (*FeeConfig, error) {
	c := &FeeConfig{}
	if _, err := getRecord(s.meta, feeConfigKey, c); err != nil {
		return nil, err
	}
	c.HomeFee = orZero(c.HomeFee)
	c.ForeignFee = orZero(c.ForeignFee)
	return c, nil
}

func (s *Store) PutFeeConfig(c *FeeConfig) error {
	return putRecord(s.meta, feeConfigKey, c)
}

// PendingFee returns the fee withheld for an outbound message hash, or nil
func (s *Store) PendingFee(hash common.Hash) (*PendingFee, error) {
	f := &PendingFee{}
	found, err := getRecord(s.pendingFees, hash.Bytes(), f)
	if err != nil || !found {
		return nil, err
	}
	return f, nil
}

func (s *Store) PutPendingFee(hash common.Hash, f *PendingFee) error {
	return putRecord(s.pendingFees, hash.Bytes(), f)
}

func (s *Store) DeletePendingFee(hash common.Hash) error {
	return s.pendingFees.Delete(hash.Bytes())
}

// CallStatus returns the call outcome of a message, or nil
func (s *Store) CallStatus(id ids.ID) (*CallStatus, error) {
	c := &CallStatus{}
	found, err := getRecord(s.calls, id[:], c)
	if err != nil || !found {
		return nil, err
	}
	return c, nil
}

func (s *Store) PutCallStatus(c *CallStatus) error {
	return putRecord(s.calls, c.MessageID[:], c)
}

// IsRelayed reports whether a collected message was executed here
func (s *Store) IsRelayed(key common.Hash) (bool, error) {
	return s.relayed.Has(key.Bytes())
}

func (s *Store) MarkRelayed(key common.Hash) error {
	return s.relayed.Put(key.Bytes(), relayedValue)
}

// LastEventSeq returns the sequence number of the newest event, 0 if none
func (s *Store) LastEventSeq() (uint64, error) {
	return getUint64(s.meta, eventSeqKey)
}

// AppendEvent assigns the next sequence number to e and stores it
func (s *Store) AppendEvent(e *tokenbridge.Event) error {
	last, err := s.LastEventSeq()
	if err != nil {
		return err
	}
	e.Seq = last + 1
	if err := putRecord(s.events, seqKey(e.Seq), e); err != nil {
		return err
	}
	return putUint64(s.meta, eventSeqKey, e.Seq)
}

// Events returns up to limit events with sequence numbers greater than after
func (s *Store) Events(after uint64, limit int) ([]*tokenbridge.Event, error) {
	last, err := s.LastEventSeq()
	if err != nil {
		return nil, err
	}
	var out []*tokenbridge.Event
	for seq := after + 1; seq <= last && len(out) < limit; seq++ {
		e := &tokenbridge.Event{}
		found, err := getRecord(s.events, seqKey(seq), e)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("missing event %d", seq)
		}
		out = append(out, e)
	}
	return out, nil
}

func getRecord(db database.Database, key []byte, v interface{}) (bool, error) {
	b, err := db.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := Codec.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("failed to decode record %x: %w", key, err)
	}
	return true, nil
}

func putRecord(db database.Database, key []byte, v interface{}) error {
	b, err := Codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record %x: %w", key, err)
	}
	return db.Put(key, b)
}

func getUint64(db database.Database, key []byte) (uint64, error) {
	b, err := db.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(b) != 8 {
		return 0, fmt.Errorf("corrupt uint64 value of length %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

func putUint64(db database.Database, key []byte, v uint64) error {
	return db.Put(key, binary.BigEndian.AppendUint64(nil, v))
}

func getUint256(db database.Database, key []byte) (*uint256.Int, error) {
	b, err := db.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(b), nil
}

func putUint256(db database.Database, key []byte, v *uint256.Int) error {
	b := v.Bytes32()
	return db.Put(key, b[:])
}

func dayKey(asset common.Address, day uint64) []byte {
	return binary.BigEndian.AppendUint64(asset.Bytes(), day)
}

func seqKey(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, seq)
}
