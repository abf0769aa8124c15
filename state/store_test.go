// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/tokenbridge"
)

var (
	testAsset     = common.HexToAddress("0x3000000000000000000000000000000000000003")
	testRecipient = common.HexToAddress("0x6000000000000000000000000000000000000006")
	testHash      = common.HexToHash("0xabcdef")
)

func TestStoreDefaults(t *testing.T) {
	require := require.New(t)
	s := New(memdb.New())

	nonce, err := s.Nonce()
	require.NoError(err)
	require.Zero(nonce)

	owner, err := s.Owner()
	require.NoError(err)
	require.Equal(common.Address{}, owner)

	_, ok, err := s.MaxGasPerTx()
	require.NoError(err)
	require.False(ok)

	limits, err := s.Limits(testAsset)
	require.NoError(err)
	require.True(limits.DailyLimit.IsZero())
	require.True(limits.ExecutionMaxPerTx.IsZero())

	spent, err := s.TotalSpent(testAsset, 19_000)
	require.NoError(err)
	require.True(spent.IsZero())

	entry, err := s.OutOfLimit(testHash)
	require.NoError(err)
	require.Nil(entry)

	fees, err := s.FeeConfig()
	require.NoError(err)
	require.Zero(fees.Kind)
	require.True(fees.HomeFee.IsZero())

	record, err := s.Signatures(MessageSignatures, testHash)
	require.NoError(err)
	require.False(record.Collected)
	require.Zero(record.Count())

	_, err = s.Message(ids.GenerateTestID())
	require.ErrorIs(err, tokenbridge.ErrMessageNotFound)
}

func TestStoreMeta(t *testing.T) {
	require := require.New(t)
	s := New(memdb.New())

	require.NoError(s.SetNonce(7))
	require.NoError(s.SetOwner(testRecipient))
	require.NoError(s.SetMaxGasPerTx(2_000_000))
	require.NoError(s.SetOutOfLimitTotal(uint256.NewInt(55)))

	nonce, err := s.Nonce()
	require.NoError(err)
	require.Equal(uint64(7), nonce)

	owner, err := s.Owner()
	require.NoError(err)
	require.Equal(testRecipient, owner)

	gas, ok, err := s.MaxGasPerTx()
	require.NoError(err)
	require.True(ok)
	require.Equal(uint32(2_000_000), gas)

	total, err := s.OutOfLimitTotal()
	require.NoError(err)
	require.Equal(uint64(55), total.Uint64())
}

func TestStoreRecords(t *testing.T) {
	require := require.New(t)
	s := New(memdb.New())

	limits := &Limits{
		DailyLimit: uint256.NewInt(1000),
		MaxPerTx:   uint256.NewInt(100),
		MinPerTx:   uint256.NewInt(1),
	}
	require.NoError(s.PutLimits(testAsset, limits))
	got, err := s.Limits(testAsset)
	require.NoError(err)
	require.Equal(uint64(1000), got.DailyLimit.Uint64())
	require.Equal(uint64(100), got.MaxPerTx.Uint64())
	require.True(got.ExecutionDailyLimit.IsZero())

	// returned limits are copies
	got.DailyLimit.SetUint64(1)
	again, err := s.Limits(testAsset)
	require.NoError(err)
	require.Equal(uint64(1000), again.DailyLimit.Uint64())

	record := &SignatureRecord{
		Signers:     []common.Address{testRecipient},
		Signatures:  [][]byte{{1, 2, 3}},
		Message:     []byte{4, 5},
		Responsible: testRecipient,
	}
	require.NoError(s.PutSignatures(Affirmations, testHash, record))
	stored, err := s.Signatures(Affirmations, testHash)
	require.NoError(err)
	require.True(stored.HasSigned(testRecipient))
	require.Equal([][]byte{{1, 2, 3}}, stored.Signatures)

	// namespaces are disjoint
	other, err := s.Signatures(MessageSignatures, testHash)
	require.NoError(err)
	require.Zero(other.Count())

	require.NoError(s.PutOutOfLimit(testHash, &OutOfLimitEntry{
		Asset:     testAsset,
		Recipient: testRecipient,
		Value:     uint256.NewInt(500),
		Remaining: uint256.NewInt(200),
	}))
	entry, err := s.OutOfLimit(testHash)
	require.NoError(err)
	require.Equal(testRecipient, entry.Recipient)
	require.Equal(uint64(200), entry.Remaining.Uint64())

	id := ids.GenerateTestID()
	require.NoError(s.PutCallStatus(&CallStatus{
		MessageID: id,
		Sender:    testRecipient,
		GasLimit:  50_000,
		Data:      []byte{0xff},
		Retries:   2,
	}))
	call, err := s.CallStatus(id)
	require.NoError(err)
	require.False(call.Success)
	require.Equal(uint64(2), call.Retries)
	require.Equal([]byte{0xff}, call.Data)

	relayed, err := s.IsRelayed(testHash)
	require.NoError(err)
	require.False(relayed)
	require.NoError(s.MarkRelayed(testHash))
	relayed, err = s.IsRelayed(testHash)
	require.NoError(err)
	require.True(relayed)

	require.NoError(s.PutPendingFee(testHash, &PendingFee{Asset: testAsset, Amount: uint256.NewInt(3)}))
	fee, err := s.PendingFee(testHash)
	require.NoError(err)
	require.Equal(uint64(3), fee.Amount.Uint64())
	require.NoError(s.DeletePendingFee(testHash))
	fee, err = s.PendingFee(testHash)
	require.NoError(err)
	require.Nil(fee)
}

func TestStoreDailyTotals(t *testing.T) {
	require := require.New(t)
	s := New(memdb.New())

	require.NoError(s.SetTotalSpent(testAsset, 10, uint256.NewInt(40)))
	require.NoError(s.SetTotalExecuted(testAsset, 10, uint256.NewInt(60)))

	spent, err := s.TotalSpent(testAsset, 10)
	require.NoError(err)
	require.Equal(uint64(40), spent.Uint64())

	// a new day starts from zero
	spent, err = s.TotalSpent(testAsset, 11)
	require.NoError(err)
	require.True(spent.IsZero())

	executed, err := s.TotalExecuted(testAsset, 10)
	require.NoError(err)
	require.Equal(uint64(60), executed.Uint64())
}

func TestStoreEvents(t *testing.T) {
	require := require.New(t)
	s := New(memdb.New())

	for i := uint64(1); i <= 5; i++ {
		e := &tokenbridge.Event{
			Type:      tokenbridge.UserRequestForSignature,
			Recipient: testRecipient,
			Value:     uint256.NewInt(i * 10),
			Data:      []byte{byte(i)},
		}
		require.NoError(s.AppendEvent(e))
		require.Equal(i, e.Seq)
	}

	last, err := s.LastEventSeq()
	require.NoError(err)
	require.Equal(uint64(5), last)

	events, err := s.Events(0, 2)
	require.NoError(err)
	require.Len(events, 2)
	require.Equal(uint64(1), events[0].Seq)
	require.Equal(uint64(10), events[0].Value.Uint64())

	events, err = s.Events(3, 10)
	require.NoError(err)
	require.Len(events, 2)
	require.Equal(uint64(4), events[0].Seq)
	require.Equal(tokenbridge.UserRequestForSignature, events[1].Type)
	require.Equal([]byte{5}, events[1].Data)

	events, err = s.Events(5, 10)
	require.NoError(err)
	require.Empty(events)
}

func TestCodec(t *testing.T) {
	require := require.New(t)

	b, err := Codec.Marshal(&ExecutionStatus{Success: true})
	require.NoError(err)
	require.Equal(CodecVersion, b[0])

	var status ExecutionStatus
	require.NoError(Codec.Unmarshal(b, &status))
	require.True(status.Success)

	b[0] = CodecVersion + 1
	require.ErrorIs(Codec.Unmarshal(b, &status), errUnknownCodecVersion)
	require.ErrorIs(Codec.Unmarshal(nil, &status), errUnknownCodecVersion)
}
