// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package signer

import (
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

const testKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestLocalSignerAddress(t *testing.T) {
	require := require.New(t)

	s, err := NewLocalSignerFromHex(testKey)
	require.NoError(err)
	require.Equal(common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"), s.Address())
}

func TestNewLocalSignerFromHexErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "not hex", key: "0xzz"},
		{name: "short", key: "0x0102"},
		{name: "empty", key: ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewLocalSignerFromHex(test.key)
			require.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestDigest(t *testing.T) {
	require.Equal(t,
		common.HexToHash("0x1da44b586eb0729ff70a73c326926f6ed5a25f5b056e7f47fbc6e58d86871655"),
		Digest([]byte("Some data")),
	)
}

func TestSignAndRecover(t *testing.T) {
	require := require.New(t)

	s, err := GenerateLocalSigner()
	require.NoError(err)

	message := []byte("bridge message")
	sig, err := s.Sign(message)
	require.NoError(err)
	require.Len(sig, SignatureLen)
	require.Contains([]byte{27, 28}, sig[SignatureLen-1])

	addr, err := RecoverAddress(Digest(message), sig)
	require.NoError(err)
	require.Equal(s.Address(), addr)

	// raw recovery ids are accepted
	raw := common.CopyBytes(sig)
	raw[SignatureLen-1] -= 27
	addr, err = RecoverAddress(Digest(message), raw)
	require.NoError(err)
	require.Equal(s.Address(), addr)

	// another message recovers another address
	addr, err = RecoverAddress(Digest([]byte("other")), sig)
	if err == nil {
		require.NotEqual(s.Address(), addr)
	}
}

func TestRecoverAddressErrors(t *testing.T) {
	s, err := GenerateLocalSigner()
	require.NoError(t, err)
	sig, err := s.Sign([]byte("m"))
	require.NoError(t, err)

	badV := common.CopyBytes(sig)
	badV[SignatureLen-1] = 30

	tests := []struct {
		name string
		sig  []byte
		err  error
	}{
		{name: "short", sig: sig[:64], err: errSignatureLength},
		{name: "long", sig: append(common.CopyBytes(sig), 0), err: errSignatureLength},
		{name: "recovery id", sig: badV, err: errRecoveryID},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := RecoverAddress(Digest([]byte("m")), test.sig)
			require.ErrorIs(t, err, test.err)
		})
	}
}

func TestVerifier(t *testing.T) {
	require := require.New(t)

	s, err := GenerateLocalSigner()
	require.NoError(err)
	v, err := NewVerifier(DefaultRecoveryCacheSize)
	require.NoError(err)

	message := []byte("cached")
	sig, err := s.Sign(message)
	require.NoError(err)

	for i := 0; i < 2; i++ {
		addr, err := v.Recover(message, sig)
		require.NoError(err)
		require.Equal(s.Address(), addr)
	}

	_, err = v.Recover(message, sig[:10])
	require.ErrorIs(err, errSignatureLength)
}
