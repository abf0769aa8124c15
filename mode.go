// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package tokenbridge

import (
	"encoding/hex"
	"fmt"

	"github.com/luxfi/version"
)

// Mode identifies the bridge protocol flavor. Relayers use the mode tag and the
// interface version to select compatible decoding logic.
type Mode uint8

const (
	ArbitraryMessageMode Mode = iota + 1
	ErcToErcMode
	NativeToErcMode
	MultiTokenMode
)

var (
	// Version is the interface version of the core command and event surface
	Version = &version.Semantic{
		Major: 5,
		Minor: 2,
		Patch: 0,
	}

	modeNames = map[Mode]string{
		ArbitraryMessageMode: "arbitrary-message-bridge-core",
		ErcToErcMode:         "erc-to-erc-core",
		NativeToErcMode:      "native-to-erc-core",
		MultiTokenMode:       "multi-erc-to-erc-amb",
	}

	modeAliases = map[string]Mode{
		"amb":           ArbitraryMessageMode,
		"erc-to-erc":    ErcToErcMode,
		"native-to-erc": NativeToErcMode,
		"multi-token":   MultiTokenMode,
	}
)

// ParseMode accepts a short alias ("amb", "erc-to-erc", "native-to-erc",
// "multi-token") or a full mode name.
func ParseMode(s string) (Mode, error) {
	if m, ok := modeAliases[s]; ok {
		return m, nil
	}
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown bridge mode %q", ErrValidation, s)
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// Tag returns the four byte mode identifier
func (m Mode) Tag() [4]byte {
	return Keccak4(m.String())
}

// TagHex returns the mode tag as 0x-prefixed hex
func (m Mode) TagHex() string {
	tag := m.Tag()
	return "0x" + hex.EncodeToString(tag[:])
}

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// IsToken reports whether the mode moves assets rather than arbitrary calls
func (m Mode) IsToken() bool {
	return m.Valid() && m != ArbitraryMessageMode
}

// Side is the role of a core in a bridge pair
type Side uint8

const (
	Home Side = iota + 1
	Foreign
)

func (s Side) String() string {
	switch s {
	case Home:
		return "home"
	case Foreign:
		return "foreign"
	default:
		return "unknown"
	}
}

// ParseSide parses "home" or "foreign"
func ParseSide(s string) (Side, error) {
	switch s {
	case "home":
		return Home, nil
	case "foreign":
		return Foreign, nil
	default:
		return 0, fmt.Errorf("%w: unknown bridge side %q", ErrValidation, s)
	}
}
