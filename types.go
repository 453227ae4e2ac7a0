// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhevm

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// TypeTag identifies a fixed-width unsigned integer domain accepted by the
// encryption routine.
type TypeTag string

const (
	Uint8   TypeTag = "uint8"
	Uint16  TypeTag = "uint16"
	Uint32  TypeTag = "uint32"
	Uint64  TypeTag = "uint64"
	Uint128 TypeTag = "uint128"
	Uint256 TypeTag = "uint256"

	// DefaultTypeTag is used when a caller omits the tag.
	DefaultTypeTag = Uint8
)

var (
	supportedTags = []TypeTag{Uint8, Uint16, Uint32, Uint64, Uint128, Uint256}

	// maxima is built once at init and never mutated; Max hands out copies.
	maxima = func() map[TypeTag]*big.Int {
		m := make(map[TypeTag]*big.Int, len(supportedTags))
		one := big.NewInt(1)
		for _, t := range supportedTags {
			v := new(big.Int).Lsh(one, uint(t.Bits()))
			m[t] = v.Sub(v, one)
		}
		return m
	}()
)

// SupportedTypeTags returns the recognized tags in ascending width.
func SupportedTypeTags() []TypeTag {
	out := make([]TypeTag, len(supportedTags))
	copy(out, supportedTags)
	return out
}

// Bits returns the bit width of the tag, or 0 if the tag is not recognized.
func (t TypeTag) Bits() int {
	switch t {
	case Uint8:
		return 8
	case Uint16:
		return 16
	case Uint32:
		return 32
	case Uint64:
		return 64
	case Uint128:
		return 128
	case Uint256:
		return 256
	default:
		return 0
	}
}

func (t TypeTag) String() string {
	return string(t)
}

// Supported reports whether t is one of the six recognized tags.
func (t TypeTag) Supported() bool {
	return t.Bits() != 0
}

// resolve maps the omitted tag to DefaultTypeTag and rejects anything unknown.
func (t TypeTag) resolve() (TypeTag, error) {
	if t == "" {
		return DefaultTypeTag, nil
	}
	if !t.Supported() {
		return "", &UnsupportedTypeError{Tag: string(t)}
	}
	return t, nil
}

// Max returns 2^bits - 1 for the tag. The result is a fresh copy.
// Max returns nil for an unsupported tag.
func (t TypeTag) Max() *big.Int {
	m, ok := maxima[t]
	if !ok {
		return nil
	}
	return new(big.Int).Set(m)
}

// MaxUint256 returns the tag's maximum as an EVM word.
func (t TypeTag) MaxUint256() *uint256.Int {
	m, ok := maxima[t]
	if !ok {
		return nil
	}
	v, _ := uint256.FromBig(m)
	return v
}

// ParseTypeTag parses a tag name. Names are case-insensitive and the "euint"
// prefix used by FHE contract types is accepted as an alias.
func ParseTypeTag(s string) (TypeTag, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return DefaultTypeTag, nil
	}
	name = strings.TrimPrefix(name, "e")
	t := TypeTag(name)
	if !t.Supported() {
		return "", &UnsupportedTypeError{Tag: s}
	}
	return t, nil
}

// TypeTagForBits returns the tag with the given bit width.
func TypeTagForBits(bits int) (TypeTag, error) {
	for _, t := range supportedTags {
		if t.Bits() == bits {
			return t, nil
		}
	}
	return "", &UnsupportedTypeError{Tag: "uint" + strconv.Itoa(bits)}
}
