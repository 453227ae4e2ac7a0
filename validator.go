// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhevm

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// ValidateValue reports whether value is representable in tag.
//
// An empty tag means DefaultTypeTag. Out-of-range values, negatives included,
// yield false with a nil error; an error is returned only for malformed input
// or an unsupported tag.
func ValidateValue(value any, tag TypeTag) (bool, error) {
	_, err := ToBoundedInteger(value, tag)
	if err == nil {
		return true, nil
	}
	var rangeErr *OutOfRangeError
	if errors.As(err, &rangeErr) {
		return false, nil
	}
	return false, err
}

// ToBoundedInteger coerces value and checks it against tag, returning the
// integer on success and *OutOfRangeError when it falls outside [0, max(tag)].
func ToBoundedInteger(value any, tag TypeTag) (*big.Int, error) {
	t, err := tag.resolve()
	if err != nil {
		return nil, err
	}
	n, err := ToBigInt(value)
	if err != nil {
		return nil, err
	}
	if n.Sign() < 0 {
		return nil, &OutOfRangeError{Value: n, Bound: new(big.Int), Tag: t}
	}
	if n.Cmp(maxima[t]) > 0 {
		return nil, &OutOfRangeError{Value: n, Bound: t.Max(), Tag: t}
	}
	return n, nil
}

// BoundedValue is an integer known to fit its tag.
type BoundedValue struct {
	value *big.Int
	tag   TypeTag
}

// NewBoundedValue validates value against tag and pairs them.
func NewBoundedValue(value any, tag TypeTag) (BoundedValue, error) {
	n, err := ToBoundedInteger(value, tag)
	if err != nil {
		return BoundedValue{}, err
	}
	t, _ := tag.resolve()
	return BoundedValue{value: n, tag: t}, nil
}

// Value returns a copy of the integer.
func (b BoundedValue) Value() *big.Int {
	if b.value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.value)
}

// Tag returns the tag the value was checked against.
func (b BoundedValue) Tag() TypeTag {
	return b.tag
}

// Uint256 returns the value as an EVM word. Every supported tag fits.
func (b BoundedValue) Uint256() *uint256.Int {
	v, _ := uint256.FromBig(b.Value())
	return v
}

// Bytes32 returns the big-endian 32-byte encoding used in contract calls.
func (b BoundedValue) Bytes32() [32]byte {
	return b.Uint256().Bytes32()
}

// Hex returns the 0x-prefixed minimal hex encoding of the value.
func (b BoundedValue) Hex() string {
	return b.Uint256().Hex()
}

func (b BoundedValue) String() string {
	return b.Value().String() + ":" + b.tag.String()
}

// Validator applies a configured default tag to calls that omit one.
type Validator struct {
	defaultTag TypeTag
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator) error

// WithDefaultTag sets the tag used when a call passes an empty tag.
func WithDefaultTag(tag TypeTag) ValidatorOption {
	return func(v *Validator) error {
		t, err := tag.resolve()
		if err != nil {
			return err
		}
		v.defaultTag = t
		return nil
	}
}

// NewValidator creates a Validator. Without options it defaults to uint8.
func NewValidator(opts ...ValidatorOption) (*Validator, error) {
	v := &Validator{defaultTag: DefaultTypeTag}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// DefaultTag returns the tag applied to calls that omit one.
func (v *Validator) DefaultTag() TypeTag {
	return v.defaultTag
}

func (v *Validator) tag(tag TypeTag) TypeTag {
	if tag == "" {
		return v.defaultTag
	}
	return tag
}

// ValidateValue is the package-level ValidateValue with the configured default.
func (v *Validator) ValidateValue(value any, tag TypeTag) (bool, error) {
	return ValidateValue(value, v.tag(tag))
}

// ToBoundedInteger is the package-level ToBoundedInteger with the configured default.
func (v *Validator) ToBoundedInteger(value any, tag TypeTag) (*big.Int, error) {
	return ToBoundedInteger(value, v.tag(tag))
}

// NewBoundedValue is the package-level NewBoundedValue with the configured default.
func (v *Validator) NewBoundedValue(value any, tag TypeTag) (BoundedValue, error) {
	return NewBoundedValue(value, v.tag(tag))
}

// ValidateAddress reports whether address is syntactically valid.
func (v *Validator) ValidateAddress(address string) bool {
	return ValidateAddress(address)
}
