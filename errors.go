// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhevm

import (
	"errors"
	"fmt"
	"math/big"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrMalformedInput  = errors.New("malformed input")
	ErrOutOfRange      = errors.New("value out of range")
	ErrUnsupportedType = errors.New("unsupported type")
	ErrInvalidAddress  = errors.New("invalid address format")
)

// MalformedInputError indicates a value that cannot be coerced to an integer
// without loss.
type MalformedInputError struct {
	Input  string
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input %q: %s", e.Input, e.Reason)
}

func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }

// OutOfRangeError indicates an integer outside [0, max(Tag)].
//
// Bound is the bound that was violated: 0 for negative values, the tag's
// maximum otherwise.
type OutOfRangeError struct {
	Value *big.Int
	Bound *big.Int
	Tag   TypeTag
}

func (e *OutOfRangeError) Error() string {
	if e.Value.Sign() < 0 {
		return fmt.Sprintf("value %s out of range for %s, min %s", e.Value, e.Tag, e.Bound)
	}
	return fmt.Sprintf("value %s out of range for %s, max %s", e.Value, e.Tag, e.Bound)
}

func (e *OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }

// UnsupportedTypeError indicates a tag that is not one of the recognized
// unsigned integer types.
type UnsupportedTypeError struct {
	Tag string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported type %q: expected one of uint8, uint16, uint32, uint64, uint128, uint256", e.Tag)
}

func (e *UnsupportedTypeError) Is(target error) bool { return target == ErrUnsupportedType }

// InvalidAddressFormatError indicates a string that is not a 0x-prefixed,
// 40 hex character address.
type InvalidAddressFormatError struct {
	Address string
}

func (e *InvalidAddressFormatError) Error() string {
	return fmt.Sprintf("invalid address %q: must match %s", e.Address, addressPattern)
}

func (e *InvalidAddressFormatError) Is(target error) bool { return target == ErrInvalidAddress }

// IsValidationError reports whether err stems from caller input rather than
// from an infrastructure failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMalformedInput) ||
		errors.Is(err, ErrOutOfRange) ||
		errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrInvalidAddress)
}
