// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package fhevm checks plaintext inputs before they are handed to an FHE
// encryption routine.
//
// Values are coerced to arbitrary-precision integers and bounded by one of
// the unsigned integer types an FHE contract accepts (uint8 through uint256).
// Addresses are checked against the 0x-prefixed 20-byte hex form.
//
//	ok, err := fhevm.ValidateValue(4294967295, fhevm.Uint32) // true, nil
//	n, err := fhevm.ToBoundedInteger(256, fhevm.Uint8)       // *OutOfRangeError
//
// All functions are pure and safe for concurrent use.
package fhevm
