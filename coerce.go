// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhevm

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// maxSafeFloat is the largest magnitude at which every integer is exactly
// representable as a float64 (2^53).
const maxSafeFloat = 1 << 53

// maxNumberBits caps the magnitude of exponent-form JSON numbers so that
// "1e999999" cannot force a huge allocation. It is far above any tag bound.
const maxNumberBits = 4096

// ToBigInt coerces value to an arbitrary-precision integer.
//
// Native integers, *big.Int, uint256 words, json.Number and decimal or
// 0x-prefixed hex strings are accepted. A json.Number may use fraction or
// exponent notation as long as its exact value is an integer. Floats are accepted only when they are
// finite, have no fractional part and lie within ±2^53. Everything else fails
// with *MalformedInputError; nothing is truncated.
func ToBigInt(value any) (*big.Int, error) {
	switch v := value.(type) {
	case nil:
		return nil, &MalformedInputError{Input: "<nil>", Reason: "value is nil"}
	case int:
		return big.NewInt(int64(v)), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case float32:
		return floatToBigInt(float64(v))
	case float64:
		return floatToBigInt(v)
	case *big.Int:
		if v == nil {
			return nil, &MalformedInputError{Input: "<nil>", Reason: "value is nil"}
		}
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case *uint256.Int:
		if v == nil {
			return nil, &MalformedInputError{Input: "<nil>", Reason: "value is nil"}
		}
		return v.ToBig(), nil
	case uint256.Int:
		return v.ToBig(), nil
	case json.Number:
		return numberToBigInt(string(v))
	case string:
		return stringToBigInt(v)
	default:
		return nil, &MalformedInputError{
			Input:  fmt.Sprintf("%v", value),
			Reason: fmt.Sprintf("unsupported numeric type %T", value),
		}
	}
}

func floatToBigInt(f float64) (*big.Int, error) {
	input := fmt.Sprintf("%v", f)
	switch {
	case math.IsNaN(f):
		return nil, &MalformedInputError{Input: input, Reason: "NaN is not an integer"}
	case math.IsInf(f, 0):
		return nil, &MalformedInputError{Input: input, Reason: "infinity is not an integer"}
	case f != math.Trunc(f):
		return nil, &MalformedInputError{Input: input, Reason: "fractional values are not integers"}
	case math.Abs(f) > maxSafeFloat:
		return nil, &MalformedInputError{Input: input, Reason: "float exceeds safe integer range 2^53, pass an integer or string"}
	}
	return big.NewInt(int64(f)), nil
}

// numberToBigInt accepts JSON numbers written with a fraction or exponent
// ("255.0", "1e2") when their exact value is integral.
func numberToBigInt(s string) (*big.Int, error) {
	if n, err := stringToBigInt(s); err == nil {
		return n, nil
	}

	f, _, err := big.ParseFloat(s, 10, 64, big.ToNearestEven)
	if err != nil || f.IsInf() {
		return nil, &MalformedInputError{Input: s, Reason: "not a number"}
	}
	if f.Sign() == 0 {
		return new(big.Int), nil
	}
	switch exp := f.MantExp(nil); {
	case exp <= 0:
		return nil, &MalformedInputError{Input: s, Reason: "fractional values are not integers"}
	case exp > maxNumberBits:
		return nil, &MalformedInputError{Input: s, Reason: "magnitude too large"}
	}

	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, &MalformedInputError{Input: s, Reason: "not a number"}
	}
	if !r.IsInt() {
		return nil, &MalformedInputError{Input: s, Reason: "fractional values are not integers"}
	}
	return new(big.Int).Set(r.Num()), nil
}

func stringToBigInt(s string) (*big.Int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, &MalformedInputError{Input: s, Reason: "empty string"}
	}

	neg := false
	digits := trimmed
	switch digits[0] {
	case '-':
		neg = true
		digits = digits[1:]
	case '+':
		digits = digits[1:]
	}

	base := 10
	if len(digits) > 2 && (digits[:2] == "0x" || digits[:2] == "0X") {
		base = 16
		digits = digits[2:]
	}

	// SetString would accept a second sign; reject it explicitly.
	n, ok := new(big.Int).SetString(digits, base)
	if !ok || digits == "" || digits[0] == '-' || digits[0] == '+' {
		return nil, &MalformedInputError{Input: s, Reason: "not an integer"}
	}
	if neg {
		n.Neg(n)
	}
	return n, nil
}
