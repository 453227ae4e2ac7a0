// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhevm

import (
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	n, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "bad literal %s", s)
	return n
}

func TestTypeTagMaxima(t *testing.T) {
	tests := []struct {
		tag  TypeTag
		bits int
		max  string
	}{
		{Uint8, 8, "255"},
		{Uint16, 16, "65535"},
		{Uint32, 32, "4294967295"},
		{Uint64, 64, "18446744073709551615"},
		{Uint128, 128, "340282366920938463463374607431768211455"},
		{Uint256, 256, "115792089237316195423570985008687907853269984665640564039457584007913129639935"},
	}

	for _, tc := range tests {
		t.Run(tc.tag.String(), func(t *testing.T) {
			require.Equal(t, tc.bits, tc.tag.Bits())
			require.True(t, tc.tag.Supported())
			require.Equal(t, tc.max, tc.tag.Max().String())
			require.Equal(t, tc.max, tc.tag.MaxUint256().Dec())
		})
	}
}

func TestMaxReturnsCopy(t *testing.T) {
	m := Uint8.Max()
	m.SetInt64(0)
	require.Equal(t, "255", Uint8.Max().String())

	ok, err := ValidateValue(255, Uint8)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestValidateValueBounds(t *testing.T) {
	one := big.NewInt(1)
	for _, tag := range SupportedTypeTags() {
		t.Run(tag.String(), func(t *testing.T) {
			max := tag.Max()

			ok, err := ValidateValue(max, tag)
			require.NoError(t, err)
			require.True(t, ok, "max must be valid")

			ok, err = ValidateValue(new(big.Int).Add(max, one), tag)
			require.NoError(t, err)
			require.False(t, ok, "max+1 must be invalid")

			ok, err = ValidateValue(-1, tag)
			require.NoError(t, err)
			require.False(t, ok, "negative must be invalid")

			ok, err = ValidateValue(0, tag)
			require.NoError(t, err)
			require.True(t, ok, "zero must be valid")
		})
	}
}

func TestValidateValueUint32(t *testing.T) {
	ok, err := ValidateValue(4294967295, Uint32)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = ValidateValue(4294967296, Uint32)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestValidateValueDefaultTag(t *testing.T) {
	ok, err := ValidateValue(255, "")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = ValidateValue(256, "")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestValidateValueInputKinds(t *testing.T) {
	tests := []struct {
		name  string
		value any
		tag   TypeTag
		want  bool
	}{
		{"int8", int8(7), Uint8, true},
		{"uint64 max", uint64(18446744073709551615), Uint64, true},
		{"uint64 max into uint32", uint64(18446744073709551615), Uint32, false},
		{"float integral", float64(65535), Uint16, true},
		{"float negative", float64(-3), Uint16, false},
		{"decimal string", "340282366920938463463374607431768211455", Uint128, true},
		{"hex string", "0xff", Uint8, true},
		{"hex string over", "0x100", Uint8, false},
		{"uint256 word", uint256.NewInt(70000), Uint16, false},
		{"big value", *big.NewInt(12), Uint8, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateValue(tc.value, tc.tag)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestValidateValueMalformed(t *testing.T) {
	inputs := []any{nil, "abc", "", "1.5", 1.5, struct{}{}, (*big.Int)(nil)}
	for _, in := range inputs {
		ok, err := ValidateValue(in, Uint8)
		require.False(t, ok)
		require.ErrorIs(t, err, ErrMalformedInput, "input %v", in)

		var malformed *MalformedInputError
		require.ErrorAs(t, err, &malformed)
	}
}

func TestValidateValueIdempotent(t *testing.T) {
	for _, v := range []any{0, 255, 256, -1, "0x10"} {
		first, err1 := ValidateValue(v, Uint8)
		second, err2 := ValidateValue(v, Uint8)
		require.Equal(t, first, second)
		require.Equal(t, err1, err2)
	}
}

func TestToBoundedIntegerOutOfRange(t *testing.T) {
	_, err := ToBoundedInteger(256, Uint8)
	require.Error(t, err)

	var rangeErr *OutOfRangeError
	require.True(t, errors.As(err, &rangeErr))
	require.Equal(t, "256", rangeErr.Value.String())
	require.Equal(t, "255", rangeErr.Bound.String())
	require.Equal(t, Uint8, rangeErr.Tag)
	require.Contains(t, err.Error(), "256")
	require.Contains(t, err.Error(), "255")
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = ToBoundedInteger(300, Uint8)
	require.EqualError(t, err, "value 300 out of range for uint8, max 255")
}

func TestToBoundedIntegerNegative(t *testing.T) {
	_, err := ToBoundedInteger(-5, Uint256)
	var rangeErr *OutOfRangeError
	require.ErrorAs(t, err, &rangeErr)
	require.Equal(t, 0, rangeErr.Bound.Sign())
	require.EqualError(t, err, "value -5 out of range for uint256, min 0")
}

func TestToBoundedIntegerUnsupportedType(t *testing.T) {
	_, err := ToBoundedInteger(5, "uint9")
	var typeErr *UnsupportedTypeError
	require.ErrorAs(t, err, &typeErr)
	require.Equal(t, "uint9", typeErr.Tag)
	require.ErrorIs(t, err, ErrUnsupportedType)

	ok, err := ValidateValue(5, "int8")
	require.False(t, ok)
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestToBoundedIntegerReturnsValue(t *testing.T) {
	n, err := ToBoundedInteger("18446744073709551615", Uint64)
	require.NoError(t, err)
	require.Equal(t, mustBig(t, "18446744073709551615"), n)
}

func TestParseTypeTag(t *testing.T) {
	tests := []struct {
		in   string
		want TypeTag
	}{
		{"uint8", Uint8},
		{"UINT16", Uint16},
		{"euint32", Uint32},
		{" uint64 ", Uint64},
		{"", Uint8},
	}
	for _, tc := range tests {
		got, err := ParseTypeTag(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got)
	}

	for _, bad := range []string{"uint9", "int8", "ebool", "uint160", "e"} {
		_, err := ParseTypeTag(bad)
		require.ErrorIs(t, err, ErrUnsupportedType, bad)
	}
}

func TestTypeTagForBits(t *testing.T) {
	tag, err := TypeTagForBits(128)
	require.NoError(t, err)
	require.Equal(t, Uint128, tag)

	_, err = TypeTagForBits(160)
	require.EqualError(t, err, `unsupported type "uint160": expected one of uint8, uint16, uint32, uint64, uint128, uint256`)
}

func TestBoundedValue(t *testing.T) {
	b, err := NewBoundedValue(258, Uint16)
	require.NoError(t, err)
	require.Equal(t, Uint16, b.Tag())
	require.Equal(t, "0x102", b.Hex())
	require.Equal(t, "258:uint16", b.String())

	word := b.Bytes32()
	require.Equal(t, byte(0x01), word[30])
	require.Equal(t, byte(0x02), word[31])

	b, err = NewBoundedValue(Uint256.Max(), "")
	require.Error(t, err)
	require.Equal(t, BoundedValue{}, b)

	b, err = NewBoundedValue(Uint256.Max(), Uint256)
	require.NoError(t, err)
	require.Equal(t, Uint256.MaxUint256(), b.Uint256())
}

func TestValidatorDefaultTag(t *testing.T) {
	v, err := NewValidator(WithDefaultTag(Uint32))
	require.NoError(t, err)
	require.Equal(t, Uint32, v.DefaultTag())

	ok, err := v.ValidateValue(70000, "")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = v.ValidateValue(70000, Uint16)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = NewValidator(WithDefaultTag("uint7"))
	require.ErrorIs(t, err, ErrUnsupportedType)

	v, err = NewValidator()
	require.NoError(t, err)
	require.Equal(t, Uint8, v.DefaultTag())
	_, err = v.ToBoundedInteger(256, "")
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestValidateValueConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for _, tag := range SupportedTypeTags() {
				ok, err := ValidateValue(tag.Max(), tag)
				if err != nil || !ok {
					t.Errorf("goroutine %d: %s max rejected: %v", i, tag, err)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestIsValidationError(t *testing.T) {
	_, err := ToBoundedInteger("nope", Uint8)
	require.True(t, IsValidationError(err))
	require.True(t, IsValidationError(&InvalidAddressFormatError{Address: "x"}))
	require.False(t, IsValidationError(errors.New("redis down")))
	require.False(t, IsValidationError(nil))
}
