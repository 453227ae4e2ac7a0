// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhevm

import (
	"strings"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"lowercase", "0x" + strings.Repeat("a", 40), true},
		{"mixed case", "0x88F346E27fb2425E11723938643EF698e6e547DC", true},
		{"digits", "0x" + strings.Repeat("0", 40), true},
		{"too short", "0x" + strings.Repeat("a", 39), false},
		{"too long", "0x" + strings.Repeat("a", 41), false},
		{"no prefix", strings.Repeat("a", 40), false},
		{"upper prefix", "0X" + strings.Repeat("a", 40), false},
		{"non hex", "0x" + strings.Repeat("g", 40), false},
		{"empty", "", false},
		{"words", "not-an-address", false},
		{"trailing newline", "0x" + strings.Repeat("a", 40) + "\n", false},
		{"leading space", " 0x" + strings.Repeat("a", 40), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ValidateAddress(tc.in))
		})
	}
}

func TestIsAddress(t *testing.T) {
	require.True(t, IsAddress("0x88F346E27fb2425E11723938643EF698e6e547DC"))
	require.False(t, IsAddress(nil))
	require.False(t, IsAddress(42))
	require.False(t, IsAddress([]byte("0x88F346E27fb2425E11723938643EF698e6e547DC")))
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x88F346E27fb2425E11723938643EF698e6e547DC")
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0x88f346e27fb2425e11723938643ef698e6e547dc"), addr)

	_, err = ParseAddress("0x1234")
	var addrErr *InvalidAddressFormatError
	require.ErrorAs(t, err, &addrErr)
	require.Equal(t, "0x1234", addrErr.Address)
	require.ErrorIs(t, err, ErrInvalidAddress)
	require.Contains(t, err.Error(), addressPattern)
}
