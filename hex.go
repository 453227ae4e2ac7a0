// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhevm

import (
	"strings"

	"github.com/luxfi/geth/common/hexutil"
)

// BytesToHex encodes b as a 0x-prefixed lowercase hex string.
func BytesToHex(b []byte) string {
	return hexutil.Encode(b)
}

// HexToBytes decodes a hex string with or without the 0x prefix.
func HexToBytes(s string) ([]byte, error) {
	in := s
	if !strings.HasPrefix(in, "0x") && !strings.HasPrefix(in, "0X") {
		in = "0x" + in
	} else {
		in = "0x" + in[2:]
	}
	b, err := hexutil.Decode(in)
	if err != nil {
		return nil, &MalformedInputError{Input: s, Reason: err.Error()}
	}
	return b, nil
}
