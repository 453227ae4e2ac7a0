// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhevm

import (
	"regexp"

	"github.com/luxfi/geth/common"
)

const addressPattern = `^0x[0-9a-fA-F]{40}$`

var addressRegexp = regexp.MustCompile(addressPattern)

// ValidateAddress reports whether address is "0x" followed by exactly 40 hex
// characters. Mixed case is accepted and the checksum is not verified.
func ValidateAddress(address string) bool {
	return addressRegexp.MatchString(address)
}

// IsAddress is ValidateAddress for untyped input; nil and non-string values
// are never addresses.
func IsAddress(v any) bool {
	s, ok := v.(string)
	return ok && ValidateAddress(s)
}

// ParseAddress validates address and decodes it. It fails with
// *InvalidAddressFormatError instead of silently zero-padding the way
// common.HexToAddress does.
func ParseAddress(address string) (common.Address, error) {
	if !ValidateAddress(address) {
		return common.Address{}, &InvalidAddressFormatError{Address: address}
	}
	return common.HexToAddress(address), nil
}
