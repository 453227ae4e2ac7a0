package preparer

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/fhevm"
)

const (
	recordVersion = 1
	nonceLen      = 16
	// version | width | contract | user | value word | nonce
	recordLen = 1 + 1 + common.AddressLength + common.AddressLength + 32 + nonceLen
)

var errBadRecord = errors.New("malformed input record")

// Record is the stored form of a prepared input. Value holds the plaintext
// word until the external encryption routine replaces it with a ciphertext;
// Nonce keeps handles of equal plaintexts distinct.
type Record struct {
	Tag      fhevm.TypeTag
	Contract common.Address
	User     common.Address
	Value    [32]byte
	Nonce    [nonceLen]byte
}

// Uint256 returns the value word.
func (r *Record) Uint256() *uint256.Int {
	return new(uint256.Int).SetBytes32(r.Value[:])
}

// MarshalBinary encodes the record in its fixed-size layout.
func (r *Record) MarshalBinary() ([]byte, error) {
	bits := r.Tag.Bits()
	if bits == 0 {
		return nil, &fhevm.UnsupportedTypeError{Tag: string(r.Tag)}
	}

	out := make([]byte, 0, recordLen)
	out = append(out, recordVersion, byte(bits/8))
	out = append(out, r.Contract.Bytes()...)
	out = append(out, r.User.Bytes()...)
	out = append(out, r.Value[:]...)
	out = append(out, r.Nonce[:]...)
	return out, nil
}

// UnmarshalBinary decodes a record and re-checks the value against its tag.
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) != recordLen {
		return fmt.Errorf("%w: length %d, want %d", errBadRecord, len(data), recordLen)
	}
	if data[0] != recordVersion {
		return fmt.Errorf("%w: version %d", errBadRecord, data[0])
	}

	tag, err := fhevm.TypeTagForBits(int(data[1]) * 8)
	if err != nil {
		// A stored width is not caller input; keep it out of the validation errors.
		return fmt.Errorf("%w: %v", errBadRecord, err)
	}

	off := 2
	contract := common.BytesToAddress(data[off : off+common.AddressLength])
	off += common.AddressLength
	user := common.BytesToAddress(data[off : off+common.AddressLength])
	off += common.AddressLength

	var value [32]byte
	copy(value[:], data[off:off+32])
	off += 32

	if new(uint256.Int).SetBytes32(value[:]).Gt(tag.MaxUint256()) {
		return fmt.Errorf("%w: value exceeds %s", errBadRecord, tag)
	}

	r.Tag = tag
	r.Contract = contract
	r.User = user
	r.Value = value
	copy(r.Nonce[:], data[off:])
	return nil
}
