package preparer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/internal/storage"
)

const (
	testContract = "0x88F346E27fb2425E11723938643EF698e6e547DC"
	testUser     = "0x1111111111111111111111111111111111111111"
)

func newTestPreparer(t *testing.T, opts ...Option) (*Preparer, storage.Storage) {
	t.Helper()
	v, err := fhevm.NewValidator()
	require.NoError(t, err)
	store := storage.NewMemoryStorage(1)
	return New(v, store, nil, opts...), store
}

func TestPrepare(t *testing.T) {
	p, store := newTestPreparer(t)
	ctx := context.Background()

	in, err := p.Prepare(ctx, InputRequest{
		Contract: testContract,
		User:     testUser,
		Value:    json.Number("4294967295"),
		Type:     "euint32",
	})
	require.NoError(t, err)
	require.Equal(t, fhevm.Uint32, in.Type)
	require.NoError(t, in.Handle.Validate())
	require.True(t, strings.HasPrefix(in.InputProof, "0x"))
	require.Len(t, in.InputProof, 66)

	ok, err := store.Exists(ctx, in.Handle)
	require.NoError(t, err)
	require.True(t, ok)

	rec, err := p.Load(ctx, in.Handle)
	require.NoError(t, err)
	require.Equal(t, fhevm.Uint32, rec.Tag)
	require.Equal(t, uint64(4294967295), rec.Uint256().Uint64())
	require.NoError(t, Authorize(rec, testContract, testUser))
	require.NoError(t, Authorize(rec, strings.ToLower(testContract), testUser))
}

func TestPrepareDefaultType(t *testing.T) {
	p, _ := newTestPreparer(t)
	in, err := p.Prepare(context.Background(), InputRequest{
		Contract: testContract,
		User:     testUser,
		Value:    255,
	})
	require.NoError(t, err)
	require.Equal(t, fhevm.Uint8, in.Type)
}

func TestPrepareDistinctHandles(t *testing.T) {
	p, _ := newTestPreparer(t)
	req := InputRequest{Contract: testContract, User: testUser, Value: 7}

	a, err := p.Prepare(context.Background(), req)
	require.NoError(t, err)
	b, err := p.Prepare(context.Background(), req)
	require.NoError(t, err)
	require.NotEqual(t, a.Handle, b.Handle)
}

func TestPrepareDeterministicWithFixedNonce(t *testing.T) {
	nonce := bytes.Repeat([]byte{0x42}, 64)
	p1, _ := newTestPreparer(t, WithRand(bytes.NewReader(nonce)))
	p2, _ := newTestPreparer(t, WithRand(bytes.NewReader(nonce)))
	req := InputRequest{Contract: testContract, User: testUser, Value: 7}

	a, err := p1.Prepare(context.Background(), req)
	require.NoError(t, err)
	b, err := p2.Prepare(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestPrepareValidationErrorsPassThrough(t *testing.T) {
	p, store := newTestPreparer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  InputRequest
		want error
		msg  string
	}{
		{
			name: "out of range",
			req:  InputRequest{Contract: testContract, User: testUser, Value: 300, Type: "uint8"},
			want: fhevm.ErrOutOfRange,
			msg:  "value 300 out of range for uint8, max 255",
		},
		{
			name: "unsupported type",
			req:  InputRequest{Contract: testContract, User: testUser, Value: 5, Type: "uint9"},
			want: fhevm.ErrUnsupportedType,
		},
		{
			name: "malformed value",
			req:  InputRequest{Contract: testContract, User: testUser, Value: 1.5, Type: "uint8"},
			want: fhevm.ErrMalformedInput,
		},
		{
			name: "bad contract",
			req:  InputRequest{Contract: "not-an-address", User: testUser, Value: 1},
			want: fhevm.ErrInvalidAddress,
		},
		{
			name: "bad user",
			req:  InputRequest{Contract: testContract, User: "0x" + strings.Repeat("a", 39), Value: 1},
			want: fhevm.ErrInvalidAddress,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Prepare(ctx, tc.req)
			require.ErrorIs(t, err, tc.want)
			if tc.msg != "" {
				require.EqualError(t, err, tc.msg)
			}
		})
	}

	require.Zero(t, store.(*storage.MemoryStorage).Size())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestPrepareNonceFailure(t *testing.T) {
	p, _ := newTestPreparer(t, WithRand(failingReader{}))
	_, err := p.Prepare(context.Background(), InputRequest{Contract: testContract, User: testUser, Value: 1})
	require.ErrorContains(t, err, "entropy exhausted")
	require.False(t, fhevm.IsValidationError(err))
}

func TestRecordRoundTrip(t *testing.T) {
	b, err := fhevm.NewBoundedValue(fhevm.Uint128.Max(), fhevm.Uint128)
	require.NoError(t, err)

	contract, _ := fhevm.ParseAddress(testContract)
	user, _ := fhevm.ParseAddress(testUser)
	rec := &Record{Tag: fhevm.Uint128, Contract: contract, User: user, Value: b.Bytes32()}
	rec.Nonce[0] = 9

	data, err := rec.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, recordLen)

	var decoded Record
	require.NoError(t, decoded.UnmarshalBinary(data))
	require.Equal(t, *rec, decoded)
}

func TestRecordRejects(t *testing.T) {
	var rec Record
	require.ErrorIs(t, rec.UnmarshalBinary([]byte{1, 2}), errBadRecord)

	data := make([]byte, recordLen)
	data[0] = 2
	require.ErrorIs(t, rec.UnmarshalBinary(data), errBadRecord)

	data[0] = recordVersion
	data[1] = 3 // 24 bits
	err := rec.UnmarshalBinary(data)
	require.ErrorIs(t, err, errBadRecord)
	require.NotErrorIs(t, err, fhevm.ErrUnsupportedType)
	require.False(t, fhevm.IsValidationError(err))

	// uint8 record carrying 256 in its word.
	data[1] = 1
	data[2+40+30] = 0x01
	require.ErrorIs(t, rec.UnmarshalBinary(data), errBadRecord)

	_, err = (&Record{Tag: "uint7"}).MarshalBinary()
	require.ErrorIs(t, err, fhevm.ErrUnsupportedType)
}

func TestAuthorize(t *testing.T) {
	contract, _ := fhevm.ParseAddress(testContract)
	user, _ := fhevm.ParseAddress(testUser)
	rec := &Record{Tag: fhevm.Uint8, Contract: contract, User: user}

	require.ErrorIs(t, Authorize(rec, testUser, testUser), ErrAccessDenied)
	require.ErrorIs(t, Authorize(rec, testContract, testContract), ErrAccessDenied)
}

func TestPlaceholderDecryptor(t *testing.T) {
	d := NewPlaceholderDecryptor(nil)
	out, err := d.Decrypt(context.Background(), storage.ComputeHandle(nil), &Record{Tag: fhevm.Uint8})
	require.NoError(t, err)
	require.Equal(t, "null", string(out))
}
