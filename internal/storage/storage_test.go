package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeHandle(t *testing.T) {
	h := ComputeHandle([]byte("input"))
	require.NoError(t, h.Validate())
	require.Len(t, string(h), 66)
	require.Equal(t, h, ComputeHandle([]byte("input")))
	require.NotEqual(t, h, ComputeHandle([]byte("other")))

	// keccak256 of the empty string.
	require.Equal(t,
		Handle("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"),
		ComputeHandle(nil))
}

func TestParseHandle(t *testing.T) {
	upper := "0x" + strings.Repeat("AB", 32)
	h, err := ParseHandle(upper)
	require.NoError(t, err)
	require.Equal(t, Handle(strings.ToLower(upper)), h)

	for _, bad := range []string{"", "0x1234", strings.Repeat("ab", 32), "0x" + strings.Repeat("zz", 32)} {
		_, err := ParseHandle(bad)
		require.ErrorIs(t, err, ErrInvalidHandle, bad)
	}
}

func testStorage(t *testing.T, s Storage) {
	ctx := context.Background()

	h, err := s.Store(ctx, []byte("record"))
	require.NoError(t, err)

	again, err := s.Store(ctx, []byte("record"))
	require.NoError(t, err)
	require.Equal(t, h, again)

	ok, err := s.Exists(ctx, h)
	require.NoError(t, err)
	require.True(t, ok)

	data, err := s.Load(ctx, h)
	require.NoError(t, err)
	require.Equal(t, []byte("record"), data)

	require.NoError(t, s.Delete(ctx, h))
	_, err = s.Load(ctx, h)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, h), ErrNotFound)

	ok, err = s.Exists(ctx, h)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = s.Load(ctx, Handle("../../etc/passwd"))
	require.ErrorIs(t, err, ErrInvalidHandle)
	_, err = s.Exists(ctx, Handle("x"))
	require.ErrorIs(t, err, ErrInvalidHandle)
}

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage(1)
	testStorage(t, s)
	require.NoError(t, s.Close())

	_, err := s.Store(context.Background(), []byte("x"))
	require.ErrorIs(t, err, ErrClosed)
}

func TestMemoryStorageCapacity(t *testing.T) {
	s := NewMemoryStorage(1)
	ctx := context.Background()

	big := make([]byte, 1024*1024)
	_, err := s.Store(ctx, big)
	require.NoError(t, err)
	require.Equal(t, int64(1024*1024), s.Size())

	_, err = s.Store(ctx, []byte("one more"))
	require.ErrorIs(t, err, ErrStorageFull)
}

func TestMemoryStorageCopies(t *testing.T) {
	s := NewMemoryStorage(1)
	ctx := context.Background()

	in := []byte("abc")
	h, err := s.Store(ctx, in)
	require.NoError(t, err)
	in[0] = 'z'

	out, err := s.Load(ctx, h)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), out)
}

func TestFileStorage(t *testing.T) {
	s, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	testStorage(t, s)
	require.NoError(t, s.Close())
}
