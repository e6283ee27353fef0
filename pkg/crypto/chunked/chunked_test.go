// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-authenticator.
//
// go-authenticator is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package chunked

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey *rsa.PrivateKey

func init() {
	var err error
	testKey, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		size int
		want []int
	}{
		{name: "empty", data: nil, size: 4, want: nil},
		{name: "exact", data: make([]byte, 8), size: 4, want: []int{4, 4}},
		{name: "remainder", data: make([]byte, 9), size: 4, want: []int{4, 4, 1}},
		{name: "smaller than size", data: make([]byte, 3), size: 4, want: []int{3}},
		{name: "invalid size", data: make([]byte, 3), size: 0, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.data, tt.size)
			var lens []int
			for _, c := range chunks {
				lens = append(lens, len(c))
			}
			assert.Equal(t, tt.want, lens)
		})
	}
}

// TestTransform_NoKeys exercises the pipeline with a pure function.
func TestTransform_NoKeys(t *testing.T) {
	upper := func(chunk []byte) ([]byte, error) {
		return bytes.ToUpper(chunk), nil
	}
	out, err := Transform(OpEncrypt, Split([]byte("abcdefghij"), 3), upper)
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGHIJ", string(out))

	out, err = Transform(OpEncrypt, nil, upper)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestTransform_ReportsOffset(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	fn := func(chunk []byte) ([]byte, error) {
		calls++
		if calls == 3 {
			return nil, boom
		}
		return chunk, nil
	}

	_, err := Transform(OpDecrypt, Split(make([]byte, 10), 4), fn)
	require.Error(t, err)

	var chunkErr *ChunkError
	require.True(t, errors.As(err, &chunkErr))
	assert.Equal(t, 8, chunkErr.Offset)
	assert.ErrorIs(t, err, ErrDecryptChunkFailed)
	assert.NotErrorIs(t, err, ErrEncryptChunkFailed)
	assert.ErrorIs(t, err, boom)
}

// TestChunkBoundary checks the block arithmetic for a 2048-bit key:
// 245 bytes is one block, 246 bytes is two.
func TestChunkBoundary(t *testing.T) {
	k := testKey.Size()
	require.Equal(t, 256, k)

	tests := []struct {
		name   string
		length int
		blocks int
	}{
		{name: "empty", length: 0, blocks: 0},
		{name: "one byte", length: 1, blocks: 1},
		{name: "exactly one block", length: k - PKCS1Overhead, blocks: 1},
		{name: "one over", length: k - PKCS1Overhead + 1, blocks: 2},
		{name: "three blocks", length: 3 * (k - PKCS1Overhead), blocks: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plaintext := bytes.Repeat([]byte{0x5a}, tt.length)

			ciphertext, err := PublicEncrypt(rand.Reader, &testKey.PublicKey, plaintext)
			require.NoError(t, err)
			assert.Len(t, ciphertext, tt.blocks*k)

			decrypted, err := PrivateDecrypt(testKey, ciphertext)
			require.NoError(t, err)
			assert.Equal(t, plaintext, decrypted)
		})
	}
}

func TestRoundTrip_Text(t *testing.T) {
	msg := []byte(strings.Repeat("authorization payload ", 40))
	ciphertext, err := PublicEncrypt(rand.Reader, &testKey.PublicKey, msg)
	require.NoError(t, err)

	got, err := PrivateDecrypt(testKey, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestPrivateDecrypt_Failures(t *testing.T) {
	k := testKey.Size()
	valid, err := PublicEncrypt(rand.Reader, &testKey.PublicKey, []byte("hello"))
	require.NoError(t, err)

	t.Run("truncated", func(t *testing.T) {
		_, err := PrivateDecrypt(testKey, valid[:k-1])
		var chunkErr *ChunkError
		require.True(t, errors.As(err, &chunkErr))
		assert.Equal(t, 0, chunkErr.Offset)
		assert.ErrorIs(t, err, ErrDecryptChunkFailed)
	})

	t.Run("trailing partial block", func(t *testing.T) {
		data := append(append([]byte{}, valid...), 0x01, 0x02)
		_, err := PrivateDecrypt(testKey, data)
		var chunkErr *ChunkError
		require.True(t, errors.As(err, &chunkErr))
		assert.Equal(t, k, chunkErr.Offset)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		_, err = PrivateDecrypt(other, valid)
		assert.ErrorIs(t, err, ErrDecryptChunkFailed)
	})

	t.Run("corrupted second block", func(t *testing.T) {
		long, err := PublicEncrypt(rand.Reader, &testKey.PublicKey, make([]byte, 300))
		require.NoError(t, err)
		long[k+10] ^= 0xff
		_, err = PrivateDecrypt(testKey, long)
		var chunkErr *ChunkError
		require.True(t, errors.As(err, &chunkErr))
		assert.Equal(t, k, chunkErr.Offset)
	})
}

func TestInvalidKeys(t *testing.T) {
	_, err := PublicEncrypt(rand.Reader, nil, []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = PrivateDecrypt(nil, []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}
