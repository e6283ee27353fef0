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

// Package chunked applies RSA PKCS#1 v1.5 encryption to inputs of any length
// by splitting them into blocks, transforming each block and concatenating
// the results in order.
//
// Encryption splits plaintext into chunks of at most k-11 bytes, where k is
// the modulus size in bytes, and each chunk encrypts to exactly k bytes.
// Decryption therefore splits ciphertext into k byte chunks.
package chunked

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
)

// PKCS1Overhead is the padding overhead of RSAES-PKCS1-v1_5.
const PKCS1Overhead = 11

var (
	// ErrEncryptChunkFailed matches any *ChunkError raised while encrypting.
	ErrEncryptChunkFailed = errors.New("chunked: encrypt chunk failed")

	// ErrDecryptChunkFailed matches any *ChunkError raised while decrypting.
	ErrDecryptChunkFailed = errors.New("chunked: decrypt chunk failed")

	// ErrInvalidKey is returned for nil keys or keys too small to carry data.
	ErrInvalidKey = errors.New("chunked: invalid key")
)

// Op identifies the direction of a transform.
type Op string

const (
	OpEncrypt Op = "encrypt"
	OpDecrypt Op = "decrypt"
)

// ChunkError reports the byte offset of the chunk that failed.
type ChunkError struct {
	Op     Op
	Offset int
	Err    error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunked: %s chunk at offset %d failed: %v", e.Op, e.Offset, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// Is lets errors.Is match the per-direction sentinels.
func (e *ChunkError) Is(target error) bool {
	switch target {
	case ErrEncryptChunkFailed:
		return e.Op == OpEncrypt
	case ErrDecryptChunkFailed:
		return e.Op == OpDecrypt
	}
	return false
}

// Func transforms one chunk.
type Func func(chunk []byte) ([]byte, error)

// Split cuts data into consecutive chunks of size bytes; the last chunk may
// be shorter. Empty input yields no chunks. The chunks alias data.
func Split(data []byte, size int) [][]byte {
	if size <= 0 || len(data) == 0 {
		return nil
	}
	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for start := 0; start < len(data); start += size {
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[start:end:end])
	}
	return chunks
}

// Transform applies fn to chunks in order and concatenates the outputs.
// The first failure aborts the pipeline and is returned as a *ChunkError
// carrying the input offset of the failing chunk.
func Transform(op Op, chunks [][]byte, fn Func) ([]byte, error) {
	var out []byte
	offset := 0
	for _, chunk := range chunks {
		result, err := fn(chunk)
		if err != nil {
			return nil, &ChunkError{Op: op, Offset: offset, Err: err}
		}
		out = append(out, result...)
		offset += len(chunk)
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// PublicEncrypt encrypts data of any length with pub.
func PublicEncrypt(random io.Reader, pub *rsa.PublicKey, data []byte) ([]byte, error) {
	if pub == nil || pub.N == nil {
		return nil, ErrInvalidKey
	}
	k := pub.Size()
	if k <= PKCS1Overhead {
		return nil, fmt.Errorf("%w: modulus of %d bytes", ErrInvalidKey, k)
	}
	return Transform(OpEncrypt, Split(data, k-PKCS1Overhead), func(chunk []byte) ([]byte, error) {
		return rsa.EncryptPKCS1v15(random, pub, chunk)
	})
}

// PrivateDecrypt reverses PublicEncrypt. A trailing chunk shorter than the
// modulus fails at its offset.
func PrivateDecrypt(priv *rsa.PrivateKey, data []byte) ([]byte, error) {
	if priv == nil || priv.N == nil {
		return nil, ErrInvalidKey
	}
	k := priv.Size()
	return Transform(OpDecrypt, Split(data, k), func(chunk []byte) ([]byte, error) {
		if len(chunk) != k {
			return nil, fmt.Errorf("short block of %d bytes, want %d", len(chunk), k)
		}
		return rsa.DecryptPKCS1v15(nil, priv, chunk)
	})
}
