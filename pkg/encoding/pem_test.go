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

package encoding

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateRSA(t *testing.T, bits int) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, bits)
	require.NoError(t, err)
	return key
}

// TestWrapPKCS1PublicKey_MatchesPKIX checks the hand built SPKI header
// against the standard library encoder across key sizes that exercise
// short and long form DER lengths.
func TestWrapPKCS1PublicKey_MatchesPKIX(t *testing.T) {
	for _, bits := range []int{1024, 2048, 3072} {
		key := generateRSA(t, bits)
		want, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		require.NoError(t, err)

		got := WrapPKCS1PublicKey(x509.MarshalPKCS1PublicKey(&key.PublicKey))
		assert.Equal(t, want, got, "bits=%d", bits)
	}
}

func TestDerLength(t *testing.T) {
	assert.Equal(t, []byte{0x05}, derLength(5))
	assert.Equal(t, []byte{0x7f}, derLength(127))
	assert.Equal(t, []byte{0x81, 0x80}, derLength(128))
	assert.Equal(t, []byte{0x82, 0x01, 0x0f}, derLength(271))
}

func TestPublicKeyPEM(t *testing.T) {
	key := generateRSA(t, 2048)
	out, err := EncodePublicKeyPEM(&key.PublicKey)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "-----BEGIN PUBLIC KEY-----\n"))
	assert.True(t, strings.HasSuffix(out, "-----END PUBLIC KEY-----\n"))
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for _, line := range lines[1 : len(lines)-1] {
		assert.LessOrEqual(t, len(line), 64)
	}

	block, _ := pem.Decode([]byte(out))
	require.NotNil(t, block)
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(parsed))

	// Deterministic for the same key.
	again, err := EncodePublicKeyPEM(&key.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestPublicKeyPEM_Invalid(t *testing.T) {
	_, err := PublicKeyPEM(nil)
	assert.ErrorIs(t, err, ErrInvalidData)
	_, err = EncodePublicKeyPEM(nil)
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestDecodePEMBody(t *testing.T) {
	key := generateRSA(t, 1024)
	out, err := EncodePublicKeyPEM(&key.PublicKey)
	require.NoError(t, err)

	t.Run("standard", func(t *testing.T) {
		der, err := DecodePEMBody(out)
		require.NoError(t, err)
		pub, err := ParseRSAPublicKey(der)
		require.NoError(t, err)
		assert.True(t, key.PublicKey.Equal(pub))
	})

	t.Run("crlf and indentation", func(t *testing.T) {
		mangled := strings.ReplaceAll(out, "\n", "\r\n  ")
		der, err := DecodePEMBody(mangled)
		require.NoError(t, err)
		_, err = ParseRSAPublicKey(der)
		require.NoError(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := DecodePEMBody("-----BEGIN PUBLIC KEY-----\n-----END PUBLIC KEY-----\n")
		assert.ErrorIs(t, err, ErrInvalidData)
	})

	t.Run("not base64", func(t *testing.T) {
		_, err := DecodePEMBody("-----BEGIN PUBLIC KEY-----\n!!!!\n-----END PUBLIC KEY-----")
		assert.ErrorIs(t, err, ErrInvalidPEMEncoding)
	})
}

func TestParseRSAPublicKey_PKCS1(t *testing.T) {
	key := generateRSA(t, 1024)
	pub, err := ParseRSAPublicKey(x509.MarshalPKCS1PublicKey(&key.PublicKey))
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pub))

	_, err = ParseRSAPublicKey([]byte("garbage"))
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestParseRSAPrivateKey(t *testing.T) {
	key := generateRSA(t, 1024)

	pkcs8DER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	priv, err := ParseRSAPrivateKey(pkcs8DER)
	require.NoError(t, err)
	assert.True(t, key.Equal(priv))

	priv, err = ParseRSAPrivateKey(x509.MarshalPKCS1PrivateKey(key))
	require.NoError(t, err)
	assert.True(t, key.Equal(priv))

	_, err = ParseRSAPrivateKey([]byte("garbage"))
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)
}
