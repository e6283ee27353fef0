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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPKCS8_Unencrypted(t *testing.T) {
	key := generateRSA(t, 1024)
	der, err := EncodePKCS8(key, nil)
	require.NoError(t, err)

	got, err := DecodePKCS8(der, nil)
	require.NoError(t, err)
	assert.True(t, key.Equal(got))
}

func TestPKCS8_Encrypted(t *testing.T) {
	key := generateRSA(t, 1024)
	password := []byte("correct horse")

	der, err := EncodePKCS8(key, password)
	require.NoError(t, err)

	_, err = ParseRSAPrivateKey(der)
	assert.Error(t, err, "encrypted PKCS#8 must not parse without a password")

	got, err := DecodePKCS8(der, password)
	require.NoError(t, err)
	assert.True(t, key.Equal(got))

	_, err = DecodePKCS8(der, []byte("wrong"))
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestPKCS8_InvalidInput(t *testing.T) {
	_, err := EncodePKCS8(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	_, err = DecodePKCS8(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidData)
}
