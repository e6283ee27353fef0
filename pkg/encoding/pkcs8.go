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
	"crypto/rsa"
	"fmt"

	"github.com/youmark/pkcs8"
)

// EncodePKCS8 marshals key as PKCS#8 DER. A non-empty password produces an
// encrypted PKCS#8 structure (PBES2, AES-256-CBC).
func EncodePKCS8(key *rsa.PrivateKey, password []byte) ([]byte, error) {
	if key == nil {
		return nil, ErrInvalidPrivateKey
	}
	if len(password) == 0 {
		password = nil
	}
	der, err := pkcs8.MarshalPrivateKey(key, password, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal PKCS#8: %w", err)
	}
	return der, nil
}

// DecodePKCS8 parses PKCS#8 DER produced by EncodePKCS8 with the same
// password.
func DecodePKCS8(der []byte, password []byte) (*rsa.PrivateKey, error) {
	if len(der) == 0 {
		return nil, ErrInvalidData
	}
	if len(password) == 0 {
		return ParseRSAPrivateKey(der)
	}
	key, err := pkcs8.ParsePKCS8PrivateKeyRSA(der, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}
	return key, nil
}
