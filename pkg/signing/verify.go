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

package signing

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

// VerifyV1 checks a v1 signature over the canonical string and rejects
// requests expired at now.
func VerifyV1(method, url string, expiresAt int64, body []byte, signature string, pub *rsa.PublicKey, now time.Time) error {
	if Expired(expiresAt, now) {
		return ErrExpired
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if err := jwt.SigningMethodRS256.Verify(SignatureString(method, url, expiresAt, string(body)), sig, pub); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

// VerifyV2 checks a detached RS256 JWS over body. When body carries an
// "exp" claim it must be in the future.
func VerifyV2(body []byte, signature string, pub *rsa.PublicKey, now time.Time) error {
	if body == nil {
		body = []byte{}
	}
	obj, err := jose.ParseDetached(signature, body, []jose.SignatureAlgorithm{jose.RS256})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if _, err := obj.Verify(pub); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var claims struct {
		Exp *int64 `json:"exp"`
	}
	if err := json.Unmarshal(body, &claims); err == nil && claims.Exp != nil && Expired(*claims.Exp, now) {
		return ErrExpired
	}
	return nil
}
