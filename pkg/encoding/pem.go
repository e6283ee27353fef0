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
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"
)

// PEM block types
const (
	PEMTypePublicKey    = "PUBLIC KEY"
	PEMTypeRSAPublicKey = "RSA PUBLIC KEY"
	PEMTypePrivateKey   = "PRIVATE KEY"
)

// PublicKeyPEM renders PKCS#1 public key bytes as an SPKI "PUBLIC KEY" PEM
// block with 64 character lines.
func PublicKeyPEM(pkcs1 []byte) (string, error) {
	if len(pkcs1) == 0 {
		return "", ErrInvalidData
	}
	var buf bytes.Buffer
	block := &pem.Block{Type: PEMTypePublicKey, Bytes: WrapPKCS1PublicKey(pkcs1)}
	if err := pem.Encode(&buf, block); err != nil {
		return "", fmt.Errorf("failed to encode PEM: %w", err)
	}
	return buf.String(), nil
}

// EncodePublicKeyPEM is PublicKeyPEM for a parsed key.
func EncodePublicKeyPEM(pub *rsa.PublicKey) (string, error) {
	if pub == nil || pub.N == nil {
		return "", ErrInvalidPublicKey
	}
	return PublicKeyPEM(x509.MarshalPKCS1PublicKey(pub))
}

// DecodePEMBody returns the DER payload of a PEM string. Header and footer
// lines are dropped and all whitespace inside the body is ignored, so keys
// that arrive re-wrapped or as a single line still decode.
func DecodePEMBody(data string) ([]byte, error) {
	var body strings.Builder
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-----") {
			continue
		}
		body.WriteString(strings.Join(strings.Fields(line), ""))
	}
	if body.Len() == 0 {
		return nil, ErrInvalidData
	}
	der, err := base64.StdEncoding.DecodeString(body.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPEMEncoding, err)
	}
	return der, nil
}

// ParseRSAPublicKey accepts SubjectPublicKeyInfo or PKCS#1 DER.
func ParseRSAPublicKey(der []byte) (*rsa.PublicKey, error) {
	if len(der) == 0 {
		return nil, ErrInvalidData
	}
	if key, err := x509.ParsePKIXPublicKey(der); err == nil {
		pub, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not RSA", ErrInvalidPublicKey, key)
		}
		return pub, nil
	}
	pub, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return pub, nil
}

// ParseRSAPrivateKey accepts unencrypted PKCS#8 or PKCS#1 DER.
func ParseRSAPrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if len(der) == 0 {
		return nil, ErrInvalidData
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		priv, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not RSA", ErrInvalidPrivateKey, key)
		}
		return priv, nil
	}
	priv, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return priv, nil
}
