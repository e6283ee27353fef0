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

// Package envelope implements the hybrid encryption used for authorization
// payloads exchanged with providers.
//
// A payload is encrypted with AES-256-CBC under a fresh random key and IV.
// The key and IV are then each encrypted to the recipient's RSA public key
// with PKCS#1 v1.5 and every binary field is base64 encoded:
//
//	{"data": "...", "key": "...", "iv": "...", "algorithm": "AES-256-CBC"}
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Algorithm is the only supported content algorithm.
const Algorithm = "AES-256-CBC"

const (
	// KeySize is the AES-256 key length.
	KeySize = 32

	// IVSize is the AES block size.
	IVSize = 16
)

var (
	ErrRandomGenerationFailed      = errors.New("envelope: random generation failed")
	ErrDataEncodingFailed          = errors.New("envelope: data encoding failed")
	ErrBase64DecodeFailed          = errors.New("envelope: base64 decode failed")
	ErrNoKeyProvided               = errors.New("envelope: no key provided")
	ErrNoIVProvided                = errors.New("envelope: no iv provided")
	ErrCouldNotCreateDecodedString = errors.New("envelope: could not create decoded string")

	// ErrDecryptFailed covers AES failures: bad block length, padding or key size.
	ErrDecryptFailed = errors.New("envelope: decrypt failed")

	// ErrMalformedEnvelope is returned by Parse and Validate.
	ErrMalformedEnvelope = errors.New("envelope: malformed")
)

// Envelope is the wire form of an encrypted payload.
type Envelope struct {
	Data      string `json:"data"`
	Key       string `json:"key"`
	IV        string `json:"iv"`
	Algorithm string `json:"algorithm"`
}

// EncryptedData is an envelope as listed by a provider, tagged with the
// connection it belongs to.
type EncryptedData struct {
	Envelope
	ConnectionID string `json:"connection_id,omitempty"`
}

// Validate rejects envelopes with missing fields or an unknown algorithm.
func (e *Envelope) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil envelope", ErrMalformedEnvelope)
	}
	switch {
	case e.Data == "":
		return fmt.Errorf("%w: missing data", ErrMalformedEnvelope)
	case e.Key == "":
		return fmt.Errorf("%w: %w", ErrMalformedEnvelope, ErrNoKeyProvided)
	case e.IV == "":
		return fmt.Errorf("%w: %w", ErrMalformedEnvelope, ErrNoIVProvided)
	case e.Algorithm != Algorithm:
		return fmt.Errorf("%w: unsupported algorithm %q", ErrMalformedEnvelope, e.Algorithm)
	}
	return nil
}

// Parse decodes and validates a JSON envelope.
func Parse(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// ParseEncryptedData decodes and validates a listed envelope.
func ParseEncryptedData(data []byte) (*EncryptedData, error) {
	var ed EncryptedData
	if err := json.Unmarshal(data, &ed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if err := ed.Validate(); err != nil {
		return nil, err
	}
	return &ed, nil
}
