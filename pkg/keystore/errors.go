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

package keystore

import "errors"

var (
	// ErrNotFound is returned when no key is stored under a tag.
	ErrNotFound = errors.New("keystore: key not found")

	// ErrAddToStoreFailed is returned when persisting a key fails.
	ErrAddToStoreFailed = errors.New("keystore: add to store failed")

	// ErrDataMalformed is returned when imported or stored key data can't
	// be parsed, or holds a different kind of key than requested.
	ErrDataMalformed = errors.New("keystore: data malformed")

	// ErrKeyGenerationFailed is returned when key generation fails.
	ErrKeyGenerationFailed = errors.New("keystore: key generation failed")

	// ErrInvalidTag is returned for empty tags.
	ErrInvalidTag = errors.New("keystore: invalid tag")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("keystore: closed")
)
