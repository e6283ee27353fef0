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

import "errors"

var (
	// ErrInvalidSignature is returned by the verify helpers.
	ErrInvalidSignature = errors.New("signing: invalid signature")

	// ErrExpired is returned by VerifyV1 for requests past their expiry.
	ErrExpired = errors.New("signing: request expired")

	// ErrUnsignedRequest is returned by RoundTripper for requests that
	// carry no signature header.
	ErrUnsignedRequest = errors.New("signing: refusing to send unsigned request")
)
