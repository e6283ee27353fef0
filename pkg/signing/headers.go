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
	"net/http"
	"time"
)

// Header names sent to providers.
const (
	HeaderAccept            = "Accept"
	HeaderAcceptLanguage    = "Accept-Language"
	HeaderContentType       = "Content-Type"
	HeaderAccessToken       = "Access-Token"
	HeaderExpiresAt         = "Expires-At"
	HeaderSignature         = "Signature"
	HeaderGeoLocation       = "GEO-Location"
	HeaderJWSSignature      = "x-jws-signature"
	HeaderAuthorizationType = "Authorization-Type"
)

const (
	// ContentTypeJSON is used for Accept and Content-Type.
	ContentTypeJSON = "application/json"

	// DefaultLanguage is sent when no language is configured.
	DefaultLanguage = "en"

	// ExpiryWindow is how far ahead of the signing time a request expires.
	ExpiryWindow = 5 * time.Minute
)

// ExpiresAt returns the Unix expiry of a request signed at now.
func ExpiresAt(now time.Time) int64 {
	return now.Add(ExpiryWindow).Unix()
}

// Expired reports whether a request expiring at expiresAt is no longer
// valid at now. A request is valid only while expiresAt is strictly in the
// future, so expiresAt == now is expired.
func Expired(expiresAt int64, now time.Time) bool {
	return expiresAt <= now.Unix()
}

// Signed reports whether h carries a v1 or v2 signature.
func Signed(h http.Header) bool {
	return h.Get(HeaderSignature) != "" || h.Get(HeaderJWSSignature) != ""
}
