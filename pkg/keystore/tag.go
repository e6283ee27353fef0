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

import "strings"

const (
	privateSuffix        = ".private"
	providerPublicSuffix = "_provider_public_key"
)

// Tag addresses a key in the store. A key pair occupies two tags: the
// public half under Tag and the private half under Tag.Private().
type Tag string

// TagForConnection returns the key pair tag for a connection GUID.
func TagForConnection(guid string) Tag {
	return Tag(guid)
}

// ProviderTag returns the tag holding a provider's public key for the
// connection identified by guid.
func ProviderTag(guid string) Tag {
	return Tag(guid + providerPublicSuffix)
}

// Private returns the tag of the private half of the pair.
func (t Tag) Private() Tag {
	if t.IsPrivate() {
		return t
	}
	return t + privateSuffix
}

// Public returns the tag of the public half of the pair.
func (t Tag) Public() Tag {
	return Tag(strings.TrimSuffix(string(t), privateSuffix))
}

// IsPrivate reports whether t names a private key slot.
func (t Tag) IsPrivate() bool {
	return strings.HasSuffix(string(t), privateSuffix)
}

func (t Tag) String() string { return string(t) }
