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

package authorization

import (
	"fmt"

	"github.com/jeremyhahn/go-authenticator/pkg/adapters/logger"
	"github.com/jeremyhahn/go-authenticator/pkg/envelope"
	"github.com/jeremyhahn/go-authenticator/pkg/keystore"
)

// OwnerFunc maps the connection_id of an encrypted item to the tag of the
// key pair that decrypts it.
type OwnerFunc func(connectionID string) (keystore.Tag, error)

// ByGUID treats connection_id as the connection GUID.
func ByGUID(connectionID string) (keystore.Tag, error) {
	return keystore.TagForConnection(connectionID), nil
}

// Decryptor turns encrypted list items into authorizations.
type Decryptor struct {
	cipher *envelope.Cipher
	owner  OwnerFunc
	log    logger.Logger
}

// NewDecryptor returns a Decryptor. owner defaults to ByGUID.
func NewDecryptor(cipher *envelope.Cipher, owner OwnerFunc, log logger.Logger) *Decryptor {
	if owner == nil {
		owner = ByGUID
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Decryptor{cipher: cipher, owner: owner, log: log}
}

// Decrypt decrypts a single item.
func (d *Decryptor) Decrypt(item *envelope.EncryptedData) (*Authorization, error) {
	if item == nil {
		return nil, envelope.ErrMalformedEnvelope
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	tag, err := d.owner(item.ConnectionID)
	if err != nil {
		return nil, fmt.Errorf("authorization: no key for connection %q: %w", item.ConnectionID, err)
	}
	plaintext, err := d.cipher.Decrypt(&item.Envelope, tag)
	if err != nil {
		return nil, err
	}
	return Parse([]byte(plaintext))
}

// DecryptAll decrypts items in order. Items that fail are logged and
// dropped.
func (d *Decryptor) DecryptAll(items []envelope.EncryptedData) []*Authorization {
	out := make([]*Authorization, 0, len(items))
	for i := range items {
		a, err := d.Decrypt(&items[i])
		if err != nil {
			d.log.Warn("discarding undecryptable authorization",
				logger.Int("index", i),
				logger.String("connection_id", items[i].ConnectionID),
				logger.Error(err))
			continue
		}
		out = append(out, a)
	}
	return out
}
