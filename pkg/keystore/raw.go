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

import (
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-authenticator/pkg/adapters/logger"
)

// PutRawKey stores symmetric key material under tag.
func (ks *KeyStore) PutRawKey(tag Tag, key []byte) error {
	if tag == "" {
		return ErrInvalidTag
	}
	if len(key) == 0 {
		return fmt.Errorf("%w: empty raw key", ErrDataMalformed)
	}
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if ks.closed {
		return ErrClosed
	}
	return ks.putLocked(tag, encodeRecord(recordRaw, key))
}

// RawKey returns the symmetric key stored under tag.
func (ks *KeyStore) RawKey(tag Tag) ([]byte, error) {
	block, kind, err := ks.record(tag)
	if err != nil {
		return nil, err
	}
	if kind != KindRaw {
		return nil, fmt.Errorf("%w: %s holds a %s key", ErrDataMalformed, tag, kind)
	}
	return block.Bytes, nil
}

// EnsureRawKey returns the raw key under tag, generating and storing size
// random bytes first if the tag is empty.
func (ks *KeyStore) EnsureRawKey(tag Tag, size int) ([]byte, error) {
	key, err := ks.RawKey(tag)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	key, err = ks.random.Rand(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGenerationFailed, err)
	}
	if err := ks.PutRawKey(tag, key); err != nil {
		return nil, err
	}
	ks.log.Debug("raw key generated", logger.String("tag", tag.String()), logger.Int("bytes", size))
	return key, nil
}
