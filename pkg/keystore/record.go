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
	"encoding/pem"
	"fmt"
)

// Stored records are single PEM blocks; the block type identifies the kind
// of key material.
const (
	recordPublic           = "RSA PUBLIC KEY"
	recordPrivate          = "PRIVATE KEY"
	recordEncryptedPrivate = "ENCRYPTED PRIVATE KEY"
	recordRaw              = "RAW KEY"
)

// Kind describes what a tag holds.
type Kind int

const (
	KindPublic Kind = iota + 1
	KindPrivate
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindPublic:
		return "public"
	case KindPrivate:
		return "private"
	case KindRaw:
		return "raw"
	default:
		return "unknown"
	}
}

func encodeRecord(blockType string, der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
}

func decodeRecord(tag Tag, data []byte) (*pem.Block, Kind, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, 0, fmt.Errorf("%w: %s: not a key record", ErrDataMalformed, tag)
	}
	switch block.Type {
	case recordPublic:
		return block, KindPublic, nil
	case recordPrivate, recordEncryptedPrivate:
		return block, KindPrivate, nil
	case recordRaw:
		return block, KindRaw, nil
	}
	return nil, 0, fmt.Errorf("%w: %s: unknown record type %q", ErrDataMalformed, tag, block.Type)
}
