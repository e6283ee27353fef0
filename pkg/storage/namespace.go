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

package storage

import (
	"strings"
)

const (
	keysPrefix        = "keys/"
	connectionsPrefix = "connections/"
)

// KeyPath returns the storage key for the key material addressed by tag.
func KeyPath(tag string) string {
	return keysPrefix + tag
}

// ConnectionPath returns the storage key for a connection record.
func ConnectionPath(guid string) string {
	return connectionsPrefix + guid
}

// ListKeys returns the tags of every stored key, public, private and raw.
func ListKeys(backend Backend) ([]string, error) {
	return listIDs(backend, keysPrefix)
}

// ListConnections returns the GUIDs of every stored connection.
func ListConnections(backend Backend) ([]string, error) {
	return listIDs(backend, connectionsPrefix)
}

func listIDs(backend Backend, prefix string) ([]string, error) {
	keys, err := backend.List(prefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if id := strings.TrimPrefix(k, prefix); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
