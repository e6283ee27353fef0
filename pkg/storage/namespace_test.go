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

package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-authenticator/pkg/storage"
	"github.com/jeremyhahn/go-authenticator/pkg/storage/memory"
)

func TestPaths(t *testing.T) {
	assert.Equal(t, "keys/12345", storage.KeyPath("12345"))
	assert.Equal(t, "keys/12345.private", storage.KeyPath("12345.private"))
	assert.Equal(t, "connections/12345", storage.ConnectionPath("12345"))
}

func TestListKeysAndConnections(t *testing.T) {
	backend := memory.New()
	defer backend.Close()

	require.NoError(t, backend.Put(storage.KeyPath("1"), []byte("a"), nil))
	require.NoError(t, backend.Put(storage.KeyPath("1.private"), []byte("b"), nil))
	require.NoError(t, backend.Put(storage.ConnectionPath("1"), []byte("c"), nil))

	keys, err := storage.ListKeys(backend)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "1.private"}, keys)

	conns, err := storage.ListConnections(backend)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, conns)
}

func TestDefaultOptions(t *testing.T) {
	opts := storage.DefaultOptions()
	assert.EqualValues(t, 0600, opts.Permissions)
	assert.NotNil(t, opts.Metadata)
}
