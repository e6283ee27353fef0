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

package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-authenticator/pkg/storage"
)

func newTestStorage(t *testing.T) (storage.Backend, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, dir
}

func TestNew_EmptyRoot(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

// TestPutGet verifies records round trip and land on disk owner-only.
func TestPutGet(t *testing.T) {
	store, dir := newTestStorage(t)

	require.NoError(t, store.Put("keys/12345.private", []byte("der"), nil))
	got, err := store.Get("keys/12345.private")
	require.NoError(t, err)
	assert.Equal(t, []byte("der"), got)

	info, err := os.Stat(filepath.Join(dir, "keys", "12345.private"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestPut_CustomPermissions(t *testing.T) {
	store, dir := newTestStorage(t)
	require.NoError(t, store.Put("connections/a", []byte("{}"), &storage.Options{Permissions: 0640}))

	info, err := os.Stat(filepath.Join(dir, "connections", "a"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())
}

func TestGet_NotFound(t *testing.T) {
	store, _ := newTestStorage(t)
	_, err := store.Get("keys/missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete(t *testing.T) {
	store, _ := newTestStorage(t)
	require.NoError(t, store.Put("keys/a", []byte("x"), nil))
	require.NoError(t, store.Delete("keys/a"))
	assert.ErrorIs(t, store.Delete("keys/a"), storage.ErrNotFound)

	exists, err := store.Exists("keys/a")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestList(t *testing.T) {
	store, _ := newTestStorage(t)
	for _, k := range []string{"keys/b", "keys/a", "connections/c"} {
		require.NoError(t, store.Put(k, []byte("v"), nil))
	}

	keys, err := store.List("keys/")
	require.NoError(t, err)
	assert.Equal(t, []string{"keys/a", "keys/b"}, keys)

	ids, err := storage.ListConnections(store)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids)
}

func TestInvalidKeys(t *testing.T) {
	store, _ := newTestStorage(t)
	tests := []struct {
		name string
		key  string
	}{
		{name: "empty", key: ""},
		{name: "absolute", key: "/etc/passwd"},
		{name: "traversal", key: "../outside"},
		{name: "nested traversal", key: "keys/../../outside"},
		{name: "null byte", key: "keys/a\x00b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, store.Put(tt.key, []byte("x"), nil), storage.ErrInvalidKey)
			_, err := store.Get(tt.key)
			assert.ErrorIs(t, err, storage.ErrInvalidKey)
		})
	}
}

func TestClosed(t *testing.T) {
	store, _ := newTestStorage(t)
	require.NoError(t, store.Close())
	_, err := store.Get("keys/a")
	assert.ErrorIs(t, err, storage.ErrClosed)
	_, err = store.List("")
	assert.ErrorIs(t, err, storage.ErrClosed)
}
