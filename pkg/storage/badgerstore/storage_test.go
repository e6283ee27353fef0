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

package badgerstore

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-authenticator/pkg/storage"
)

func newInMemory(t *testing.T) *Storage {
	t.Helper()
	store, err := New(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{InMemory: true, EncryptionKey: []byte("short")})
	assert.Error(t, err)
}

func TestPutGetDelete(t *testing.T) {
	store := newInMemory(t)

	require.NoError(t, store.Put("keys/12345", []byte("pub"), nil))
	got, err := store.Get("keys/12345")
	require.NoError(t, err)
	assert.Equal(t, []byte("pub"), got)

	exists, err := store.Exists("keys/12345")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete("keys/12345"))
	_, err = store.Get("keys/12345")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.Delete("keys/12345"), storage.ErrNotFound)
}

func TestList(t *testing.T) {
	store := newInMemory(t)
	for _, k := range []string{"keys/b", "keys/a", "connections/x", "connections/y"} {
		require.NoError(t, store.Put(k, []byte("v"), nil))
	}

	keys, err := store.List("keys/")
	require.NoError(t, err)
	assert.Equal(t, []string{"keys/a", "keys/b"}, keys)

	ids, err := storage.ListConnections(store)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, ids)
}

// TestEncryptedAtRest verifies that with an encryption key the plaintext
// value never reaches the database files, and that the database reopens
// with the same key.
func TestEncryptedAtRest(t *testing.T) {
	dir := t.TempDir()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	marker := []byte("access-token-marker-0123456789")

	store, err := New(Config{Path: dir, EncryptionKey: key, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, store.Put("connections/abc", marker, nil))
	require.NoError(t, store.Close())

	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		assert.False(t, bytes.Contains(data, marker), "plaintext found in %s", path)
		return nil
	})
	require.NoError(t, err)

	reopened, err := New(Config{Path: dir, EncryptionKey: key})
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get("connections/abc")
	require.NoError(t, err)
	assert.Equal(t, marker, got)
}

func TestClosed(t *testing.T) {
	store, err := New(Config{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = store.Get("k")
	assert.ErrorIs(t, err, storage.ErrClosed)
	assert.ErrorIs(t, store.Put("k", nil, nil), storage.ErrClosed)
}
