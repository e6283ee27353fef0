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

package connection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-authenticator/pkg/keystore"
	"github.com/jeremyhahn/go-authenticator/pkg/storage"
	"github.com/jeremyhahn/go-authenticator/pkg/storage/badgerstore"
	"github.com/jeremyhahn/go-authenticator/pkg/storage/memory"
)

func TestNew(t *testing.T) {
	c := New("demobank", "Demo Bank", "https://bank.example", APIVersion1)
	assert.NotEmpty(t, c.GUID)
	assert.Equal(t, StatusInactive, c.Status)
	assert.False(t, c.Active())
	assert.Equal(t, keystore.Tag(c.GUID), c.KeyTag())
	assert.Equal(t, keystore.Tag(c.GUID+"_provider_public_key"), c.ProviderKeyTag())

	c.Activate("token")
	assert.True(t, c.Active())
	assert.False(t, c.IsV2())

	assert.NotEqual(t, NewGUID(), NewGUID())
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, (&Connection{APIVersion: APIVersion1}).Validate(), ErrInvalidGUID)
	assert.ErrorIs(t, (&Connection{GUID: "g", APIVersion: "3"}).Validate(), ErrInvalidVersion)
	assert.NoError(t, (&Connection{GUID: "g", APIVersion: APIVersion2}).Validate())
}

func TestStore_SaveGetList(t *testing.T) {
	s, err := NewStore(memory.New(), nil, nil)
	require.NoError(t, err)

	first := New("a", "A", "https://a.example", APIVersion1)
	second := New("b", "B", "https://b.example", APIVersion2)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, s.Save(second))
	require.NoError(t, s.Save(first))

	got, err := s.Get(first.GUID)
	require.NoError(t, err)
	assert.Equal(t, first.ProviderCode, got.ProviderCode)
	assert.True(t, first.CreatedAt.Equal(got.CreatedAt))

	all, err := s.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.GUID, all[0].GUID)
	assert.Equal(t, second.GUID, all[1].GUID)

	second.ID = "777"
	require.NoError(t, s.Save(second))
	byID, err := s.FindByID("777")
	require.NoError(t, err)
	assert.Equal(t, second.GUID, byID.GUID)
	_, err = s.FindByID("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get("")
	assert.ErrorIs(t, err, ErrInvalidGUID)
	assert.ErrorIs(t, s.Save(&Connection{}), ErrInvalidGUID)
}

func TestStore_ListSkipsMalformed(t *testing.T) {
	backend := memory.New()
	s, err := NewStore(backend, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.Save(New("a", "A", "https://a.example", APIVersion1)))
	require.NoError(t, backend.Put(storage.ConnectionPath("broken"), []byte("{"), nil))

	all, err := s.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = s.Get("broken")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestStore_RemoveDeletesKeys(t *testing.T) {
	backend := memory.New()
	ks, err := keystore.New(&keystore.Config{Backend: backend, KeySize: 1024})
	require.NoError(t, err)
	s, err := NewStore(backend, ks, nil)
	require.NoError(t, err)

	conn := New("a", "A", "https://a.example", APIVersion2)
	require.NoError(t, s.Save(conn))
	_, err = ks.GenerateKeyPair(conn.KeyTag())
	require.NoError(t, err)
	provider, err := keystore.New(&keystore.Config{Backend: memory.New(), KeySize: 1024})
	require.NoError(t, err)
	pp, err := provider.GenerateKeyPair("p")
	require.NoError(t, err)
	pem, err := provider.ExportPublicKeyPEM(pp.Tag)
	require.NoError(t, err)
	_, err = ks.ImportPublicKey(pem, conn.ProviderKeyTag())
	require.NoError(t, err)

	require.NoError(t, s.Remove(conn.GUID))

	_, err = s.Get(conn.GUID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, ks.HasKeyPair(conn.KeyTag()))
	_, err = ks.PublicKey(conn.ProviderKeyTag())
	assert.ErrorIs(t, err, keystore.ErrNotFound)

	// Removing again is a no-op.
	assert.NoError(t, s.Remove(conn.GUID))
}

func TestStore_EncryptedBadger(t *testing.T) {
	dir := t.TempDir()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	backend, err := badgerstore.New(badgerstore.Config{Path: dir, EncryptionKey: key})
	require.NoError(t, err)
	s, err := NewStore(backend, nil, nil)
	require.NoError(t, err)
	conn := New("a", "A", "https://a.example", APIVersion1)
	conn.Activate("secret-token")
	require.NoError(t, s.Save(conn))
	require.NoError(t, backend.Close())

	backend, err = badgerstore.New(badgerstore.Config{Path: dir, EncryptionKey: key})
	require.NoError(t, err)
	defer backend.Close()
	s, err = NewStore(backend, nil, nil)
	require.NoError(t, err)
	got, err := s.Get(conn.GUID)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", got.AccessToken)
	assert.True(t, got.Active())
}
