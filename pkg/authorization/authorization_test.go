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
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-authenticator/pkg/envelope"
	"github.com/jeremyhahn/go-authenticator/pkg/keystore"
	"github.com/jeremyhahn/go-authenticator/pkg/storage/memory"
)

func newCipher(t *testing.T, tags ...keystore.Tag) *envelope.Cipher {
	t.Helper()
	ks, err := keystore.New(&keystore.Config{Backend: memory.New()})
	require.NoError(t, err)
	for _, tag := range tags {
		_, err := ks.GenerateKeyPair(tag)
		require.NoError(t, err)
	}
	return envelope.NewCipher(ks)
}

func TestEndToEnd(t *testing.T) {
	c := newCipher(t, "12345")
	now := time.Now().UTC().Truncate(time.Second)

	payload, err := json.Marshal(map[string]any{
		"id":            "00000",
		"connection_id": "12345",
		"title":         "Authorization",
		"description":   "Test authorization",
		"created_at":    now,
		"expires_at":    now.Add(300 * time.Second),
	})
	require.NoError(t, err)

	env, err := c.Encrypt(string(payload), "12345")
	require.NoError(t, err)

	d := NewDecryptor(c, nil, nil)
	a, err := d.Decrypt(&envelope.EncryptedData{Envelope: *env, ConnectionID: "12345"})
	require.NoError(t, err)
	assert.Equal(t, "00000", a.ID)
	assert.Equal(t, "12345", a.ConnectionID)
	assert.Equal(t, "Authorization", a.Title)
	assert.True(t, a.ExpiresAt.Equal(now.Add(300*time.Second)))
	assert.False(t, a.Expired(now))
}

func TestActive_ExpiryBoundary(t *testing.T) {
	now := time.Now()
	list := []*Authorization{
		{ID: "at-now", ExpiresAt: now},
		{ID: "before", ExpiresAt: now.Add(-time.Microsecond)},
		{ID: "after", ExpiresAt: now.Add(time.Second)},
		nil,
	}
	active := Active(list, now)
	require.Len(t, active, 1)
	assert.Equal(t, "after", active[0].ID)
}

func TestActive_Ordering(t *testing.T) {
	now := time.Now()
	active := Active([]*Authorization{
		{ID: "late", ExpiresAt: now.Add(time.Hour)},
		{ID: "soon", ExpiresAt: now.Add(time.Minute)},
	}, now)
	require.Len(t, active, 2)
	assert.Equal(t, "soon", active[0].ID)
}

func TestParse(t *testing.T) {
	_, err := Parse([]byte(`{`))
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = Parse([]byte(`{"connection_id":"1"}`))
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = Parse([]byte(`{"id":"1"}`))
	assert.ErrorIs(t, err, ErrMalformed)

	a, err := Parse([]byte(`{"id":"1","connection_id":"2","status":"pending","authorization_code":"abc"}`))
	require.NoError(t, err)
	assert.Equal(t, "pending", a.Status)
	assert.Equal(t, "abc", a.AuthorizationCode)
}

func TestDecryptAll_DropsBadItems(t *testing.T) {
	c := newCipher(t, "a", "b")

	good, err := c.Encrypt(`{"id":"1","connection_id":"a"}`, "a")
	require.NoError(t, err)
	other, err := c.Encrypt(`{"id":"2","connection_id":"b"}`, "b")
	require.NoError(t, err)
	notJSON, err := c.Encrypt(`not json`, "a")
	require.NoError(t, err)

	items := []envelope.EncryptedData{
		{Envelope: *good, ConnectionID: "a"},
		{Envelope: envelope.Envelope{Data: "x"}, ConnectionID: "a"},
		{Envelope: *other, ConnectionID: "a"},
		{Envelope: *notJSON, ConnectionID: "a"},
		{Envelope: *good, ConnectionID: "unknown"},
		{Envelope: *other, ConnectionID: "b"},
	}

	got := NewDecryptor(c, nil, nil).DecryptAll(items)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "2", got[1].ID)
}

func TestDecrypt_OwnerFunc(t *testing.T) {
	c := newCipher(t, "guid-1")
	env, err := c.Encrypt(`{"id":"9","connection_id":"srv-1"}`, "guid-1")
	require.NoError(t, err)

	owners := map[string]keystore.Tag{"srv-1": "guid-1"}
	resolve := func(id string) (keystore.Tag, error) {
		tag, ok := owners[id]
		if !ok {
			return "", errors.New("unknown connection")
		}
		return tag, nil
	}

	d := NewDecryptor(c, resolve, nil)
	a, err := d.Decrypt(&envelope.EncryptedData{Envelope: *env, ConnectionID: "srv-1"})
	require.NoError(t, err)
	assert.Equal(t, "9", a.ID)

	_, err = d.Decrypt(&envelope.EncryptedData{Envelope: *env, ConnectionID: "srv-2"})
	assert.Error(t, err)
	_, err = d.Decrypt(nil)
	assert.ErrorIs(t, err, envelope.ErrMalformedEnvelope)
}
