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
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jeremyhahn/go-authenticator/pkg/adapters/logger"
	"github.com/jeremyhahn/go-authenticator/pkg/keystore"
	"github.com/jeremyhahn/go-authenticator/pkg/storage"
)

// KeyRemover deletes key material. *keystore.KeyStore implements it.
type KeyRemover interface {
	DeleteKeyPair(tag keystore.Tag) bool
	DeleteKey(tag keystore.Tag) bool
}

// Store persists connections as JSON records.
type Store struct {
	mu      sync.Mutex
	backend storage.Backend
	keys    KeyRemover
	log     logger.Logger
}

// NewStore returns a Store over backend. keys may be nil, in which case
// Remove leaves key material in place.
func NewStore(backend storage.Backend, keys KeyRemover, log logger.Logger) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("connection: storage backend is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{backend: backend, keys: keys, log: log}, nil
}

// Save writes conn, replacing any record with the same GUID.
func (s *Store) Save(conn *Connection) error {
	if conn == nil {
		return ErrMalformed
	}
	if err := conn.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(conn)
	if err != nil {
		return fmt.Errorf("connection: failed to encode %s: %w", conn.GUID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Put(storage.ConnectionPath(conn.GUID), data, storage.DefaultOptions()); err != nil {
		return fmt.Errorf("connection: failed to save %s: %w", conn.GUID, err)
	}
	return nil
}

// Get loads the connection with the given GUID.
func (s *Store) Get(guid string) (*Connection, error) {
	if guid == "" {
		return nil, ErrInvalidGUID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(guid)
}

// List returns all connections ordered by creation time.
func (s *Store) List() ([]*Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	guids, err := storage.ListConnections(s.backend)
	if err != nil {
		return nil, fmt.Errorf("connection: failed to list: %w", err)
	}
	conns := make([]*Connection, 0, len(guids))
	for _, guid := range guids {
		conn, err := s.getLocked(guid)
		if err != nil {
			s.log.Warn("skipping unreadable connection", logger.String("guid", guid), logger.Error(err))
			continue
		}
		conns = append(conns, conn)
	}
	sort.SliceStable(conns, func(i, j int) bool {
		return conns[i].CreatedAt.Before(conns[j].CreatedAt)
	})
	return conns, nil
}

// FindByID returns the connection the provider knows as id.
func (s *Store) FindByID(id string) (*Connection, error) {
	conns, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, c := range conns {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, ErrNotFound
}

// Remove deletes the connection, its key pair and the provider public
// key. Removing an unknown connection is not an error.
func (s *Store) Remove(guid string) error {
	if guid == "" {
		return ErrInvalidGUID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Delete(storage.ConnectionPath(guid)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("connection: failed to remove %s: %w", guid, err)
	}
	if s.keys != nil {
		s.keys.DeleteKeyPair(keystore.TagForConnection(guid))
		s.keys.DeleteKey(keystore.ProviderTag(guid))
	}
	s.log.Debug("connection removed", logger.String("guid", guid))
	return nil
}

func (s *Store) getLocked(guid string) (*Connection, error) {
	data, err := s.backend.Get(storage.ConnectionPath(guid))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("connection: failed to load %s: %w", guid, err)
	}
	var conn Connection
	if err := json.Unmarshal(data, &conn); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &conn, nil
}
