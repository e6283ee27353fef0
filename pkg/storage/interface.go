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

// Package storage defines the persistence contract used by the key store and
// the connection store. Backends are addressed by flat string keys; callers
// organize records with the namespace helpers in this package.
package storage

import (
	"io/fs"
)

// Backend is a thread-safe key/value persistence layer.
type Backend interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(key string) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(key string, value []byte, opts *Options) error

	// Delete removes key. Returns ErrNotFound if the key does not exist.
	Delete(key string) error

	// List returns the sorted keys beginning with prefix.
	// An empty prefix lists every key.
	List(prefix string) ([]string, error)

	// Exists reports whether key is present.
	Exists(key string) (bool, error)

	// Close releases the backend. Subsequent calls return ErrClosed.
	Close() error
}

// Options carries per-write settings. Backends ignore fields they do not use.
type Options struct {
	// Permissions applies to file based backends.
	Permissions fs.FileMode

	// Metadata is opaque to the backends.
	Metadata map[string]string
}

// DefaultOptions returns owner-only permissions, the equivalent of a
// device-local, unlocked-only accessibility class.
func DefaultOptions() *Options {
	return &Options{
		Permissions: 0600,
		Metadata:    make(map[string]string),
	}
}
