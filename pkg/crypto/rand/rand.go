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

// Package rand supplies the random source for key, IV and padding
// generation. Components that need randomness take a Resolver.
package rand

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// ErrGenerationFailed is returned when the source can't fill a buffer.
var ErrGenerationFailed = errors.New("rand: random generation failed")

// Resolver is a cryptographically secure random source.
type Resolver interface {
	// Rand returns n random bytes.
	Rand(n int) ([]byte, error)

	// Read implements io.Reader so a Resolver can be passed to
	// rsa.GenerateKey and rsa.EncryptPKCS1v15.
	Read(p []byte) (n int, err error)
}

// SoftwareResolver reads from an io.Reader, crypto/rand.Reader by default.
type SoftwareResolver struct {
	source io.Reader
}

var _ Resolver = (*SoftwareResolver)(nil)

// NewResolver returns a Resolver over crypto/rand.
func NewResolver() *SoftwareResolver {
	return &SoftwareResolver{source: rand.Reader}
}

// NewReaderResolver wraps an arbitrary reader.
func NewReaderResolver(source io.Reader) *SoftwareResolver {
	if source == nil {
		source = rand.Reader
	}
	return &SoftwareResolver{source: source}
}

func (s *SoftwareResolver) Rand(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrGenerationFailed, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.source, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return buf, nil
}

func (s *SoftwareResolver) Read(p []byte) (int, error) {
	return s.source.Read(p)
}
