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

// Package authorization decodes the encrypted authorization requests a
// provider pushes to a connection.
package authorization

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrMalformed = errors.New("authorization: malformed record")
	ErrExpired   = errors.New("authorization: expired")
)

// Authorization is a decrypted authorization request.
type Authorization struct {
	ID           string    `json:"id"`
	ConnectionID string    `json:"connection_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`

	// v2 only.
	Status            string `json:"status,omitempty"`
	AuthorizationCode string `json:"authorization_code,omitempty"`
}

// Parse decodes a decrypted authorization payload.
func Parse(data []byte) (*Authorization, error) {
	var a Authorization
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if a.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformed)
	}
	if a.ConnectionID == "" {
		return nil, fmt.Errorf("%w: missing connection_id", ErrMalformed)
	}
	return &a, nil
}

// Expired reports whether a is expired at now. An authorization expiring
// exactly at now is expired.
func (a *Authorization) Expired(now time.Time) bool {
	return !a.ExpiresAt.After(now)
}

// Active returns the authorizations still valid at now, soonest expiry
// first.
func Active(list []*Authorization, now time.Time) []*Authorization {
	out := make([]*Authorization, 0, len(list))
	for _, a := range list {
		if a != nil && !a.Expired(now) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	return out
}
