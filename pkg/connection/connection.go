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

// Package connection persists the authenticator's provider connections.
//
// A connection is identified locally by a GUID generated on the device.
// The GUID also names the connection's RSA key pair in the key store, so
// removing a connection removes its keys.
package connection

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jeremyhahn/go-authenticator/pkg/keystore"
)

// API versions spoken by providers.
const (
	APIVersion1 = "1"
	APIVersion2 = "2"
)

// Status of a connection.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

var (
	ErrNotFound       = errors.New("connection: not found")
	ErrInvalidGUID    = errors.New("connection: invalid guid")
	ErrInvalidVersion = errors.New("connection: unsupported api version")
	ErrMalformed      = errors.New("connection: malformed record")
)

// Connection is a provider connection as stored on the device.
type Connection struct {
	GUID         string    `json:"guid"`
	ID           string    `json:"id,omitempty"`
	ProviderID   string    `json:"provider_id,omitempty"`
	ProviderCode string    `json:"provider_code"`
	Name         string    `json:"name"`
	BaseURL      string    `json:"base_url"`
	LogoURL      string    `json:"logo_url,omitempty"`
	SupportEmail string    `json:"support_email,omitempty"`
	AccessToken  string    `json:"access_token,omitempty"`
	APIVersion   string    `json:"api_version"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// New returns an inactive connection with a fresh GUID.
func New(providerCode, name, baseURL, apiVersion string) *Connection {
	now := time.Now().UTC()
	return &Connection{
		GUID:         NewGUID(),
		ProviderCode: providerCode,
		Name:         name,
		BaseURL:      baseURL,
		APIVersion:   apiVersion,
		Status:       StatusInactive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewGUID returns a random connection GUID.
func NewGUID() string {
	return uuid.NewString()
}

// KeyTag is the tag of the connection's own key pair.
func (c *Connection) KeyTag() keystore.Tag {
	return keystore.TagForConnection(c.GUID)
}

// ProviderKeyTag is the tag of the provider public key (v2 only).
func (c *Connection) ProviderKeyTag() keystore.Tag {
	return keystore.ProviderTag(c.GUID)
}

// Active reports whether the connection holds an access token and is
// marked active.
func (c *Connection) Active() bool {
	return c.Status == StatusActive && c.AccessToken != ""
}

// IsV2 reports whether the connection speaks API version 2.
func (c *Connection) IsV2() bool {
	return c.APIVersion == APIVersion2
}

// Activate stores the access token and marks the connection active.
func (c *Connection) Activate(accessToken string) {
	c.AccessToken = accessToken
	c.Status = StatusActive
	c.UpdatedAt = time.Now().UTC()
}

// Validate checks the fields required to persist the connection.
func (c *Connection) Validate() error {
	if c.GUID == "" {
		return ErrInvalidGUID
	}
	if c.APIVersion != APIVersion1 && c.APIVersion != APIVersion2 {
		return ErrInvalidVersion
	}
	return nil
}
