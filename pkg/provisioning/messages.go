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

package provisioning

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jeremyhahn/go-authenticator/pkg/connection"
	"github.com/jeremyhahn/go-authenticator/pkg/envelope"
)

// ProviderConfig is the configuration document served at a provider's
// connect URL.
type ProviderConfig struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	ConnectURL   string `json:"connect_url"`
	APIVersion   string `json:"api_version"`
	ProviderID   string `json:"provider_id,omitempty"`
	PublicKey    string `json:"public_key,omitempty"`
	LogoURL      string `json:"logo_url,omitempty"`
	SupportEmail string `json:"support_email,omitempty"`
	Version      string `json:"version,omitempty"`
}

// Validate checks the fields the selected protocol version needs.
func (c *ProviderConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: missing", ErrInvalidConfig)
	}
	if c.Code == "" {
		return fmt.Errorf("%w: missing code", ErrInvalidConfig)
	}
	if c.ConnectURL == "" {
		return fmt.Errorf("%w: missing connect_url", ErrInvalidConfig)
	}
	switch c.apiVersion() {
	case connection.APIVersion1:
	case connection.APIVersion2:
		if c.ProviderID == "" {
			return fmt.Errorf("%w: missing provider_id", ErrInvalidConfig)
		}
		if c.PublicKey == "" {
			return fmt.Errorf("%w: missing public_key", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, c.APIVersion)
	}
	return nil
}

// NewConnection returns an inactive connection for the provider.
func (c *ProviderConfig) NewConnection() *connection.Connection {
	conn := connection.New(c.Code, c.Name, strings.TrimSuffix(c.ConnectURL, "/"), c.apiVersion())
	conn.ProviderID = c.ProviderID
	conn.LogoURL = c.LogoURL
	conn.SupportEmail = c.SupportEmail
	return conn
}

// An absent api_version means version 1.
func (c *ProviderConfig) apiVersion() string {
	if c.APIVersion == "" {
		return connection.APIVersion1
	}
	return c.APIVersion
}

// Params are the device inputs of a provisioning attempt.
type Params struct {
	ReturnURL    string
	PushToken    string
	ConnectQuery string
	Platform     string
}

// DefaultPlatform is sent when Params.Platform is empty.
const DefaultPlatform = "go"

func (p Params) platform() string {
	if p.Platform == "" {
		return DefaultPlatform
	}
	return p.Platform
}

// CreateRequestV1 is the data of a v1 create-connection request.
type CreateRequestV1 struct {
	PublicKey    string `json:"public_key"`
	ReturnURL    string `json:"return_url"`
	Platform     string `json:"platform"`
	PushToken    string `json:"push_token,omitempty"`
	ProviderCode string `json:"provider_code"`
	ConnectQuery string `json:"connect_query,omitempty"`
}

// CreateResponseV1 carries either an access token or a connect URL.
type CreateResponseV1 struct {
	ID          string `json:"id"`
	ConnectURL  string `json:"connect_url,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

// CreateRequestV2 is the data of a v2 create-connection request. The
// device public key travels encrypted to the provider's key.
type CreateRequestV2 struct {
	ProviderID         string             `json:"provider_id"`
	ReturnURL          string             `json:"return_url"`
	Platform           string             `json:"platform"`
	PushToken          string             `json:"push_token,omitempty"`
	ConnectQuery       string             `json:"connect_query,omitempty"`
	EncryptedPublicKey *envelope.Envelope `json:"encrypted_rsa_public_key"`
}

// CreateResponseV2 is the v2 create-connection result.
type CreateResponseV2 struct {
	ConnectionID      string `json:"connection_id"`
	AuthenticationURL string `json:"authentication_url"`
}

type dataRequest struct {
	Data any `json:"data"`
}

// v2 bodies carry their expiry next to the data.
type dataRequestV2 struct {
	Data any              `json:"data"`
	Exp  *jwt.NumericDate `json:"exp"`
}

type dataResponse[T any] struct {
	Data T `json:"data"`
}

type errorResponse struct {
	ErrorClass   string `json:"error_class"`
	ErrorMessage string `json:"error_message"`
}
