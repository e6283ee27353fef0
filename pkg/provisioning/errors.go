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
	"errors"
	"fmt"
)

var (
	// ErrProtocol matches every *ProtocolError.
	ErrProtocol = errors.New("provisioning: protocol error")

	ErrInvalidConfig      = errors.New("provisioning: invalid provider configuration")
	ErrUnsupportedVersion = errors.New("provisioning: unsupported api version")
	ErrKeyPairMissing     = errors.New("provisioning: connection has no key pair")
	ErrNotConnected       = errors.New("provisioning: connection has no access token")
)

// ProtocolError is a failure reported by, or while talking to, the
// provider. Message is suitable for display.
type ProtocolError struct {
	StatusCode int
	Class      string
	Message    string
	Err        error
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Class != "":
		return fmt.Sprintf("provisioning: %s: %s", e.Class, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("provisioning: status %d: %s", e.StatusCode, e.Message)
	}
	return "provisioning: " + e.Message
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

// asProtocolError returns err as a *ProtocolError, wrapping it when needed.
func asProtocolError(err error) *ProtocolError {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProtocolError{Message: err.Error(), Err: err}
}
