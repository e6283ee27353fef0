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

// State is a step of the provisioning state machine.
//
//	v1: Initial → FetchedProviderConfig → KeyPairGenerated → SubmittedToServer
//	    → AccessTokenReceived | RedirectRequired | Failed
//	v2: Initial → FetchedProviderConfig → ImportedProviderPublicKey
//	    → KeyPairGenerated → LocalPublicKeyWrapped → SubmittedToServer
//	    → AuthenticationURLReceived | Failed
type State int

const (
	StateInitial State = iota
	StateFetchedProviderConfig
	StateImportedProviderPublicKey
	StateKeyPairGenerated
	StateLocalPublicKeyWrapped
	StateSubmittedToServer
	StateAccessTokenReceived
	StateRedirectRequired
	StateAuthenticationURLReceived
	StateFailed
)

var stateNames = map[State]string{
	StateInitial:                   "initial",
	StateFetchedProviderConfig:     "fetched_provider_config",
	StateImportedProviderPublicKey: "imported_provider_public_key",
	StateKeyPairGenerated:          "key_pair_generated",
	StateLocalPublicKeyWrapped:     "local_public_key_wrapped",
	StateSubmittedToServer:         "submitted_to_server",
	StateAccessTokenReceived:       "access_token_received",
	StateRedirectRequired:          "redirect_required",
	StateAuthenticationURLReceived: "authentication_url_received",
	StateFailed:                    "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	switch s {
	case StateAccessTokenReceived, StateRedirectRequired, StateAuthenticationURLReceived, StateFailed:
		return true
	}
	return false
}
