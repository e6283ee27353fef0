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

package cli

import (
	"errors"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-authenticator/pkg/keystore"
	"github.com/jeremyhahn/go-authenticator/pkg/signing"
)

var errUnsigned = errors.New("request could not be signed: no private key for tag")

func newSignCmd(e *env) *cobra.Command {
	signCmd := &cobra.Command{
		Use:   "sign",
		Short: "Produce signed provider request headers",
	}

	v1Cmd := &cobra.Command{
		Use:   "v1 <tag> <url>",
		Short: "Sign METHOD|URL|EXPIRES_AT|BODY with RS256",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, _ := cmd.Flags().GetString("method")
			body, _ := cmd.Flags().GetString("body")
			return e.withApp(cmd, func(a *app) error {
				h := a.signer.HeadersV1(strings.ToUpper(method), args[1], []byte(body), e.signingParams(cmd, a, args[0]))
				if !signing.Signed(h) {
					return errUnsigned
				}
				return e.printer(cmd).PrintHeaders(h)
			})
		},
	}
	v1Cmd.Flags().String("method", http.MethodGet, "HTTP method")

	v2Cmd := &cobra.Command{
		Use:   "v2 <tag>",
		Short: "Produce a detached RS256 JWS of the JSON body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _ := cmd.Flags().GetString("body")
			return e.withApp(cmd, func(a *app) error {
				h := a.signer.HeadersV2([]byte(body), e.signingParams(cmd, a, args[0]))
				if !signing.Signed(h) {
					return errUnsigned
				}
				return e.printer(cmd).PrintHeaders(h)
			})
		},
	}

	for _, c := range []*cobra.Command{v1Cmd, v2Cmd} {
		c.Flags().String("body", "", "request body")
		c.Flags().String("access-token", "", "Access-Token header")
	}
	signCmd.AddCommand(v1Cmd, v2Cmd)
	return signCmd
}

func (e *env) signingParams(cmd *cobra.Command, a *app, tag string) signing.Params {
	token, _ := cmd.Flags().GetString("access-token")
	return signing.Params{
		Tag:               keystore.Tag(tag),
		AccessToken:       token,
		GeoLocation:       a.cfg.Signing.GeoLocation,
		AuthorizationType: a.cfg.Signing.AuthorizationType,
	}
}
