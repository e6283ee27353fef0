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
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-authenticator/pkg/envelope"
	"github.com/jeremyhahn/go-authenticator/pkg/keystore"
)

func newEnvelopeCmd(e *env) *cobra.Command {
	envelopeCmd := &cobra.Command{
		Use:   "envelope",
		Short: "Encrypt and decrypt AES-256-CBC envelopes",
	}

	encryptCmd := &cobra.Command{
		Use:   "encrypt <recipient-tag> [file]",
		Short: "Encrypt text to the public key at recipient-tag",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, optionalArg(args, 1))
			if err != nil {
				return err
			}
			return e.withApp(cmd, func(a *app) error {
				env, err := a.cipher.Encrypt(string(data), keystore.Tag(args[0]))
				if err != nil {
					return err
				}
				return e.printer(cmd).PrintEnvelope(env)
			})
		},
	}

	decryptCmd := &cobra.Command{
		Use:   "decrypt <owner-tag> [file]",
		Short: "Decrypt an envelope with the private key of owner-tag",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, optionalArg(args, 1))
			if err != nil {
				return err
			}
			env, err := envelope.Parse(data)
			if err != nil {
				return err
			}
			return e.withApp(cmd, func(a *app) error {
				plaintext, err := a.cipher.Decrypt(env, keystore.Tag(args[0]))
				if err != nil {
					return err
				}
				return e.printer(cmd).PrintPlaintext(plaintext)
			})
		},
	}

	envelopeCmd.AddCommand(encryptCmd, decryptCmd)
	return envelopeCmd
}

func optionalArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}
