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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-authenticator/pkg/keystore"
)

func newKeysCmd(e *env) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage connection key pairs",
	}

	generateCmd := &cobra.Command{
		Use:   "generate <tag>",
		Short: "Generate an RSA key pair, replacing any existing pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd, func(a *app) error {
				pair, err := a.keys.GenerateKeyPair(keystore.Tag(args[0]))
				if err != nil {
					return err
				}
				return e.printer(cmd).PrintSuccess(fmt.Sprintf("Generated %d-bit key pair %s", pair.Public.N.BitLen(), pair.Tag))
			})
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export <tag>",
		Short: "Export a public key as PEM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd, func(a *app) error {
				tag := keystore.Tag(args[0])
				pemData, err := a.keys.ExportPublicKeyPEM(tag)
				if err != nil {
					return err
				}
				return e.printer(cmd).PrintPublicKey(tag, pemData)
			})
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <tag> [file]",
		Short: "Import a PEM key (stdin when no file is given)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			private, _ := cmd.Flags().GetBool("private")
			path := ""
			if len(args) == 2 {
				path = args[1]
			}
			data, err := readInput(cmd, path)
			if err != nil {
				return err
			}
			return e.withApp(cmd, func(a *app) error {
				if _, err := a.keys.ImportKey(string(data), !private, keystore.Tag(args[0])); err != nil {
					return err
				}
				return e.printer(cmd).PrintSuccess("Imported key " + args[0])
			})
		},
	}
	importCmd.Flags().Bool("private", false, "the input is a private key")

	deleteCmd := &cobra.Command{
		Use:   "delete <tag>",
		Short: "Delete both halves of a key pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd, func(a *app) error {
				if !a.keys.DeleteKeyPair(keystore.Tag(args[0])) {
					return fmt.Errorf("failed to delete key pair %s", args[0])
				}
				return e.printer(cmd).PrintSuccess("Deleted key pair " + args[0])
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored key tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd, func(a *app) error {
				tags, err := a.keys.Tags()
				if err != nil {
					return err
				}
				return e.printer(cmd).PrintTags(tags)
			})
		},
	}

	keysCmd.AddCommand(generateCmd, exportCmd, importCmd, deleteCmd, listCmd)
	return keysCmd
}

// withApp opens the application, runs fn and closes it.
func (e *env) withApp(cmd *cobra.Command, fn func(a *app) error) (err error) {
	a, err := e.open(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(a)
}
