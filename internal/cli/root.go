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

// Package cli implements the authenticator command line.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand returns the command tree. Global flags are bound through
// viper, so each may also be set as AUTHENTICATOR_<FLAG>.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	rootCmd := &cobra.Command{
		Use:   "authenticator",
		Short: "go-authenticator CLI - provider connections and request signing",
		Long: `go-authenticator manages the RSA key pairs, provider connections and
signed requests of a mobile-style authenticator.

Keys are stored per connection GUID. Authorizations pushed by a provider
are decrypted with the connection's private key; every request sent to a
provider is signed with it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (YAML)")
	flags.String("storage", "", "storage backend override (memory, file, badger)")
	flags.String("data-dir", "", "data directory override")
	flags.StringP("output", "o", "text", "output format (text, json)")
	flags.BoolP("verbose", "v", false, "verbose output")
	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("AUTHENTICATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	e := &env{v: v}
	rootCmd.AddCommand(
		newVersionCmd(e),
		newKeysCmd(e),
		newEnvelopeCmd(e),
		newSignCmd(e),
		newConnectCmd(e),
		newConnectionsCmd(e),
	)
	return rootCmd
}
