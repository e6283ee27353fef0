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
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-authenticator/pkg/provisioning"
)

func newConnectCmd(e *env) *cobra.Command {
	connectCmd := &cobra.Command{
		Use:   "connect <configuration-url>",
		Short: "Connect to a provider and provision a key pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params provisioning.Params
			params.ReturnURL, _ = cmd.Flags().GetString("return-url")
			params.PushToken, _ = cmd.Flags().GetString("push-token")
			params.ConnectQuery, _ = cmd.Flags().GetString("connect-query")
			return e.withApp(cmd, func(a *app) error {
				conn, res, err := a.provisioner.Connect(ctxOf(cmd), args[0], params)
				if err != nil {
					return err
				}
				return e.printer(cmd).PrintResult(conn, res)
			})
		},
	}
	connectCmd.Flags().String("return-url", "authenticator://oauth/redirect", "URL the provider redirects to")
	connectCmd.Flags().String("push-token", "", "push notification token")
	connectCmd.Flags().String("connect-query", "", "query from a deep link")
	return connectCmd
}

func newConnectionsCmd(e *env) *cobra.Command {
	connectionsCmd := &cobra.Command{
		Use:     "connections",
		Aliases: []string{"conn"},
		Short:   "Manage provider connections",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd, func(a *app) error {
				conns, err := a.connections.List()
				if err != nil {
					return err
				}
				return e.printer(cmd).PrintConnections(conns)
			})
		},
	}

	finalizeCmd := &cobra.Command{
		Use:   "finalize <guid> <access-token>",
		Short: "Store the access token issued after a redirect",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd, func(a *app) error {
				conn, err := a.connections.Get(args[0])
				if err != nil {
					return err
				}
				if err := a.provisioner.Finalize(ctxOf(cmd), conn, args[1]); err != nil {
					return err
				}
				return e.printer(cmd).PrintSuccess("Connection " + conn.GUID + " is active")
			})
		},
	}

	authorizationsCmd := &cobra.Command{
		Use:   "authorizations <guid>",
		Short: "Fetch and decrypt pending authorizations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd, func(a *app) error {
				conn, err := a.connections.Get(args[0])
				if err != nil {
					return err
				}
				list, err := a.provisioner.Authorizations(ctxOf(cmd), conn, time.Now())
				if err != nil {
					return err
				}
				return e.printer(cmd).PrintAuthorizations(list)
			})
		},
	}

	revokeCmd := &cobra.Command{
		Use:   "revoke <guid>",
		Short: "Revoke a connection and delete its keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd, func(a *app) error {
				conn, err := a.connections.Get(args[0])
				if err != nil {
					return err
				}
				if err := a.provisioner.Revoke(ctxOf(cmd), conn); err != nil {
					return err
				}
				return e.printer(cmd).PrintSuccess("Revoked connection " + conn.GUID)
			})
		},
	}

	connectionsCmd.AddCommand(listCmd, finalizeCmd, authorizationsCmd, revokeCmd)
	return connectionsCmd
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
