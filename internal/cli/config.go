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
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-authenticator/internal/config"
)

// env resolves global flags for a single invocation
type env struct {
	v *viper.Viper
}

// loadConfig reads the config file and applies flag overrides
func (e *env) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(e.v.GetString("config"))
	if err != nil {
		return nil, err
	}
	if backend := e.v.GetString("storage"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if dir := e.v.GetString("data-dir"); dir != "" {
		cfg.Storage.Path = dir
	}
	if e.v.GetBool("verbose") {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// open builds the application for one command run. The caller closes it.
func (e *env) open(cmd *cobra.Command) (*app, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg, cmd.ErrOrStderr())
}

func (e *env) printer(cmd *cobra.Command) *Printer {
	return NewPrinter(e.v.GetString("output"), cmd.OutOrStdout())
}

// readInput returns the contents of path, or of stdin for "" and "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	// #nosec G304 - Input path is provided by the user
	return os.ReadFile(path)
}
