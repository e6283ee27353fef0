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
	"fmt"
	"io"

	"github.com/jeremyhahn/go-authenticator/internal/config"
	"github.com/jeremyhahn/go-authenticator/pkg/adapters/logger"
	"github.com/jeremyhahn/go-authenticator/pkg/connection"
	"github.com/jeremyhahn/go-authenticator/pkg/envelope"
	"github.com/jeremyhahn/go-authenticator/pkg/keystore"
	"github.com/jeremyhahn/go-authenticator/pkg/metrics"
	"github.com/jeremyhahn/go-authenticator/pkg/provisioning"
	"github.com/jeremyhahn/go-authenticator/pkg/signing"
	"github.com/jeremyhahn/go-authenticator/pkg/storage"
	"github.com/jeremyhahn/go-authenticator/pkg/storage/badgerstore"
	"github.com/jeremyhahn/go-authenticator/pkg/storage/file"
	"github.com/jeremyhahn/go-authenticator/pkg/storage/memory"
)

// connectionsKeyTag holds the key of the encrypted connection database.
const connectionsKeyTag keystore.Tag = "connections.db.key"

// app wires the components for one command run
type app struct {
	cfg         *config.Config
	log         logger.Logger
	keys        *keystore.KeyStore
	connections *connection.Store
	cipher      *envelope.Cipher
	signer      *signing.Signer
	provisioner *provisioning.Provisioner

	backends []storage.Backend
}

func newApp(cfg *config.Config, logOut io.Writer) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.log = logger.NewSlogAdapter(&logger.SlogConfig{
		Level:  logger.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
		Output: logOut,
	})
	if cfg.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}

	keyBackend, err := openBackend(cfg.Storage.Backend, cfg.Storage.KeysPath(), nil, cfg.Storage.SyncWrites)
	if err != nil {
		return nil, err
	}
	a.backends = append(a.backends, keyBackend)

	a.keys, err = keystore.New(&keystore.Config{
		Backend:  keyBackend,
		Password: cfg.KeyStore.Password(),
		KeySize:  cfg.KeyStore.KeySize,
		Logger:   a.log,
	})
	if err != nil {
		return nil, err
	}

	connBackend := keyBackend
	if cfg.Storage.EncryptConnections {
		dbKey, err := a.keys.EnsureRawKey(connectionsKeyTag, 32)
		if err != nil {
			return nil, fmt.Errorf("connection database key: %w", err)
		}
		connBackend, err = badgerstore.New(badgerstore.Config{
			Path:          cfg.Storage.ConnectionsPath(),
			EncryptionKey: dbKey,
			SyncWrites:    cfg.Storage.SyncWrites,
		})
		if err != nil {
			return nil, err
		}
		a.backends = append(a.backends, connBackend)
	}
	a.connections, err = connection.NewStore(connBackend, a.keys, a.log)
	if err != nil {
		return nil, err
	}

	a.cipher = envelope.NewCipher(a.keys, envelope.WithLogger(a.log))
	a.signer = signing.New(a.keys,
		signing.WithLanguage(cfg.Signing.Language),
		signing.WithLogger(a.log))

	httpClient, err := cfg.HTTP.Client()
	if err != nil {
		return nil, err
	}
	transport := provisioning.NewHTTPTransport(a.signer,
		provisioning.WithHTTPClient(httpClient),
		provisioning.WithGeoLocation(cfg.Signing.GeoLocation),
		provisioning.WithAuthorizationType(cfg.Signing.AuthorizationType),
		provisioning.WithTransportLogger(a.log))
	a.provisioner, err = provisioning.New(&provisioning.Config{
		Transport: transport,
		Keys:      a.keys,
		Store:     a.connections,
		Logger:    a.log,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func openBackend(kind, path string, encryptionKey []byte, syncWrites bool) (storage.Backend, error) {
	switch kind {
	case "memory":
		return memory.New(), nil
	case "file":
		return file.New(path)
	case "badger":
		return badgerstore.New(badgerstore.Config{Path: path, EncryptionKey: encryptionKey, SyncWrites: syncWrites})
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", kind)
	}
}

// Close releases the storage backends in reverse order of opening.
func (a *app) Close() error {
	var errs []error
	if a.keys != nil {
		errs = append(errs, a.keys.Close())
	}
	for i := len(a.backends) - 1; i >= 0; i-- {
		errs = append(errs, a.backends[i].Close())
	}
	return errors.Join(errs...)
}
