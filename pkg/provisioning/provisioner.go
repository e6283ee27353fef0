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

// Package provisioning establishes a connection's key pair with a provider.
//
// Version 1 submits the device public key in the clear and receives either
// an access token or a URL the user must visit. Version 2 imports the
// provider's public key first, sends the device public key wrapped in an
// envelope, and receives an authentication URL. Each attempt regenerates
// the connection's key pair.
//
// Provision does not lock. Callers run at most one attempt per connection
// at a time.
package provisioning

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-authenticator/pkg/adapters/logger"
	"github.com/jeremyhahn/go-authenticator/pkg/authorization"
	"github.com/jeremyhahn/go-authenticator/pkg/connection"
	"github.com/jeremyhahn/go-authenticator/pkg/correlation"
	"github.com/jeremyhahn/go-authenticator/pkg/encoding"
	"github.com/jeremyhahn/go-authenticator/pkg/envelope"
	"github.com/jeremyhahn/go-authenticator/pkg/keystore"
	"github.com/jeremyhahn/go-authenticator/pkg/metrics"
)

// KeyStore is the key material the provisioner manages.
// *keystore.KeyStore implements it.
type KeyStore interface {
	GenerateKeyPair(tag keystore.Tag) (*keystore.KeyPair, error)
	ExportPublicKeyPEM(tag keystore.Tag) (string, error)
	ImportPublicKey(pemData string, tag keystore.Tag) (*rsa.PublicKey, error)
	PublicKey(tag keystore.Tag) (*rsa.PublicKey, error)
	PrivateKey(tag keystore.Tag) (*rsa.PrivateKey, error)
	HasKeyPair(tag keystore.Tag) bool
	DeleteKeyPair(tag keystore.Tag) bool
	DeleteKey(tag keystore.Tag) bool
}

// Result is the outcome of one provisioning attempt.
type Result struct {
	State State

	// History lists every state entered, starting with StateInitial.
	History []State

	// AccessToken is set in StateAccessTokenReceived.
	AccessToken string

	// RedirectURL is the v1 connect URL in StateRedirectRequired.
	RedirectURL string

	// AuthenticationURL is set in StateAuthenticationURLReceived.
	AuthenticationURL string

	// ConnectionID is the provider's id for the connection.
	ConnectionID string
}

// Config configures a Provisioner.
type Config struct {
	Transport Transport
	Keys      KeyStore

	// Store persists connections. Optional.
	Store *connection.Store

	Logger logger.Logger

	// OnTransition is called on every state change. Optional.
	OnTransition func(conn *connection.Connection, s State)
}

// Provisioner runs the provisioning protocol.
type Provisioner struct {
	transport    Transport
	keys         KeyStore
	cipher       *envelope.Cipher
	store        *connection.Store
	log          logger.Logger
	onTransition func(*connection.Connection, State)
}

// New returns a Provisioner.
func New(config *Config) (*Provisioner, error) {
	if config == nil || config.Transport == nil {
		return nil, fmt.Errorf("provisioning: transport is required")
	}
	if config.Keys == nil {
		return nil, fmt.Errorf("provisioning: key store is required")
	}
	log := config.Logger
	if log == nil {
		log = logger.NewNop()
	}
	p := &Provisioner{
		transport:    config.Transport,
		keys:         config.Keys,
		cipher:       envelope.NewCipher(config.Keys, envelope.WithLogger(log)),
		store:        config.Store,
		log:          log,
		onTransition: config.OnTransition,
	}
	return p, nil
}

// Connect fetches the provider configuration at configURL, creates a
// connection for it and provisions that connection.
func (p *Provisioner) Connect(ctx context.Context, configURL string, params Params) (*connection.Connection, *Result, error) {
	ctx, _ = correlation.Ensure(ctx)
	cfg, err := p.transport.FetchConfiguration(ctx, configURL)
	if err != nil {
		pe := asProtocolError(err)
		return nil, &Result{State: StateFailed, History: []State{StateInitial, StateFailed}}, pe
	}
	if err := cfg.Validate(); err != nil {
		return nil, &Result{State: StateFailed, History: []State{StateInitial, StateFailed}}, err
	}
	conn := cfg.NewConnection()
	res, err := p.Provision(ctx, conn, cfg, params)
	if err != nil {
		// conn was never saved, so no caller can reach its keys.
		p.discardKeys(conn)
	}
	return conn, res, err
}

func (p *Provisioner) discardKeys(conn *connection.Connection) {
	p.keys.DeleteKeyPair(conn.KeyTag())
	p.keys.DeleteKey(conn.ProviderKeyTag())
	p.log.Debug("discarded keys of unprovisioned connection", logger.String("guid", conn.GUID))
}

// Provision runs the protocol for conn against the provider described by
// cfg, starting from StateFetchedProviderConfig. conn is updated in place
// and saved when a Store is configured.
func (p *Provisioner) Provision(ctx context.Context, conn *connection.Connection, cfg *ProviderConfig, params Params) (res *Result, err error) {
	defer metrics.Observe(metrics.OpProvision, metrics.ComponentProvisioning, time.Now(), &err)
	ctx, _ = correlation.Ensure(ctx)

	if conn == nil {
		return nil, fmt.Errorf("provisioning: connection is required")
	}
	run := &attempt{p: p, conn: conn, res: &Result{}, log: logger.WithContext(ctx, p.log).With(
		logger.String("guid", conn.GUID),
		logger.String("api_version", conn.APIVersion))}
	run.enter(StateInitial)

	if err := cfg.Validate(); err != nil {
		return run.fail(err)
	}
	if cfg.apiVersion() != conn.APIVersion {
		return run.fail(fmt.Errorf("%w: connection is v%s, provider is v%s", ErrUnsupportedVersion, conn.APIVersion, cfg.apiVersion()))
	}
	run.enter(StateFetchedProviderConfig)

	if conn.IsV2() {
		return run.v2(ctx, cfg, params)
	}
	return run.v1(ctx, cfg, params)
}

// Finalize completes a v1 attempt that ended in StateRedirectRequired,
// once the provider has issued an access token out of band. The key pair
// from that attempt is kept.
func (p *Provisioner) Finalize(ctx context.Context, conn *connection.Connection, accessToken string) error {
	if conn == nil || accessToken == "" {
		return fmt.Errorf("provisioning: connection and access token are required")
	}
	if !p.keys.HasKeyPair(conn.KeyTag()) {
		return ErrKeyPairMissing
	}
	conn.Activate(accessToken)
	if err := p.save(conn); err != nil {
		return err
	}
	logger.WithContext(ctx, p.log).Info("connection finalized", logger.String("guid", conn.GUID))
	return nil
}

// Revoke asks the provider to revoke conn, then removes the connection and
// its keys locally. Local removal happens even when the provider call
// fails; that error is returned.
func (p *Provisioner) Revoke(ctx context.Context, conn *connection.Connection) (err error) {
	defer metrics.Observe(metrics.OpRevoke, metrics.ComponentProvisioning, time.Now(), &err)
	if conn == nil {
		return fmt.Errorf("provisioning: connection is required")
	}
	ctx, _ = correlation.Ensure(ctx)
	log := logger.WithContext(ctx, p.log).With(logger.String("guid", conn.GUID))

	var remoteErr error
	if conn.AccessToken != "" {
		if remoteErr = p.transport.RevokeConnection(ctx, conn); remoteErr != nil {
			log.Warn("provider revoke failed", logger.Error(remoteErr))
			remoteErr = asProtocolError(remoteErr)
		}
	}

	if p.store != nil {
		if err := p.store.Remove(conn.GUID); err != nil {
			return errors.Join(remoteErr, err)
		}
	} else {
		p.keys.DeleteKeyPair(conn.KeyTag())
		p.keys.DeleteKey(conn.ProviderKeyTag())
	}
	conn.Status = connection.StatusInactive
	conn.AccessToken = ""
	log.Info("connection revoked")
	return remoteErr
}

// Authorizations fetches and decrypts the connection's pending
// authorizations, returning those still active now.
func (p *Provisioner) Authorizations(ctx context.Context, conn *connection.Connection, now time.Time) ([]*authorization.Authorization, error) {
	if conn == nil || !conn.Active() {
		return nil, ErrNotConnected
	}
	ctx, _ = correlation.Ensure(ctx)
	items, err := p.transport.ListAuthorizations(ctx, conn)
	if err != nil {
		return nil, asProtocolError(err)
	}
	owner := func(connectionID string) (keystore.Tag, error) {
		if connectionID != conn.ID && connectionID != conn.GUID {
			return "", fmt.Errorf("provisioning: item belongs to connection %q", connectionID)
		}
		return conn.KeyTag(), nil
	}
	d := authorization.NewDecryptor(p.cipher, owner, logger.WithContext(ctx, p.log))
	return authorization.Active(d.DecryptAll(items), now), nil
}

func (p *Provisioner) save(conn *connection.Connection) error {
	if p.store == nil {
		return nil
	}
	return p.store.Save(conn)
}

// attempt carries the state of one Provision call.
type attempt struct {
	p    *Provisioner
	conn *connection.Connection
	res  *Result
	log  logger.Logger
}

func (a *attempt) enter(s State) {
	a.res.State = s
	a.res.History = append(a.res.History, s)
	metrics.RecordTransition(a.conn.APIVersion, s.String())
	a.log.Debug("provisioning state", logger.String("state", s.String()))
	if a.p.onTransition != nil {
		a.p.onTransition(a.conn, s)
	}
}

func (a *attempt) fail(err error) (*Result, error) {
	a.enter(StateFailed)
	a.log.Warn("provisioning failed", logger.Error(err))
	return a.res, err
}

// generate deletes and recreates the connection's key pair.
func (a *attempt) generate() error {
	if _, err := a.p.keys.GenerateKeyPair(a.conn.KeyTag()); err != nil {
		return err
	}
	a.enter(StateKeyPairGenerated)
	return nil
}

func (a *attempt) v1(ctx context.Context, cfg *ProviderConfig, params Params) (*Result, error) {
	if err := a.generate(); err != nil {
		return a.fail(err)
	}
	pub, err := a.p.keys.ExportPublicKeyPEM(a.conn.KeyTag())
	if err != nil {
		return a.fail(err)
	}

	req := &CreateRequestV1{
		PublicKey:    pub,
		ReturnURL:    params.ReturnURL,
		Platform:     params.platform(),
		PushToken:    params.PushToken,
		ProviderCode: cfg.Code,
		ConnectQuery: params.ConnectQuery,
	}
	a.enter(StateSubmittedToServer)
	resp, err := a.p.transport.CreateConnectionV1(ctx, a.conn, req)
	if err != nil {
		return a.fail(asProtocolError(err))
	}

	a.res.ConnectionID = resp.ID
	a.conn.ID = resp.ID
	switch {
	case resp.AccessToken != "":
		a.conn.Activate(resp.AccessToken)
		if err := a.p.save(a.conn); err != nil {
			return a.fail(err)
		}
		a.res.AccessToken = resp.AccessToken
		a.enter(StateAccessTokenReceived)
	case resp.ConnectURL != "":
		// The regenerated pair is not yet bound to any token.
		a.conn.AccessToken = ""
		a.conn.Status = connection.StatusInactive
		if err := a.p.save(a.conn); err != nil {
			return a.fail(err)
		}
		a.res.RedirectURL = resp.ConnectURL
		a.enter(StateRedirectRequired)
	default:
		return a.fail(&ProtocolError{Message: "response carries neither access_token nor connect_url"})
	}
	return a.res, nil
}

func (a *attempt) v2(ctx context.Context, cfg *ProviderConfig, params Params) (*Result, error) {
	if err := a.importProviderKey(cfg.PublicKey); err != nil {
		return a.fail(err)
	}
	a.enter(StateImportedProviderPublicKey)

	if err := a.generate(); err != nil {
		return a.fail(err)
	}
	pub, err := a.p.keys.ExportPublicKeyPEM(a.conn.KeyTag())
	if err != nil {
		return a.fail(err)
	}
	wrapped, err := a.p.cipher.Encrypt(pub, a.conn.ProviderKeyTag())
	if err != nil {
		return a.fail(err)
	}
	a.enter(StateLocalPublicKeyWrapped)

	req := &CreateRequestV2{
		ProviderID:         cfg.ProviderID,
		ReturnURL:          params.ReturnURL,
		Platform:           params.platform(),
		PushToken:          params.PushToken,
		ConnectQuery:       params.ConnectQuery,
		EncryptedPublicKey: wrapped,
	}
	a.enter(StateSubmittedToServer)
	resp, err := a.p.transport.CreateConnectionV2(ctx, a.conn, req)
	if err != nil {
		return a.fail(asProtocolError(err))
	}
	if resp.AuthenticationURL == "" || resp.ConnectionID == "" {
		return a.fail(&ProtocolError{Message: "response carries no authentication_url"})
	}

	a.conn.ID = resp.ConnectionID
	a.conn.ProviderID = cfg.ProviderID
	if err := a.p.save(a.conn); err != nil {
		return a.fail(err)
	}
	a.res.ConnectionID = resp.ConnectionID
	a.res.AuthenticationURL = resp.AuthenticationURL
	a.enter(StateAuthenticationURLReceived)
	return a.res, nil
}

// importProviderKey stores the provider key unless the same key is
// already stored for this connection, as after a failed submission.
func (a *attempt) importProviderKey(pemData string) error {
	tag := a.conn.ProviderKeyTag()
	if current, err := a.p.keys.PublicKey(tag); err == nil {
		offered, err := parsePublicKey(pemData)
		if err == nil && current.Equal(offered) {
			a.log.Debug("reusing imported provider key")
			return nil
		}
	}
	_, err := a.p.keys.ImportPublicKey(pemData, tag)
	return err
}

func parsePublicKey(pemData string) (*rsa.PublicKey, error) {
	der, err := encoding.DecodePEMBody(pemData)
	if err != nil {
		return nil, err
	}
	return encoding.ParseRSAPublicKey(der)
}
