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

package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
)

// TLSConfig controls how provider certificates are verified
type TLSConfig struct {
	// CAFile adds a PEM bundle to the system roots.
	CAFile string `yaml:"ca_file"`

	// CertFile and KeyFile present a client certificate (mTLS).
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	MinVersion string `yaml:"min_version"` // TLS1.2, TLS1.3

	// InsecureSkipVerify disables verification. Testing only.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

func (cfg *TLSConfig) validate() error {
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return fmt.Errorf("tls cert_file and key_file must be set together")
	}
	switch cfg.MinVersion {
	case "", "TLS1.2", "TLS1.3":
	default:
		return fmt.Errorf("invalid tls min_version: %s", cfg.MinVersion)
	}
	return nil
}

// ClientTLSConfig builds the tls.Config used for provider requests.
func (cfg *TLSConfig) ClientTLSConfig() (*tls.Config, error) {
	// #nosec G402 - MinVersion defaults to TLS 1.2
	tlsConfig := &tls.Config{
		MinVersion:         parseTLSVersion(cfg.MinVersion),
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if cfg.CAFile != "" {
		pool, err := loadCertPool(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}

// Client returns the HTTP client for provider requests.
func (c *HTTPConfig) Client() (*http.Client, error) {
	tlsConfig, err := c.TLS.ClientTLSConfig()
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	return &http.Client{Timeout: c.Timeout, Transport: transport}, nil
}

func parseTLSVersion(version string) uint16 {
	if version == "TLS1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

// loadCertPool appends caFile to the system pool
func loadCertPool(caFile string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	// #nosec G304 - CA file path from trusted config
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file %s: %w", caFile, err)
	}
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate from %s", caFile)
	}
	return pool, nil
}
