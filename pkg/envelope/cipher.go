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

package envelope

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jeremyhahn/go-authenticator/pkg/adapters/logger"
	"github.com/jeremyhahn/go-authenticator/pkg/crypto/chunked"
	"github.com/jeremyhahn/go-authenticator/pkg/crypto/rand"
	"github.com/jeremyhahn/go-authenticator/pkg/keystore"
	"github.com/jeremyhahn/go-authenticator/pkg/metrics"
)

// KeyProvider resolves tags to RSA keys. *keystore.KeyStore implements it.
type KeyProvider interface {
	PublicKey(tag keystore.Tag) (*rsa.PublicKey, error)
	PrivateKey(tag keystore.Tag) (*rsa.PrivateKey, error)
}

// Cipher encrypts and decrypts envelopes.
type Cipher struct {
	keys   KeyProvider
	random rand.Resolver
	log    logger.Logger
}

// Option configures a Cipher.
type Option func(*Cipher)

// WithRandom overrides the random source used for keys, IVs and RSA padding.
func WithRandom(r rand.Resolver) Option {
	return func(c *Cipher) { c.random = r }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l logger.Logger) Option {
	return func(c *Cipher) { c.log = l }
}

// NewCipher returns a Cipher resolving tags through keys. keys may be nil
// when only the *WithKey methods are used.
func NewCipher(keys KeyProvider, opts ...Option) *Cipher {
	c := &Cipher{keys: keys}
	for _, opt := range opts {
		opt(c)
	}
	if c.random == nil {
		c.random = rand.NewResolver()
	}
	if c.log == nil {
		c.log = logger.NewNop()
	}
	return c
}

// Encrypt encrypts plaintext to the public key stored under recipient.
func (c *Cipher) Encrypt(plaintext string, recipient keystore.Tag) (*Envelope, error) {
	pub, err := c.publicKey(recipient)
	if err != nil {
		return nil, err
	}
	return c.EncryptWithKey(plaintext, pub)
}

// EncryptWithKey encrypts plaintext to pub.
func (c *Cipher) EncryptWithKey(plaintext string, pub *rsa.PublicKey) (env *Envelope, err error) {
	defer metrics.Observe(metrics.OpEncrypt, metrics.ComponentEnvelope, time.Now(), &err)

	if !utf8.ValidString(plaintext) {
		return nil, ErrDataEncodingFailed
	}
	key, err := c.random.Rand(KeySize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomGenerationFailed, err)
	}
	iv, err := c.random.Rand(IVSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomGenerationFailed, err)
	}

	data, err := cbcEncrypt(key, iv, []byte(plaintext))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataEncodingFailed, err)
	}
	encKey, err := chunked.PublicEncrypt(c.random, pub, key)
	if err != nil {
		return nil, err
	}
	encIV, err := chunked.PublicEncrypt(c.random, pub, iv)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		Data:      base64.StdEncoding.EncodeToString(data),
		Key:       base64.StdEncoding.EncodeToString(encKey),
		IV:        base64.StdEncoding.EncodeToString(encIV),
		Algorithm: Algorithm,
	}, nil
}

// Decrypt decrypts env with the private half of the pair at owner.
func (c *Cipher) Decrypt(env *Envelope, owner keystore.Tag) (string, error) {
	if c.keys == nil {
		return "", fmt.Errorf("envelope: no key provider configured")
	}
	priv, err := c.keys.PrivateKey(owner.Private())
	if err != nil {
		return "", err
	}
	return c.DecryptWithKey(env, priv)
}

// DecryptWithKey decrypts env with priv.
func (c *Cipher) DecryptWithKey(env *Envelope, priv *rsa.PrivateKey) (plaintext string, err error) {
	defer metrics.Observe(metrics.OpDecrypt, metrics.ComponentEnvelope, time.Now(), &err)

	if env == nil {
		return "", fmt.Errorf("%w: nil envelope", ErrMalformedEnvelope)
	}
	if err := env.Validate(); err != nil {
		return "", err
	}

	encKey, err := base64.StdEncoding.DecodeString(env.Key)
	if err != nil {
		return "", fmt.Errorf("%w: key: %v", ErrBase64DecodeFailed, err)
	}
	encIV, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return "", fmt.Errorf("%w: iv: %v", ErrBase64DecodeFailed, err)
	}

	key, err := chunked.PrivateDecrypt(priv, encKey)
	if err != nil {
		return "", err
	}
	iv, err := chunked.PrivateDecrypt(priv, encIV)
	if err != nil {
		return "", err
	}
	if len(key) == 0 {
		return "", ErrNoKeyProvided
	}
	if len(iv) == 0 {
		return "", ErrNoIVProvided
	}
	if len(key) != KeySize {
		return "", fmt.Errorf("%w: key length %d", ErrDecryptFailed, len(key))
	}

	data, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return "", fmt.Errorf("%w: data: %v", ErrBase64DecodeFailed, err)
	}
	out, err := cbcDecrypt(key, iv, data)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(out) {
		return "", ErrCouldNotCreateDecodedString
	}
	return string(out), nil
}

func (c *Cipher) publicKey(tag keystore.Tag) (*rsa.PublicKey, error) {
	if c.keys == nil {
		return nil, fmt.Errorf("envelope: no key provider configured")
	}
	return c.keys.PublicKey(tag)
}
