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

// Package keystore persists the RSA key pairs, provider public keys and raw
// symmetric keys of the authenticator, addressed by Tag.
//
// Public keys are stored as PKCS#1 and private keys as PKCS#8, encrypted
// with the configured password when one is set. Every write replaces what
// was previously stored under the tag.
package keystore

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jeremyhahn/go-authenticator/pkg/adapters/logger"
	"github.com/jeremyhahn/go-authenticator/pkg/crypto/rand"
	"github.com/jeremyhahn/go-authenticator/pkg/encoding"
	"github.com/jeremyhahn/go-authenticator/pkg/metrics"
	"github.com/jeremyhahn/go-authenticator/pkg/storage"
)

// DefaultKeySize is the RSA modulus size of generated pairs.
const DefaultKeySize = 2048

// Config configures a KeyStore.
type Config struct {
	// Backend persists records. Required.
	Backend storage.Backend

	// Password encrypts private keys at rest when non-empty.
	Password []byte

	// KeySize overrides DefaultKeySize.
	KeySize int

	Random rand.Resolver
	Logger logger.Logger
}

// KeyPair is a generated or loaded RSA pair.
type KeyPair struct {
	Tag     Tag
	Public  *rsa.PublicKey
	Private *rsa.PrivateKey
}

// KeyStore is safe for concurrent use.
type KeyStore struct {
	mu       sync.RWMutex
	backend  storage.Backend
	password []byte
	keySize  int
	random   rand.Resolver
	log      logger.Logger
	closed   bool
}

// New returns a KeyStore over config.Backend.
func New(config *Config) (*KeyStore, error) {
	if config == nil || config.Backend == nil {
		return nil, fmt.Errorf("keystore: storage backend is required")
	}
	ks := &KeyStore{
		backend:  config.Backend,
		password: config.Password,
		keySize:  config.KeySize,
		random:   config.Random,
		log:      config.Logger,
	}
	if ks.keySize == 0 {
		ks.keySize = DefaultKeySize
	}
	if ks.random == nil {
		ks.random = rand.NewResolver()
	}
	if ks.log == nil {
		ks.log = logger.NewNop()
	}
	return ks, nil
}

// GenerateKeyPair creates a new RSA pair under tag, replacing any pair
// previously stored there.
func (ks *KeyStore) GenerateKeyPair(tag Tag) (pair *KeyPair, err error) {
	defer metrics.Observe(metrics.OpGenerate, metrics.ComponentKeyStore, time.Now(), &err)
	if tag == "" {
		return nil, ErrInvalidTag
	}
	tag = tag.Public()

	ks.mu.Lock()
	defer ks.mu.Unlock()
	if ks.closed {
		return nil, ErrClosed
	}

	ks.deleteLocked(tag)
	ks.deleteLocked(tag.Private())

	key, err := rsa.GenerateKey(ks.random, ks.keySize)
	if err != nil {
		metrics.RecordError(metrics.OpGenerate, metrics.ComponentKeyStore, "generation_failed")
		return nil, fmt.Errorf("%w: %v", ErrKeyGenerationFailed, err)
	}
	if err := ks.putPrivateLocked(tag.Private(), key); err != nil {
		return nil, err
	}
	if err := ks.putPublicLocked(tag, &key.PublicKey); err != nil {
		ks.deleteLocked(tag.Private())
		return nil, err
	}

	ks.log.Debug("key pair generated", logger.String("tag", tag.String()), logger.Int("bits", ks.keySize))
	return &KeyPair{Tag: tag, Public: &key.PublicKey, Private: key}, nil
}

// ImportKey parses a PEM encoded RSA key and stores it under tag,
// replacing any previous value. Public keys may be SubjectPublicKeyInfo or
// PKCS#1; private keys PKCS#8 or PKCS#1. The returned value is an
// *rsa.PublicKey or *rsa.PrivateKey.
func (ks *KeyStore) ImportKey(pemData string, isPublic bool, tag Tag) (key any, err error) {
	defer metrics.Observe(metrics.OpImport, metrics.ComponentKeyStore, time.Now(), &err)
	if isPublic {
		pub, err := ks.ImportPublicKey(pemData, tag)
		if err != nil {
			return nil, err
		}
		return pub, nil
	}
	priv, err := ks.ImportPrivateKey(pemData, tag)
	if err != nil {
		return nil, err
	}
	return priv, nil
}

// ImportPublicKey is ImportKey for public keys.
func (ks *KeyStore) ImportPublicKey(pemData string, tag Tag) (*rsa.PublicKey, error) {
	if tag == "" {
		return nil, ErrInvalidTag
	}
	der, err := encoding.DecodePEMBody(pemData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataMalformed, err)
	}
	pub, err := encoding.ParseRSAPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataMalformed, err)
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()
	if ks.closed {
		return nil, ErrClosed
	}
	ks.deleteLocked(tag)
	if err := ks.putPublicLocked(tag, pub); err != nil {
		return nil, err
	}
	ks.log.Debug("public key imported", logger.String("tag", tag.String()))
	return pub, nil
}

// ImportPrivateKey is ImportKey for private keys.
func (ks *KeyStore) ImportPrivateKey(pemData string, tag Tag) (*rsa.PrivateKey, error) {
	if tag == "" {
		return nil, ErrInvalidTag
	}
	der, err := encoding.DecodePEMBody(pemData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataMalformed, err)
	}
	priv, err := encoding.ParseRSAPrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataMalformed, err)
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()
	if ks.closed {
		return nil, ErrClosed
	}
	ks.deleteLocked(tag)
	if err := ks.putPrivateLocked(tag, priv); err != nil {
		return nil, err
	}
	ks.log.Debug("private key imported", logger.String("tag", tag.String()))
	return priv, nil
}

// DeleteKeyPair removes both halves of the pair at tag. Missing entries are
// not an error; the result is false only if the backend failed to remove
// an entry that exists.
func (ks *KeyStore) DeleteKeyPair(tag Tag) bool {
	if tag == "" {
		return true
	}
	tag = tag.Public()

	ks.mu.Lock()
	defer ks.mu.Unlock()
	if ks.closed {
		return false
	}
	ok := ks.deleteLocked(tag.Private())
	ok = ks.deleteLocked(tag) && ok
	status := metrics.StatusSuccess
	if !ok {
		status = metrics.StatusError
	}
	metrics.RecordOperation(metrics.OpDelete, metrics.ComponentKeyStore, status, 0)
	return ok
}

// DeleteKey removes a single tag, such as a provider public key.
func (ks *KeyStore) DeleteKey(tag Tag) bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if ks.closed {
		return false
	}
	return ks.deleteLocked(tag)
}

// ExportPublicKeyPEM returns the public key at tag as a "PUBLIC KEY" PEM
// block. The output is deterministic for a given key.
func (ks *KeyStore) ExportPublicKeyPEM(tag Tag) (out string, err error) {
	defer metrics.Observe(metrics.OpExport, metrics.ComponentKeyStore, time.Now(), &err)
	pkcs1, err := ks.publicDER(tag.Public())
	if err != nil {
		return "", err
	}
	return encoding.PublicKeyPEM(pkcs1)
}

// PublicKey returns the public key stored under tag.
func (ks *KeyStore) PublicKey(tag Tag) (*rsa.PublicKey, error) {
	der, err := ks.publicDER(tag)
	if err != nil {
		return nil, err
	}
	pub, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataMalformed, tag, err)
	}
	return pub, nil
}

// PrivateKey returns the private key stored under tag. For generated pairs
// pass the pair tag's Private().
func (ks *KeyStore) PrivateKey(tag Tag) (*rsa.PrivateKey, error) {
	block, kind, err := ks.record(tag)
	if err != nil {
		return nil, err
	}
	if kind != KindPrivate {
		return nil, fmt.Errorf("%w: %s holds a %s key", ErrDataMalformed, tag, kind)
	}
	var password []byte
	if block.Type == recordEncryptedPrivate {
		password = ks.password
	}
	priv, err := encoding.DecodePKCS8(block.Bytes, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataMalformed, tag, err)
	}
	return priv, nil
}

// KeyPair loads both halves of the pair at tag.
func (ks *KeyStore) KeyPair(tag Tag) (*KeyPair, error) {
	tag = tag.Public()
	priv, err := ks.PrivateKey(tag.Private())
	if err != nil {
		return nil, err
	}
	pub, err := ks.PublicKey(tag)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Tag: tag, Public: pub, Private: priv}, nil
}

// ObtainKey returns whatever is stored under tag: *rsa.PublicKey,
// *rsa.PrivateKey or a raw []byte key. It has no side effects.
func (ks *KeyStore) ObtainKey(tag Tag) (any, error) {
	_, kind, err := ks.record(tag)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindPublic:
		return ks.PublicKey(tag)
	case KindPrivate:
		return ks.PrivateKey(tag)
	default:
		return ks.RawKey(tag)
	}
}

// HasKeyPair reports whether both halves of the pair at tag exist.
func (ks *KeyStore) HasKeyPair(tag Tag) bool {
	tag = tag.Public()
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	if ks.closed {
		return false
	}
	pub, _ := ks.backend.Exists(storage.KeyPath(tag.String()))
	priv, _ := ks.backend.Exists(storage.KeyPath(tag.Private().String()))
	return pub && priv
}

// Tags lists every stored tag.
func (ks *KeyStore) Tags() ([]Tag, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	if ks.closed {
		return nil, ErrClosed
	}
	ids, err := storage.ListKeys(ks.backend)
	if err != nil {
		return nil, err
	}
	tags := make([]Tag, len(ids))
	for i, id := range ids {
		tags[i] = Tag(id)
	}
	return tags, nil
}

// Close marks the store closed. The backend is owned by the caller.
func (ks *KeyStore) Close() error {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.closed = true
	return nil
}

func (ks *KeyStore) publicDER(tag Tag) ([]byte, error) {
	block, kind, err := ks.record(tag)
	if err != nil {
		return nil, err
	}
	if kind != KindPublic {
		return nil, fmt.Errorf("%w: %s holds a %s key", ErrDataMalformed, tag, kind)
	}
	return block.Bytes, nil
}

func (ks *KeyStore) record(tag Tag) (*pem.Block, Kind, error) {
	if tag == "" {
		return nil, 0, ErrInvalidTag
	}
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	if ks.closed {
		return nil, 0, ErrClosed
	}
	data, err := ks.backend.Get(storage.KeyPath(tag.String()))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, tag)
		}
		return nil, 0, fmt.Errorf("keystore: failed to read %s: %w", tag, err)
	}
	return decodeRecord(tag, data)
}

func (ks *KeyStore) putPublicLocked(tag Tag, pub *rsa.PublicKey) error {
	return ks.putLocked(tag, encodeRecord(recordPublic, x509.MarshalPKCS1PublicKey(pub)))
}

func (ks *KeyStore) putPrivateLocked(tag Tag, priv *rsa.PrivateKey) error {
	der, err := encoding.EncodePKCS8(priv, ks.password)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAddToStoreFailed, err)
	}
	blockType := recordPrivate
	if len(ks.password) > 0 {
		blockType = recordEncryptedPrivate
	}
	return ks.putLocked(tag, encodeRecord(blockType, der))
}

func (ks *KeyStore) putLocked(tag Tag, record []byte) error {
	if err := ks.backend.Put(storage.KeyPath(tag.String()), record, storage.DefaultOptions()); err != nil {
		metrics.RecordError(metrics.OpGenerate, metrics.ComponentKeyStore, "add_to_store_failed")
		return fmt.Errorf("%w: %s: %v", ErrAddToStoreFailed, tag, err)
	}
	return nil
}

// deleteLocked removes tag, treating absence as success.
func (ks *KeyStore) deleteLocked(tag Tag) bool {
	err := ks.backend.Delete(storage.KeyPath(tag.String()))
	if err == nil || errors.Is(err, storage.ErrNotFound) {
		return true
	}
	ks.log.Warn("failed to delete key", logger.String("tag", tag.String()), logger.Error(err))
	return false
}
