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

// Package signing authenticates outbound provider requests with the
// connection's private key.
//
// Version 1 signs the canonical string "METHOD|URL|EXPIRES_AT|BODY" with
// RSASSA-PKCS1-v1_5 over SHA-256 and sends the base64 signature in the
// Signature header next to Expires-At. Version 2 sends a detached RS256 JWS
// of the JSON body in x-jws-signature; the expiry travels inside the body
// as "exp".
//
// A request whose key can't be loaded is returned without a signature
// header. RoundTripper refuses to send such requests.
package signing

import (
	"bytes"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jeremyhahn/go-authenticator/pkg/adapters/logger"
	"github.com/jeremyhahn/go-authenticator/pkg/keystore"
	"github.com/jeremyhahn/go-authenticator/pkg/metrics"
)

// KeyProvider loads signing keys. *keystore.KeyStore implements it.
type KeyProvider interface {
	PrivateKey(tag keystore.Tag) (*rsa.PrivateKey, error)
}

// Params are the per-request signing inputs.
type Params struct {
	// Tag is the connection key pair tag; the private half signs.
	Tag keystore.Tag

	AccessToken       string
	GeoLocation       string
	AuthorizationType string
}

// Signer produces signed header sets. It holds no mutable state.
type Signer struct {
	keys     KeyProvider
	now      func() time.Time
	language string
	log      logger.Logger
}

// Option configures a Signer.
type Option func(*Signer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

// WithLanguage sets Accept-Language.
func WithLanguage(lang string) Option {
	return func(s *Signer) { s.language = lang }
}

// WithLogger sets the logger used to report unsigned requests.
func WithLogger(l logger.Logger) Option {
	return func(s *Signer) { s.log = l }
}

// New returns a Signer loading keys from keys.
func New(keys KeyProvider, opts ...Option) *Signer {
	s := &Signer{keys: keys, now: time.Now, language: DefaultLanguage}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	return s
}

// Now returns the signer's current time.
func (s *Signer) Now() time.Time {
	return s.now()
}

// SignatureString builds the v1 canonical string.
func SignatureString(method, url string, expiresAt int64, body string) string {
	return method + "|" + url + "|" + strconv.FormatInt(expiresAt, 10) + "|" + body
}

// HeadersV1 returns the v1 header set for a request. The Signature header
// is omitted when the private key is unavailable.
func (s *Signer) HeadersV1(method, url string, body []byte, p Params) http.Header {
	expiresAt := ExpiresAt(s.now())
	h := s.baseHeaders(p)
	h.Set(HeaderExpiresAt, strconv.FormatInt(expiresAt, 10))

	sig, err := s.signV1(SignatureString(method, url, expiresAt, string(body)), p.Tag)
	if err != nil {
		s.log.Warn("request left unsigned",
			logger.String("version", "1"),
			logger.String("tag", p.Tag.String()),
			logger.Error(err))
		return h
	}
	h.Set(HeaderSignature, sig)
	return h
}

// HeadersV2 returns the v2 header set for a JSON body that already carries
// its "exp" claim. The x-jws-signature header is omitted when the private
// key is unavailable.
func (s *Signer) HeadersV2(body []byte, p Params) http.Header {
	h := s.baseHeaders(p)
	if p.AuthorizationType != "" {
		h.Set(HeaderAuthorizationType, p.AuthorizationType)
	}
	sig, err := s.SignJWS(body, p.Tag)
	if err != nil {
		s.log.Warn("request left unsigned",
			logger.String("version", "2"),
			logger.String("tag", p.Tag.String()),
			logger.Error(err))
		return h
	}
	h.Set(HeaderJWSSignature, sig)
	return h
}

// SignV1 sets the v1 headers on req. The URL signed is req.URL.String().
func (s *Signer) SignV1(req *http.Request, p Params) error {
	body, err := readBody(req)
	if err != nil {
		return err
	}
	copyHeaders(req.Header, s.HeadersV1(req.Method, req.URL.String(), body, p))
	return nil
}

// SignV2 sets the v2 headers on req.
func (s *Signer) SignV2(req *http.Request, p Params) error {
	body, err := readBody(req)
	if err != nil {
		return err
	}
	copyHeaders(req.Header, s.HeadersV2(body, p))
	return nil
}

// SignJWS returns the detached compact RS256 JWS of payload,
// "header..signature".
func (s *Signer) SignJWS(payload []byte, tag keystore.Tag) (out string, err error) {
	defer metrics.Observe(metrics.OpSign, metrics.ComponentSigner, time.Now(), &err)
	key, err := s.privateKey(tag)
	if err != nil {
		return "", err
	}
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: key}, nil)
	if err != nil {
		return "", fmt.Errorf("signing: failed to create JWS signer: %w", err)
	}
	obj, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("signing: failed to sign payload: %w", err)
	}
	return obj.DetachedCompactSerialize()
}

func (s *Signer) signV1(signingString string, tag keystore.Tag) (out string, err error) {
	defer metrics.Observe(metrics.OpSign, metrics.ComponentSigner, time.Now(), &err)
	key, err := s.privateKey(tag)
	if err != nil {
		return "", err
	}
	sig, err := jwt.SigningMethodRS256.Sign(signingString, key)
	if err != nil {
		return "", fmt.Errorf("signing: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

func (s *Signer) privateKey(tag keystore.Tag) (*rsa.PrivateKey, error) {
	if s.keys == nil {
		return nil, fmt.Errorf("signing: no key provider configured")
	}
	if tag == "" {
		return nil, keystore.ErrInvalidTag
	}
	return s.keys.PrivateKey(tag.Private())
}

func (s *Signer) baseHeaders(p Params) http.Header {
	h := make(http.Header)
	h.Set(HeaderAccept, ContentTypeJSON)
	h.Set(HeaderAcceptLanguage, s.language)
	h.Set(HeaderContentType, ContentTypeJSON)
	if p.AccessToken != "" {
		h.Set(HeaderAccessToken, p.AccessToken)
	}
	if p.GeoLocation != "" {
		h.Set(HeaderGeoLocation, p.GeoLocation)
	}
	return h
}

// readBody drains req.Body and restores it so the request can still be sent.
func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("signing: failed to read request body: %w", err)
	}
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	req.ContentLength = int64(len(body))
	return body, nil
}

func copyHeaders(dst, src http.Header) {
	for k, v := range src {
		dst[k] = v
	}
}
