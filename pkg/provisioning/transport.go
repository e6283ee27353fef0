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

package provisioning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jeremyhahn/go-authenticator/pkg/adapters/logger"
	"github.com/jeremyhahn/go-authenticator/pkg/connection"
	"github.com/jeremyhahn/go-authenticator/pkg/correlation"
	"github.com/jeremyhahn/go-authenticator/pkg/envelope"
	"github.com/jeremyhahn/go-authenticator/pkg/signing"
)

// Transport is the network boundary of the provisioning protocol.
type Transport interface {
	FetchConfiguration(ctx context.Context, configURL string) (*ProviderConfig, error)
	CreateConnectionV1(ctx context.Context, conn *connection.Connection, req *CreateRequestV1) (*CreateResponseV1, error)
	CreateConnectionV2(ctx context.Context, conn *connection.Connection, req *CreateRequestV2) (*CreateResponseV2, error)
	RevokeConnection(ctx context.Context, conn *connection.Connection) error
	ListAuthorizations(ctx context.Context, conn *connection.Connection) ([]envelope.EncryptedData, error)
}

const (
	pathV1 = "/api/authenticator/v1"
	pathV2 = "/api/authenticator/v2"

	// DefaultTimeout bounds each provider request.
	DefaultTimeout = 30 * time.Second

	maxResponseSize = 4 << 20
)

// HTTPTransport talks to providers over HTTPS. Every request except the
// configuration fetch is signed with the connection's key pair and sent
// through signing.RoundTripper, so a request whose signature could not be
// produced never leaves the device.
type HTTPTransport struct {
	signer      *signing.Signer
	signed      *http.Client
	plain       *http.Client
	geoLocation string
	authType    string
	log         logger.Logger
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient sets the client used for all requests. Its transport is
// wrapped for signed requests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) { t.plain = c }
}

// WithGeoLocation sets the GEO-Location header value.
func WithGeoLocation(geo string) HTTPOption {
	return func(t *HTTPTransport) { t.geoLocation = geo }
}

// WithAuthorizationType sets the v2 Authorization-Type header value.
func WithAuthorizationType(kind string) HTTPOption {
	return func(t *HTTPTransport) { t.authType = kind }
}

func WithTransportLogger(l logger.Logger) HTTPOption {
	return func(t *HTTPTransport) { t.log = l }
}

// NewHTTPTransport returns an HTTPTransport signing with signer.
func NewHTTPTransport(signer *signing.Signer, opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{signer: signer}
	for _, opt := range opts {
		opt(t)
	}
	if t.plain == nil {
		t.plain = &http.Client{Timeout: DefaultTimeout}
	}
	if t.log == nil {
		t.log = logger.NewNop()
	}
	t.signed = &http.Client{
		Timeout:       t.plain.Timeout,
		Jar:           t.plain.Jar,
		CheckRedirect: t.plain.CheckRedirect,
		Transport:     &signing.RoundTripper{Base: t.plain.Transport},
	}
	return t
}

// FetchConfiguration downloads the provider configuration. The request is
// not signed; no key pair exists yet.
func (t *HTTPTransport) FetchConfiguration(ctx context.Context, configURL string) (*ProviderConfig, error) {
	req, err := t.newRequest(ctx, http.MethodGet, configURL, nil)
	if err != nil {
		return nil, err
	}
	var out dataResponse[ProviderConfig]
	if err := t.do(t.plain, req, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (t *HTTPTransport) CreateConnectionV1(ctx context.Context, conn *connection.Connection, body *CreateRequestV1) (*CreateResponseV1, error) {
	req, err := t.newRequest(ctx, http.MethodPost, conn.BaseURL+pathV1+"/connections", dataRequest{Data: body})
	if err != nil {
		return nil, err
	}
	if err := t.signer.SignV1(req, t.params(conn)); err != nil {
		return nil, err
	}
	var out dataResponse[CreateResponseV1]
	if err := t.do(t.signed, req, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (t *HTTPTransport) CreateConnectionV2(ctx context.Context, conn *connection.Connection, body *CreateRequestV2) (*CreateResponseV2, error) {
	req, err := t.newRequest(ctx, http.MethodPost, conn.BaseURL+pathV2+"/connections", t.bodyV2(body))
	if err != nil {
		return nil, err
	}
	if err := t.signer.SignV2(req, t.params(conn)); err != nil {
		return nil, err
	}
	var out dataResponse[CreateResponseV2]
	if err := t.do(t.signed, req, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// RevokeConnection asks the provider to forget the connection.
func (t *HTTPTransport) RevokeConnection(ctx context.Context, conn *connection.Connection) error {
	var (
		req *http.Request
		err error
	)
	if conn.IsV2() {
		req, err = t.newRequest(ctx, http.MethodPut,
			conn.BaseURL+pathV2+"/connections/"+url.PathEscape(conn.ID)+"/revoke", t.bodyV2(struct{}{}))
		if err == nil {
			err = t.signer.SignV2(req, t.params(conn))
		}
	} else {
		req, err = t.newRequest(ctx, http.MethodDelete, conn.BaseURL+pathV1+"/connections", nil)
		if err == nil {
			err = t.signer.SignV1(req, t.params(conn))
		}
	}
	if err != nil {
		return err
	}
	return t.do(t.signed, req, nil)
}

// ListAuthorizations returns the pending encrypted authorizations.
func (t *HTTPTransport) ListAuthorizations(ctx context.Context, conn *connection.Connection) ([]envelope.EncryptedData, error) {
	var (
		req *http.Request
		err error
	)
	if conn.IsV2() {
		req, err = t.newRequest(ctx, http.MethodGet, conn.BaseURL+pathV2+"/authorizations", nil)
		if err == nil {
			err = t.signer.SignV2(req, t.params(conn))
		}
	} else {
		req, err = t.newRequest(ctx, http.MethodGet, conn.BaseURL+pathV1+"/authorizations", nil)
		if err == nil {
			err = t.signer.SignV1(req, t.params(conn))
		}
	}
	if err != nil {
		return nil, err
	}
	var out dataResponse[[]envelope.EncryptedData]
	if err := t.do(t.signed, req, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (t *HTTPTransport) params(conn *connection.Connection) signing.Params {
	return signing.Params{
		Tag:               conn.KeyTag(),
		AccessToken:       conn.AccessToken,
		GeoLocation:       t.geoLocation,
		AuthorizationType: t.authType,
	}
}

func (t *HTTPTransport) bodyV2(data any) dataRequestV2 {
	return dataRequestV2{
		Data: data,
		Exp:  jwt.NewNumericDate(time.Unix(signing.ExpiresAt(t.signer.Now()), 0)),
	}
}

func (t *HTTPTransport) newRequest(ctx context.Context, method, rawURL string, body any) (*http.Request, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("provisioning: failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("provisioning: failed to create request: %w", err)
	}
	req.Header.Set(signing.HeaderAccept, signing.ContentTypeJSON)
	if body != nil {
		req.Header.Set(signing.HeaderContentType, signing.ContentTypeJSON)
	}
	if id := correlation.GetCorrelationID(ctx); id != "" {
		req.Header.Set(correlation.Header, id)
	}
	return req, nil
}

// do sends req and decodes a 2xx body into out. Other statuses become a
// *ProtocolError carrying the provider's error class and message.
func (t *HTTPTransport) do(client *http.Client, req *http.Request, out any) error {
	log := logger.WithContext(req.Context(), t.log)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("provisioning: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn("failed to close response body", logger.Error(closeErr))
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("provisioning: failed to read response body: %w", err)
	}
	log.Debug("provider response",
		logger.String("method", req.Method),
		logger.String("path", req.URL.Path),
		logger.Int("status", resp.StatusCode))

	if resp.StatusCode >= 400 {
		pe := &ProtocolError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.ErrorMessage != "" {
			pe.Class = errResp.ErrorClass
			pe.Message = errResp.ErrorMessage
		}
		return pe
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &ProtocolError{StatusCode: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}
