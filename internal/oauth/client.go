// Package oauth talks to the external OAuth2 authorization server that issues,
// revokes and introspects bearer tokens. The server is treated as opaque: its
// token responses are relayed to callers as-is.
package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/geocoder89/rentdesk/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	TokenPath      = "/user/oauth/token/"
	RevokePath     = "/user/oauth/revoke-token/"
	IntrospectPath = "/user/oauth/introspect/"

	maxResponseBytes = 1 << 20
)

// TokenResponse is the authorization server's token JSON, kept verbatim.
type TokenResponse map[string]any

// Introspection is the subset of an RFC 7662 response the gateway uses.
type Introspection struct {
	Active   bool   `json:"active"`
	Username string `json:"username"`
	Scope    string `json:"scope"`
	ClientID string `json:"client_id"`
	Exp      int64  `json:"exp"`
}

// ExpiresAt is the zero time when the server did not report an expiry.
func (i Introspection) ExpiresAt() time.Time {
	if i.Exp <= 0 {
		return time.Time{}
	}
	return time.Unix(i.Exp, 0)
}

// UpstreamError describes a failed call to the authorization server.
// StatusCode is zero when no HTTP response was received.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("oauth %s: unreachable: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("oauth %s: status %d", e.Endpoint, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Unreachable() bool {
	return e.StatusCode == 0
}

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	// HTTPClient defaults to a client without a timeout; callers bound
	// individual calls through their context.
	HTTPClient *http.Client
}

type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	http         *http.Client
	prom         *observability.Prom
	tracer       trace.Tracer
}

func NewClient(cfg Config, prom *observability.Prom) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		http:         hc,
		prom:         prom,
		tracer:       otel.Tracer("github.com/geocoder89/rentdesk/internal/oauth"),
	}
}

// PasswordGrant exchanges user credentials for a token.
func (c *Client) PasswordGrant(ctx context.Context, username, password string) (TokenResponse, error) {
	body := map[string]string{
		"grant_type":    "password",
		"username":      username,
		"password":      password,
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	}

	raw, err := c.postJSON(ctx, "token", TokenPath, body)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var out TokenResponse
	if err := dec.Decode(&out); err != nil {
		return nil, &UpstreamError{Endpoint: "token", Err: fmt.Errorf("decode token response: %w", err)}
	}
	if out == nil {
		return nil, &UpstreamError{Endpoint: "token", Err: errors.New("token response is not a JSON object")}
	}

	return out, nil
}

// Revoke asks the server to revoke token.
func (c *Client) Revoke(ctx context.Context, token string) error {
	body := map[string]string{
		"token":         token,
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	}

	_, err := c.postJSON(ctx, "revoke", RevokePath, body)
	return err
}

// Introspect asks the server whether token is active and whom it belongs to.
func (c *Client) Introspect(ctx context.Context, token string) (Introspection, error) {
	form := url.Values{"token": {token}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+IntrospectPath, strings.NewReader(form.Encode()))
	if err != nil {
		return Introspection{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	raw, err := c.do(ctx, "introspect", req)
	if err != nil {
		return Introspection{}, err
	}

	var out Introspection
	if err := json.Unmarshal(raw, &out); err != nil {
		return Introspection{}, &UpstreamError{Endpoint: "introspect", Err: fmt.Errorf("decode introspection: %w", err)}
	}

	return out, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(ctx, endpoint, req)
}

// do sends req and returns the body of a 2xx response. Anything else becomes
// an *UpstreamError.
func (c *Client) do(ctx context.Context, endpoint string, req *http.Request) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "oauth."+endpoint, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req = req.WithContext(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()

	res, err := c.http.Do(req)
	if err != nil {
		c.prom.ObserveUpstream(endpoint, "unreachable", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "unreachable")
		return nil, &UpstreamError{Endpoint: endpoint, Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode))

	if err != nil {
		c.prom.ObserveUpstream(endpoint, "unreachable", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		return nil, &UpstreamError{Endpoint: endpoint, Err: fmt.Errorf("read response: %w", err)}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.prom.ObserveUpstream(endpoint, "rejected", time.Since(start))
		span.SetStatus(codes.Error, res.Status)
		return nil, &UpstreamError{
			Endpoint:   endpoint,
			StatusCode: res.StatusCode,
			Body:       raw,
			Err:        errors.New(res.Status),
		}
	}

	c.prom.ObserveUpstream(endpoint, "ok", time.Since(start))

	return raw, nil
}
