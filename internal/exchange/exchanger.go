package exchange

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultTimeout bounds a single token request, including reading the response.
const DefaultTimeout = 10 * time.Second

// Option configures an Exchanger.
type Option func(*exchangerConfig)

// exchangerConfig holds configuration for New.
type exchangerConfig struct {
	baseTransport http.RoundTripper
	timeout       time.Duration
}

// WithTransport sets a custom base transport for token requests.
// If not provided, http.DefaultTransport is used.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *exchangerConfig) {
		c.baseTransport = transport
	}
}

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(c *exchangerConfig) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// Exchanger performs client-credentials grants against a single token endpoint.
// It is safe for concurrent use, though the batch runner never calls it concurrently.
type Exchanger struct {
	tokenURL   string
	httpClient *http.Client
}

// New creates an Exchanger for the given token endpoint URL.
func New(tokenURL string, opts ...Option) *Exchanger {
	cfg := &exchangerConfig{
		baseTransport: http.DefaultTransport,
		timeout:       DefaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Exchanger{
		tokenURL: tokenURL,
		httpClient: &http.Client{
			Timeout: cfg.timeout,
			Transport: &rawBasicAuthTransport{
				base: cfg.baseTransport,
			},
		},
	}
}

// Exchange requests an access token for one client. It never fails: errors
// are logged and returned as a Result with Status false.
func (e *Exchanger) Exchange(ctx context.Context, clientID, clientSecret string) Result {
	conf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     e.tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	// oauth2 picks up the HTTP client from the context (oauth2.HTTPClient key)
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	token, err := conf.Token(ctx)
	if err != nil {
		exErr := newExchangeError(TruncateID(clientID), err)
		slog.ErrorContext(ctx, "error fetching token",
			"client", exErr.ClientID,
			"status_code", exErr.StatusCode,
			"error", exErr.Payload(),
		)
		return failed(exErr)
	}

	return Result{
		Status:      true,
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   expiresIn(token),
	}
}

func newExchangeError(clientID string, err error) *ExchangeError {
	exErr := &ExchangeError{ClientID: clientID, Err: err}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		exErr.Body = retrieveErr.Body
		if retrieveErr.Response != nil {
			exErr.StatusCode = retrieveErr.Response.StatusCode
		}
	}
	return exErr
}

// expiresIn reports the lifetime the endpoint granted, in seconds.
func expiresIn(token *oauth2.Token) int64 {
	if token.ExpiresIn != 0 {
		return token.ExpiresIn
	}
	// Form-encoded responses only surface the raw value through Extra
	switch v := token.Extra("expires_in").(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// TruncateID shortens a client identifier to its first 10 characters for logging.
func TruncateID(clientID string) string {
	const visible = 10
	runes := []rune(clientID)
	if len(runes) <= visible {
		return clientID + "..."
	}
	return string(runes[:visible]) + "..."
}
