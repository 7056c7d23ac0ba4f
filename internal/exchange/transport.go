package exchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
)

// maxTokenResponseSize matches the limit oauth2 applies when reading token responses.
const maxTokenResponseSize = 1 << 20

// rawBasicAuthTransport rewrites the Basic credentials oauth2 sends with
// AuthStyleInHeader, which are URL-escaped, into the unescaped form.
// The oauth2 package guarantees this transport only receives token endpoint requests.
type rawBasicAuthTransport struct {
	base http.RoundTripper
}

// Compile-time check that rawBasicAuthTransport implements http.RoundTripper.
var _ http.RoundTripper = (*rawBasicAuthTransport)(nil)

// RoundTrip replaces the Authorization header and relabels JSON token responses
// served under another content type.
func (t *rawBasicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	id, secret, ok := req.BasicAuth()
	if !ok {
		return t.forward(req)
	}

	// Keep the original value if it was not escaped by oauth2
	if unescaped, err := url.QueryUnescape(id); err == nil {
		id = unescaped
	}
	if unescaped, err := url.QueryUnescape(secret); err == nil {
		secret = unescaped
	}

	newReq := req.Clone(req.Context())
	newReq.SetBasicAuth(id, secret)

	return t.forward(newReq)
}

func (t *rawBasicAuthTransport) forward(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if err := normalizeContentType(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// normalizeContentType marks a successful response as application/json when
// its body is JSON. oauth2 decodes text/plain bodies as form values, so
// endpoints that label JSON as text/plain would otherwise never yield a token.
func normalizeContentType(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil
	}
	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType == "application/json" {
		return nil
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	_ = resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read token response: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(b))

	if json.Valid(b) {
		resp.Header.Set("Content-Type", "application/json")
	}
	return nil
}
