// Package exchange trades a single client id and secret for an access token
// using the OAuth2 client-credentials grant.
//
// The token endpoint expects the client credentials as a raw HTTP Basic
// header (base64 of "id:secret"), while golang.org/x/oauth2 URL-escapes both
// halves before encoding them. A RoundTripper restores the raw form, so the
// request on the wire is:
//
//	POST <endpoint>
//	Authorization: Basic base64(client_id:client_secret)
//	Content-Type: application/x-www-form-urlencoded
//
//	grant_type=client_credentials
//
// # Results
//
// Exchange never returns an error. Every failure (network, timeout, non-2xx,
// malformed body) is folded into a Result with Status false:
//
//	ex := exchange.New(endpoint)
//	res := ex.Exchange(ctx, clientID, clientSecret)
//	if !res.Status {
//		var exErr *exchange.ExchangeError
//		errors.As(res.Err, &exErr)
//	}
package exchange
