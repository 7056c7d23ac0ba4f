package exchange

import (
	"encoding/json"
	"fmt"
)

// FailureMessage is the fixed message attached to every failed Result.
const FailureMessage = "Failed to retrieve token credentials."

// Result is the tagged outcome of one exchange.
// Token fields are set only when Status is true; Msg, Error and Err only when it is false.
type Result struct {
	Status      bool
	AccessToken string
	TokenType   string
	ExpiresIn   int64

	Msg string
	// Error is the upstream error payload if the endpoint answered, otherwise the error message.
	Error any
	Err   error
}

// ExchangeError describes one failed token request.
type ExchangeError struct {
	// ClientID is the truncated client identifier, safe to log.
	ClientID string
	// StatusCode is the HTTP status of the upstream response, 0 if none was received.
	StatusCode int
	// Body is the upstream response body, nil if none was received.
	Body []byte
	Err  error
}

func (e *ExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token request for %s failed with status %d: %v", e.ClientID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("token request for %s failed: %v", e.ClientID, e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// Payload returns the upstream body decoded as JSON when possible, the raw body
// as a string otherwise, and the error message when nothing was received.
func (e *ExchangeError) Payload() any {
	if len(e.Body) == 0 {
		return e.Err.Error()
	}
	var decoded any
	if err := json.Unmarshal(e.Body, &decoded); err == nil {
		return decoded
	}
	return string(e.Body)
}

func failed(exErr *ExchangeError) Result {
	return Result{
		Status: false,
		Msg:    FailureMessage,
		Error:  exErr.Payload(),
		Err:    exErr,
	}
}
