package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// Pair is a single client id and secret, identified by its position in the batch.
type Pair struct {
	ClientID     string
	ClientSecret string
}

// Valid reports whether both halves of the pair are present.
func (p Pair) Valid() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// Parse decodes raw as a JSON array of credential objects.
//
// Only the document shape is enforced. Elements that are not objects, or whose
// fields are not strings, decode to a Pair with empty fields so that they keep
// their position and are rejected by the caller.
func Parse(source string, raw []byte) ([]Pair, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &ConfigError{Source: source, Err: errors.New("value is empty")}
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ConfigError{Source: source, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	items, ok := doc.([]any)
	if !ok {
		return nil, &ConfigError{Source: source, Err: errors.New("credentials data is not an array")}
	}

	pairs := make([]Pair, 0, len(items))
	for _, item := range items {
		pairs = append(pairs, pairFromJSON(item))
	}
	return pairs, nil
}

// parseAndLog is Parse plus the load summary every backend logs.
func parseAndLog(ctx context.Context, source string, raw []byte) ([]Pair, error) {
	pairs, err := Parse(source, raw)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "loaded credential sets", "count", len(pairs), "source", source)
	return pairs, nil
}

func pairFromJSON(item any) Pair {
	obj, ok := item.(map[string]any)
	if !ok {
		return Pair{}
	}
	id, _ := obj["client_id"].(string)
	secret, _ := obj["client_secret"].(string)
	return Pair{ClientID: id, ClientSecret: secret}
}
