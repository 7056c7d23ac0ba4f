// Package snapshot writes the summary of one refresh run to disk.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/afero"
)

// DefaultPath is where the snapshot is written unless configured otherwise.
const DefaultPath = "tokens.json"

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// TokenRecord is the retained part of a successful exchange.
type TokenRecord struct {
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
	AccessToken string `json:"access_token"`
}

// Snapshot is the single artifact produced by a run.
type Snapshot struct {
	FailedTokens     int           `json:"failed_tokens"`
	SuccessfulTokens int           `json:"successful_tokens"`
	LastUpdated      string        `json:"last_updated"`
	Tokens           []TokenRecord `json:"tokens"`
}

// New builds a Snapshot stamped with now. A nil token list becomes an empty one.
func New(successful, failed int, tokens []TokenRecord, now time.Time) Snapshot {
	if tokens == nil {
		tokens = []TokenRecord{}
	}
	return Snapshot{
		FailedTokens:     failed,
		SuccessfulTokens: successful,
		LastUpdated:      now.UTC().Format(TimestampLayout),
		Tokens:           tokens,
	}
}

// Writer overwrites a fixed path with the pretty-printed snapshot.
// There is no temp file or backup: a crash mid-write can leave a partial file.
type Writer struct {
	fs   afero.Fs
	path string
	now  func() time.Time
}

// NewWriter creates a Writer for path on fs.
func NewWriter(fs afero.Fs, path string) (*Writer, error) {
	if fs == nil {
		return nil, fmt.Errorf("missing filesystem")
	}
	if path == "" {
		return nil, fmt.Errorf("output path cannot be empty")
	}

	return &Writer{
		fs:   fs,
		path: path,
		now:  time.Now,
	}, nil
}

// Path returns the output path.
func (w *Writer) Path() string {
	return w.path
}

// Write stamps the outcome with the current time and overwrites the output file.
func (w *Writer) Write(successful, failed int, tokens []TokenRecord) (Snapshot, error) {
	snap := New(successful, failed, tokens, w.now())

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return Snapshot{}, fmt.Errorf("marshaling snapshot: %w", err)
	}

	if err := afero.WriteFile(w.fs, w.path, data, 0644); err != nil {
		return Snapshot{}, fmt.Errorf("writing %s: %w", w.path, err)
	}

	return snap, nil
}
