package credentials

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
)

// FileSource reads the credential array from a JSON file.
// The file holds client secrets, so anything but 0600 permissions is refused.
type FileSource struct {
	fs       afero.Fs
	filePath string
}

// Compile-time check to ensure FileSource implements Source
var _ Source = (*FileSource)(nil)

// NewFileSource creates a FileSource for the given path on fs.
func NewFileSource(fs afero.Fs, filePath string) (*FileSource, error) {
	if fs == nil {
		return nil, fmt.Errorf("missing filesystem")
	}
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	return &FileSource{
		fs:       fs,
		filePath: filePath,
	}, nil
}

// Load parses the file. Returns a *ConfigError if the file is missing,
// has insecure permissions or does not hold a JSON array.
func (f *FileSource) Load(ctx context.Context) ([]Pair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source := "file " + f.filePath

	// Check file permissions before reading
	info, err := f.fs.Stat(f.filePath)
	if err != nil {
		return nil, &ConfigError{Source: source, Err: err}
	}
	if info.Mode().Perm() != 0600 {
		return nil, &ConfigError{
			Source: source,
			Err:    fmt.Errorf("insecure permissions: %04o (expected 0600)", info.Mode().Perm()),
		}
	}

	data, err := afero.ReadFile(f.fs, f.filePath)
	if err != nil {
		return nil, &ConfigError{Source: source, Err: err}
	}

	return parseAndLog(ctx, source, data)
}
