package credentials

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []Pair
		wantErr bool
	}{
		{
			name: "ordered pairs",
			raw:  `[{"client_id":"a","client_secret":"1"},{"client_id":"b","client_secret":"2"}]`,
			want: []Pair{{ClientID: "a", ClientSecret: "1"}, {ClientID: "b", ClientSecret: "2"}},
		},
		{
			name: "empty array",
			raw:  `[]`,
			want: []Pair{},
		},
		{
			name: "malformed elements keep their position",
			raw:  `[{"client_id":"a"}, 42, null, {"client_id":7,"client_secret":"x"}]`,
			want: []Pair{{ClientID: "a"}, {}, {}, {ClientSecret: "x"}},
		},
		{name: "empty value", raw: "", wantErr: true},
		{name: "whitespace only", raw: "  \n", wantErr: true},
		{name: "invalid json", raw: `[{"client_id":`, wantErr: true},
		{name: "object instead of array", raw: `{"client_id":"a","client_secret":"1"}`, wantErr: true},
		{name: "string instead of array", raw: `"[]"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse("test", []byte(tt.raw))
			if tt.wantErr {
				var cfgErr *ConfigError
				require.True(t, errors.As(err, &cfgErr), "expected *ConfigError, got %v", err)
				assert.Equal(t, "test", cfgErr.Source)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPairValid(t *testing.T) {
	assert.True(t, Pair{ClientID: "a", ClientSecret: "b"}.Valid())
	assert.False(t, Pair{ClientID: "a"}.Valid())
	assert.False(t, Pair{ClientSecret: "b"}.Valid())
	assert.False(t, Pair{}.Valid())
}
