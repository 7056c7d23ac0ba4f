package commands

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/florianilch/tokenrefresh/internal/app"
	"github.com/florianilch/tokenrefresh/internal/credentials"
)

// envPrefix marks variables that feed the config, GIFTED_OUTPUT__FILE sets output.file.
const envPrefix = "GIFTED_"

// loaderFlags steer loading and are never merged into the config.
var loaderFlags = map[string]bool{"config": true, "env-file": true}

// layer is one config source. Later layers override earlier ones.
type layer struct {
	name     string
	provider koanf.Provider
	parser   koanf.Parser
}

// loadConfig merges the TOML file, GIFTED_ variables and set flags, in that
// order, then fills defaults and validates.
func loadConfig(configPath string, cmd *cli.Command, environFunc func() []string) (*app.Config, error) {
	var layers []layer
	if configPath != "" {
		layers = append(layers, layer{name: "config file", provider: file.Provider(configPath), parser: toml.Parser()})
	}
	layers = append(layers, layer{name: "environment variables", provider: envProvider(environFunc)})
	if cmd != nil {
		layers = append(layers, layer{name: "CLI flags", provider: confmap.Provider(flagValues(cmd), ".")})
	}

	k := koanf.New(".")
	for _, l := range layers {
		if err := k.Load(l.provider, l.parser); err != nil {
			return nil, fmt.Errorf("loading %s: %w", l.name, err)
		}
	}

	cfg := &app.Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func envProvider(environFunc func() []string) *env.Env {
	return env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			// The credential list is read by the env credential source, not the config
			if key == credentials.DefaultEnvKey {
				return "", nil
			}
			return configKey(strings.TrimPrefix(key, envPrefix), "__", "_"), value
		},
		EnvironFunc: environFunc,
	})
}

// flagValues collects explicitly set flags keyed by config path,
// --credentials--env-key becomes credentials.env_key.
func flagValues(cmd *cli.Command) map[string]any {
	values := make(map[string]any)
	for _, name := range cmd.FlagNames() {
		if loaderFlags[name] || !cmd.IsSet(name) {
			continue
		}
		if value := cmd.Value(name); value != nil {
			values[configKey(name, "--", "-")] = value
		}
	}
	return values
}

// configKey maps a flag or variable name onto a dotted, snake_case config key.
func configKey(name, nesting, word string) string {
	key := strings.ReplaceAll(name, nesting, ".")
	key = strings.ReplaceAll(key, word, "_")
	return strings.ToLower(key)
}
