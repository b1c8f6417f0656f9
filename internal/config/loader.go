// Package config loads the training configuration of the command-line tool
// from defaults, a YAML file, CRFSUITE_ environment variables and flags,
// in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	crfsuite "github.com/reglet-dev/crfsuite-go"
	"github.com/reglet-dev/crfsuite-go/domain/entities"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "crfsuite.yaml"

// EnvPrefix prefixes environment variables; CRFSUITE_MODEL sets "model".
const EnvPrefix = "CRFSUITE_"

// flagKeys maps flag names to configuration keys where they differ.
var flagKeys = map[string]string{
	"algorithm": "algorithm",
	"model":     "model",
	"holdout":   "holdout",
	"verbose":   "verbose",
}

// Load builds a validated TrainingConfig. cfgFile may be empty, in which
// case FileName is used when it exists. Only flags the user changed
// override lower layers; params given with -p are merged into the
// configured params.
func Load(cfgFile string, flags *pflag.FlagSet) (entities.TrainingConfig, error) {
	k := koanf.New(".")
	def := entities.DefaultTrainingConfig()

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"algorithm": def.Algorithm,
		"model":     def.Model,
		"holdout":   def.Holdout,
		"verbose":   false,
	}, "."), nil); err != nil {
		return entities.TrainingConfig{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return entities.TrainingConfig{}, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else if cfgFile != "" {
		return entities.TrainingConfig{}, fmt.Errorf("config file %s not found", cfgFile)
	}

	// CRFSUITE_PARAMS_C2 -> params.c2
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		if rest, ok := strings.CutPrefix(key, "params_"); ok {
			return "params." + rest
		}
		return key
	}), nil); err != nil {
		return entities.TrainingConfig{}, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return entities.TrainingConfig{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Parameter names contain the key delimiter, so params are read back
	// flattened instead of unmarshalled.
	rawParams := k.Cut("params").All()
	k.Delete("params")

	var cfg entities.TrainingConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return entities.TrainingConfig{}, fmt.Errorf("unable to decode config: %w", err)
	}
	if len(rawParams) > 0 {
		params, err := crfsuite.ParamsFromMap(rawParams)
		if err != nil {
			return entities.TrainingConfig{}, err
		}
		cfg.Params = params
	}

	if flags != nil {
		if assigns, err := flags.GetStringArray("param"); err == nil && len(assigns) > 0 {
			params, err := crfsuite.ParseParams(assigns)
			if err != nil {
				return entities.TrainingConfig{}, err
			}
			if cfg.Params == nil {
				cfg.Params = make(map[string]string, len(params))
			}
			for name, value := range params {
				cfg.Params[name] = value
			}
		}
	}

	cfg.ApplyDefaults()
	if err := crfsuite.ValidateTrainingConfig(&cfg); err != nil {
		return entities.TrainingConfig{}, err
	}
	return cfg, nil
}

// findConfigFile returns the explicit path when it exists, or FileName in
// the working directory, or "".
func findConfigFile(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	return ""
}
