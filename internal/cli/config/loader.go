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
)

// configFileUsed tracks which config file was loaded, for verbose output.
var configFileUsed string

// findConfigFile finds the config file to use.
// Priority: explicit path > shelfline.yaml > shelfline.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"shelfline.yaml", "shelfline.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	configFileUsed = ""

	// Layer 1: defaults
	defaults := map[string]interface{}{
		"data_dir":         DefaultDataDir,
		"export_dir":       DefaultExportDir,
		"database":         DefaultDatabasePath,
		"state_path":       DefaultStateFile,
		"environment":      DefaultEnv,
		"verbose":          false,
		"horizon":          0,
		"min_history_days": 0,
		"forecast_workers": 0,
		"anchor":           DefaultAnchor,
		"adapter":          DefaultAdapterType,
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		configFileUsed = path
	} else if cfgFile != "" {
		return nil, fmt.Errorf("config file not found: %s", cfgFile)
	}

	// Layer 3: environment variables (SHELFLINE_DATA_DIR, etc.)
	if err := k.Load(env.Provider("SHELFLINE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SHELFLINE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Layer 4: CLI flags (only those explicitly set)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Anchor != "wallclock" && cfg.Anchor != "latest-data" {
		return nil, fmt.Errorf("invalid anchor %q (want wallclock or latest-data)", cfg.Anchor)
	}

	return cfg, nil
}

// FileUsed returns the path of the config file that was loaded, if any.
func FileUsed() string {
	return configFileUsed
}
