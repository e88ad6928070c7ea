package cli

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

	"github.com/leapstack-labs/leapsheet/internal/config"
)

// Config is the CLI-level configuration: the pipeline settings plus
// presentation options. Keys match the flag names, so the same names
// work in leapsheet.yaml, LEAPSHEET_* environment variables, and
// flags.
type Config struct {
	OutDir       string            `koanf:"out-dir"`
	StatePath    string            `koanf:"state"`
	DefaultSheet string            `koanf:"default-sheet"`
	ProjectName  string            `koanf:"project-name"`
	Check        bool              `koanf:"check"`
	Output       string            `koanf:"output"`
	Verbose      bool              `koanf:"verbose"`
	Heuristics   config.Heuristics `koanf:"heuristics"`
}

// Pipeline converts the CLI config into the compile configuration.
func (c *Config) Pipeline() config.Config {
	p := config.Config{
		DefaultSheet: c.DefaultSheet,
		ProjectName:  c.ProjectName,
		OutDir:       c.OutDir,
		StatePath:    c.StatePath,
		CheckSyntax:  c.Check,
		Heuristics:   c.Heuristics,
	}
	p.ApplyDefaults()
	return p
}

var configFileUsed string

// findConfigFile resolves the config file to load.
// Priority: explicit path > leapsheet.yaml > leapsheet.yml.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"leapsheet.yaml", "leapsheet.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// LoadConfig layers configuration sources: defaults, then the config
// file, then LEAPSHEET_* environment variables, then flags.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		"out-dir": "generated",
		"output":  "auto",
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
		configFileUsed = path
	}

	envProvider := env.Provider("LEAPSHEET_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "LEAPSHEET_"))
		key = strings.ReplaceAll(key, "__", ".")
		return strings.ReplaceAll(key, "_", "-")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path of the loaded config file, if any.
func ConfigFileUsed() string {
	return configFileUsed
}
