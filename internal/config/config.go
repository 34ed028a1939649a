// Package config loads sqlrender settings.
//
// Precedence (highest to lowest): explicitly set flags > SQLRENDER_* env vars >
// config file > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	envPrefix = "SQLRENDER_"

	DefaultExtension = ".sql"
)

// DefaultFiles are searched in the working directory when no config file is given.
var DefaultFiles = []string{".sqlrender.yaml", ".sqlrender.yml"}

// flagKeys maps CLI flag names to config keys where they differ.
var flagKeys = map[string]string{
	"out": "output_dir",
	"ext": "extensions",
}

// Config holds the settings shared by all commands.
type Config struct {
	Rules         string   `koanf:"rules" yaml:"rules,omitempty"`
	Dialect       string   `koanf:"dialect" yaml:"dialect"`
	MaxIterations int      `koanf:"max_iterations" yaml:"max_iterations"`
	Workers       int      `koanf:"workers" yaml:"workers"`
	Extensions    []string `koanf:"extensions" yaml:"extensions"`
	OutputDir     string   `koanf:"output_dir" yaml:"output_dir,omitempty"`
	CacheDir      string   `koanf:"cache_dir" yaml:"cache_dir,omitempty"`
	Verbose       bool     `koanf:"verbose" yaml:"verbose,omitempty"`

	// File is the config file that was read, if any.
	File string `koanf:"-" yaml:"-"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Workers:    runtime.NumCPU(),
		Extensions: []string{DefaultExtension},
	}
}

func defaults() map[string]interface{} {
	d := Default()
	return map[string]interface{}{
		"rules":          d.Rules,
		"dialect":        d.Dialect,
		"max_iterations": d.MaxIterations,
		"workers":        d.Workers,
		"extensions":     d.Extensions,
		"output_dir":     d.OutputDir,
		"cache_dir":      d.CacheDir,
		"verbose":        d.Verbose,
	}
}

// Load reads the configuration. cfgFile may be empty, in which case the
// DefaultFiles are tried. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// SQLRENDER_MAX_ITERATIONS -> max_iterations
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[f.Name]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used
	cfg.Extensions = normalizeExtensions(cfg.Extensions)

	return &cfg, nil
}

// findConfigFile returns the explicit path, or the first default file present.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range DefaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// normalizeExtensions splits comma-separated values (as set through the
// environment) and makes sure every extension starts with a dot.
func normalizeExtensions(exts []string) []string {
	var out []string
	for _, e := range exts {
		for _, part := range strings.Split(e, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if !strings.HasPrefix(part, ".") {
				part = "." + part
			}
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}

// Validate checks the settings needed to translate.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Dialect) == "" {
		errs = append(errs, errors.New("target dialect is required (set --dialect, SQLRENDER_DIALECT or 'dialect' in the config file)"))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.MaxIterations < 0 {
		errs = append(errs, fmt.Errorf("max_iterations must not be negative, got %d", c.MaxIterations))
	}
	if len(c.Extensions) == 0 {
		errs = append(errs, errors.New("at least one file extension is required"))
	}
	return errors.Join(errs...)
}

// HasExtension reports whether path ends with one of the configured extensions.
func (c *Config) HasExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range c.Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
