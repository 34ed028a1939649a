package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".sqlrender.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("dialect", "", "")
	flags.String("rules", "", "")
	flags.Int("max-iterations", 0, "")
	flags.Int("workers", 0, "")
	flags.String("out", "", "")
	flags.StringSlice("ext", nil, "")
	flags.Bool("verbose", false, "")
	return flags
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, []string{".sql"}, cfg.Extensions)
	assert.Equal(t, 0, cfg.MaxIterations)
	assert.Empty(t, cfg.Dialect)
	assert.Empty(t, cfg.File)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
rules: rules/sqlserver.csv
dialect: oracle
max_iterations: 100
workers: 2
extensions: [sql, .DDL]
output_dir: out
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "rules/sqlserver.csv", cfg.Rules)
	assert.Equal(t, "oracle", cfg.Dialect)
	assert.Equal(t, 100, cfg.MaxIterations)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, []string{".sql", ".ddl"}, cfg.Extensions)
	assert.Equal(t, "out", cfg.OutputDir)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "dialect: oracle\nworkers: 2\n")
	t.Setenv("SQLRENDER_DIALECT", "postgresql")
	t.Setenv("SQLRENDER_WORKERS", "7")
	t.Setenv("SQLRENDER_EXTENSIONS", "sql, tsql")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "postgresql", cfg.Dialect)
	assert.Equal(t, 7, cfg.Workers)
	assert.Equal(t, []string{".sql", ".tsql"}, cfg.Extensions)
}

func TestLoadFlagsOverrideEverything(t *testing.T) {
	path := writeConfig(t, "dialect: oracle\nmax_iterations: 10\noutput_dir: a\n")
	t.Setenv("SQLRENDER_DIALECT", "postgresql")

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--dialect", "redshift", "--max-iterations", "3", "--out", "b", "--ext", "ddl"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "redshift", cfg.Dialect)
	assert.Equal(t, 3, cfg.MaxIterations)
	assert.Equal(t, "b", cfg.OutputDir)
	assert.Equal(t, []string{".ddl"}, cfg.Extensions)
}

func TestLoadUnchangedFlagsAreIgnored(t *testing.T) {
	path := writeConfig(t, "dialect: oracle\nworkers: 5\n")

	flags := newFlags()
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "oracle", cfg.Dialect)
	assert.Equal(t, 5, cfg.Workers)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		cfg       Config
		errSubstr []string
	}{
		{
			name: "valid",
			cfg:  Config{Dialect: "oracle", Workers: 1, Extensions: []string{".sql"}},
		},
		{
			name:      "missing dialect",
			cfg:       Config{Workers: 1, Extensions: []string{".sql"}},
			errSubstr: []string{"target dialect is required"},
		},
		{
			name:      "negative numbers",
			cfg:       Config{Dialect: "oracle", Workers: -1, MaxIterations: -2, Extensions: []string{".sql"}},
			errSubstr: []string{"workers must not be negative", "max_iterations must not be negative"},
		},
		{
			name:      "no extensions",
			cfg:       Config{Dialect: "oracle"},
			errSubstr: []string{"at least one file extension"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if len(tt.errSubstr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, s := range tt.errSubstr {
				assert.Contains(t, err.Error(), s)
			}
		})
	}
}

func TestHasExtension(t *testing.T) {
	t.Parallel()
	cfg := Config{Extensions: []string{".sql", ".ddl"}}
	assert.True(t, cfg.HasExtension("a/b/query.sql"))
	assert.True(t, cfg.HasExtension("SCHEMA.DDL"))
	assert.False(t, cfg.HasExtension("notes.txt"))
	assert.False(t, cfg.HasExtension("sql"))
}
