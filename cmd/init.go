package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gnolang/sqlrender/internal/config"
	"github.com/gnolang/sqlrender/rules"
)

const defaultStarterDialect = "postgresql"

type initOptions struct {
	dialect   string
	rulesFile string
	force     bool
}

func newInitCmd(root *rootOptions) *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.cfgFile
			if path == "" {
				path = config.DefaultFiles[0]
			}
			if err := initConfigurationFile(path, opts); err != nil {
				return fmt.Errorf("error initializing config file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created: %s\n", path)
			if opts.rulesFile != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Rule table created: %s\n", opts.rulesFile)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.dialect, "dialect", "d", defaultStarterDialect, "Target dialect written to the configuration")
	cmd.Flags().StringVar(&opts.rulesFile, "rules-file", "", "Also write the built-in rule table to this YAML file and use it")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Overwrite existing files")
	return cmd
}

func initConfigurationFile(configurationPath string, opts *initOptions) error {
	cfg := config.Default()
	cfg.Dialect = opts.dialect
	// zero lets every machine use its own CPU count
	cfg.Workers = 0

	var ruleData []byte
	if opts.rulesFile != "" {
		data, err := rules.Default().Encode()
		if err != nil {
			return err
		}
		ruleData = data
		cfg.Rules = opts.rulesFile
	}

	d, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// nothing is written unless every target can be
	if !opts.force {
		for _, path := range []string{configurationPath, opts.rulesFile} {
			if path == "" {
				continue
			}
			if _, err := os.Stat(path); err == nil {
				return existsError(path)
			}
		}
	}

	if err := writeNewFile(configurationPath, d, opts.force); err != nil {
		return err
	}
	if ruleData != nil {
		return writeNewFile(opts.rulesFile, ruleData, opts.force)
	}
	return nil
}

func existsError(path string) error {
	return fmt.Errorf("%s already exists (use --force to overwrite)", path)
}

func writeNewFile(path string, data []byte, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return existsError(path)
		}
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}
