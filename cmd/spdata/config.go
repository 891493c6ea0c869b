package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/spdata/internal/config"
)

// defaultConfigFile is where config init writes when no path is given.
const defaultConfigFile = "spdata.yaml"

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage spdata configuration files",
	}
	cmd.AddCommand(newConfigInitCmd(a))
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the effective configuration to a YAML file",
		Long: `init writes the configuration in effect (defaults, then --config, then
global flags) to path, spdata.yaml by default. An existing file is kept
unless --force is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigFile
			if len(args) == 1 {
				path = args[0]
			}
			return runConfigInit(a, path, force, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func runConfigInit(a *app, path string, force bool, w io.Writer) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config init: %s: %w", path, os.ErrExist)
		}
	}
	if err := config.Save(path, a.cfg); err != nil {
		return err
	}
	a.logger.Debug("wrote config", "path", path)
	_, err := fmt.Fprintf(w, "wrote %s\n", path)
	return err
}
