package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/lao-tseu-is-alive/go-flock3d/internal/config"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var schemaFile string
	cmd := &cobra.Command{
		Use:   "validate <config>...",
		Short: "Check config files against the schema",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			for _, path := range args {
				if _, err := config.LoadConfig(path, schemaFile); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", path, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().StringVar(&schemaFile, "schema", "", "JSON schema to use instead of the built-in one")
	return cmd
}

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init <config>",
		Short: "Write a config file holding the defaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists, use --force to overwrite", path)
				}
			}
			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}
