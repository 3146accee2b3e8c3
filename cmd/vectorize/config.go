package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration with secrets masked",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, path, err := loadConfig(root)
				if err != nil {
					return err
				}
				out, err := yaml.Marshal(cfg.Masked())
				if err != nil {
					return fmt.Errorf("failed to marshal config: %w", err)
				}
				if path != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", path)
				}
				fmt.Fprint(cmd.OutOrStdout(), string(out))
				return nil
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check the configuration and report every problem",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, _, err := loadConfig(root)
				if err != nil {
					return err
				}
				if err := cfg.Validate(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
				return nil
			},
		},
	)
	return cmd
}
