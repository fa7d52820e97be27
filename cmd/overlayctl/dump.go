package main

import (
	"github.com/spf13/cobra"
)

func newDumpCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			if _, err := cfg.Definitions(); err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), cfg)
		},
	}
}
