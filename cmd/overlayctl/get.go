package main

import (
	"context"
	"fmt"

	overlay "github.com/goliatone/go-options-overlay"
	"github.com/goliatone/go-options-overlay/internal/bootstrap"
	"github.com/goliatone/go-options-overlay/pkg/store"
	"github.com/spf13/cobra"
)

func newGetCmd(root *rootOptions) *cobra.Command {
	var (
		typ   string
		trace bool
	)
	cmd := &cobra.Command{
		Use:   "get NAME",
		Short: "Resolve an option through the override pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := store.ParseNamespace(typ)
			if err != nil {
				return err
			}
			return root.runtime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				result, err := rt.Platform.GetWithTrace(ctx, overlay.Type(ns), args[0])
				if err != nil {
					return err
				}
				if trace {
					payload, err := result.ToJSON()
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(cmd.OutOrStdout(), string(payload))
					return err
				}
				if !result.Found {
					return fmt.Errorf("%s %q not found", ns, args[0])
				}
				return writeYAML(cmd.OutOrStdout(), result.Value)
			})
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", string(overlay.TypeOption), "option or site_option")
	cmd.Flags().BoolVar(&trace, "trace", false, "print the resolution trace as JSON")
	return cmd
}
