package main

import (
	"context"

	overlay "github.com/goliatone/go-options-overlay"
	"github.com/goliatone/go-options-overlay/internal/bootstrap"
	"github.com/goliatone/go-options-overlay/pkg/store"
	"github.com/spf13/cobra"
)

func newListCmd(root *rootOptions) *cobra.Command {
	var (
		typ       string
		overrides bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted rows, or the registered overrides with --overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ns, err := store.ParseNamespace(typ)
			if err != nil {
				return err
			}
			return root.runtime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				if overrides {
					return writeYAML(cmd.OutOrStdout(), describeOverrides(rt.Collection))
				}
				records, err := rt.Store.List(ctx, ns, rt.Platform.Tenant())
				if err != nil {
					return err
				}
				return writeYAML(cmd.OutOrStdout(), records)
			})
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", string(overlay.TypeOption), "option or site_option")
	cmd.Flags().BoolVar(&overrides, "overrides", false, "list registered overrides instead of stored rows")
	return cmd
}

type overrideView struct {
	Identifier string `yaml:"identifier"`
	Origin     string `yaml:"origin"`
	Strategy   string `yaml:"strategy,omitempty"`
	Loaded     bool   `yaml:"loaded"`
	Value      any    `yaml:"value"`
}

func describeOverrides(c *overlay.Collection) []overrideView {
	all := c.All()
	out := make([]overrideView, 0, len(all))
	for _, o := range all {
		out = append(out, overrideView{
			Identifier: o.Identifier(),
			Origin:     o.Origin(),
			Strategy:   string(o.DBStrategy()),
			Loaded:     o.IsLoaded(),
			Value:      o.Value(),
		})
	}
	return out
}
