package main

import (
	"context"

	overlay "github.com/goliatone/go-options-overlay"
	"github.com/goliatone/go-options-overlay/internal/bootstrap"
	"github.com/spf13/cobra"
)

func newCleanupCmd(root *rootOptions) *cobra.Command {
	var (
		deleteNames     []string
		unAutoloadNames []string
	)
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Run the storage cleanup now",
		Long: `Without flags runs the full cleanup: managed options first, then the
un-autoload and delete lists. --delete and --unautoload act on the given
names only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.runtime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				if len(deleteNames) == 0 && len(unAutoloadNames) == 0 {
					report, err := rt.Manager.RunCleanup(ctx)
					if werr := writeYAML(cmd.OutOrStdout(), report); werr != nil {
						return werr
					}
					return err
				}
				var reports []overlay.CleanupReport
				if len(unAutoloadNames) > 0 {
					report, err := rt.Manager.UnAutoloadOptions(ctx, unAutoloadNames...)
					if err != nil {
						return err
					}
					reports = append(reports, report)
				}
				if len(deleteNames) > 0 {
					report, err := rt.Manager.DeleteOptions(ctx, deleteNames...)
					if err != nil {
						return err
					}
					reports = append(reports, report)
				}
				return writeYAML(cmd.OutOrStdout(), reports)
			})
		},
	}
	cmd.Flags().StringSliceVar(&deleteNames, "delete", nil, "option names to delete")
	cmd.Flags().StringSliceVar(&unAutoloadNames, "unautoload", nil, "option names to rewrite without autoload")
	return cmd
}
