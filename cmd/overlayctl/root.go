package main

import (
	"context"
	"io"

	"github.com/goliatone/go-options-overlay/config"
	"github.com/goliatone/go-options-overlay/internal/bootstrap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type rootOptions struct {
	configPath string
	tenant     int64
	quiet      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "overlayctl",
		Short:         "Inspect and maintain option overrides",
		Long:          `Resolve overridden options, list persisted rows and run the storage cleanup that keeps them lean.`,
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ./overlay.yaml)")
	cmd.PersistentFlags().Int64Var(&opts.tenant, "tenant", 0, "tenant id, overrides the configured one")
	cmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "disable logging")

	cmd.AddCommand(
		newGetCmd(opts),
		newListCmd(opts),
		newCleanupCmd(opts),
		newCronCmd(opts),
		newDumpCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("tenant") {
		cfg.Tenant = o.tenant
	}
	return cfg, nil
}

// runtime builds the overlay and loads every override before fn runs.
func (o *rootOptions) runtime(cmd *cobra.Command, fn func(ctx context.Context, rt *bootstrap.Runtime) error) error {
	cfg, err := o.load(cmd)
	if err != nil {
		return err
	}
	var opts []bootstrap.Option
	if o.quiet {
		opts = append(opts, bootstrap.WithLogger(zap.NewNop()))
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := bootstrap.Build(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer rt.Close()
	rt.Manager.Init(ctx)
	return fn(ctx, rt)
}

func writeYAML(w io.Writer, value any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(value); err != nil {
		return err
	}
	return enc.Close()
}
