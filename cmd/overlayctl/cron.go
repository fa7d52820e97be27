package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-options-overlay/internal/bootstrap"
	"github.com/spf13/cobra"
)

func newCronCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Manage the scheduled cleanup",
	}
	cmd.AddCommand(newCronRegisterCmd(root), newCronListCmd(root), newCronRunCmd(root))
	return cmd
}

func newCronRegisterCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Schedule the weekly cleanup unless it is already scheduled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.runtime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				created, err := rt.Manager.RegisterCleanup(ctx)
				if err != nil {
					return err
				}
				state := "already scheduled"
				if created {
					state = "scheduled"
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), state)
				return err
			})
		},
	}
}

func newCronListCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scheduled events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.runtime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				entries, err := rt.Scheduler.Entries(ctx)
				if err != nil {
					return err
				}
				return writeYAML(cmd.OutOrStdout(), entries)
			})
		},
	}
}

func newCronRunCmd(root *rootOptions) *cobra.Command {
	var (
		tick time.Duration
		once bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run due events, looping until interrupted unless --once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.runtime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				if _, err := rt.Manager.RegisterCleanup(ctx); err != nil {
					return err
				}
				if once {
					ran, err := rt.Scheduler.RunDue(ctx, time.Now())
					for _, event := range ran {
						fmt.Fprintln(cmd.OutOrStdout(), event)
					}
					return err
				}
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return rt.Scheduler.Run(ctx, tick)
			})
		},
	}
	cmd.Flags().DurationVar(&tick, "tick", time.Minute, "how often to check for due events")
	cmd.Flags().BoolVar(&once, "once", false, "run due events once and exit")
	return cmd
}
