package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ETAnderson/catalogsync/internal/app"
	"github.com/ETAnderson/catalogsync/internal/scheduler"
)

// NewScheduleCommand creates the schedule command, which runs one
// scheduler pass immediately.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run one scheduler pass now",
	}

	cmd.AddCommand(newSchedulePassCommand(rootOpts, "categories", "Publish a categories task for every merchant",
		func(ctx context.Context, s *scheduler.Scheduler) (scheduler.Report, error) { return s.RunCategoriesSync(ctx) }))
	cmd.AddCommand(newSchedulePassCommand(rootOpts, "products", "Publish a products task for every known category",
		func(ctx context.Context, s *scheduler.Scheduler) (scheduler.Report, error) { return s.RunProductsSync(ctx) }))

	return cmd
}

func newSchedulePassCommand(rootOpts *RootOptions, use string, short string, pass func(context.Context, *scheduler.Scheduler) (scheduler.Report, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd.Context(), func(a *app.App) error {
				rep, err := pass(cmd.Context(), a.Scheduler)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "batches=%v published=%d skipped=%d failed=%d\n",
					rep.Batches, rep.Published, rep.Skipped, rep.Failed)
				return nil
			})
		},
	}
}
