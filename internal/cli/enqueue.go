package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ETAnderson/catalogsync/internal/app"
	"github.com/ETAnderson/catalogsync/internal/queue"
)

// NewEnqueueCommand creates the enqueue command group.
func NewEnqueueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Publish a single sync task",
	}

	cmd.AddCommand(newEnqueueTaskCommand(rootOpts, "initial <merchant-id>", "Queue a full sync of one merchant", 1,
		func(args []string) queue.Task { return queue.InitialTask(args[0]) }))
	cmd.AddCommand(newEnqueueTaskCommand(rootOpts, "categories <merchant-id>", "Queue a category list sync", 1,
		func(args []string) queue.Task { return queue.CategoriesTask(args[0]) }))
	cmd.AddCommand(newEnqueueTaskCommand(rootOpts, "products <merchant-id> <category-id>", "Queue an item sync of one category", 2,
		func(args []string) queue.Task { return queue.ProductsTask(args[0], args[1]) }))

	return cmd
}

func newEnqueueTaskCommand(rootOpts *RootOptions, use string, short string, nargs int, build func(args []string) queue.Task) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := build(args)
			if err := task.Validate(); err != nil {
				return err
			}

			return rootOpts.withApp(cmd.Context(), func(a *app.App) error {
				e, err := queue.PublishTask(cmd.Context(), a.Broker, task)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued %s task %s on %s\n", task.Kind, e.ID, task.Topic())
				return nil
			})
		},
	}
}
