package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ETAnderson/catalogsync/internal/app"
	"github.com/ETAnderson/catalogsync/internal/domain"
	"github.com/ETAnderson/catalogsync/internal/queue"
)

type merchantAddOptions struct {
	UserID  string
	Initial bool
}

// NewMerchantCommand creates the merchant command group.
func NewMerchantCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merchant",
		Short: "Manage registered merchants",
	}
	cmd.AddCommand(newMerchantAddCommand(rootOpts))
	return cmd
}

func newMerchantAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &merchantAddOptions{}

	cmd := &cobra.Command{
		Use:   "add <merchant-id>",
		Short: "Register a merchant, optionally queueing its initial sync",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			merchantID := strings.TrimSpace(args[0])
			if merchantID == "" {
				return errors.New("merchant id is required")
			}

			return rootOpts.withApp(cmd.Context(), func(a *app.App) error {
				m := domain.Merchant{ID: merchantID, UserID: opts.UserID}
				if err := a.Store.UpsertMerchant(cmd.Context(), m); err != nil {
					return fmt.Errorf("register merchant: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "merchant %s registered\n", merchantID)

				if !opts.Initial {
					return nil
				}
				e, err := queue.PublishTask(cmd.Context(), a.Broker, queue.InitialTask(merchantID))
				if err != nil {
					return fmt.Errorf("queue initial sync: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "initial sync queued (task %s)\n", e.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "", "owning user id")
	cmd.Flags().BoolVar(&opts.Initial, "initial", false, "queue an initial sync")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
