// Package cli is the operator command line for the sync pipeline.
package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ETAnderson/catalogsync/internal/app"
	"github.com/ETAnderson/catalogsync/internal/config"
	"github.com/ETAnderson/catalogsync/internal/logging"
)

// RootOptions holds global flags and the seams commands build on.
type RootOptions struct {
	Verbose bool

	LoadConfig func() config.Config
	NewApp     func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app.App, error)
}

// NewRootCommand creates the root command for synctl.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(&RootOptions{
		LoadConfig: config.Load,
		NewApp:     app.New,
	})
}

func NewRootCommandWith(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synctl",
		Short: "Operate the catalog sync pipeline",
		Long: `synctl registers merchants, applies migrations and publishes sync
tasks by hand. Configuration comes from the environment and .env, the same
as the worker.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewMerchantCommand(opts))
	cmd.AddCommand(NewEnqueueCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))

	return cmd
}

func (o *RootOptions) logger() *zap.Logger {
	cfg := o.LoadConfig()
	level := cfg.LogLevel
	if o.Verbose {
		level = "debug"
	}
	l, err := logging.New(cfg.Env, level)
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// withApp builds the application for one command and closes it after.
func (o *RootOptions) withApp(ctx context.Context, fn func(a *app.App) error) error {
	log := o.logger()
	defer func() { _ = log.Sync() }()

	a, err := o.NewApp(ctx, o.LoadConfig(), log)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a)
}
