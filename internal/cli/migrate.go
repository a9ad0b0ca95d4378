package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ETAnderson/catalogsync/internal/db"
	"github.com/ETAnderson/catalogsync/internal/migrate"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to DB_DSN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.LoadConfig()
			if strings.TrimSpace(cfg.MySQLDSN) == "" {
				return errors.New("DB_DSN is required")
			}

			conn, err := db.Open(db.Config{DSN: cfg.MySQLDSN})
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			if err := db.Ping(cmd.Context(), conn); err != nil {
				return fmt.Errorf("database unreachable: %w", err)
			}
			if err := migrate.Apply(cmd.Context(), conn); err != nil {
				return err
			}

			files, _ := migrate.Files()
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%d migrations)\n", len(files))
			return nil
		},
	}
}
