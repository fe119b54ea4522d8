package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/todos/internal/config"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	DBDriver string
	DBPath   string
}

// MigrateResult is the JSON payload of a successful migrate.
type MigrateResult struct {
	Driver   string `json:"driver"`
	Database string `json:"database"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the todos table if it does not exist",
		Long: `Connect to the configured database, create the todos table if it is
missing and exit. Safe to run repeatedly.

Example:
  todos migrate --db-path ./todos.db
  DB_DRIVER=pgx DB_NAME=todos todos migrate --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBDriver, "db-driver", "", "database driver: sqlite3 or pgx (overrides DB_DRIVER)")
	cmd.Flags().StringVar(&opts.DBPath, "db-path", "", "SQLite database file (overrides DB_PATH)")

	return cmd
}

func runMigrate(opts *MigrateOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions, func(cfg *config.Config) {
		if opts.DBDriver != "" {
			cfg.DB.Driver = opts.DBDriver
		}
		if opts.DBPath != "" {
			cfg.DB.Path = opts.DBPath
		}
	})
	if err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr(), opts.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log config", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Open ensures the schema.
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if err := st.Close(); err != nil {
		logger.Error("error closing database", "error", err)
	}

	result := MigrateResult{Driver: cfg.DB.Driver, Database: cfg.Redacted()}
	return newFormatter(cmd, opts.RootOptions).Render(result,
		fmt.Sprintf("Schema ready (%s %s)", result.Driver, result.Database))
}
