package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/todos/internal/api"
	"github.com/roach88/todos/internal/config"
	"github.com/roach88/todos/internal/store"
	"github.com/roach88/todos/internal/todo"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr     string
	DBDriver string
	DBPath   string

	// Listener overrides Addr (for testing). If nil, Addr is dialed.
	Listener net.Listener
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the todos HTTP API",
		Long: `Run the todos HTTP API.

Configuration is read from defaults, then --config, then environment
variables (TODOS_ADDR, DB_DRIVER, DB_PATH, DB_NAME, ...), then flags.
The schema is created on startup if missing. SIGINT or SIGTERM drains
in-flight requests and exits.

Example:
  todos serve
  todos serve --addr :9000 --db-path /var/lib/todos.db
  DB_DRIVER=pgx DB_NAME=todos DB_USER=app todos serve --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides TODOS_ADDR)")
	cmd.Flags().StringVar(&opts.DBDriver, "db-driver", "", "database driver: sqlite3 or pgx (overrides DB_DRIVER)")
	cmd.Flags().StringVar(&opts.DBPath, "db-path", "", "SQLite database file (overrides DB_PATH)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions, func(cfg *config.Config) {
		if opts.Addr != "" {
			cfg.Addr = opts.Addr
		}
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

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	handler := api.NewHandler(todo.NewService(st), api.WithLogger(logger))
	srv := api.NewServer(cfg.Addr, handler, logger, cfg.ShutdownTimeout)

	addr := cfg.Addr
	if opts.Listener != nil {
		addr = opts.Listener.Addr().String()
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Serving todos on %s (%s)\n", addr, cfg.DB.Driver)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if opts.Listener != nil {
		err = srv.Serve(ctx, opts.Listener)
	} else {
		err = srv.Run(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "server error", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

// loadConfig reads the layered config, applies flag overrides and validates.
// Any problem is a command error.
func loadConfig(opts *RootOptions, override func(*config.Config)) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if override != nil {
		override(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

// openStore connects to the configured database and ensures the schema.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*store.Store, error) {
	logger.Info("opening database", "driver", cfg.DB.Driver, "dsn", cfg.Redacted())
	st, err := store.Open(ctx, store.Options{
		Driver:       cfg.DB.Driver,
		DSN:          cfg.DSN(),
		MaxOpenConns: cfg.DB.MaxOpenConns,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Info("database ready")
	return st, nil
}
