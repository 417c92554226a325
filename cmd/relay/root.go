package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/context-relay/relay/config"
	"github.com/ZanzyTHEbar/context-relay/relay/db"
	"github.com/ZanzyTHEbar/context-relay/relay/harness"
	"github.com/ZanzyTHEbar/context-relay/relay/logutil"
)

// app holds everything the subcommands share once PersistentPreRunE ran.
type app struct {
	configPath string
	envFiles   []string
	logLevel   string

	cfg      *config.Config
	logger   zerolog.Logger
	keys     *config.KeyRing
	db       *sql.DB
	shutdown func(context.Context) error
}

// newRootCmd builds the command tree. The caller owns the returned app and
// must close it after Execute, whether or not the command failed.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{logger: zerolog.Nop()}
	cmd := &cobra.Command{
		Use:           "relay",
		Short:         "Answer messages with file, page and web-search context",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file path (optional).")
	cmd.PersistentFlags().StringArrayVar(&a.envFiles, "env-file", []string{".env"}, "Dotenv file to load before reading config (repeatable).")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override logging.level: debug|info|warn|error.")

	cmd.AddCommand(newAskCmd(a))
	cmd.AddCommand(newChatCmd(a))
	cmd.AddCommand(newClearCmd(a))
	return cmd, a
}

func (a *app) setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := config.LoadDotEnv(a.envFiles...); err != nil {
		return err
	}
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	logger, err := logutil.New(cfg.Logging)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.keys = config.KeyRingFromEnviron(os.Environ())

	if cfg.Store.Backend == "libsql" {
		conn, err := db.Connect(ctx, db.Config{DSN: cfg.Store.Database.DSN, DataDir: cfg.Store.Database.LibSQLDataDir}, logger)
		if err != nil {
			return fmt.Errorf("failed to open conversation database: %w", err)
		}
		a.db = conn
	}

	if cfg.Harness.EnableTracing && cfg.Harness.Tracer == "otel" {
		shutdown, err := initTracing(ctx, cfg.Harness)
		if err != nil {
			return err
		}
		a.shutdown = shutdown
	}

	logger.Debug().
		Str("store", cfg.Store.Backend).
		Str("tracer", cfg.Harness.Tracer).
		Strs("providers", a.keys.Providers()).
		Msg("relay configured")
	return nil
}

// close flushes spans and releases the database. It is safe to call more than once.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
		a.shutdown = nil
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
		a.db = nil
	}
	return errors.Join(errs...)
}

func (a *app) assembler() (*harness.Assembler, error) {
	return harness.NewFactory(a.cfg, a.keys, a.db, a.logger).CreateAssembler()
}
