package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/tally/api"
	"github.com/warp/tally/config"
	"github.com/warp/tally/engine"
	"github.com/warp/tally/engine/store"
	"github.com/warp/tally/factory"
	"github.com/warp/tally/logging"
	"github.com/warp/tally/store/sqlite"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the tracker over HTTP",
		Long: `Serve one tracker over HTTP.

Startup sequence:
  1. Load config and build the logger
  2. Compile the schema and dashboard (preset or schema document)
  3. Open the sqlite journal when store.path is set and replay it
  4. Start the cross-check auditor and the HTTP server

On SIGINT/SIGTERM the server stops accepting connections, waits up to 30s
for active requests, then closes the journal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logCfg := logging.ForEnvironment(cfg.App.Env)
	logCfg.Level = cfg.Log.Level
	logCfg.Format = cfg.Log.Format
	logCfg.Output = cfg.Log.Output
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	ec, dashboard, closeJournal, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeJournal()

	tag, err := language.Parse(cfg.Engine.Locale)
	if err != nil {
		return fmt.Errorf("engine.locale: %w", err)
	}
	handler := api.NewHandler(ec, dashboard, api.NewFormatter(tag, cfg.Engine.CurrencySymbol))
	router := api.NewRouter(handler, api.RouterOptions{
		Logger:         logger,
		AllowedOrigins: cfg.HTTP.CORSAllowOrigins,
	})

	auditor := api.NewAuditor(ec, dashboard, logger)
	auditor.CheckInterval = cfg.Engine.AuditInterval
	auditor.Enabled = cfg.Engine.AuditInterval > 0
	auditor.Start()
	defer auditor.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("schema", ec.Schema().Name()),
			zap.Int("records", ec.Len()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-sigCtx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// buildEngine compiles the configured tracker and, when store.path is set,
// opens the journal and replays it. The returned close func is never nil.
func buildEngine(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*engine.EngineContext, engine.DashboardSpec, func(), error) {
	noop := func() {}

	schema, dashboard, err := factory.Resolve(cfg.Engine.Domain, cfg.Engine.SchemaFile)
	if err != nil {
		return nil, engine.DashboardSpec{}, noop, fmt.Errorf("failed to load tracker: %w", err)
	}

	opts := []engine.Option{
		engine.WithLogger(logger.Named("engine")),
		engine.WithMaxRecords(cfg.Engine.MaxRecords),
	}
	var journal *sqlite.Journal
	if cfg.Store.Path != "" {
		journal, err = sqlite.New(cfg.Store.Path)
		if err != nil {
			return nil, engine.DashboardSpec{}, noop, fmt.Errorf("failed to open journal: %w", err)
		}
		opts = append(opts, engine.WithJournal(journal))
	}
	closeJournal := func() {
		if journal != nil {
			if err := journal.Close(); err != nil {
				logger.Warn("failed to close journal", zap.Error(err))
			}
		}
	}

	ec := engine.NewContext(schema, store.NewMemory(), opts...)
	if err := ec.ValidateDashboard(dashboard); err != nil {
		closeJournal()
		return nil, engine.DashboardSpec{}, noop, err
	}
	if journal != nil {
		n, err := ec.Restore(ctx)
		if err != nil {
			closeJournal()
			return nil, engine.DashboardSpec{}, noop, fmt.Errorf("failed to replay journal: %w", err)
		}
		logger.Info("journal replayed", zap.String("path", cfg.Store.Path), zap.Int("records", n))
	}
	return ec, dashboard, closeJournal, nil
}
