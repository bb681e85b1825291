package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/solatis/linewarden/internal/core/api"
	"github.com/solatis/linewarden/internal/core/auth"
	"github.com/solatis/linewarden/internal/core/config"
	"github.com/solatis/linewarden/internal/core/server"
	"github.com/solatis/linewarden/internal/rules"
	"github.com/solatis/linewarden/internal/ruleset"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gRPC validation service",
		Long: `Serve registers every rule set of --rules-dir (or, with --db-url, every
rule set stored in the database) and validates content submitted over gRPC.

The rules directory is watched and reloaded on change unless --watch=false.
Request signing is enabled when LW_HMAC_SECRET or LW_HMAC_SECRET_<n> is set.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	cmd.Flags().Int("port", 50051, "gRPC server port")
	cmd.Flags().String("rules-dir", "./rules", "directory of rule set files")
	cmd.Flags().Int("metrics-port", 9090, "Prometheus /metrics port (0 disables)")
	cmd.Flags().Bool("watch", true, "reload the rules directory on change")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := ruleset.NewRegistry(log)
	watchDir, err := loadRegistry(ctx, cfg, registry)
	if err != nil {
		return err
	}

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	var verifier *auth.Verifier
	if len(secrets) > 0 {
		verifier = auth.NewVerifier(secrets, api.SignedContent)
	} else {
		log.Warn().Msg("no HMAC secrets configured, requests are not signed")
	}

	engine := rules.NewEngine(rules.WithLogger(log.Component("engine")))
	service, err := api.NewValidatorService(registry, engine, cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(cfg.Server, service, verifier, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Info().Str("version", Version).Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).
		Strs("rulesets", registry.Names()).Msg("starting linewarden")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return grpcServer.Start(gctx) })
	if watchDir != "" {
		watcher := ruleset.NewWatcher(watchDir, registry, ruleset.DefaultDebounce, log)
		watcher.OnReload(func(err error) {
			if err == nil {
				log.Info().Int("generation", registry.Generation()).Strs("rulesets", registry.Names()).Msg("rule sets active")
			}
		})
		g.Go(func() error { return watcher.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down gracefully")
		return grpcServer.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// loadRegistry fills registry from the database when --db-url is set,
// otherwise from the rules directory. Returns the directory to watch, if any.
func loadRegistry(ctx context.Context, cfg *config.Config, registry *ruleset.Registry) (string, error) {
	if cfg.DBURL != "" {
		database, store, err := openStore(ctx, cfg)
		if err != nil {
			return "", err
		}
		defer database.Close()

		defs, err := store.Definitions(ctx)
		if err != nil {
			return "", err
		}
		return "", registry.Replace(defs)
	}

	if err := registry.Reload(cfg.Server.RulesDir); err != nil {
		return "", err
	}
	if !cfg.Server.WatchRules {
		return "", nil
	}
	return cfg.Server.RulesDir, nil
}
