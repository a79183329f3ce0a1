package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/openpipe-labs/flowpulse/internal/api"
	"github.com/openpipe-labs/flowpulse/internal/dashboard"
	"github.com/openpipe-labs/flowpulse/internal/storage"
	"github.com/openpipe-labs/flowpulse/pkg/config"
	"github.com/openpipe-labs/flowpulse/pkg/logger"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "flowpulse-server",
	Short: "FlowPulse - observability dashboard backend",
	Long: `FlowPulse serves health, trend, root cause, bottleneck, heatmap,
and runtime inventory aggregations over an append-only telemetry
event store.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("flowpulse-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.Address = httpAddr
	}
	cfg.Verbose = verbose

	log := logger.New("server", logger.ParseLevel(cfg.LogLevel))

	// Environment wins over the config file for the password so it
	// never has to live on disk.
	password := cfg.ClickHouse.Password
	if env := os.Getenv("FLOWPULSE_CLICKHOUSE_PASSWORD"); env != "" {
		password = env
	}

	store := storage.NewClickHouseStorage(&storage.ClickHouseConfig{
		Addresses:    cfg.ClickHouse.Addresses,
		Database:     cfg.ClickHouse.Database,
		Username:     cfg.ClickHouse.Username,
		Password:     password,
		MaxOpenConns: cfg.ClickHouse.MaxOpenConns,
		MaxIdleConns: cfg.ClickHouse.MaxIdleConns,
		DialTimeout:  duration(cfg.ClickHouse.DialTimeout),
		QueryTimeout: duration(cfg.ClickHouse.QueryTimeout),
		Compression:  cfg.ClickHouse.Compression,
	})
	if err := store.Open(); err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	defer store.Close()

	if cfg.ClickHouse.Migrate {
		if err := store.Migrate(); err != nil {
			return fmt.Errorf("migrate event store: %w", err)
		}
	}

	log.Info("event store connected",
		"addresses", cfg.ClickHouse.Addresses,
		"database", cfg.ClickHouse.Database,
	)

	// Wrap the repository with the result cache unless disabled.
	var cache storage.ResultCache
	if !cfg.Cache.Disabled {
		cache = storage.NewTTLCache(duration(cfg.Cache.TTL))
	}
	repo := storage.NewCachedEventRepo(store.Events(), cache)

	// Health rules: file-backed with hot reload, or built-in defaults.
	rules := dashboard.DefaultHealthRules()
	if cfg.Rules.File != "" {
		loaded, err := dashboard.LoadHealthRules(cfg.Rules.File)
		if err != nil {
			return fmt.Errorf("load health rules: %w", err)
		}
		rules = loaded
	}
	holder := dashboard.NewRuleHolder(rules, log)

	svc := dashboard.New(repo, holder, log)

	srv, err := api.New(&api.Config{
		Address:        cfg.Server.Address,
		RateLimitPerIP: cfg.Server.RateLimitPerIP,
		Verbose:        cfg.Verbose,
	}, svc, repo, store, log)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	log.Info("starting flowpulse-server", "version", config.Version)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if cfg.Rules.File != "" {
		g.Go(func() error {
			if err := holder.Watch(gctx, cfg.Rules.File); err != nil && err != context.Canceled {
				return fmt.Errorf("watch health rules: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	log.Info("server stopped")
	return nil
}
