// Package main provides the crosslockd daemon - an HTLC swap session coordinator.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/crosslock/crosslockd/internal/chain"
	"github.com/crosslock/crosslockd/internal/config"
	"github.com/crosslock/crosslockd/internal/fees"
	"github.com/crosslock/crosslockd/internal/market"
	"github.com/crosslock/crosslockd/internal/orders"
	"github.com/crosslock/crosslockd/internal/rpc"
	"github.com/crosslock/crosslockd/internal/storage"
	"github.com/crosslock/crosslockd/internal/swap"
	"github.com/crosslock/crosslockd/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	// Parse flags
	var (
		dataDir     = flag.String("data-dir", "~/.crosslock", "Data directory")
		configFile  = flag.String("config", "", "Config file path (default: <data-dir>/config.yaml)")
		apiAddr     = flag.String("api", "", "JSON-RPC API address, overrides config")
		testnet     = flag.Bool("testnet", false, "Run on testnet (separate network and data)")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	// Set up logging (initial, may be overridden by config)
	log := logging.New(&logging.Config{
		Level:      *logLevel,
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("crosslockd %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	// Determine data directory (testnet uses subdirectory)
	effectiveDataDir := *dataDir
	if *testnet {
		effectiveDataDir = filepath.Join(*dataDir, "testnet")
	}

	// Load or create config file
	var cfg *config.Config
	var err error

	if *configFile != "" {
		cfg, err = config.Load(filepath.Dir(*configFile))
	} else {
		cfg, err = config.Load(effectiveDataDir)
	}
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Apply CLI overrides (CLI flags take precedence over config file)
	if *apiAddr != "" {
		cfg.RPC.Addr = *apiAddr
	}
	cfg.Logging.Level = *logLevel
	cfg.Storage.DataDir = effectiveDataDir
	if *testnet {
		cfg.NetworkType = chain.Testnet
	}

	// Update logging with config level
	log = logging.New(&logging.Config{
		Level:      cfg.Logging.Level,
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	log.Info("Config loaded", "path", config.ConfigPath(effectiveDataDir))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	store, err := storage.New(&storage.Config{
		DataDir: cfg.Storage.DataDir,
	})
	if err != nil {
		log.Fatal("Failed to initialize storage", "error", err)
	}
	defer store.Close()
	log.Info("Storage initialized", "path", cfg.Storage.DataDir)

	// Initialize the fee advisor and the transaction descriptor builder
	advisor := fees.NewAdvisor(cfg.AdvisorConfig())

	builder, err := swap.NewBuilder(cfg.BuilderConfig())
	if err != nil {
		log.Fatal("Failed to initialize descriptor builder", "error", err)
	}

	analyzer := orders.NewAnalyzer(cfg.Orders.UnrevealedSentinel)

	// The RPC server owns the WebSocket hub; session lifecycle events
	// from the coordinator are routed through it once it is up.
	var rpcServer *rpc.Server
	events := func(event string, data interface{}) {
		if rpcServer == nil {
			return
		}
		if hub := rpcServer.WSHub(); hub != nil {
			hub.Broadcast(rpc.EventType(event), data)
		}
	}

	coordinator := swap.NewCoordinator(store, advisor, analyzer, builder, cfg.NetworkType, events)
	log.Info("Swap coordinator initialized", "network", cfg.NetworkType)

	marketClient := market.NewClient(market.Config{
		BaseURL:   cfg.Market.BaseURL,
		AuthToken: cfg.Market.AuthToken,
		ChainID:   cfg.Market.ChainID,
	})

	// Start RPC server
	rpcServer = rpc.NewServer(coordinator, advisor, analyzer, marketClient, cfg.NetworkType, version)
	if err := rpcServer.Start(cfg.RPC.Addr); err != nil {
		log.Fatal("Failed to start RPC server", "error", err)
	}

	// Start the gas quote refresher against the market API
	refresher := market.NewRefresher(marketClient, advisor, cfg.Market.RefreshInterval, events)
	go refresher.Run(ctx)

	printBanner(log, cfg, version)

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	log.Info("Shutting down...")

	// Graceful shutdown
	cancel()

	if err := rpcServer.Stop(); err != nil {
		log.Error("Error stopping RPC server", "error", err)
	}

	log.Info("Goodbye!")
}

func printBanner(log *logging.Logger, cfg *config.Config, version string) {
	networkLabel := "mainnet"
	if cfg.IsTestnet() {
		networkLabel = "TESTNET"
	}

	log.Info("")
	log.Info("=================================================")
	log.Infof("  Crosslock Swap Coordinator (%s)", networkLabel)
	log.Infof("  Version: %s", version)
	log.Info("=================================================")
	log.Info("")
	log.Infof("  API: http://%s", cfg.RPC.Addr)
	log.Infof("  WS:  ws://%s/ws", cfg.RPC.Addr)
	log.Info("")
	log.Infof("  HTLC contract: %s", cfg.Ethereum.ContractAddress)
	log.Infof("  Algorand app:  %d", cfg.Algorand.AppID)
	log.Infof("  Data dir: %s", cfg.Storage.DataDir)
	log.Info("")
	log.Info("=================================================")
	log.Info("")
}
