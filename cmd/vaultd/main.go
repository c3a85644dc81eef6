package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"guardvault/config"
	"guardvault/core/state"
	"guardvault/native/vault"
	"guardvault/observability"
	"guardvault/observability/logging"
	"guardvault/rpc"
	"guardvault/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := os.Getenv("GUARDVAULT_ENV")
	logger := logging.Setup("vaultd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("create data dir", "error", err)
		os.Exit(1)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "vaults"))
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := state.NewVaultStore(db)
	ledger := state.NewLedgerStore(db)
	registry := state.NewRegistryStore(db)

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	engine := vault.NewEngine()
	engine.SetState(store)
	engine.SetLedger(ledger)
	engine.SetRegistry(registry)
	engine.SetEmitter(observability.NewEventMetrics(metrics, nil))

	server := rpc.NewServer(engine, store, ledger, registry, cfg, logger)
	if err := server.Start(cfg.ListenAddress); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
