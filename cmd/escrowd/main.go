package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"titlevault/config"
	"titlevault/core/events"
	"titlevault/core/ledger"
	"titlevault/core/state"
	"titlevault/core/types"
	"titlevault/native/escrow"
	"titlevault/native/registry"
	"titlevault/observability/logging"
	"titlevault/rpc"
	"titlevault/storage"
)

const rpcSecretEnv = "TITLEVAULT_RPC_SECRET"

// logEmitter forwards engine events to the structured log.
type logEmitter struct {
	log *slog.Logger
}

func (l logEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	attrs := []any{"type", evt.EventType()}
	if carrier, ok := evt.(interface{ Event() *types.Event }); ok {
		if inner := carrier.Event(); inner != nil {
			for key, value := range inner.Attributes {
				attrs = append(attrs, key, value)
			}
		}
	}
	l.log.Info("engine event", attrs...)
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return storage.NewMemDB(), nil
	case config.BackendLevelDB:
		return storage.NewLevelDB(cfg.DataDir)
	case config.BackendBolt:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		return storage.NewBoltDB(cfg.DataDir + "/titlevault.db")
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	rpcAddr := flag.String("rpc", "", "Listen address for the JSON-RPC server (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *rpcAddr != "" {
		cfg.RPCAddress = *rpcAddr
	}

	logger := logging.Setup("escrowd", cfg.Environment)

	seller, inspector, lender, err := cfg.Roles()
	if err != nil {
		logger.Error("invalid role addresses", "err", err)
		os.Exit(1)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		logger.Error("failed to open database", "backend", cfg.Backend, "err", err)
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	funds := ledger.New(manager)
	emitter := logEmitter{log: logger}

	deeds := registry.NewEngine()
	deeds.SetState(manager)
	deeds.SetEmitter(emitter)

	engine := escrow.NewEngine(deeds, funds, seller, inspector, lender)
	engine.SetState(manager)
	engine.SetEmitter(emitter)

	server := rpc.NewServer(engine, deeds, funds, rpc.Options{
		AuthSecret: os.Getenv(rpcSecretEnv),
		Logger:     logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("escrowd listening",
			"addr", cfg.RPCAddress,
			"backend", cfg.Backend,
			"seller", cfg.Seller,
			"inspector", cfg.Inspector,
			"lender", cfg.Lender,
		)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", "err", err)
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("rpc server failed", "err", err)
			os.Exit(1)
		}
	}
}
