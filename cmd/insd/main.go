package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chronogist/iNS-intelligent-name-service-sub001/config"
	"github.com/chronogist/iNS-intelligent-name-service-sub001/core/events"
	"github.com/chronogist/iNS-intelligent-name-service-sub001/native/marketplace"
	"github.com/chronogist/iNS-intelligent-name-service-sub001/native/registry"
	"github.com/chronogist/iNS-intelligent-name-service-sub001/observability/logging"
	"github.com/chronogist/iNS-intelligent-name-service-sub001/rpc"
	"github.com/chronogist/iNS-intelligent-name-service-sub001/state"
	"github.com/chronogist/iNS-intelligent-name-service-sub001/storage"
)

const shutdownGrace = 10 * time.Second

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("INS_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if env == "" {
		env = cfg.Env
	}
	logger := logging.Setup("insd", env, cfg.LogFile)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	store := state.NewManager(db)
	ledger, err := registry.NewPersistentLedger(db)
	if err != nil {
		logger.Error("Failed to load name registry", slog.Any("error", err))
		os.Exit(1)
	}
	bus := events.NewBus(cfg.EventBacklog)

	engine := marketplace.NewEngine()
	engine.SetState(store)
	engine.SetRegistry(ledger)
	engine.SetEmitter(bus)
	if err := engine.SetFeeBps(cfg.PlatformFeeBps); err != nil {
		logger.Error("Invalid platform fee", slog.Any("error", err))
		os.Exit(1)
	}
	if treasury, ok := cfg.TreasuryAddress(); ok {
		engine.SetFeeTreasury(treasury)
	} else {
		logger.Warn("No treasury configured; settlements will be rejected until ins_setTreasury is called")
	}
	for _, operator := range cfg.OperatorAddresses() {
		engine.AddOperator(operator)
	}

	server := rpc.NewServer(rpc.Options{
		Engine:        engine,
		Ledger:        ledger,
		Store:         store,
		Bus:           bus,
		Logger:        logger,
		RatePerMinute: cfg.RateLimitPerMinute,
		Burst:         cfg.RateLimitBurst,
		DevFaucet:     cfg.DevFaucet,
	})

	httpSrv := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("RPC server listening",
			slog.String("address", cfg.RPCAddress),
			slog.Bool("devFaucet", cfg.DevFaucet),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("RPC server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown incomplete", slog.Any("error", err))
	}
}
