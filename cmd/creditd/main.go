package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"creditvault/crypto"
	"creditvault/native/credit"
	"creditvault/observability/logging"
)

const envVar = "CREDIT_ENV"

// moduleAddress derives a deterministic module account from a well-known name.
func moduleAddress(name string) crypto.Address {
	digest := ethcrypto.Keccak256([]byte("creditvault/module/" + name))
	return crypto.MustNewAddress(crypto.AccountPrefix, digest[:crypto.AddressLength])
}

func main() {
	configFile := flag.String("config", "./creditd.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envVar))

	cfg, err := credit.LoadConfig(*configFile)
	if err != nil {
		logging.Setup("creditd", env).Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Service, env)

	params, err := cfg.Risk.Parameters()
	if err != nil {
		logger.Error("Failed to parse risk parameters", slog.Any("error", err))
		os.Exit(1)
	}
	underlying, err := cfg.Underlying.Token()
	if err != nil {
		logger.Error("Failed to parse underlying token", slog.Any("error", err))
		os.Exit(1)
	}

	configurator := moduleAddress("configurator")
	ledgerAddr := moduleAddress("ledger")
	gatewayAddr := moduleAddress("gateway")
	facadeAddr := moduleAddress("facade")

	registry := credit.NewTokenRegistry(underlying.Address, params)
	oracle := credit.NewFeedOracle(configurator)
	pool := credit.NewLinearPool(cfg.Interest.Model())

	ledger := credit.NewLedger(ledgerAddr, params)
	ledger.SetState(credit.NewMemoryState())
	ledger.SetPool(pool)
	ledger.SetRegistry(registry)
	if cfg.WrappedNative != "" {
		wrapped, err := crypto.DecodeAddress(cfg.WrappedNative)
		if err != nil {
			logger.Error("Failed to parse wrapped native token", slog.Any("error", err))
			os.Exit(1)
		}
		ledger.SetWrappedNative(wrapped)
	}

	verifier := credit.NewVerifier(registry, oracle, params)
	adapters := credit.NewAdapterRegistry()
	gateway := credit.NewGateway(gatewayAddr, ledger, verifier, adapters)
	gateway.SetLogger(logger)

	facade := credit.NewFacade(facadeAddr, configurator, ledger, verifier, gateway, adapters)
	facade.SetLogger(logger)

	for _, entry := range cfg.Tokens {
		token, err := entry.Token()
		if err != nil {
			logger.Error("Failed to parse collateral token", slog.Any("error", err))
			os.Exit(1)
		}
		if err := facade.AllowToken(configurator, token.Address, token.LiquidationThreshold); err != nil {
			logger.Error("Failed to whitelist collateral token",
				slog.String("token", token.Address.String()), slog.Any("error", err))
			os.Exit(1)
		}
		if token.StrictApprove {
			if err := facade.SetStrictApprove(configurator, token.Address, true); err != nil {
				logger.Error("Failed to mark strict approve token",
					slog.String("token", token.Address.String()), slog.Any("error", err))
				os.Exit(1)
			}
		}
	}
	if cfg.DegenMode {
		if err := facade.SetDegenMode(configurator, true, nil); err != nil {
			logger.Error("Failed to enable degen mode", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Warn("Degen mode enabled without a credential source; opens will be rejected until one is wired")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

	go func() {
		logger.Info("Metrics listener started", slog.String("addr", cfg.MetricsAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics listener failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	logger.Info("Credit module initialised",
		slog.String("underlying", underlying.Address.String()),
		slog.Int("tokens", registry.Count()),
		slog.String("facade", facadeAddr.String()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Metrics listener shutdown failed", slog.Any("error", err))
	}
	logger.Info("Shutdown complete")
}
