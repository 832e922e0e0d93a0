package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"

	"github.com/agentpay/walletd/adapters/events"
	"github.com/agentpay/walletd/adapters/faucet"
	"github.com/agentpay/walletd/adapters/rpc"
	"github.com/agentpay/walletd/adapters/signer"
	"github.com/agentpay/walletd/config"
	"github.com/agentpay/walletd/ports"
	"github.com/agentpay/walletd/service"
	api "github.com/agentpay/walletd/transport/http"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Best-effort .env bootstrap so ${VAR} references in the config file
	// resolve during local development.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *isDebug || cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(logger)

	profile := cfg.Chain.Profile()

	client, err := ethclient.Dial(profile.RPCURL)
	if err != nil {
		logger.Error("Failed to dial chain RPC", "url", profile.RPCURL, "error", err)
		os.Exit(1)
	}
	reader := rpc.NewEthReader(client)

	keys, err := loadKeys(cfg.Signer, logger)
	if err != nil {
		logger.Error("Failed to load signer keys", "error", err)
		os.Exit(1)
	}
	localSigner := signer.NewLocal(keys, profile.ChainID, client, logger)
	localSigner.RegisterChain(profile)

	publisher := buildPublisher(cfg.Redis, logger)

	session := service.NewSigningSession(localSigner, reader, publisher, logger)
	defer session.Close()
	if err := session.Resume(context.Background()); err != nil {
		logger.Warn("Session resume failed", "error", err)
	}

	switcher := service.NewNetworkSwitcher(session, localSigner, logger)

	var backend ports.GrantBackend
	if cfg.Faucet.BackendURL != "" {
		backend = faucet.NewHTTPBackend(cfg.Faucet.BackendURL)
	} else {
		delay, err := cfg.Faucet.Delay()
		if err != nil {
			logger.Error("Invalid faucet config", "error", err)
			os.Exit(1)
		}
		backend = faucet.NewSimulated(delay)
	}
	dispatcher := service.NewFaucetDispatcher(session, backend, publisher, logger)
	if table, err := cfg.Faucet.AmountTable(); err != nil {
		logger.Error("Invalid faucet amount table", "error", err)
		os.Exit(1)
	} else if table != nil {
		dispatcher.SetAmounts(table)
	}

	ticketKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		logger.Error("Failed to generate ticket key", "error", err)
		os.Exit(1)
	}
	tickets := api.NewTicketIssuer(ticketKey, api.DefaultTicketTTL)

	handlers := api.NewHandlers(session, switcher, dispatcher, reader, tickets, profile)
	router := api.SetupRouter(handlers, tickets, session)

	srv := &nethttp.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()
	logger.Info("walletd listening", "port", cfg.Server.Port, "chain", profile.Name, "chain_id", profile.ChainID)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Received signal, shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", "error", err)
	}

	// Drain in-flight faucet grants so their terminal states are recorded
	// and published.
	dispatcher.Wait()
	logger.Info("walletd stopped gracefully")
}

// loadKeys parses the configured signer keys, generating a fresh
// development key when none are configured.
func loadKeys(cfg config.SignerConfig, logger *slog.Logger) ([]*ecdsa.PrivateKey, error) {
	if len(cfg.PrivateKeys) == 0 {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		logger.Info("Generated development signer key", "address", crypto.PubkeyToAddress(key.PublicKey).Hex())
		return []*ecdsa.PrivateKey{key}, nil
	}

	keys := make([]*ecdsa.PrivateKey, 0, len(cfg.PrivateKeys))
	for _, raw := range cfg.PrivateKeys {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// buildPublisher wires the Redis stream publisher, falling back to a
// no-op publisher when no broker is configured.
func buildPublisher(cfg config.RedisConfig, logger *slog.Logger) ports.EventPublisher {
	if cfg.URL == "" {
		logger.Info("No Redis configured, session events disabled")
		return events.NewNopPublisher()
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		logger.Error("Failed to parse Redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(opts)

	wmLogger := watermill.NewStdLogger(false, false)
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		wmLogger,
	)
	if err != nil {
		logger.Error("Failed to create Redis publisher", "error", err)
		os.Exit(1)
	}
	return events.NewWatermillPublisher(publisher)
}
