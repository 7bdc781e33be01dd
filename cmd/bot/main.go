// Package main is the entry point for the duel game bot.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"duel-game-bot/internal/bot"
	"duel-game-bot/internal/config"
	"duel-game-bot/internal/game"
	"duel-game-bot/internal/game/coin"
	"duel-game-bot/internal/game/darts"
	"duel-game-bot/internal/game/football"
	"duel-game-bot/internal/ledger"
	"duel-game-bot/internal/match"
	"duel-game-bot/internal/metrics"
	"duel-game-bot/internal/pkg/db"
	"duel-game-bot/internal/pkg/lock"
	"duel-game-bot/internal/repository"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories and the ledger
	accountRepo := repository.NewAccountRepository(dbPool.Pool, cfg.Account.InitialBalance)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	led := ledger.NewPostgresLedger(accountRepo, txRepo)

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("Metrics endpoint listening")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	// Initialize keyed locks
	keyLock := lock.NewKeyLock()

	// Initialize game registry and register variants
	gameRegistry := game.NewRegistry()
	for _, variant := range []game.Variant{darts.New(), football.New(), coin.New()} {
		if err := gameRegistry.Register(variant); err != nil {
			log.Fatal().Err(err).Str("game", variant.Command()).Msg("Failed to register game")
		}
	}

	log.Info().
		Int("game_count", gameRegistry.Count()).
		Strs("games", gameRegistry.Commands()).
		Msg("Games registered")

	// Initialize the match engine and its workflows
	engine := match.NewEngine(cfg.Games, gameRegistry, led, keyLock, m, log.Logger)
	negotiation := match.NewNegotiation(engine)
	broker := match.NewBroker(engine, cfg.Games.ChallengeTTL)
	rematch := match.NewRematch(engine, broker)

	// Initialize bot
	telegramBot, err := bot.New(&bot.Dependencies{
		Config:      cfg,
		Accounts:    accountRepo,
		Txs:         txRepo,
		Ledger:      led,
		Engine:      engine,
		Negotiation: negotiation,
		Broker:      broker,
		Rematch:     rematch,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in a goroutine
	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown
	telegramBot.Stop()
	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Metrics server shutdown failed")
		}
	}
	log.Info().Msg("Bot stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create accounts table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			telegram_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_accounts_username ON accounts(username);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: accounts table created")

	// Migration 2: Create transactions table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES accounts(telegram_id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			type VARCHAR(50) NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_type_time ON transactions(type, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: transactions table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
