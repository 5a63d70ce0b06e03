package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cycle-trade-bot-go/internal/binance"
	"cycle-trade-bot-go/internal/config"
	"cycle-trade-bot-go/internal/database"
	"cycle-trade-bot-go/internal/logger"
	"cycle-trade-bot-go/internal/trader"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// API credentials may come from a .env file; a missing file is fine.
	_ = godotenv.Load()

	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded", zap.Int("markets", len(cfg.Markets)), zap.Int("strategies", len(cfg.Strategies)))

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")
	txLog := database.NewTransactionRepository(db)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Initialize Binance REST client
	restClient := binance.NewRestClient(&cfg.Exchange, log)
	if _, err := restClient.GetServerTime(ctx); err != nil {
		log.Fatal("Failed to connect to Binance API", zap.Error(err))
	}
	log.Info("Successfully connected to Binance API.")

	var symbols []string
	for _, m := range cfg.Markets {
		if m.Enabled {
			symbols = append(symbols, m.ID)
		}
	}
	if err := restClient.CheckMarkets(ctx, symbols); err != nil {
		log.Fatal("Configured markets are not tradable", zap.Error(err))
	}

	strategies, err := trader.BuildStrategies(cfg.Markets, cfg.Strategies, restClient, txLog, log)
	if err != nil {
		log.Fatal("Failed to set up strategies", zap.Error(err))
	}
	if len(strategies) == 0 {
		log.Fatal("No enabled markets configured")
	}

	name := cfg.Engine.BotName
	if cfg.Engine.BotID != "" {
		name = cfg.Engine.BotID + "/" + name
	}
	interval := time.Duration(cfg.Engine.TradeCycleInterval) * time.Second
	tradeEngine := trader.NewEngine(log, name, interval, strategies)

	if cfg.Engine.ApiPort != 0 {
		api := trader.NewAPIServer(tradeEngine, cfg.Engine.ApiPort, log)
		api.Start()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := api.Stop(shutdownCtx); err != nil {
				log.Error("Failed to stop API server", zap.Error(err))
			}
		}()
	}

	// Initialize and run the trading engine
	if err := tradeEngine.Run(ctx); err != nil {
		var se *trader.StrategyError
		if errors.As(err, &se) {
			log.Error("Trading stopped by strategy failure",
				zap.String("market", se.Market), zap.String("strategy", se.StrategyID), zap.String("op", se.Op), zap.Error(se.Err))
		} else {
			log.Error("Trading engine stopped", zap.Error(err))
		}
		log.Sync()
		os.Exit(1)
	}

	log.Info("Bot has been shut down.")
}
