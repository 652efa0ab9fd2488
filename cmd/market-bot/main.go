package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/joelkehle/county-market-bot/internal/app"
	"github.com/joelkehle/county-market-bot/internal/chatbot"
	"github.com/joelkehle/county-market-bot/internal/config"
	"github.com/joelkehle/county-market-bot/internal/logging"
	"github.com/joelkehle/county-market-bot/internal/telemetry"
)

func main() {
	envFile := flag.String("env-file", ".env", "Optional dotenv file")
	noAnalysis := flag.Bool("no-analysis", false, "Never request the analysis block")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.RequireSecrets(true, true); err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdown, err := telemetry.Setup(ctx, "market-bot")
	if err != nil {
		logger.Fatal("telemetry setup failed", zap.Error(err))
	}
	defer func() { _ = shutdown(context.Background()) }()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	handler := chatbot.NewHandler(chatbot.HandlerConfig{
		Prefix:       cfg.CommandPrefix,
		WithAnalysis: !*noAnalysis,
	}, a.Pipeline, logger.Named("chatbot"))
	bot, err := chatbot.NewDiscord(cfg.DiscordToken, handler, logger.Named("discord"))
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}

	logger.Info("starting market-bot", zap.String("prefix", cfg.CommandPrefix))
	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("bot stopped", zap.Error(err))
	}
}
