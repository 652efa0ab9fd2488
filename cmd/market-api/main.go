package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/joelkehle/county-market-bot/internal/app"
	"github.com/joelkehle/county-market-bot/internal/config"
	"github.com/joelkehle/county-market-bot/internal/httpapi"
	"github.com/joelkehle/county-market-bot/internal/logging"
	"github.com/joelkehle/county-market-bot/internal/report"
	"github.com/joelkehle/county-market-bot/internal/telemetry"
)

func main() {
	envFile := flag.String("env-file", ".env", "Optional dotenv file")
	addr := flag.String("addr", "", "Listen address (default :$PORT)")
	noPDF := flag.Bool("no-pdf", false, "Disable PDF rendering")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	if *addr == "" {
		*addr = ":" + cfg.Port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdown, err := telemetry.Setup(ctx, "market-api")
	if err != nil {
		logger.Fatal("telemetry setup failed", zap.Error(err))
	}
	defer func() { _ = shutdown(context.Background()) }()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	var pdf httpapi.PDFRenderer
	if !*noPDF {
		pdf = report.NewPDFRenderer(cfg.ChromePath)
	}
	srv := &http.Server{
		Addr:              *addr,
		Handler:           httpapi.NewServer(a.Pipeline, pdf, logger.Named("httpapi")),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("market-api listening", zap.String("addr", *addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
}
