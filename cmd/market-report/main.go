package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joelkehle/county-market-bot/internal/app"
	"github.com/joelkehle/county-market-bot/internal/config"
	"github.com/joelkehle/county-market-bot/internal/logging"
	"github.com/joelkehle/county-market-bot/internal/marketreport"
	"github.com/joelkehle/county-market-bot/internal/report"
)

func main() {
	envFile := flag.String("env-file", ".env", "Optional dotenv file")
	format := flag.String("format", "markdown", "Output format: markdown, json, or html")
	noAnalysis := flag.Bool("no-analysis", false, "Skip the analysis block")
	verbose := flag.Bool("v", false, "Print pipeline progress to stderr")
	flag.Parse()

	address := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if address == "" {
		fmt.Fprintln(os.Stderr, "usage: market-report [flags] <address>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.RequireSecrets(false, !*noAnalysis); err != nil {
		log.Fatal(err)
	}
	logLevel := cfg.LogLevel
	if !*verbose {
		logLevel = "warn"
	}
	logger, err := logging.New(logLevel, "console")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	progress := func(stage, message string) {
		if *verbose {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", stage, message)
		}
	}
	res, err := a.Pipeline.RunWithProgress(ctx, address, marketreport.Options{WithAnalysis: !*noAnalysis}, progress)
	if err != nil {
		fmt.Fprintln(os.Stderr, marketreport.UserMessage(err))
		a.Close()
		os.Exit(1)
	}
	if err := write(os.Stdout, *format, res); err != nil {
		fmt.Fprintln(os.Stderr, err)
		a.Close()
		os.Exit(1)
	}
}

func write(w io.Writer, format string, res marketreport.Result) error {
	switch strings.ToLower(format) {
	case "markdown", "md":
		_, err := io.WriteString(w, report.RenderMarkdown(res.Report))
		return err
	case "html":
		doc, err := report.RenderHTML(res.Report)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, doc)
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Report)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
