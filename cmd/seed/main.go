package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/seed"
)

const (
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		sales      = flag.Int("sales", seed.DefaultSales, "Number of sales to submit")
		clients    = flag.Int("clients", seed.DefaultClients, "Number of distinct clients")
		duplicates = flag.Int("duplicates", 0, "Sales replayed with their Idempotency-Key")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent submitters")
		timeout    = flag.Duration("timeout", seed.DefaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", seed.DefaultSettle, "Time allowed for the board to catch up")
		seedValue  = flag.Int64("seed", time.Now().UnixNano(), "Generator seed")
		outputFile = flag.String("output", "", "Write the generated sales to this JSON file")
		logFile    = flag.String("log", "", "Also write logs to this file")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seed.ShowHelp()
		return 0
	}

	closer, err := seed.SetupLogging(*logFile, *verbose)
	if err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &seed.Config{
		BaseURL:    *baseURL,
		Sales:      *sales,
		Clients:    *clients,
		Duplicates: *duplicates,
		Workers:    *workers,
		Timeout:    *timeout,
		Settle:     *settle,
		Seed:       *seedValue,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}
	if _, err := seed.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("Seed failed: " + err.Error() + "\n")
		return 1
	}
	return 0
}
