package main

import (
	"flag"
	"log"
	"os"
	"time"

	"TypoTrade/internal/di"
	"TypoTrade/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	mode := flag.String("mode", "scan", "run mode: scan, study, pair, ipo, serve")
	fromStr := flag.String("from", "", "first IPO month (YYYY-MM, ipo mode only)")
	toStr := flag.String("to", "", "last IPO month (YYYY-MM, ipo mode only)")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	from, err := parseMonth(*fromStr)
	if err != nil {
		log.Fatalf("bad -from: %v", err)
	}
	to, err := parseMonth(*toStr)
	if err != nil {
		log.Fatalf("bad -to: %v", err)
	}

	log.Printf("env=%s mode=%s backend=%s", cfg.Environment, *mode, cfg.Backend.Type)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run the requested mode (serve blocks until signal)
	if err := app.Run(*mode, from, to); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}

func parseMonth(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01", s)
}
