// ====================================
// File: cmd/bot/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/digitaltitann/soltrader/internal/bot"
	"github.com/digitaltitann/soltrader/internal/config"
	"github.com/digitaltitann/soltrader/internal/utils/logger"
)

func main() {
	configPath := flag.String("config", "", "optional config file (yaml, json or toml)")
	console := flag.Bool("console", false, "run the interactive operator console")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *console {
		cfg.Console = true
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	logCfg.Console = !cfg.Console
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	log.Info("Starting SolTrader agent")
	endSession := log.TrackPerformance("session")

	runner := bot.NewRunner(cfg, log.WithComponent("runner"))
	err = runner.Run(context.Background())
	endSession()
	if err != nil {
		log.LogError("Agent stopped with error", err)
		_ = log.Sync()
		os.Exit(1)
	}
	runner.Sync()
}
