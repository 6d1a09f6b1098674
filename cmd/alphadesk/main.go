package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"alphadesk/internal/app"
	"alphadesk/internal/config"
	"alphadesk/internal/logger"
)

func main() {
	cfgPath := flag.String("config", "", "path to config.yaml (defaults to $ALPHADESK_CONFIG or configs/config.yaml)")
	flag.Parse()

	path := strings.TrimSpace(*cfgPath)
	if path == "" {
		path = os.Getenv("ALPHADESK_CONFIG")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("loading config failed: %v", err)
	}

	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("initializing log file failed: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetOracleWriter(nil)
	if cfg.App.OracleDump {
		f, err := setupOracleLogOutput(cfg.App.OracleLogPath)
		if err != nil {
			log.Fatalf("initializing oracle transcript failed: %v", err)
		}
		if f != nil {
			defer f.Close()
		}
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("config loaded (env=%s, mode=%s, policy=%s)", cfg.App.Env, cfg.Trading.Mode, cfg.Trading.Policy)

	desk, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("initializing app failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd := flag.Arg(0); cmd {
	case "", "serve":
		if err := desk.Run(ctx); err != nil {
			log.Fatalf("run failed: %v", err)
		}
	case "cycle":
		result, err := desk.RunOnce(ctx)
		desk.Close()
		if err != nil {
			log.Fatalf("cycle failed: %v", err)
		}
		logger.Infof("cycle done: %d decisions, cash %.2f", len(result.Decisions), result.Portfolio.Cash)
	case "backtest":
		result, err := desk.RunBacktest(ctx)
		desk.Close()
		if err != nil {
			log.Fatalf("backtest failed: %v", err)
		}
		logger.Infof("backtest %s done: final value %.2f (%+.2f%%)",
			result.RunID, result.FinalValue, result.Stats.TotalReturnPct)
	default:
		desk.Close()
		fmt.Fprintf(os.Stderr, "unknown command %q (want serve, cycle or backtest)\n", cmd)
		os.Exit(2)
	}
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

func setupOracleLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	logger.SetOracleWriter(f)
	return f, nil
}
