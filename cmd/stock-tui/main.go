// Interactive terminal dashboard for stock holdings across portfolios.
//
// Usage:
//
//	stock-tui [-config ~/.config/stock-tui/config.yaml]
//
// DEMO=1 shows demo.conf from next to the executable or the working
// directory instead of the portfolio directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"stocktui/internal/config"
	"stocktui/internal/dashboard"
	"stocktui/internal/domain"
	"stocktui/internal/portfolio"
	"stocktui/internal/quote"
	"stocktui/internal/refresh"
	"stocktui/internal/util"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to bubbletea, so logs go to a daily file.
	logPath := cfg.Logging.File
	if logPath == "" {
		logPath = util.DailyLogPath("stock-tui", time.Now())
	}
	logFile, err := util.OpenLogFile(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := util.NewLogger(cfg.Logging.Level, logFile)
	util.SetDefault(logger)

	store := portfolio.NewStore(cfg.Storage.PortfoliosDir, logger)
	var portfolios []domain.Portfolio
	demo := false
	if cfg.Demo {
		if p, ok := portfolio.Demo(); ok {
			portfolios = []domain.Portfolio{p}
			demo = true
			logger.Info("demo mode", "path", p.Path)
		} else {
			logger.Warn("demo mode requested but demo.conf not found")
		}
	}
	if !demo {
		portfolios, err = store.Discover()
		if err != nil {
			fmt.Fprintf(os.Stderr, "discovering portfolios: %v\n", err)
			os.Exit(1)
		}
	}
	logger.Info("portfolios loaded", "count", len(portfolios), "dir", store.Dir())

	svc, quoteDisk := quote.Setup(cfg, logger)

	var orchOpts []refresh.Option
	orchOpts = append(orchOpts,
		refresh.WithRateSymbol(cfg.Market.ExchangeRateSymbol),
		refresh.WithLogger(logger),
	)
	if cfg.Fetch.RateLimitPerMin > 0 {
		orchOpts = append(orchOpts, refresh.WithLimiter(util.NewRateLimiter(cfg.Fetch.RateLimitPerMin)))
	}
	orch := refresh.New(svc.Fetcher(), quoteDisk, orchOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	board := dashboard.NewBoard(svc, portfolios, logger)
	if err := board.Reload(ctx, false); err != nil {
		fmt.Fprintf(os.Stderr, "loading holdings: %v\n", err)
		os.Exit(1)
	}

	var changes <-chan struct{}
	if !demo {
		changes, err = portfolio.Watch(ctx, store.Dir(), logger)
		if err != nil {
			logger.Warn("watching portfolio directory", "error", err)
		}
	}

	m := newModel(ctx, cfg, store, board, svc, orch, changes, demo, logger)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
