// One-shot quote lookup that prints a table and exits.
//
// Usage:
//
//	stock-quote [-config path] [-history] [SYMBOL ...]
//
// With no symbols, every holding across all portfolios is priced.
// Bare 4-6 digit codes are looked up on the Taiwan exchange.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"stocktui/internal/config"
	"stocktui/internal/dashboard"
	"stocktui/internal/domain"
	"stocktui/internal/portfolio"
	"stocktui/internal/quote"
	"stocktui/internal/util"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to config file")
	history := flag.Bool("history", false, "also fetch the 30-day trend")
	verbose := flag.Bool("v", false, "debug logging to stderr")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	level := cfg.Logging.Level
	if *verbose {
		level = "debug"
	}
	logger := util.NewLogger(level, os.Stderr)
	util.SetDefault(logger)

	svc, _ := quote.Setup(cfg, logger)
	ctx := context.Background()

	symbols := flag.Args()
	for i, s := range symbols {
		symbols[i] = portfolio.NormalizeSymbol(s)
	}
	if len(symbols) == 0 {
		store := portfolio.NewStore(cfg.Storage.PortfoliosDir, logger)
		portfolios, err := store.Discover()
		if err != nil {
			fmt.Fprintf(os.Stderr, "discovering portfolios: %v\n", err)
			os.Exit(1)
		}
		board := dashboard.NewBoard(svc, portfolios, logger)
		board.ShowCombined()
		if err := board.Reload(ctx, true); err != nil {
			fmt.Fprintf(os.Stderr, "loading holdings: %v\n", err)
			os.Exit(1)
		}
		symbols = board.Symbols()
	}
	if len(symbols) == 0 {
		fmt.Println("no holdings")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Symbol\tMarket\tPrice\tChange\tTrend\t")
	failed := 0
	for _, sym := range symbols {
		q, ok := svc.Quote(ctx, sym)
		if !ok {
			failed++
		}
		trend := ""
		if *history {
			if h, ok := svc.History(ctx, sym); ok {
				trend = h.Trend().Arrow()
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", sym, domain.MarketOf(sym),
			dashboard.FormatPrice(q.Price, ok), dashboard.FormatChange(q.ChangePercent, ok), trend)
	}
	w.Flush()
	fmt.Printf("USD/TWD %.2f\n", svc.ExchangeRate(ctx))

	if failed == len(symbols) {
		os.Exit(1)
	}
}
