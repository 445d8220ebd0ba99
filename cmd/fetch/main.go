package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"sectordash/internal/config"
	"sectordash/internal/finnhub"
	"sectordash/internal/httpx"
	"sectordash/internal/quote"
	"sectordash/internal/ratelimit"
)

// The 11 GICS sector ETFs, fetched when no explicit symbols are given.
var sectorETFs = []string{"XLK", "XLF", "XLV", "XLE", "XLY", "XLP", "XLI", "XLB", "XLU", "XLRE", "XLC"}

func main() {
	var symbolsCSV string
	var configPath string
	var refresh bool
	var timeout int
	var withProfile bool

	flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", ""), "comma-separated symbols; default is the S&P 500 index plus the 11 sector ETFs")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
	flag.BoolVar(&refresh, "refresh", false, "bypass fresh cache entries")
	flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 30), "overall timeout seconds")
	flag.BoolVar(&withProfile, "profile", false, "also fetch company profiles (market cap)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil { log.Fatalf("config: %v", err) }
	if cfg.Finnhub.APIKey == "" {
		log.Fatal("FINNHUB_API_KEY not set; set it in the environment or config.json")
	}

	zlog, err := zap.NewDevelopment()
	if err != nil { log.Fatalf("logger: %v", err) }
	defer zlog.Sync()

	httpClient := httpx.New(time.Duration(cfg.Finnhub.TimeoutSec) * time.Second)
	upstream, err := finnhub.New(cfg.Finnhub.APIKey,
		finnhub.WithBaseURL(cfg.Finnhub.Endpoint),
		finnhub.WithHTTPClient(httpClient),
	)
	if err != nil { log.Fatalf("finnhub client: %v", err) }

	cache := quote.NewCache(time.Duration(cfg.Cache.TTLSeconds)*time.Second, nil)
	limiter := ratelimit.New(cfg.Finnhub.MaxCallsPerMinute, nil)
	svc := quote.NewService(upstream, cache, limiter, cfg.Finnhub.MaxConcurrent, zlog)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	symbols := splitCSV(symbolsCSV)
	if len(symbols) == 0 {
		// Try the index symbol first; free keys fall back to the ETF below
		symbols = append([]string{"^GSPC"}, sectorETFs...)
	}

	res, err := svc.Acquire(ctx, symbols, refresh)
	if err != nil { log.Fatalf("acquire: %v", err) }

	for _, item := range res.Items {
		if item.Symbol == "^GSPC" && item.Status == quote.StatusError {
			spy, err := svc.Acquire(ctx, []string{"SPY"}, refresh)
			if err == nil && spy.Items[0].Status != quote.StatusError {
				item = spy.Items[0]
				res.Meta.APICalls += spy.Meta.APICalls
			}
		}
		printItem(ctx, upstream, item, withProfile)
	}

	fmt.Printf("\nrequested=%d returned=%d cache_hits=%d api_calls=%d rate_limited=%v\n",
		res.Meta.Requested, res.Meta.Returned, res.Meta.CacheHits, res.Meta.APICalls, res.Meta.RateLimited)
}

func printItem(ctx context.Context, upstream *finnhub.Client, item quote.Result, withProfile bool) {
	if item.Quote == nil {
		fmt.Printf("%-6s %-6s %s\n", item.Symbol, item.Status, item.Error)
		return
	}
	line := fmt.Sprintf("%-6s %-6s close=%.2f change=%+.2f (%+.2f%%) source=%s",
		item.Symbol, item.Status, item.Quote.Close, item.Quote.Change, item.Quote.PctChange, item.Source)
	if withProfile {
		if p, err := upstream.FetchProfile(ctx, item.Symbol); err == nil && p.MarketCap > 0 {
			line += fmt.Sprintf(" mcap=%.0fM", p.MarketCap)
		}
	}
	fmt.Println(line)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" { out = append(out, p) }
	}
	return out
}

func getenv(key, def string) string { if v := os.Getenv(key); v != "" { return v }; return def }
func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if x, err := strconv.Atoi(v); err == nil { return x }
	}
	return def
}
