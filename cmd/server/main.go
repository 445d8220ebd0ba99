package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sectordash/internal/config"
	"sectordash/internal/constituents"
	"sectordash/internal/finnhub"
	"sectordash/internal/httpx"
	"sectordash/internal/quote"
	"sectordash/internal/ratelimit"
)

func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal("loading config", zap.Error(err))
	}
	if cfg.Finnhub.APIKey == "" {
		log.Warn("FINNHUB_API_KEY not set; upstream fetches will fail")
	}

	httpClient := httpx.New(time.Duration(cfg.Finnhub.TimeoutSec) * time.Second)
	upstream, err := finnhub.New(cfg.Finnhub.APIKey,
		finnhub.WithBaseURL(cfg.Finnhub.Endpoint),
		finnhub.WithHTTPClient(httpClient),
	)
	if err != nil {
		log.Fatal("building finnhub client", zap.Error(err))
	}

	cache := quote.NewCache(time.Duration(cfg.Cache.TTLSeconds)*time.Second, nil)
	limiter := ratelimit.New(cfg.Finnhub.MaxCallsPerMinute, nil)
	svc := quote.NewService(upstream, cache, limiter, cfg.Finnhub.MaxConcurrent, log)

	dataset, err := constituents.Load(cfg.Data.ConstituentsPath)
	if err != nil {
		log.Fatal("loading constituents", zap.Error(err),
			zap.String("path", cfg.Data.ConstituentsPath))
	}
	log.Info("constituents loaded",
		zap.Int("count", dataset.Len()),
		zap.Int("sectors", len(dataset.Sectors())))

	srv := newServer(log, svc, dataset, cfg.Server.DefaultLimit, cfg.Server.MaxCompaniesPerRequest)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.RequestTimeoutSec+5) * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server", zap.Error(err))
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}
