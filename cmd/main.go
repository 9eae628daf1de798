package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mintlite/invest_tracker/config"
	"github.com/mintlite/invest_tracker/data"
	"github.com/mintlite/invest_tracker/data/cache"
	"github.com/mintlite/invest_tracker/data/repository/postgres"
	"github.com/mintlite/invest_tracker/internal/events"
	"github.com/mintlite/invest_tracker/internal/externalApi/marketDataApi"
	"github.com/mintlite/invest_tracker/internal/reportGenerator/xlsxGenerator"
	"github.com/mintlite/invest_tracker/internal/scheduler"
	"github.com/mintlite/invest_tracker/internal/service/portfolioService"
	"github.com/mintlite/invest_tracker/internal/transport/rest"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)

	marketDataApiClient := marketDataApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	eventHub := events.NewHub()

	portfolioSrv := portfolioService.New(cfg, pgRepo, redisCache, marketDataApiClient, reportGenerator, eventHub)

	sched := scheduler.New()
	sched.NewIntervalJob("warm quote cache", portfolioSrv.WarmQuoteCache, cfg.Jobs.WarmQuoteCacheInterval, true)
	sched.NewCrontabJob("refresh all prices", portfolioSrv.RefreshAllPrices, cfg.Jobs.PriceRefreshCrontab, false)
	sched.Start()
	defer sched.Stop()

	ctrl := rest.NewController(portfolioSrv)
	router := rest.NewRouter(cfg, ctrl)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		slog.Info("http server started", slog.Int("port", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", slog.String("err", err.Error()))
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
