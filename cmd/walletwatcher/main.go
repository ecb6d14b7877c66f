package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"walletwatcher/internal/cache"
	"walletwatcher/internal/cli"
	apphttp "walletwatcher/internal/http"
	"walletwatcher/internal/log"
	"walletwatcher/internal/prices"
	"walletwatcher/internal/scheduler"
	"walletwatcher/internal/services"
	gsheet "walletwatcher/internal/sheets/google"
	"walletwatcher/internal/worker"
)

// priceCheckEvery is how often the server asks the refresher whether a fetch is due.
const priceCheckEvery = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	store := cli.InitStore(startupCtx, logger, cfg.SQLiteDBPath)
	defer store.Close()
	marks := cli.InitMarkers(logger, cfg.MarkersPath)
	calendar := cli.Calendar(cfg)

	schedOpts := []scheduler.Option{
		scheduler.WithLogger(logger),
		scheduler.WithLocation(calendar.Location),
		scheduler.WithRetentionDays(cfg.RetentionDays),
		scheduler.WithInterval(cfg.PriceRefreshInterval),
	}
	daily := scheduler.NewDailyMaintenance(store, marks, schedOpts...)

	feed := prices.NewCachedFeed(prices.NewClient(cfg.PriceFeedURL, cfg.PriceFetchTimeout, logger), cfg.PriceRefreshInterval)
	refresher := scheduler.NewPriceRefresher(feed, store, marks, schedOpts...)
	caches := cache.NewManager(logger)
	caches.Register(feed.Cache())

	publisher, closePublisher := cli.InitPublisher(logger, cfg)
	defer closePublisher()

	wallet := services.NewWallet(store,
		services.WithMaintenance(daily),
		services.WithPublisher(publisher),
		services.WithLogger(logger),
		services.WithCalendar(calendar),
	)
	if err := wallet.Load(startupCtx); err != nil && !errors.Is(err, services.ErrNoProfile) {
		logger.Error("Initial wallet load failed", log.FieldError, err)
		os.Exit(1)
	}

	opts := []apphttp.Option{
		apphttp.WithStore(store),
		apphttp.WithPriceSource(feed),
		apphttp.WithLocation(calendar.Location),
		apphttp.WithLogger(logger),
	}
	if cfg.SheetsEnabled() {
		sheetsClient, err := gsheet.New(startupCtx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			Range:              cfg.GoogleImportRange,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			OAuthClientFile:    cfg.GoogleOAuthClientFile,
			OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
		}, logger)
		if err != nil {
			logger.Warn("Google Sheets import disabled", log.FieldError, err)
		} else {
			opts = append(opts, apphttp.WithSheets(sheetsClient))
			logger.Info("Google Sheets import enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, wallet, opts...)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		caches.Stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	caches.StartCleanup(ctx, 10*time.Minute)
	jobs := worker.New(nil, refresher, publisher, logger)
	go cli.RunEvery(ctx, priceCheckEvery, func(ctx context.Context) { jobs.RunPrices(ctx) })

	logger.Info("Starting walletwatcher server", log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"db", cfg.SQLiteDBPath,
		"price_interval", cfg.PriceRefreshInterval)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
