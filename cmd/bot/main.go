package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"callbot/internal/config"
	"callbot/internal/domain"
	"callbot/internal/infrastructure/binance"
	"callbot/internal/infrastructure/db"
	"callbot/internal/infrastructure/fcm"
	"callbot/internal/repository"
	"callbot/internal/usecase"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolConfigFromEnv())
	if err != nil {
		log.WithError(err).Fatal("could not connect to database")
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	repo := repository.NewPostgresCallRepository(pool)

	var (
		gateway domain.Gateway
		venue   usecase.Venue
	)
	switch cfg.Venue {
	case config.VenueFutures:
		client := binance.NewFuturesClient(cfg.Binance.APIKey, cfg.Binance.SecretKey, cfg.Binance.BaseURL)
		gateway = client
		venue = usecase.NewFuturesVenue(client, cfg.Trading.FuturesFeeRate, cfg.Trading.FuturesLeverage)
	default:
		client := binance.NewSpotClient(cfg.Binance.APIKey, cfg.Binance.SecretKey, cfg.Binance.BaseURL)
		gateway = client
		venue = usecase.NewSpotVenue(client, cfg.Trading.QuoteAsset)
	}

	engine := usecase.NewEngine(repo, gateway, venue, usecase.EngineConfig{
		OrderSize:   cfg.Trading.OrderSize,
		QuoteAsset:  cfg.Trading.QuoteAsset,
		Lookback:    cfg.Trading.Lookback,
		OrderExpiry: cfg.Trading.OrderExpiry,
		TargetIndex: cfg.Trading.TargetIndex,
		LatestFirst: cfg.Trading.LatestFirst,
	}, log)

	fcmClient, err := fcm.NewClient(ctx, cfg.FCM.CredentialsPath)
	if err != nil {
		log.WithError(err).Fatal("could not initialize FCM")
	}
	if fcmClient.IsEnabled() {
		engine.SetNotifier(usecase.NewFCMNotifier(fcmClient, cfg.FCM.DeviceTokens, log))
		log.Info("close notifications enabled")
	}

	log.WithFields(logrus.Fields{
		"venue":    venue.Name(),
		"interval": cfg.Trading.StepInterval,
	}).Info("engine starting")

	usecase.NewScheduler(engine, cfg.Trading.StepInterval, log).Run(ctx)

	log.Info("shutdown complete")
}
