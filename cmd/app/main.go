package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"

	"github.com/ironsan2kk-pixel/back-sub000/internal/channel"
	"github.com/ironsan2kk-pixel/back-sub000/internal/config"
	"github.com/ironsan2kk-pixel/back-sub000/internal/cryptopay"
	"github.com/ironsan2kk-pixel/back-sub000/internal/db"
	"github.com/ironsan2kk-pixel/back-sub000/internal/logger"
	"github.com/ironsan2kk-pixel/back-sub000/internal/membership"
	"github.com/ironsan2kk-pixel/back-sub000/internal/notify"
	"github.com/ironsan2kk-pixel/back-sub000/internal/payment"
	"github.com/ironsan2kk-pixel/back-sub000/internal/promo"
	"github.com/ironsan2kk-pixel/back-sub000/internal/server"
	"github.com/ironsan2kk-pixel/back-sub000/internal/subscription"
	"github.com/ironsan2kk-pixel/back-sub000/internal/sweeper"
	"github.com/ironsan2kk-pixel/back-sub000/internal/user"
)

func main() {
	logger.Init()
	logger.Info("Starting ChannelPass settlement engine")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, "migrations"); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	tgBot, err := bot.New(cfg.BotToken)
	if err != nil {
		logger.Fatalf("Failed to create telegram bot client: %v", err)
	}

	notifier := notify.New(cfg.RedisAddr, tgBot)
	defer notifier.Close()
	logger.Info("Notification service initialized")

	gateway := cryptopay.NewClient(cfg.CryptoPayToken, cfg.CryptoPayBaseURL, 10*time.Second)
	members := membership.NewTelegramClient(tgBot)

	userRepo := user.NewRepository(database)
	channelRepo := channel.NewRepository(database)
	promoService := promo.NewService(promo.NewRepository(database))
	subRepo := subscription.NewRepository(database)
	subService := subscription.NewService(database, subRepo)
	paymentRepo := payment.NewRepository(database)
	paymentService := payment.NewService(
		database,
		paymentRepo,
		userRepo,
		channelRepo,
		promoService,
		subService,
		gateway,
		members,
		notifier,
		payment.Config{
			Asset:           cfg.CryptoPayAsset,
			InvoiceTTL:      cfg.InvoiceTTL,
			ReferralPercent: cfg.ReferralPercent,
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go notifier.Start(ctx)

	sw := sweeper.New(subRepo, paymentService, members, notifier, cfg.SweepInterval, cfg.WarnLeadDays)
	go sw.Start(ctx)

	srv := server.New(cfg, server.Deps{
		DB:       database,
		Payments: paymentService,
		Verifier: gateway,
		Subs:     subService,
		Users:    userRepo,
		Channels: channelRepo,
		Members:  members,
	})

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(cfg.Port); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
