package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/auth"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/config"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/db"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/handlers"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/log"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/mailer"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/middleware"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/realtime"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/services"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/store"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP and websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func initLogger(cfg config.Config) {
	log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON})
}

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	initLogger(cfg)
	logger := log.WithComponent("server")

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close(gdb) }()

	if cfg.AutoMigrate {
		if err := db.MigrateUp(cfg.DBDSN); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
	}

	rdb, err := realtime.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		logger.Info().Str("addr", cfg.RedisAddr).Msg("redis fan-out enabled")
	} else {
		logger.Warn().Msg("REDIS_ADDR not set, realtime events stay on this instance")
	}

	hub := realtime.NewHub()
	broker := realtime.NewBroker(hub, rdb)
	go func() {
		if err := broker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("broker stopped")
		}
	}()

	svc := buildServices(cfg, gdb, broker)

	limiter := middleware.NewRateLimiter(30, 10)
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				limiter.Sweep()
			}
		}
	}()

	app := handlers.NewApp(svc, handlers.Options{
		Production:      cfg.Production(),
		CORSOrigins:     cfg.CORSOrigins,
		UploadDir:       cfg.UploadDir,
		CookieTTL:       time.Duration(cfg.JWTExpiresMin) * time.Minute,
		FrontendBaseURL: cfg.FrontendBaseURL,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		AuthLimiter:     limiter,
		Hub:             hub,
		Ready: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.AppPort).Msg("listening")
		errCh <- app.Listen(":" + cfg.AppPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	hub.Shutdown()
	timeout := time.Duration(cfg.ShutdownTimeoutSec) * time.Second
	if err := app.ShutdownWithTimeout(timeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func buildServices(cfg config.Config, gdb *gorm.DB, publisher services.Publisher) handlers.Services {
	var mail services.Mailer = mailer.NewLog()
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTP(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.MailFrom,
		})
	}

	tokens := auth.NewTokenIssuer(
		cfg.JWTSecret,
		time.Duration(cfg.JWTExpiresMin)*time.Minute,
		time.Duration(cfg.VerifyExpiresMin)*time.Minute,
		time.Duration(cfg.ResetExpiresMin)*time.Minute,
	)

	users := store.NewUserStore(gdb)
	projects := store.NewProjectStore(gdb)
	messages := store.NewMessageStore(gdb)
	notifications := store.NewNotificationStore(gdb)
	catalog := store.NewCatalogStore(gdb)
	orders := store.NewOrderStore(gdb)
	reviews := store.NewReviewStore(gdb)

	projectSvc := services.NewProjectService(projects, users)
	notifySvc := services.NewNotificationService(notifications, publisher)

	return handlers.Services{
		Auth:          services.NewAuthService(users, tokens, mail, cfg.FrontendBaseURL),
		Profiles:      services.NewProfileService(users),
		Projects:      projectSvc,
		Messages:      services.NewMessageService(messages, projectSvc, users, publisher),
		Notifications: notifySvc,
		Catalog:       services.NewCatalogService(catalog, orders, notifySvc),
		Orders:        services.NewOrderService(orders, catalog, notifySvc),
		Reviews:       services.NewReviewService(reviews, catalog, notifySvc),
		Dashboard:     services.NewDashboardService(projects, messages, notifications, orders),
	}
}
