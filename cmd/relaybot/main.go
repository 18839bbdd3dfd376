package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/relay-desk/internal/api/http"
	"github.com/spec-kit/relay-desk/internal/api/http/handlers"
	"github.com/spec-kit/relay-desk/internal/auth"
	"github.com/spec-kit/relay-desk/internal/bootstrap"
	"github.com/spec-kit/relay-desk/internal/bot"
	"github.com/spec-kit/relay-desk/internal/config"
	"github.com/spec-kit/relay-desk/internal/events"
	"github.com/spec-kit/relay-desk/internal/messages"
	"github.com/spec-kit/relay-desk/internal/observability"
	"github.com/spec-kit/relay-desk/internal/service"
	"github.com/spec-kit/relay-desk/internal/transport"
	"github.com/spec-kit/relay-desk/internal/worker"
)

func main() {
	var envFile string
	var serveHTTP, poll bool
	var notificationBuffer int

	flags := pflag.NewFlagSet("relaybot", pflag.ExitOnError)
	flags.StringVar(&envFile, "env-file", "", "load environment from this file before reading config")
	flags.BoolVar(&serveHTTP, "http", true, "serve the operator HTTP console")
	flags.BoolVar(&poll, "poll", true, "poll the chat provider for updates")
	flags.IntVar(&notificationBuffer, "notification-buffer", 256, "queued operator notifications before new ones are dropped")
	_ = flags.Parse(os.Args[1:])

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Fatalf("failed to load %s: %v", envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer store.Close()

	tracker := bootstrap.OpenTracker(ctx, cfg, logger)
	defer tracker.Close()

	catalog := messages.Default()
	if cfg.Messages.File != "" {
		if catalog, err = messages.Load(cfg.Messages.File); err != nil {
			logger.Fatal("failed to load messages", zap.String("file", cfg.Messages.File), zap.Error(err))
		}
	}

	telegram, err := transport.NewTelegram(cfg.Telegram, logger)
	if err != nil {
		logger.Fatal("failed to init telegram", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	notifications := worker.NewNotificationWorker(events.NewInMemoryDispatcher(logger), notificationBuffer, logger)

	relay := service.NewRelayService(service.RelayDependencies{
		UserRepo:   store.Users,
		TicketRepo: store.Tickets,
		Tracker:    tracker.Tracker,
		Transport:  telegram,
		Catalog:    catalog,
		Dispatcher: notifications,
		Logger:     logger,
	})
	console := service.NewConsoleService(service.ConsoleDependencies{
		UserRepo:   store.Users,
		RewardRepo: store.Rewards,
		EventRepo:  store.Events,
		Relay:      relay,
		Tracker:    tracker.Tracker,
		Dispatcher: notifications,
		Logger:     logger,
	})
	redemption := service.NewRedemptionService(service.RedemptionDependencies{
		UserRepo:   store.Users,
		RewardRepo: store.Rewards,
		Tracker:    tracker.Tracker,
		Dispatcher: notifications,
		Logger:     logger,
	})
	account := service.NewAccountService(service.AccountDependencies{
		UserRepo:    store.Users,
		OperatorIDs: cfg.Telegram.OperatorIDs,
		Logger:      logger,
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: store.Users})

	worker.StartNotificationWorker(ctx, notifications, service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:  notifications,
		Transport:   telegram,
		UserRepo:    store.Users,
		Catalog:     catalog,
		OperatorIDs: cfg.Telegram.OperatorIDs,
		Logger:      logger,
	}))

	chat := bot.New(bot.Dependencies{
		Account:    account,
		Relay:      relay,
		Redemption: redemption,
		Console:    console,
		Tracker:    tracker.Tracker,
		Transport:  telegram,
		Catalog:    catalog,
		Metrics:    metrics,
		Logger:     logger,
	})
	serializer := bot.NewSerializer(chat.HandleUpdate, logger)
	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	pollDone := make(chan struct{})
	if poll {
		go func() {
			defer close(pollDone)
			telegram.Run(pollCtx, func(update transport.Update) {
				serializer.Submit(ctx, update)
			})
		}()
	} else {
		close(pollDone)
	}

	var app *fiber.App
	if serveHTTP {
		app = fiber.New(fiber.Config{DisableStartupMessage: true})
		httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

		readiness := map[string]handlers.Pinger{}
		for name, check := range bootstrap.ReadinessChecks(store, tracker) {
			readiness[name] = check
		}
		httptransport.RegisterRoutes(app, httptransport.RouteConfig{
			Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
			Metrics:        handlers.NewMetricsHandler(metrics),
			Auth:           handlers.NewAuthHandler(authService),
			Console:        handlers.NewConsoleHandler(console),
			AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Users),
		})

		go func() {
			if err := app.Listen(cfg.App.Addr()); err != nil {
				logger.Fatal("fiber listen", zap.Error(err))
			}
		}()
	}

	waitForShutdown(logger)

	sequence := shutdown{
		stopPolling:   stopPolling,
		pollDone:      pollDone,
		serializer:    serializer,
		stopHandlers:  cancel,
		notifications: notifications,
		logger:        logger,
	}
	if app != nil {
		sequence.stopHTTP = app.Shutdown
	}
	sequence.run()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
