package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eursukkul/event-ticketing/config"
	"github.com/Eursukkul/event-ticketing/internal/audit"
	"github.com/Eursukkul/event-ticketing/internal/auth"
	"github.com/Eursukkul/event-ticketing/internal/consumer"
	"github.com/Eursukkul/event-ticketing/internal/handler"
	"github.com/Eursukkul/event-ticketing/internal/middleware"
	"github.com/Eursukkul/event-ticketing/internal/notifier"
	"github.com/Eursukkul/event-ticketing/internal/repository"
	"github.com/Eursukkul/event-ticketing/internal/repository/memory"
	"github.com/Eursukkul/event-ticketing/internal/service"
	"github.com/Eursukkul/event-ticketing/pkg/database"
	"github.com/Eursukkul/event-ticketing/pkg/kafka"
	"github.com/Eursukkul/event-ticketing/pkg/logger"
	"github.com/Eursukkul/event-ticketing/pkg/rabbitmq"
	"github.com/Eursukkul/event-ticketing/pkg/redisbus"
	"github.com/Eursukkul/event-ticketing/pkg/telemetry"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(logger.Config{
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
		Version:     cfg.App.Version,
	})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	})
	if err != nil {
		zlog.Fatal("failed to init telemetry", zap.Error(err))
	}

	// Storage
	var (
		store    repository.InventoryStore
		events   repository.EventRepository
		bookings repository.BookingRepository
	)
	switch cfg.Database.Driver {
	case config.StorageDriverMemory:
		mem := memory.NewStore()
		store, events, bookings = mem, mem, mem.Bookings()
		zlog.Warn("using in-memory storage, data is lost on restart")
	default:
		db, err := database.NewPostgresDB(cfg.Database.DSN(), database.Options{
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
		})
		if err != nil {
			zlog.Fatal("failed to connect to database", zap.Error(err))
		}
		store = repository.NewInventoryStore(db, cfg.Database.LockTimeout)
		events = repository.NewEventRepository(db)
		bookings = repository.NewBookingRepository(db)
	}

	// Change notifier
	hub := notifier.NewHub(cfg.Notifier.SubscriberBuffer, zlog)
	var seatNotifier service.SeatNotifier = hub
	var closers []func()

	seatConsumer := consumer.NewSeatConsumer(hub, zlog)
	switch cfg.Notifier.Transport {
	case config.TransportRabbitMQ:
		pub, err := rabbitmq.NewPublisher(cfg.Notifier.RabbitURL, zlog)
		if err != nil {
			zlog.Fatal("failed to connect to RabbitMQ", zap.Error(err))
		}
		closers = append(closers, pub.Close)

		mqConsumer, err := rabbitmq.NewConsumer(cfg.Notifier.RabbitURL, cfg.App.Name, zlog)
		if err != nil {
			zlog.Fatal("failed to connect to RabbitMQ", zap.Error(err))
		}
		closers = append(closers, mqConsumer.Close)

		msgs, err := mqConsumer.Consume()
		if err != nil {
			zlog.Fatal("failed to start consuming", zap.Error(err))
		}
		seatConsumer.Start(msgs)
		seatNotifier = notifier.NewBrokerNotifier(pub)

	case config.TransportRedis:
		bus, err := redisbus.New(ctx, redisbus.Config{
			Addr:          cfg.Redis.Addr,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			ChannelPrefix: cfg.Redis.ChannelPrefix,
			MaxRetries:    3,
			RetryInterval: 2 * time.Second,
		}, zlog)
		if err != nil {
			zlog.Fatal("failed to connect to Redis", zap.Error(err))
		}
		closers = append(closers, func() { _ = bus.Close() })

		go func() {
			if err := bus.Listen(ctx, notifier.TopicPattern, seatConsumer.HandlePayload); err != nil && !errors.Is(err, context.Canceled) {
				zlog.Error("redis listener stopped", zap.Error(err))
			}
		}()
		seatNotifier = notifier.NewBrokerNotifier(bus)
	}

	// Audit trail
	var sink audit.Sink = audit.NewLogSink(zlog)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
			Brokers:       cfg.Kafka.Brokers,
			ClientID:      cfg.App.Name,
			MaxRetries:    3,
			RetryInterval: 2 * time.Second,
		})
		if err != nil {
			zlog.Fatal("failed to connect to Kafka", zap.Error(err))
		}
		closers = append(closers, producer.Close)
		sink = audit.NewKafkaSink(producer, cfg.Kafka.AuditTopic)
	}

	// Services
	deps := service.Deps{
		Store:    store,
		Events:   events,
		Bookings: bookings,
		Notifier: seatNotifier,
		Audit:    sink,
		Log:      zlog,
	}
	bookingSvc := service.NewBookingService(deps)
	eventSvc := service.NewEventService(deps)

	tokens := auth.NewTokens(cfg.JWT.Secret, cfg.JWT.Issuer, 0)
	authn := auth.Middleware(tokens)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler(zlog)
	e.Use(echoMw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(zlog))
	e.Use(telemetry.Middleware())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": cfg.App.Name})
	})

	handler.NewEventHandler(eventSvc, hub).RegisterRoutes(e, authn)
	handler.NewBookingHandler(bookingSvc).RegisterRoutes(e, authn)

	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.RegisterOnShutdown(hub.Close)

	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server shutdown", zap.Error(err))
	}
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		zlog.Error("telemetry shutdown", zap.Error(err))
	}
}
