package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skotchmaster/marketplace/pkg/authclient"
	"github.com/Skotchmaster/marketplace/pkg/db"
	"github.com/Skotchmaster/marketplace/pkg/logging"
	loggingmw "github.com/Skotchmaster/marketplace/pkg/middleware/logging"
	"github.com/Skotchmaster/marketplace/pkg/mykafka"
	"github.com/Skotchmaster/marketplace/services/order/internal/catalog"
	"github.com/Skotchmaster/marketplace/services/order/internal/config"
	"github.com/Skotchmaster/marketplace/services/order/internal/events"
	"github.com/Skotchmaster/marketplace/services/order/internal/gateway"
	"github.com/Skotchmaster/marketplace/services/order/internal/httpserver"
	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/Skotchmaster/marketplace/services/order/internal/repo"
	"github.com/Skotchmaster/marketplace/services/order/internal/search"
	"github.com/Skotchmaster/marketplace/services/order/internal/service"
	"github.com/Skotchmaster/marketplace/services/order/internal/transport"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	cfg.Validate()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	var dbOpts []db.Option
	if cfg.LogLevel == "debug" {
		dbOpts = append(dbOpts, db.WithSQLLog())
	}
	gdb, err := db.Open(initCtx, cfg.DatabaseURL, dbOpts...)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := gdb.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	var gw gateway.Gateway
	if cfg.StripeSecretKey != "" {
		gw = gateway.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		logger.Warn("stripe_disabled", "reason", "STRIPE_SECRET_KEY is empty, using the auto-paying mock gateway")
		gw = gateway.NewMock(cfg.StripeWebhookSecret, true)
	}

	var mailer events.Mailer = events.LogMailer{Log: logger}
	if cfg.SMTPAddr != "" {
		smtpMailer, err := events.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
		if err != nil {
			log.Fatalf("smtp init error: %v", err)
		}
		mailer = smtpMailer
	}
	bus := events.NewBus(logger, events.EmailSubscriber{Mailer: mailer})

	var producer *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Fatalf("kafka init error: %v", err)
		}
		bus.Subscribe(events.RealtimeSubscriber{Producer: producer, Topic: cfg.EventsTopic})
	}

	orders := &repo.GormRepo{DB: gdb}
	var index *search.Index
	if cfg.ESURL != "" {
		es, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		index = &search.Index{ES: es, Name: cfg.OrderIndex}
		bus.Subscribe(search.NewIndexer(index, orders))
	}

	deps := service.Deps{
		Repo:    orders,
		Catalog: catalog.NewRegistry(),
		Gateway: gw,
		Events:  bus,
		Pricing: service.Pricing{
			ShippingFee:           cfg.ShippingFee,
			FreeShippingThreshold: cfg.FreeShippingThreshold,
			TaxRate:               cfg.TaxRate,
		},
		Checkout: service.CheckoutURLs{
			Currency:   cfg.Currency,
			SuccessURL: cfg.SuccessURL,
			CancelURL:  cfg.CancelURL,
		},
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Validator = transport.NewValidator()

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	var authClient *authclient.Client
	if cfg.AuthHTTPURL != "" {
		authClient = authclient.NewClient(cfg.AuthHTTPURL)
	}

	httpserver.Register(e, &httpserver.Deps{
		OrderHandler: &httpserver.OrderHTTP{
			Orders:  service.NewOrderService(deps),
			Refunds: service.NewRefundService(deps),
			Search:  index,
		},
		PaymentHandler: &httpserver.PaymentHTTP{
			Checkout: service.NewCheckoutService(deps),
			Payments: service.NewPaymentService(deps),
		},
		JWTSecret:  cfg.JWTAccessSecret,
		AuthClient: authClient,
		Ready: func() error {
			return db.Ping(context.Background(), gdb, time.Second)
		},
	})

	go func() {
		logger.Info("server_starting", "port", cfg.ServerPort)
		if err := e.Start(fmt.Sprintf(":%d", cfg.ServerPort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("server_stopping")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo_shutdown_error", "error", err)
	}

	// in-flight notifications finish before their sinks close
	bus.Wait()

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka_close_error", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_error", "error", err)
	}

	logger.Info("server_stopped")
}
