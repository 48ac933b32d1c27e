package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/checkout-pipeline/internal/clients"
	"github.com/fjod/go_cart/checkout-pipeline/internal/config"
	h "github.com/fjod/go_cart/checkout-pipeline/internal/http"
	"github.com/fjod/go_cart/checkout-pipeline/internal/logger"
	"github.com/fjod/go_cart/checkout-pipeline/internal/loyalty"
	"github.com/fjod/go_cart/checkout-pipeline/internal/metrics"
	"github.com/fjod/go_cart/checkout-pipeline/internal/pricing"
	"github.com/fjod/go_cart/checkout-pipeline/internal/repository"
	"github.com/fjod/go_cart/checkout-pipeline/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.ServiceName)
	log.Info().Str("port", cfg.HTTPPort).Msg("checkout-pipeline starting")

	rules, err := cfg.Pricing()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid pricing rules")
	}

	breaker := clients.BreakerSettings{
		FailThreshold: cfg.BreakerFailThreshold,
		OpenTimeout:   cfg.BreakerOpenTimeout,
	}
	identityClient := mustClient("identity-service", cfg.IdentityURL, cfg.UpstreamTimeout, breaker, log)
	cartClient := mustClient("cart-service", cfg.CartURL, cfg.UpstreamTimeout, breaker, log)
	orderClient := mustClient("order-service", cfg.OrderURL, cfg.OrderSubmitTimeout, breaker, log)

	loyaltyService, closeLoyalty, err := newLoyaltyService(cfg, breaker, log)
	if err != nil {
		log.Fatal().Err(err).Str("transport", cfg.LoyaltyTransport).Msg("failed to set up loyalty transport")
	}
	defer closeLoyalty()

	deps := service.Dependencies{
		Identity: clients.NewIdentityClient(identityClient),
		Cart:     clients.NewCartClient(cartClient),
		Orders:   clients.NewOrderClient(orderClient),
		Loyalty:  loyaltyService,
	}

	// Award ledger
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis connection failed")
		}
		deps.Ledger = loyalty.NewRedisLedger(redisClient, cfg.AwardLedgerTTL)
		log.Info().Str("addr", cfg.RedisAddr).Msg("loyalty award ledger enabled")
	}

	// Submission journal
	if cfg.DBHost != "" {
		creds := &repository.Credentials{
			Host:              cfg.DBHost,
			Port:              cfg.DBPort,
			User:              cfg.DBUser,
			Password:          cfg.DBPassword,
			DBName:            cfg.DBName,
			MigrationsDirPath: cfg.MigrationsPath,
		}
		repo, err := repository.NewRepository(creds)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer repo.Close()
		if err := repo.RunMigrations(creds); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		deps.Journal = repo
		log.Info().Msg("database migrations completed, submission journal enabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(reg)

	checkoutService := service.NewCheckoutService(
		deps,
		pricing.NewEngine(rules),
		checkoutMetrics,
		log,
		service.Timeouts{
			OrderSubmit: cfg.OrderSubmitTimeout,
			CartClear:   cfg.CartClearTimeout,
			Loyalty:     cfg.LoyaltyTimeout,
		},
	)

	checkoutHandler := h.NewCheckoutHandler(checkoutService, cfg.UpstreamTimeout)
	router := h.NewRouter(checkoutHandler, metrics.Handler(reg), log, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Msgf("checkout API listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	waitDone := make(chan struct{})
	go func() {
		checkoutService.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-ctx.Done():
		log.Warn().Msg("shutdown timeout reached with loyalty sends still in flight")
	}

	log.Info().Msg("server exited")
}

func mustClient(name, baseURL string, timeout time.Duration, bs clients.BreakerSettings, log zerolog.Logger) *clients.Client {
	c, err := clients.NewClient(name, baseURL, timeout, bs, log)
	if err != nil {
		log.Fatal().Err(err).Str("upstream", name).Msg("invalid upstream configuration")
	}
	return c
}

// newLoyaltyService picks the loyalty transport named by LOYALTY_TRANSPORT.
func newLoyaltyService(cfg *config.Config, bs clients.BreakerSettings, log zerolog.Logger) (service.LoyaltyService, func(), error) {
	switch cfg.LoyaltyTransport {
	case "", "http":
		c, err := clients.NewClient("loyalty-service", cfg.LoyaltyURL, cfg.LoyaltyTimeout, bs, log)
		if err != nil {
			return nil, nil, err
		}
		return clients.NewLoyaltyClient(c), func() {}, nil
	case "kafka":
		p := loyalty.NewKafkaPublisher(cfg.KafkaLoyaltyTopic, cfg.KafkaBrokerList()...)
		log.Info().Strs("brokers", cfg.KafkaBrokerList()).Str("topic", cfg.KafkaLoyaltyTopic).Msg("loyalty awards go to kafka")
		return p, func() {
			if err := p.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close kafka writer")
			}
		}, nil
	case "rabbitmq":
		conn, err := amqp.Dial(cfg.RabbitURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		p, err := loyalty.NewRabbitPublisher(conn, cfg.RabbitLoyaltyQ)
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		log.Info().Str("queue", cfg.RabbitLoyaltyQ).Msg("loyalty awards go to rabbitmq")
		return p, func() {
			_ = p.Close()
			_ = conn.Close()
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown loyalty transport %q", cfg.LoyaltyTransport)
	}
}
