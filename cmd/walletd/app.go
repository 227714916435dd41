package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/finvault/walletd/internal/broker"
	"github.com/finvault/walletd/internal/consumer"
	"github.com/finvault/walletd/internal/events"
	"github.com/finvault/walletd/internal/handlers"
	"github.com/finvault/walletd/internal/idempotency"
	"github.com/finvault/walletd/internal/logger"
	"github.com/finvault/walletd/internal/repository"
	"github.com/finvault/walletd/internal/repository/postgres"
	"github.com/finvault/walletd/internal/service/auth"
	"github.com/finvault/walletd/internal/service/ledger"
	"github.com/finvault/walletd/internal/workers"
	"github.com/finvault/walletd/internal/ws"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger    logger.Logger
	consumers []*consumer.Consumer
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := repository.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Connect to the broker and declare the event queues
	brokerClient, err := broker.Connect(c.AmqpURL, logger)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to broker. Err: %w", err)
	}
	publisher, err := events.NewBrokerPublisher(brokerClient, logger)
	if err != nil {
		return nil, fmt.Errorf("error while setting up publisher. Err: %w", err)
	}

	// Redis backs the consumer idempotency store
	redisClient := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	store := idempotency.NewRedisStore(redisClient, idempotency.DefaultLockTTL, idempotency.DefaultProcessedTTL)

	// Initialize services
	ledgerService := ledger.NewService(storage, publisher, logger)
	authService, err := auth.NewService(auth.Config{SecretKey: c.SecretKey}, storage.User())
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	hub := ws.NewHub(logger)

	// Every domain event is consumed twice: persisted to the audit log
	// and pushed to connected websocket clients
	consumerCfg := func(queue string) consumer.Config {
		return consumer.Config{
			Queue:       queue,
			MaxRetries:  c.ConsumerMaxRetries,
			BackoffBase: c.ConsumerBackoffBase,
			Prefetch:    c.ConsumerPrefetch,
		}
	}
	auditWorker := workers.NewAudit(storage, logger)
	notifier := workers.NewNotifier(hub, logger)

	consumers := []*consumer.Consumer{
		consumer.New(consumerCfg(events.QueueAudit), brokerClient, store, logger, auditWorker.Handle),
		consumer.New(consumerCfg(events.QueueNotify), brokerClient, store, logger, notifier.Handle),
	}

	mux := handlers.NewRouter(authService, ledgerService, hub, logger)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     logger,
		consumers:  consumers,
	}, nil
}

// Run starts the consumers and the http server, then closes gracefully
// on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	for _, c := range s.consumers {
		go func() {
			if err := c.Run(srvCtx); err != nil {
				s.logger.Error("Consumer stopped with error", "error", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
