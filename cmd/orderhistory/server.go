package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/microservice-patterns/order-history-service/internal/consumer"
	"github.com/microservice-patterns/order-history-service/internal/history"
	"github.com/microservice-patterns/order-history-service/internal/logger"
	"github.com/microservice-patterns/order-history-service/internal/rabbitmq"
	"github.com/microservice-patterns/order-history-service/internal/router"
	storage "github.com/microservice-patterns/order-history-service/internal/storage/postgres"
)

func main() {
	if err := run(); err != nil {
		panic(err)
	}
}

func run() error {
	cfg, err := NewConfig()
	if err != nil {
		log.Fatal(err)
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewPostgresStorage(cfg.DatabaseConnection)
	if err != nil {
		log.Fatalf("Failed to initialize Postgres storage: %v", err)
	}
	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	defer cancelPing()
	if err := store.Ping(pingCtx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Warning: failed to close storage: %v", err)
		}
	}()

	rmq, err := rabbitmq.New(rabbitmq.Config{
		URL:             cfg.RabbitMQURL,
		Exchange:        cfg.OrderEventsExchange,
		Queue:           cfg.OrderEventsQueue,
		DeadLetterQueue: cfg.DeadLetterQueue,
		PrefetchCount:   cfg.ConsumerWorkers * 2,
	})
	if err != nil {
		log.Fatalf("RabbitMQ initialization failed: %v", err)
	}
	defer rmq.Close()

	if err := rmq.SetupQueues(); err != nil {
		log.Fatalf("Failed to setup RabbitMQ queues: %v", err)
	}

	historySvc := history.NewService(store)
	historyHandler := history.NewHandler(historySvc)

	if err := consumer.Start(ctx, rmq.Channel, cfg.OrderEventsQueue, historySvc, cfg.ConsumerWorkers); err != nil {
		log.Fatalf("Failed to start event consumer: %v", err)
	}

	r := router.NewRouter(historyHandler, []byte(cfg.JWTSecret))

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
	return nil
}
