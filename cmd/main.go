package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/abandoned-cart-service/internal/config"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/customobject"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/domain"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/events"
	h "github.com/fjod/go_cart/abandoned-cart-service/internal/http"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/processor"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/repository"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/runstore"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/scheduler"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/service"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/settings"
	"github.com/fjod/go_cart/abandoned-cart-service/pkg/circuitbreaker"
	"github.com/fjod/go_cart/abandoned-cart-service/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const serviceName = "abandoned-cart-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Service: serviceName,
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})

	ctx := context.Background()

	// Set up MongoDB connection
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		fatal(log, "Failed to connect to MongoDB", err)
	}
	defer mongoDB.Client().Disconnect(context.Background())
	log.Info(fmt.Sprintf("Connected to MongoDB at %s", cfg.Mongo.URI))

	breaker := circuitbreaker.New[domain.CartPage](circuitbreaker.DefaultSettings("cart-source"), log)
	carts := repository.WithCircuitBreaker(repository.NewMongoCartSource(mongoDB), breaker)

	store, closeStore, err := openStore(ctx, cfg, mongoDB, log)
	if err != nil {
		fatal(log, "Failed to open custom object store", err)
	}
	defer closeStore()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		fatal(log, "Redis connection failed", err)
	}
	log.Info("Redis ping succeeded")

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Topic, cfg.Kafka.Brokers...)
		log.Info("Publishing recorded events", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("error closing publisher", "error", err)
		}
	}()

	provider := settings.NewProvider(store, log)
	records := customobject.NewAbandonedCarts(store)

	proc := processor.New(processor.Deps{
		Configuration: provider,
		Carts:         carts,
		Records:       records,
		Publisher:     publisher,
		Logger:        log,
		PageSize:      cfg.Scheduler.PageSize,
	})

	svc := service.NewAbandonedCartService(service.Deps{
		Processor:  proc,
		Runs:       runstore.NewRedisStore(redisClient),
		Settings:   provider,
		Records:    records,
		Logger:     log,
		RunTimeout: cfg.Scheduler.RunTimeout,
	})

	runCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	go scheduler.NewScheduler(svc, cfg.Scheduler.Tick, log).Run(runCtx)

	router := h.NewRouter(h.NewHandler(svc, log), log, cfg.RequestTimeout)
	srv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// no write timeout: POST /process answers when the run ends
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info(fmt.Sprintf("Abandoned cart service starting on :%s", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(log, "server error", err)
		}
	}()

	// gRPC exposes only health and reflection for probes
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		fatal(log, "Failed to listen", err)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	go func() {
		log.Info(fmt.Sprintf("gRPC health listening on port %s", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			fatal(log, "Failed to serve", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down abandoned cart service...")
	healthServer.Shutdown()
	stopScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	log.Info("Abandoned cart service stopped")
}

// openStore returns the custom object store selected by STORE_DRIVER and
// its cleanup.
func openStore(ctx context.Context, cfg config.Config, mongoDB *mongo.Database, log *slog.Logger) (customobject.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		cred := &customobject.Credentials{
			Host:              cfg.Postgres.Host,
			Port:              cfg.Postgres.Port,
			User:              cfg.Postgres.User,
			Password:          cfg.Postgres.Password,
			DBName:            cfg.Postgres.Database,
			MigrationsDirPath: cfg.Postgres.MigrationsPath,
		}
		db, err := customobject.OpenPostgres(cred)
		if err != nil {
			return nil, nil, err
		}
		store := customobject.NewPostgresStore(db)
		if err := store.RunMigrations(cred.MigrationsDirPath); err != nil {
			store.Close()
			return nil, nil, err
		}
		log.Info(fmt.Sprintf("Connected to Postgres at %s:%d", cred.Host, cred.Port))
		return store, func() { store.Close() }, nil
	case config.StoreDriverSQLite:
		db, err := customobject.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		store := customobject.NewSQLiteStore(db)
		if err := store.RunMigrations(cfg.SQLite.MigrationsPath); err != nil {
			store.Close()
			return nil, nil, err
		}
		log.Info(fmt.Sprintf("Opened SQLite store at %s", cfg.SQLite.Path))
		return store, func() { store.Close() }, nil
	default:
		store := customobject.NewMongoStore(mongoDB)
		if err := store.CreateIndexes(ctx); err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
