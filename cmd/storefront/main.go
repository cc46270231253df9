package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/cache"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/config"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/gateway"
	storegrpc "github.com/SubodhIkites/Full-stack-cuddly/internal/grpc"
	h "github.com/SubodhIkites/Full-stack-cuddly/internal/http"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/publisher"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/repository"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/service"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	log.Println("storefront starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Set up MongoDB connection
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	if err := repository.CreateIndexes(ctx, mongoDB); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}
	log.Printf("Connected to MongoDB at %s", cfg.MongoURI)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	products := repository.NewMongoProductRepository(mongoDB)
	carts := repository.NewMongoCartRepository(mongoDB)
	orders := repository.NewMongoOrderRepository(mongoDB)
	payments := repository.NewMongoPaymentRepository(mongoDB)

	// Events are only recorded when there is a broker to publish them to.
	var outbox repository.OutboxRepository
	if len(cfg.KafkaBrokers) > 0 {
		outbox = repository.NewMongoOutboxRepository(mongoDB)
	}

	var processor gateway.Gateway
	if cfg.StripeSecretKey != "" {
		processor = gateway.NewStripe(cfg.StripeSecretKey)
		log.Println("Using Stripe payment gateway")
	} else {
		processor = gateway.NewSandbox(nil)
		log.Println("STRIPE_SECRET_KEY not set, using sandbox payment gateway")
	}
	gwCfg := gateway.DefaultResilientConfig()
	gwCfg.CallTimeout = cfg.GatewayTimeout
	paymentGateway := gateway.NewResilient(processor, gwCfg)

	productService := service.NewProductService(products)
	cartService := service.NewCartService(carts, products, cache.NewRedisCartCache(redisClient, cfg.CartCacheTTL, cfg.CartCacheJitter))
	orderService := service.NewOrderService(orders, products, payments, cartService,
		cache.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL), outbox)
	paymentService := service.NewPaymentService(payments, orderService, paymentGateway,
		cfg.PaymentCurrency, cfg.GatewayTimeout, outbox)

	var poller *publisher.OutboxPoller
	if outbox != nil {
		poller = publisher.NewOutboxPoller(outbox, paymentService, cfg.KafkaTopic, cfg.KafkaBrokers...)
		log.Printf("Publishing events to kafka %v topic %s", cfg.KafkaBrokers, cfg.KafkaTopic)
	} else {
		poller = publisher.NewRecoveryPoller(paymentService)
	}
	go poller.Run(ctx)

	limiter := h.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Cleanup(ctx, time.Minute, 3*time.Minute)

	router := h.NewRouter(h.Services{
		Products: productService,
		Carts:    cartService,
		Orders:   orderService,
		Payments: paymentService,
	}, h.RouterConfig{
		JWTSecret:          []byte(cfg.JWTSecret),
		RequestTimeout:     cfg.RequestTimeout,
		GatewayTimeout:     cfg.GatewayTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		Limiter:            limiter,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + cfg.GatewayTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("HTTP API listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// gRPC health for orchestrators
	healthServer := storegrpc.NewHealthServer(map[string]storegrpc.Check{
		"mongodb": func(ctx context.Context) error { return mongoDB.Client().Ping(ctx, nil) },
		"redis":   func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}, 2*time.Second)
	go healthServer.Run(ctx, 10*time.Second)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	go func() {
		log.Printf("gRPC health listening on :%s", cfg.GRPCPort)
		if err := healthServer.Serve(lis); err != nil {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down storefront...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	healthServer.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	stop()
	if err := poller.Close(); err != nil {
		log.Printf("failed to close kafka writer: %v", err)
	}
	if err := mongoDB.Client().Disconnect(shutdownCtx); err != nil {
		log.Printf("failed to disconnect from MongoDB: %v", err)
	}

	log.Println("storefront stopped")
}
