package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/greenmarket/storefront/internal/auth"
	"github.com/greenmarket/storefront/internal/cart"
	"github.com/greenmarket/storefront/internal/catalog"
	"github.com/greenmarket/storefront/internal/config"
	"github.com/greenmarket/storefront/internal/httpx"
	kafkax "github.com/greenmarket/storefront/internal/kafka"
	"github.com/greenmarket/storefront/internal/orders"
	"github.com/greenmarket/storefront/internal/postgres"
	"github.com/greenmarket/storefront/internal/redisx"
	"github.com/greenmarket/storefront/internal/reports"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("db schema: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for order.created
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	prod.Start(ctx)

	sessions := &auth.SessionStore{Redis: rdb}

	router := httpx.NewRouter(sessions)

	(&httpx.AuthHandler{
		Users:    &auth.Repo{DB: db},
		Sessions: sessions,
	}).Register(router)
	(&httpx.ProductsHandler{
		Catalog: &catalog.Repo{DB: db},
	}).Register(router)
	(&httpx.CartHandler{
		Cart: &cart.Repo{DB: db},
	}).Register(router)
	(&httpx.OrdersHandler{
		Repo: &orders.Repo{
			DB: db,
			Pricing: orders.PricingConfig{
				TaxRate:               cfg.TaxRate,
				FreeShippingThreshold: cfg.FreeShippingThreshold,
				ShippingCost:          cfg.ShippingCost,
			},
		},
		Producer: prod,
		Service:  cfg.ServiceName,
	}).Register(router)
	(&httpx.ReportsHandler{
		Reports: &reports.Repo{DB: db},
		Redis:   rdb,
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // stop intake, flush what is buffered
	cancel()
	prod.WaitClosed()
}
