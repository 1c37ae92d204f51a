package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"shop-backend/internal/cart"
	"shop-backend/internal/catalog"
	"shop-backend/internal/config"
	"shop-backend/internal/db"
	"shop-backend/internal/events"
	"shop-backend/internal/httpserver"
	"shop-backend/internal/logging"
	"shop-backend/internal/middleware/auth"
	loggingmw "shop-backend/internal/middleware/logging"
	"shop-backend/internal/order"
	"shop-backend/internal/review"
	"shop-backend/internal/search"
)

func main() {
	cfg := config.MustLoad()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	var pub events.Publisher
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
		pub = producer
	} else {
		logger.Warn("kafka brokers not configured, event publishing disabled")
	}

	var indexer *search.Indexer
	if cfg.ESURL != "" {
		es, err := search.NewClient(cfg)
		if err != nil {
			logger.Error("elasticsearch unavailable, search indexing disabled", "error", err)
		} else {
			indexer = &search.Indexer{ES: es, Index: cfg.ESIndex}
		}
	}

	catalogSvc := &catalog.Service{
		Repo:    &catalog.GormRepo{DB: gdb},
		Events:  pub,
		Indexer: indexer,
	}
	cartSvc := &cart.Service{
		Repo:   &cart.GormRepo{DB: gdb},
		Events: pub,
	}
	orderSvc := order.NewService(&order.GormRepo{DB: gdb}, pub)
	reviewSvc := &review.Service{
		DB:        gdb,
		Purchases: orderSvc.Repo,
		Events:    pub,
	}

	e := echo.New()
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())

	deps := &httpserver.Deps{
		DB:      gdb,
		Auth:    auth.New(cfg.JWTSecret),
		Catalog: catalogSvc,
		Cart:    cartSvc,
		Orders:  orderSvc,
		Reviews: reviewSvc,
		ESIndex: cfg.ESIndex,
	}
	if indexer != nil {
		deps.ES = indexer.ES
	}
	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		log.Printf("%s listening on %s", cfg.ServiceName, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)

	if producer != nil {
		_ = producer.Close()
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Printf("%s stopped", cfg.ServiceName)
}
