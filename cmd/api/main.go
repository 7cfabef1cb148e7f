package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/shopcore/storefront/internal/cart"
	"github.com/shopcore/storefront/internal/catalog"
	"github.com/shopcore/storefront/internal/checkout"
	"github.com/shopcore/storefront/internal/clock"
	"github.com/shopcore/storefront/internal/config"
	"github.com/shopcore/storefront/internal/httpx"
	"github.com/shopcore/storefront/internal/inventory"
	kafkax "github.com/shopcore/storefront/internal/kafka"
	"github.com/shopcore/storefront/internal/orders"
	"github.com/shopcore/storefront/internal/payment"
	"github.com/shopcore/storefront/internal/postgres"
	"github.com/shopcore/storefront/internal/redisx"
	"github.com/shopcore/storefront/migrations"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := migrations.Apply(ctx, db); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		logger.Info("migrations applied")
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer func() { _ = rdb.Close() }()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger)
	prod.Start(ctx)

	cat := &catalog.PgStore{DB: db}
	ledger := &inventory.PgLedger{DB: db}
	orderRepo := &orders.Repo{DB: db}
	carts := cart.NewService(&cart.PgRepo{DB: db}, cat, cfg.MaxLineQuantity, logger)
	provider := payment.NewClient(cfg.ProviderBaseURL, cfg.ProviderKeyID, cfg.ProviderKeySecret)

	orch := checkout.NewOrchestrator(carts, orderRepo, ledger, provider, prod, clock.NewSystem(),
		checkout.Options{
			Currency:     cfg.Currency,
			ShippingFlat: cfg.ShippingFlat,
			TaxRateBps:   cfg.TaxRateBps,
			CheckoutTTL:  cfg.CheckoutTTL,
			Service:      cfg.ServiceName,
		}, logger)

	verifier := payment.NewVerifier(orderRepo, ledger, prod, rdb,
		cfg.ProviderKeySecret, cfg.ProviderWebhookSecret, cfg.ServiceName, logger)

	router := httpx.NewRouter(httpx.RouterOptions{
		DevAllowAllCORS:   cfg.DevAllowAllCORS,
		AllowedCORSOrigin: cfg.AllowedCORSOrigin,
	})
	router.Route("/v1", func(r chi.Router) {
		(&httpx.CatalogHandler{Catalog: cat}).Register(r)
		(&httpx.CartHandler{Carts: carts}).Register(r)
		(&httpx.CheckoutHandler{Orchestrator: orch, Orders: orderRepo, Redis: rdb}).Register(r)
		(&httpx.PaymentHandler{Verifier: verifier}).Register(r)
		(&httpx.AdminHandler{Ledger: ledger, Orders: orderRepo, Token: cfg.AdminToken}).Register(r)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)
	prod.Close()
	cancel()
	prod.WaitClosed()
}
