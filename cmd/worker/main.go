package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shopcore/storefront/internal/checkout"
	"github.com/shopcore/storefront/internal/clock"
	"github.com/shopcore/storefront/internal/config"
	"github.com/shopcore/storefront/internal/inventory"
	kafkax "github.com/shopcore/storefront/internal/kafka"
	"github.com/shopcore/storefront/internal/orders"
	"github.com/shopcore/storefront/internal/postgres"
	"github.com/shopcore/storefront/internal/redisx"
)

const consumerGroup = "storefront-worker"

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

	rdb := redisx.New(cfg.RedisAddr)
	defer func() { _ = rdb.Close() }()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger)
	prod.Start(ctx)

	ledger := &inventory.PgLedger{DB: db}
	orderRepo := &orders.Repo{DB: db}

	sweeper := checkout.NewSweeper(orderRepo, ledger, prod, clock.NewSystem(),
		cfg.SweepInterval, cfg.ServiceName+"-worker", logger)

	consumer := kafkax.NewConsumer(cfg.KafkaBrokers, consumerGroup, orders.AllTopics, 4, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sweeper.Run(gctx) })
	g.Go(func() error {
		return consumer.Start(gctx, func(ctx context.Context, m kafkago.Message) error {
			return refreshStatusCache(ctx, rdb, m, logger)
		})
	})
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sig:
			logger.Info("shutting down")
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("worker stopped", zap.Error(err))
	}
	prod.Close()
	prod.WaitClosed()
}

// refreshStatusCache keeps the Redis order_status entry in step with the
// lifecycle events so the storefront status poll rarely touches Postgres.
func refreshStatusCache(ctx context.Context, rdb *redis.Client, m kafkago.Message, logger *zap.Logger) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		logger.Warn("malformed event envelope", zap.String("topic", m.Topic), zap.Error(err))
		return nil // poison message, commit and move on
	}
	key, body, ttl, ok := statusCacheEntry(env)
	if !ok {
		return nil
	}
	return rdb.Set(ctx, key, body, ttl).Err()
}

// statusCacheEntry maps a lifecycle event to the cache key, body and TTL of
// the order_status entry. ok is false for events that carry no status.
// Terminal statuses never change again, so they get the long TTL.
func statusCacheEntry(env orders.Envelope) (key string, body []byte, ttl time.Duration, ok bool) {
	status, mapped := orders.StatusForEvent(env.EventType)
	if !mapped {
		return "", nil, 0, false
	}

	entry := map[string]any{
		"order_id": env.CorrelationID,
		"status":   status,
	}
	if env.EventType == orders.EventOrderSettled {
		if p, err := kafkax.UnwrapPayload[orders.OrderSettledPayload](env.Payload); err == nil {
			entry["payment_ref"] = p.PaymentRef
		}
	}

	ttl = redisx.TTLStatusCache
	if status.Terminal() {
		ttl = redisx.TTLStatusTerminal
	}

	key = fmt.Sprintf(redisx.KeyOrderStatus, env.CorrelationID)
	body, _ = json.Marshal(entry)
	return key, body, ttl, true
}
