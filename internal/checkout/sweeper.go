package checkout

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shopcore/storefront/internal/clock"
	"github.com/shopcore/storefront/internal/inventory"
	kafkax "github.com/shopcore/storefront/internal/kafka"
	"github.com/shopcore/storefront/internal/orders"

	kafkago "github.com/segmentio/kafka-go"
)

const sweepBatch = 100

// Sweeper expires pending_payment orders whose deadline passed and returns
// their reservations to available stock. Exact timeliness is not required;
// release within one sweep interval is enough. A payment callback that wins
// an order's guarded transition first simply makes the sweep skip it.
type Sweeper struct {
	orders   OrderStore
	ledger   inventory.Ledger
	producer Publisher
	clock    clock.Clock
	interval time.Duration
	service  string
	logger   *zap.Logger
}

func NewSweeper(store OrderStore, ledger inventory.Ledger, producer Publisher, clk clock.Clock, interval time.Duration, service string, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		orders:   store,
		ledger:   ledger,
		producer: producer,
		clock:    clk,
		interval: interval,
		service:  service,
		logger:   logger,
	}
}

// Run sweeps periodically until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.Warn("expiry sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("expired orders released", zap.Int("count", n))
			}
		}
	}
}

// SweepOnce expires one batch and reports how many orders it transitioned.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	ids, err := s.orders.FindExpired(ctx, s.clock.Now(), sweepBatch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		claimed, err := s.orders.ClaimExpire(ctx, id)
		if err != nil {
			return expired, err
		}
		if !claimed {
			continue
		}
		items, err := s.orders.Items(ctx, id)
		if err != nil {
			return expired, err
		}
		// release exactly what this order reserved, nothing more
		for _, it := range items {
			if err := s.ledger.Release(ctx, it.VariantID, it.Quantity); err != nil {
				s.logger.Error("release on expiry failed",
					zap.String("order_id", id.String()),
					zap.String("variant_id", it.VariantID.String()),
					zap.Error(err),
				)
			}
		}
		s.publish(orders.TopicOrderExpired, orders.NewEnvelope(
			orders.EventOrderExpired, s.service, id.String(),
			orders.OrderExpiredPayload{OrderID: id.String()},
		))
		expired++
	}
	return expired, nil
}

func (s *Sweeper) publish(topic string, env orders.Envelope) {
	if s.producer == nil {
		return
	}
	s.producer.Publish(topic, orders.PartitionKey(env.CorrelationID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
