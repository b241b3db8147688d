package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const orderNumberCounterTTL = 48 * time.Hour

// NumberGenerator produces human-readable order numbers. The unique index on
// orders.order_number is the final guard against duplicates.
type NumberGenerator interface {
	Next(ctx context.Context) (string, error)
}

type dayCounter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	OrderNumberCounterKey(day string) string
}

// CounterGenerator issues ORD-YYYYMMDD-NNNNNN from a per-day redis counter.
type CounterGenerator struct {
	counter  dayCounter
	fallback NumberGenerator
	logg     *logger.Logger
	now      func() time.Time
}

// NewCounterGenerator builds the redis-backed generator. When redis fails it
// falls back to RandomGenerator.
func NewCounterGenerator(counter dayCounter, logg *logger.Logger) *CounterGenerator {
	if logg == nil {
		logg = logger.Nop()
	}
	return &CounterGenerator{
		counter:  counter,
		fallback: RandomGenerator{},
		logg:     logg,
		now:      time.Now,
	}
}

func (g *CounterGenerator) Next(ctx context.Context) (string, error) {
	day := g.now().UTC().Format("20060102")
	seq, err := g.counter.IncrWithTTL(ctx, g.counter.OrderNumberCounterKey(day), orderNumberCounterTTL)
	if err != nil {
		g.logg.Warn(g.logg.WithField(ctx, "error", err.Error()), "order number counter unavailable, using random order number")
		return g.fallback.Next(ctx)
	}
	return fmt.Sprintf("ORD-%s-%06d", day, seq), nil
}

// RandomGenerator issues ORD-<unixMillis>-<8 hex> without coordination.
type RandomGenerator struct {
	Now func() time.Time
}

func (g RandomGenerator) Next(context.Context) (string, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%d-%s", now().UnixMilli(), suffix), nil
}
