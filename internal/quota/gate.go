package quota

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pharmadesk/pharmadesk-backend/pkg/config"
	"github.com/pharmadesk/pharmadesk-backend/pkg/db/models"
	pkgerrors "github.com/pharmadesk/pharmadesk-backend/pkg/errors"
	"github.com/pharmadesk/pharmadesk-backend/pkg/logger"
)

// CounterStore is the slice of the redis client the gate needs.
type CounterStore interface {
	Get(ctx context.Context, key string) (string, error)
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	QuotaKey(storeID, day string) string
}

// SubscriptionSource resolves a store's subscription, nil when absent.
type SubscriptionSource interface {
	GetSubscription(ctx context.Context, storeID uuid.UUID) (*models.Subscription, error)
}

// ExceededDetails rides on QUOTA_EXCEEDED errors.
type ExceededDetails struct {
	Limit int   `json:"limit"`
	Used  int64 `json:"used"`
}

// Gate enforces the plan's daily bill limit. Allow peeks the counter before
// checkout; Commit bumps it only after the bill is committed, so rejected or
// rolled back checkouts never consume quota.
type Gate struct {
	counters CounterStore
	subs     SubscriptionSource
	cfg      config.QuotaConfig
	logg     *logger.Logger
}

func NewGate(counters CounterStore, subs SubscriptionSource, cfg config.QuotaConfig, logg *logger.Logger) *Gate {
	return &Gate{counters: counters, subs: subs, cfg: cfg, logg: logg}
}

// Allow returns nil when the store may create another bill today.
func (g *Gate) Allow(ctx context.Context, storeID uuid.UUID, at time.Time) error {
	limit, err := g.dailyLimit(ctx, storeID)
	if err != nil {
		return err
	}
	if limit <= 0 {
		return nil
	}

	used, err := g.used(ctx, storeID, at)
	if err != nil {
		return err
	}
	if used >= int64(limit) {
		return pkgerrors.Newf(pkgerrors.CodeQuotaExceeded,
			"daily bill limit of %d reached", limit).
			WithDetails(ExceededDetails{Limit: limit, Used: used})
	}
	return nil
}

// Commit records one committed bill against today's counter. Counter errors
// are logged, not returned; the bill is already committed and must stand.
func (g *Gate) Commit(ctx context.Context, storeID uuid.UUID, at time.Time) {
	key := g.counters.QuotaKey(storeID.String(), at.UTC().Format("20060102"))
	if _, err := g.counters.IncrWithTTL(ctx, key, g.cfg.CounterTTL); err != nil && g.logg != nil {
		g.logg.Error(ctx, "bumping quota counter", err)
	}
}

func (g *Gate) used(ctx context.Context, storeID uuid.UUID, at time.Time) (int64, error) {
	key := g.counters.QuotaKey(storeID.String(), at.UTC().Format("20060102"))
	raw, err := g.counters.Get(ctx, key)
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading quota counter")
	}
	used, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parsing quota counter")
	}
	return used, nil
}

func (g *Gate) dailyLimit(ctx context.Context, storeID uuid.UUID) (int, error) {
	sub, err := g.subs.GetSubscription(ctx, storeID)
	if err != nil {
		return 0, err
	}
	if sub == nil || sub.Plan == nil {
		return g.cfg.DefaultDailyBills, nil
	}
	return sub.Plan.DailyBillLimit, nil
}
