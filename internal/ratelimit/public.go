// Package ratelimit caps anonymous traffic on the public quote routes
// and serializes package acceptance across instances.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/clock"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/config"
)

const (
	publicWindow  = time.Minute
	acceptLockTTL = 10 * time.Second

	keyPublicView   = "public:view:%s:%s"
	keyPublicUpdate = "public:update:%s:%s"
	keyAcceptLock   = "public:accept:%s"
)

const leaseReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

type Params struct {
	fx.In

	Cfg     config.Config
	Pricing *config.PricingConfigHolder
	Clock   clock.Clock
	Log     *zap.Logger
}

// PublicLimiter guards the customer-facing quote endpoints per client
// IP and token. Per-minute caps come from the hot-reloadable pricing
// config. Without redis it falls back to the in-process sliding
// window.
type PublicLimiter struct {
	pricing *config.PricingConfigHolder
	log     *zap.Logger

	window *SlidingWindow

	client       *redis.Client
	bucket       *TokenBucket
	leaseRelease *redis.Script
}

func NewPublicLimiter(p Params) *PublicLimiter {
	l := &PublicLimiter{
		pricing: p.Pricing,
		log:     p.Log.Named("ratelimit.public"),
		window:  NewSlidingWindow(p.Clock, publicWindow),
	}

	if addr := strings.TrimSpace(p.Cfg.RedisAddr); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: strings.TrimSpace(p.Cfg.RedisPassword),
			DB:       p.Cfg.RedisDB,
		})
		l.client = client
		l.bucket = NewTokenBucket(client)
		l.leaseRelease = redis.NewScript(leaseReleaseScript)
	}
	return l
}

// AllowView admits a public page, selection read or PDF download.
func (l *PublicLimiter) AllowView(ctx context.Context, token, ip string) bool {
	return l.allow(ctx, fmt.Sprintf(keyPublicView, token, ip), l.pricing.Get().RateLimit.PublicPerMinute)
}

// AllowUpdate admits a selection update, accept or decline.
func (l *PublicLimiter) AllowUpdate(ctx context.Context, token, ip string) bool {
	return l.allow(ctx, fmt.Sprintf(keyPublicUpdate, token, ip), l.pricing.Get().RateLimit.UpdatePerMinute)
}

// allow checks one hit against the per-minute cap. A cap of zero or
// less disables the check, and redis failures fail open.
func (l *PublicLimiter) allow(ctx context.Context, key string, perMinute int) bool {
	if perMinute <= 0 {
		return true
	}
	if l.bucket != nil {
		res, err := l.bucket.Allow(ctx, key, float64(perMinute)/60, perMinute)
		if err != nil {
			l.log.Warn("rate limit check failed", zap.Error(err))
			return true
		}
		return res.Allowed
	}
	return l.window.Allow(key, perMinute)
}

// AcquireAcceptLease takes a short exclusive lease on a quote token
// before package acceptance. Without redis the lease is granted; the
// status-guarded update in the database still decides the race.
func (l *PublicLimiter) AcquireAcceptLease(ctx context.Context, token string) (string, bool) {
	if l.client == nil {
		return "", true
	}

	lease := uuid.NewString()
	ok, err := l.client.SetNX(ctx, fmt.Sprintf(keyAcceptLock, token), lease, acceptLockTTL).Result()
	if err != nil {
		l.log.Warn("accept lease acquire failed", zap.Error(err))
		return "", true
	}
	if !ok {
		return "", false
	}
	return lease, true
}

// ReleaseAcceptLease returns the lease early. The lease releases only
// with its own value, so an expired lease never deletes a successor's.
func (l *PublicLimiter) ReleaseAcceptLease(ctx context.Context, token, lease string) {
	if l.client == nil || lease == "" {
		return
	}
	if err := l.leaseRelease.Run(ctx, l.client, []string{fmt.Sprintf(keyAcceptLock, token)}, lease).Err(); err != nil {
		l.log.Warn("accept lease release failed", zap.Error(err))
	}
}
