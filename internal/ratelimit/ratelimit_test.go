package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/clock"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/config"
)

func fakeClock() *clock.FakeClock {
	return clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestSlidingWindowLimits(t *testing.T) {
	clk := fakeClock()
	w := NewSlidingWindow(clk, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, w.Allow("k", 3), "hit %d", i)
	}
	assert.False(t, w.Allow("k", 3))

	clk.Advance(61 * time.Second)
	assert.True(t, w.Allow("k", 3))
}

func TestSlidingWindowSlides(t *testing.T) {
	clk := fakeClock()
	w := NewSlidingWindow(clk, time.Minute)

	assert.True(t, w.Allow("k", 2))
	clk.Advance(30 * time.Second)
	assert.True(t, w.Allow("k", 2))
	clk.Advance(15 * time.Second)
	assert.False(t, w.Allow("k", 2))

	// 70s after the first hit only the second is still in window.
	clk.Advance(25 * time.Second)
	assert.True(t, w.Allow("k", 2))
	assert.False(t, w.Allow("k", 2))
}

func TestSlidingWindowDeniedHitsDoNotCount(t *testing.T) {
	clk := fakeClock()
	w := NewSlidingWindow(clk, time.Minute)

	assert.True(t, w.Allow("k", 1))
	for i := 0; i < 5; i++ {
		assert.False(t, w.Allow("k", 1))
	}

	clk.Advance(61 * time.Second)
	assert.True(t, w.Allow("k", 1))
}

func TestSlidingWindowKeysIndependent(t *testing.T) {
	clk := fakeClock()
	w := NewSlidingWindow(clk, time.Minute)

	assert.True(t, w.Allow("a", 1))
	assert.False(t, w.Allow("a", 1))
	assert.True(t, w.Allow("b", 1))
}

func TestSlidingWindowSweepDropsIdleKeys(t *testing.T) {
	clk := fakeClock()
	w := NewSlidingWindow(clk, time.Minute)

	for i := 0; i < 20; i++ {
		assert.True(t, w.Allow(fmt.Sprintf("k%d", i), 5))
	}
	assert.Len(t, w.hits, 20)

	clk.Advance(sweepEvery + time.Second)
	assert.True(t, w.Allow("fresh", 5))
	assert.Len(t, w.hits, 1)
}

func newMemoryLimiter(clk clock.Clock, cfg config.PricingConfig) *PublicLimiter {
	return NewPublicLimiter(Params{
		Cfg:     config.Config{},
		Pricing: config.NewStaticPricingConfigHolder(cfg),
		Clock:   clk,
		Log:     zap.NewNop(),
	})
}

func TestPublicLimiterFallsBackToMemory(t *testing.T) {
	clk := fakeClock()
	l := newMemoryLimiter(clk, config.DefaultPricingConfig())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		assert.True(t, l.AllowUpdate(ctx, "tok", "10.0.0.1"), "update %d", i)
	}
	assert.False(t, l.AllowUpdate(ctx, "tok", "10.0.0.1"))

	// Views count against their own key, other clients are unaffected.
	assert.True(t, l.AllowView(ctx, "tok", "10.0.0.1"))
	assert.True(t, l.AllowUpdate(ctx, "tok", "10.0.0.2"))

	clk.Advance(61 * time.Second)
	assert.True(t, l.AllowUpdate(ctx, "tok", "10.0.0.1"))
}

func TestPublicLimiterZeroCapDisables(t *testing.T) {
	cfg := config.DefaultPricingConfig()
	cfg.RateLimit.PublicPerMinute = 0

	l := newMemoryLimiter(fakeClock(), cfg)
	for i := 0; i < 100; i++ {
		assert.True(t, l.AllowView(context.Background(), "tok", "10.0.0.1"))
	}
}

func TestAcceptLeaseWithoutRedis(t *testing.T) {
	l := newMemoryLimiter(fakeClock(), config.DefaultPricingConfig())

	lease, ok := l.AcquireAcceptLease(context.Background(), "tok")
	assert.True(t, ok)
	assert.Empty(t, lease)
	l.ReleaseAcceptLease(context.Background(), "tok", lease)
}
