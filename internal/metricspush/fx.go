package metricspush

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/config"
)

var Module = fx.Module("metrics.push",
	fx.Provide(func() *prometheus.Registry {
		return prometheus.NewRegistry()
	}),
	fx.Provide(NewPusher),
	fx.Invoke(Register),
)

// Register installs the funnel recorder and starts the push loop when
// a pusher is configured.
func Register(lc fx.Lifecycle, cfg config.Config, registry *prometheus.Registry, pusher Pusher, log *zap.Logger, db *gorm.DB) {
	if pusher == nil {
		return
	}
	if log == nil {
		log = zap.NewNop()
	}

	m := newMetrics(registry)
	setRecorder(&recorder{metrics: m})

	interval := time.Duration(cfg.MetricsPushInterval) * time.Second
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting metrics push worker", zap.Duration("interval", interval))
			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()

				refreshQuoteCounts(ctx, m, db)
				if err := pusher.Push(ctx, registry); err != nil {
					log.Error("initial metrics push failed", zap.Error(err))
				}

				for {
					select {
					case <-ticker.C:
						refreshQuoteCounts(ctx, m, db)
						if err := pusher.Push(ctx, registry); err != nil {
							log.Error("metrics push failed", zap.Error(err))
						}
					case <-ctx.Done():
						log.Info("stopping metrics push worker")
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

// refreshQuoteCounts polls the per-status quote totals right before a
// push so the gauge reflects the database, not process lifetime.
func refreshQuoteCounts(ctx context.Context, m *metrics, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := db.WithContext(ctx).
		Table("quotes").
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return
	}
	m.quotesByStatus.Reset()
	for _, r := range rows {
		m.quotesByStatus.WithLabelValues(r.Status).Set(float64(r.Count))
	}
}
