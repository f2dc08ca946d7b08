package migration

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/config"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/seed"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Non-postgres dialects fall back to gorm's schema builder.
			log.Info("sql migrations skipped for dialect", zap.String("db_type", cfg.DBType))
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		}
		return seed.Run(conn, log)
	}),
)
