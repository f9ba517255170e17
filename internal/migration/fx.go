package migration

import (
	"context"

	"github.com/smallbiznis/stocksense/internal/config"
	invdomain "github.com/smallbiznis/stocksense/internal/inventory/domain"
	"github.com/smallbiznis/stocksense/internal/seed"
	shopdomain "github.com/smallbiznis/stocksense/internal/shop/domain"
	syncdomain "github.com/smallbiznis/stocksense/internal/sync/domain"
	"gorm.io/gorm"

	"go.uber.org/fx"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, shopSvc shopdomain.Service) error {
		// The SQL migrations target postgres; other dialects are dev-only
		// and get the schema from gorm directly.
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := conn.AutoMigrate(
				&shopdomain.Shop{},
				&invdomain.Location{},
				&invdomain.Variant{},
				&invdomain.InventoryLevel{},
				&syncdomain.SyncRun{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureDevShop(context.Background(), shopSvc, cfg.DevShopDomain, cfg.DevShopToken)
	}),
)
