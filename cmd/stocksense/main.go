package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stocksense/internal/clock"
	"github.com/smallbiznis/stocksense/internal/config"
	"github.com/smallbiznis/stocksense/internal/inventory"
	"github.com/smallbiznis/stocksense/internal/migration"
	"github.com/smallbiznis/stocksense/internal/observability"
	"github.com/smallbiznis/stocksense/internal/scheduler"
	"github.com/smallbiznis/stocksense/internal/server"
	"github.com/smallbiznis/stocksense/internal/shop"
	"github.com/smallbiznis/stocksense/internal/shopify"
	syncmodule "github.com/smallbiznis/stocksense/internal/sync"
	"github.com/smallbiznis/stocksense/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		shop.Module,
		inventory.Module,
		shopify.Module,
		syncmodule.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
