package shop

import (
	"github.com/smallbiznis/stocksense/internal/shop/repository"
	"github.com/smallbiznis/stocksense/internal/shop/service"
	"go.uber.org/fx"
)

var Module = fx.Module("shop.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
