package sync

import (
	"github.com/smallbiznis/stocksense/internal/sync/repository"
	"github.com/smallbiznis/stocksense/internal/sync/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sync.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewReconciler),
	fx.Provide(service.New),
)
