package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/stocksense/internal/config"
	invdomain "github.com/smallbiznis/stocksense/internal/inventory/domain"
	"github.com/smallbiznis/stocksense/internal/observability"
	obsmiddleware "github.com/smallbiznis/stocksense/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/stocksense/internal/observability/metrics"
	obstracing "github.com/smallbiznis/stocksense/internal/observability/tracing"
	shopdomain "github.com/smallbiznis/stocksense/internal/shop/domain"
	syncdomain "github.com/smallbiznis/stocksense/internal/sync/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	db       *gorm.DB
	shopSvc  shopdomain.Service
	invSvc   invdomain.Service
	invRepo  invdomain.Repository
	syncSvc  syncdomain.Service
	syncRepo syncdomain.Repository
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	DB       *gorm.DB
	ShopSvc  shopdomain.Service
	InvSvc   invdomain.Service
	InvRepo  invdomain.Repository
	SyncSvc  syncdomain.Service
	SyncRepo syncdomain.Repository
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:   p.Gin,
		cfg:      p.Cfg,
		db:       p.DB,
		shopSvc:  p.ShopSvc,
		invSvc:   p.InvSvc,
		invRepo:  p.InvRepo,
		syncSvc:  p.SyncSvc,
		syncRepo: p.SyncRepo,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.POST("/shops", s.InstallShop)
	api.GET("/shops", s.ListShops)
	api.GET("/shops/:id", s.GetShop)
	api.POST("/shops/:id/token", s.RotateShopToken)

	api.GET("/shops/:id/locations", s.ListLocations)
	api.PATCH("/locations/:id", s.UpdateLocation)

	api.GET("/shops/:id/variants", s.ListVariants)
	api.PATCH("/variants/:id/minimum", s.SetVariantMinimum)

	api.GET("/shops/:id/inventory-levels", s.ListInventoryLevels)
	api.PATCH("/inventory-levels/:id/minimum", s.SetLevelMinimum)

	api.POST("/shops/:id/sync", s.SyncShopVariants)
	api.GET("/shops/:id/sync-runs", s.ListSyncRuns)
}
