package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appdispatch "github.com/almi/backend/internal/application/dispatch"
	apptreasury "github.com/almi/backend/internal/application/treasury"
	"github.com/almi/backend/internal/domain/shared"
	"github.com/almi/backend/internal/infrastructure/auth"
	"github.com/almi/backend/internal/infrastructure/config"
	"github.com/almi/backend/internal/infrastructure/logger"
	"github.com/almi/backend/internal/infrastructure/persistence"
	"github.com/almi/backend/internal/interfaces/http/handler"
	"github.com/almi/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Almi settlements backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	// Repositories and the accounting anti-corruption layer
	sheetRepo := persistence.NewGormSettlementSheetRepository(db.DB)
	settlementRepo := persistence.NewGormSettlementRepository(db.DB)
	routeRepo := persistence.NewGormRouteRepository(db.DB)
	collectionRepo := persistence.NewGormCollectionSheetRepository(db.DB)
	accountingSvc := persistence.NewGormAccountingService(db.DB)
	txManager := persistence.NewGormTransactionManager(db.DB)

	// Application services
	sheetService := apptreasury.NewSheetService(sheetRepo, settlementRepo, routeRepo, accountingSvc)
	settlementService := apptreasury.NewSettlementService(settlementRepo, sheetRepo, txManager, log)
	routeService := appdispatch.NewRouteService(routeRepo)
	collectionService := appdispatch.NewCollectionService(collectionRepo, settlementRepo, accountingSvc, txManager, log)

	// Cross-context domain events flow through the in-process bus
	eventBus := shared.NewInMemoryEventBus()
	sheetService.SetEventPublisher(eventBus)
	settlementService.SetEventPublisher(eventBus)
	routeService.SetEventPublisher(eventBus)

	jwtService := auth.NewJWTService(cfg.JWT)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := router.New(router.Config{
		Logger:     log,
		JWTService: jwtService,
		Public: []router.RouteRegistrar{
			handler.NewSystemHandler(db.DB, log),
		},
		Protected: []router.RouteRegistrar{
			handler.NewSheetHandler(sheetService, log),
			handler.NewSettlementHandler(settlementService, log),
			handler.NewRouteHandler(routeService, log),
			handler.NewCollectionHandler(collectionService, log),
		},
	})

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}
