package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/almi/backend/internal/infrastructure/auth"
	"github.com/almi/backend/internal/infrastructure/logger"
	"github.com/almi/backend/internal/interfaces/http/middleware"
)

const apiVersion = "v1"

// RouteRegistrar is implemented by handlers that register their own routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Config configures the router
type Config struct {
	Logger     *zap.Logger
	JWTService *auth.JWTService
	// Public registrars are mounted without authentication (probes)
	Public []RouteRegistrar
	// Protected registrars sit behind the JWT middleware
	Protected []RouteRegistrar
}

// New builds the gin engine with the full middleware chain and all routes
func New(cfg Config) *gin.Engine {
	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(cfg.Logger),
		logger.GinMiddleware(cfg.Logger),
		middleware.CORS(),
	)

	root := engine.Group("")
	for _, registrar := range cfg.Public {
		registrar.RegisterRoutes(root)
	}

	api := engine.Group("/api/" + apiVersion)
	api.Use(middleware.JWTAuth(middleware.JWTMiddlewareConfig{
		JWTService: cfg.JWTService,
		Logger:     cfg.Logger,
	}))
	for _, registrar := range cfg.Protected {
		registrar.RegisterRoutes(api)
	}

	return engine
}
