package router

import (
	"net/http"

	"scenario-writing-lab/internal/advice"
	"scenario-writing-lab/internal/config"
	"scenario-writing-lab/internal/document"
	"scenario-writing-lab/internal/export"
	"scenario-writing-lab/internal/middleware"
	"scenario-writing-lab/internal/redact"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Dependencies are the handlers and shared services the route table is built over.
type Dependencies struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Redactor *redact.Redactor

	Documents *document.Handler
	Advice    *advice.Handler
	Export    *export.Handler
}

// New builds the gin engine serving the HTTP surface.
func New(deps Dependencies) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.Correlation(deps.Logger),
		middleware.Recovery(deps.Redactor),
		middleware.RequestLogger(),
		middleware.ErrorHandler(deps.Redactor),
	)
	router.Use(cors.New(corsConfig(deps.Config)))
	router.NoRoute(middleware.NotFound())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": deps.Config.ServiceName})
	})

	authMiddleware := &middleware.Auth{JWTSecret: deps.Config.JWTSecret}
	api := router.Group("/api", authMiddleware.AuthMiddleWare())

	documents := api.Group("/documents")
	deps.Documents.RegisterRoutes(documents)
	documents.POST("/:id/export", deps.Export.Export)

	deps.Advice.RegisterRoutes(api.Group("/advice"))

	return router
}

func corsConfig(cfg *config.Config) cors.Config {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.UserHeader, middleware.CorrelationHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.CorrelationHeader, "Retry-After"},
		AllowCredentials: false,
	}

	if cfg.IsProduction() {
		corsConfig.AllowOrigins = []string{cfg.FrontendAddress}
	} else {
		// Allow all origins outside production
		corsConfig.AllowAllOrigins = true
	}
	return corsConfig
}
