package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"genai-console/internal/config"
	"genai-console/internal/domain/auth"
	"genai-console/internal/infrastructure"
	middleware "genai-console/internal/interfaces/httpserver/middlewares"
	authroute "genai-console/internal/interfaces/httpserver/routes/auth"
	v1 "genai-console/internal/interfaces/httpserver/routes/v1"
)

type HTTPServer struct {
	engine    *gin.Engine
	infra     *infrastructure.Infrastructure
	guard     *auth.Guard
	v1Route   *v1.V1Route
	authRoute *authroute.AuthRoute
	config    *config.Config
}

func NewHttpServer(
	v1Route *v1.V1Route,
	authRoute *authroute.AuthRoute,
	guard *auth.Guard,
	infra *infrastructure.Infrastructure,
	cfg *config.Config,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	server := HTTPServer{
		gin.New(),
		infra,
		guard,
		v1Route,
		authRoute,
		cfg,
	}
	server.engine.Use(middleware.RequestID())
	server.engine.Use(middleware.TracingMiddleware(cfg.ServiceName))
	server.engine.Use(middleware.LoggingMiddleware(infra.Logger))
	server.engine.Use(middleware.CORSMiddleware())
	server.engine.Use(middleware.MetricsMiddleware())

	server.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	server.engine.GET("/readyz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	return &server
}

func (httpServer *HTTPServer) Run() error {
	// Public routes (no auth required)
	root := httpServer.engine.Group("/")

	// Protected routes (session token required)
	protected := httpServer.engine.Group("/")
	protected.Use(
		middleware.AuthMiddleware(httpServer.guard, httpServer.infra.Logger),
	)

	httpServer.authRoute.RegisterRouter(root, protected)
	httpServer.v1Route.RegisterRouter(protected)

	if err := httpServer.engine.Run(fmt.Sprintf(":%d", httpServer.config.HTTPPort)); err != nil {
		return err
	}
	return nil
}
