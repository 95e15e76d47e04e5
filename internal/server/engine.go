package server

import (
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hackday-sre/cluster-manager/internal/middleware"
	"github.com/hackday-sre/cluster-manager/pkg/cleanup"
	"github.com/hackday-sre/cluster-manager/pkg/cluster"
	"github.com/hackday-sre/cluster-manager/pkg/health"
)

func GetEngine(logger *slog.Logger, basePath string, authenticationMiddleware middleware.AuthenticationMiddleware, authorizationMiddleware middleware.AuthorizationMiddleware, clusterHandler cluster.Handler, cleanupHandler cleanup.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowCredentials = true
	corsConfig.AddAllowHeaders("authorization")
	r.Use(cors.New(corsConfig))

	r.Use(middleware.CorrelationID())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.ErrorHandler())

	router := r.Group(basePath)

	router.GET("/health", health.Health)

	cluster.Routes(router, authenticationMiddleware, authorizationMiddleware, clusterHandler)
	cleanup.Routes(router, authenticationMiddleware, authorizationMiddleware, cleanupHandler)

	return r
}
