package cluster

import (
	"github.com/gin-gonic/gin"
)

type AuthenticationMiddleware interface {
	TokenAuthentication(c *gin.Context)
}

type AuthorizationMiddleware interface {
	RequireAdministrator(c *gin.Context)
}

func Routes(r *gin.RouterGroup, authenticationMiddleware AuthenticationMiddleware, authorizationMiddleware AuthorizationMiddleware, handler Handler) {
	tokenAuthenticationRouter := r.Group("")
	tokenAuthenticationRouter.Use(authenticationMiddleware.TokenAuthentication)

	tokenAuthenticationRouter.POST("/clusters", handler.Provision)
	tokenAuthenticationRouter.GET("/clusters", handler.List)
	tokenAuthenticationRouter.GET("/clusters/:id", handler.Find)
	tokenAuthenticationRouter.PUT("/clusters/:id/status", handler.Poll)
	tokenAuthenticationRouter.DELETE("/clusters/:id", handler.Delete)

	tokenAuthenticationRouter.POST("/clusters/:id/users", handler.CreateDatabaseUser)
	tokenAuthenticationRouter.GET("/clusters/:id/users", handler.ListDatabaseUsers)
	tokenAuthenticationRouter.DELETE("/clusters/:id/users/:username", handler.DeleteDatabaseUser)

	tokenAuthenticationRouter.POST("/clusters/:id/access-list", handler.AddAccessEntries)
	tokenAuthenticationRouter.GET("/clusters/:id/access-list", handler.ListAccessEntries)
	tokenAuthenticationRouter.DELETE("/clusters/:id/access-list/:entry", handler.RemoveAccessEntry)

	administratorRestrictedRouter := tokenAuthenticationRouter.Group("")
	administratorRestrictedRouter.Use(authorizationMiddleware.RequireAdministrator)
	administratorRestrictedRouter.POST("/clusters/reconcile", handler.Reconcile)
}
