package cleanup

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
	administratorRestrictedRouter := r.Group("")
	administratorRestrictedRouter.Use(authenticationMiddleware.TokenAuthentication)
	administratorRestrictedRouter.Use(authorizationMiddleware.RequireAdministrator)

	administratorRestrictedRouter.GET("/cleanup/preview", handler.Preview)
	administratorRestrictedRouter.POST("/cleanup/run", handler.Run)
}
