package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hackday-sre/cluster-manager/internal/errdef"
	"github.com/hackday-sre/cluster-manager/internal/handler"
)

func NewAuthorization(logger *slog.Logger) AuthorizationMiddleware {
	return AuthorizationMiddleware{
		logger: logger,
	}
}

type AuthorizationMiddleware struct {
	logger *slog.Logger
}

func (m AuthorizationMiddleware) RequireAdministrator(c *gin.Context) {
	user, err := handler.GetUserFromContext(c)
	if err != nil {
		_ = c.Error(errdef.NewUnauthorized("not authenticated"))
		c.Abort()
		return
	}

	if !user.IsAdministrator() {
		m.logger.ErrorContext(c.Request.Context(), "User tried to access administrator restricted endpoint", "user", user.ID)
		_ = c.Error(errdef.NewForbidden("administrator access denied"))
		c.Abort()
		return
	}

	c.Next()
}
