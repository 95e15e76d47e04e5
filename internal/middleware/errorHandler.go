package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hackday-sre/cluster-manager/internal/errdef"
)

// ErrorResponse is the envelope written for every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ErrorHandler maps errors attached to the Gin context onto the error envelope
// and a status code. Remote control plane failures and unclassified errors are
// surfaced with a user-safe message; the diagnostic detail stays in the request
// log and on the cluster record.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		err := c.Errors.Last()
		if err == nil {
			return
		}
		if c.Writer.Written() {
			return
		}

		// nolint:gocritic
		if errdef.IsBadRequest(err) || errdef.IsLimitExceeded(err) {
			abort(c, http.StatusBadRequest, err.Error())
		} else if errdef.IsForbidden(err) {
			abort(c, http.StatusForbidden, err.Error())
		} else if errdef.IsNotFound(err) {
			abort(c, http.StatusNotFound, err.Error())
		} else if errdef.IsUnauthorized(err) {
			abort(c, http.StatusUnauthorized, err.Error())
		} else if errdef.IsConflict(err) {
			abort(c, http.StatusConflict, err.Error())
		} else if errdef.IsUnsupportedMediaType(err) {
			abort(c, http.StatusUnsupportedMediaType, err.Error())
		} else if errdef.IsRemoteAPI(err) {
			id, _ := GetCorrelationID(c.Request.Context())
			message := fmt.Sprintf("the cluster provider request failed, reference id %q", id)
			abort(c, http.StatusInternalServerError, message)
		} else {
			id, _ := GetCorrelationID(c.Request.Context())
			message := fmt.Sprintf("something went wrong. We'll look into it if you send us the id %q :)", id)
			abort(c, http.StatusInternalServerError, message)
		}
	}
}

func abort(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Success: false, Error: message})
}
