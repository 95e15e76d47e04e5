package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type status struct {
	Status string `json:"status"`
}

func Health(c *gin.Context) {
	// swagger:route GET /health health
	//
	// Service health
	//
	// responses:
	//   200:
	c.JSON(http.StatusOK, status{Status: "up"})
}
