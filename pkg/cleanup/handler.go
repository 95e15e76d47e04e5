package cleanup

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hackday-sre/cluster-manager/internal/handler"
)

type cleanupService interface {
	Preview(ctx context.Context) ([]uint, error)
	Run(ctx context.Context, dryRun bool) (Report, error)
}

func NewHandler(service cleanupService) Handler {
	return Handler{service: service}
}

type Handler struct {
	service cleanupService
}

type PreviewResponse struct {
	Success  bool   `json:"success"`
	EventIDs []uint `json:"eventIds"`
}

type RunRequest struct {
	DryRun bool `json:"dryRun"`
}

type RunResponse struct {
	Success bool   `json:"success"`
	Report  Report `json:"report"`
}

// Preview cleanup
func (h Handler) Preview(c *gin.Context) {
	// swagger:route GET /cleanup/preview previewCleanup
	//
	// Preview cleanup
	//
	// List the ids of concluded events whose clusters would be deleted by a
	// cleanup run. Nothing is mutated.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: PreviewResponse
	//   401: Error
	//   403: Error
	//   500: Error
	eventIDs, err := h.service.Preview(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, PreviewResponse{Success: true, EventIDs: eventIDs})
}

// Run cleanup
func (h Handler) Run(c *gin.Context) {
	// swagger:route POST /cleanup/run runCleanup
	//
	// Run cleanup
	//
	// Delete the clusters of every concluded event flagged for automatic
	// cleanup. With dryRun the report only counts what would be deleted.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: RunResponse
	//   400: Error
	//   401: Error
	//   403: Error
	//   415: Error
	//   500: Error
	var request RunRequest
	if c.Request.ContentLength > 0 {
		if err := handler.DataBinder(c, &request); err != nil {
			_ = c.Error(err)
			return
		}
	}

	report, err := h.service.Run(c.Request.Context(), request.DryRun)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, RunResponse{Success: true, Report: report})
}
