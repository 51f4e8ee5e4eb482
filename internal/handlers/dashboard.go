package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AlexX2727/backend/internal/constants"
	"github.com/AlexX2727/backend/internal/dto"
	apierrors "github.com/AlexX2727/backend/internal/errors"
	"github.com/AlexX2727/backend/internal/middleware"
	"github.com/AlexX2727/backend/internal/services"
)

// DashboardHandler serves the dashboard metrics endpoint.
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetMetrics aggregates the user's dashboard sections.
func (h *DashboardHandler) GetMetrics(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	limit := constants.DefaultDashboardLimit
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			apierrors.BadRequest(c, "Invalid limit")
			return
		}
		limit = parsed
	}

	metrics, err := h.dashboardService.GetMetrics(c.Request.Context(), userID, limit)
	if err != nil {
		apierrors.InternalError(c, "Failed to build dashboard metrics")
		return
	}

	c.JSON(http.StatusOK, dto.ToDashboardDTO(*metrics))
}
