package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/commerce-backend/internal/app/service"
)

type DashboardController struct {
	dashboardService service.DashboardService
}

func NewDashboardController(dashboardService service.DashboardService) *DashboardController {
	return &DashboardController{dashboardService: dashboardService}
}

// GetStats returns headline counts and revenue for the business
// GET /api/v1/dashboard
func (ctrl *DashboardController) GetStats(c *gin.Context) {
	businessID, ok := tenantID(c)
	if !ok {
		return
	}

	stats, err := ctrl.dashboardService.Stats(businessID)
	if err != nil {
		respondServiceError(c, err, "dashboard stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
