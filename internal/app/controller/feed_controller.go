package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/commerce-backend/internal/middleware"
	"github.com/storefront/commerce-backend/internal/websocket"
)

// FeedController streams order events of one business to staff dashboards
type FeedController struct {
	hub *websocket.Hub
}

func NewFeedController(hub *websocket.Hub) *FeedController {
	return &FeedController{hub: hub}
}

// Orders upgrades to a WebSocket. Browsers cannot set headers on the
// upgrade, so the token and business arrive as ?token= and ?business_id=.
// GET /api/v1/ws/orders
func (ctrl *FeedController) Orders(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}
	businessID, ok := tenantID(c)
	if !ok {
		return
	}

	if err := websocket.ServeWS(ctrl.hub, c.Writer, c.Request, businessID, staff.UserID()); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Order feed upgrade failed", map[string]interface{}{
			"business_id": businessID,
			"error":       err.Error(),
		})
	}
}
