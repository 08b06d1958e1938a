package handler

import (
	"github.com/bitfantasy/nimo-wms/internal/wms/service"
	"github.com/gin-gonic/gin"
)

// DashboardHandler 看板处理器
type DashboardHandler struct {
	svc *service.DashboardService
}

func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// Leadership 领导看板
// GET /api/v1/dashboard/leadership
func (h *DashboardHandler) Leadership(c *gin.Context) {
	board, err := h.svc.GetLeadershipDashboard(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, board)
}

// Operation 运营看板
// GET /api/v1/dashboard/operation
func (h *DashboardHandler) Operation(c *gin.Context) {
	board, err := h.svc.GetOperationDashboard(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, board)
}
