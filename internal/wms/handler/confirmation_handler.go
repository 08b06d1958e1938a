package handler

import (
	"github.com/bitfantasy/nimo-wms/internal/wms/service"
	"github.com/gin-gonic/gin"
)

// ConfirmationHandler 交付确认单处理器
type ConfirmationHandler struct {
	svc *service.ConfirmationService
}

func NewConfirmationHandler(svc *service.ConfirmationService) *ConfirmationHandler {
	return &ConfirmationHandler{svc: svc}
}

// List 确认单列表
// GET /api/v1/confirmations
func (h *ConfirmationHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListConfirmations(c.Request.Context(), page, pageSize, c.Query("status"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, ListResponse{
		Items:      items,
		Pagination: NewPagination(page, pageSize, total),
	})
}

// Get 确认单详情
// GET /api/v1/confirmations/:id
func (h *ConfirmationHandler) Get(c *gin.Context) {
	conf, err := h.svc.GetConfirmation(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, conf)
}

// GenerateReq 生成确认单参数
type GenerateReq struct {
	OrderID string `json:"order_id" binding:"required"`
}

// Generate 为已完成确认流程的订单生成确认单
// POST /api/v1/confirmations/generate
func (h *ConfirmationHandler) Generate(c *gin.Context) {
	var req GenerateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	conf, err := h.svc.Generate(c.Request.Context(), req.OrderID, GetUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Created(c, conf)
}

// Print 记录打印
// POST /api/v1/confirmations/:id/print
func (h *ConfirmationHandler) Print(c *gin.Context) {
	conf, err := h.svc.Print(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, conf)
}
