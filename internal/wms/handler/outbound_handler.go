package handler

import (
	"time"

	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/bitfantasy/nimo-wms/internal/wms/service"
	"github.com/gin-gonic/gin"
)

// OutboundHandler 出库单处理器
type OutboundHandler struct {
	svc *service.OutboundService
}

func NewOutboundHandler(svc *service.OutboundService) *OutboundHandler {
	return &OutboundHandler{svc: svc}
}

// List 出库单列表
// GET /api/v1/outbound
func (h *OutboundHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	filters := repository.OutboundFilters{
		Status:   c.Query("status"),
		UserUnit: c.Query("user_unit"),
		Search:   c.Query("search"),
	}
	if from := c.Query("date_from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filters.DateFrom = &t
		}
	}
	if to := c.Query("date_to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filters.DateTo = &t
		}
	}

	orders, total, err := h.svc.ListOutbounds(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, ListResponse{
		Items:      orders,
		Pagination: NewPagination(page, pageSize, total),
	})
}

// Get 出库单详情
// GET /api/v1/outbound/:id
func (h *OutboundHandler) Get(c *gin.Context) {
	order, err := h.svc.GetOutbound(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, order)
}

// Create 创建出库单
// POST /api/v1/outbound
func (h *OutboundHandler) Create(c *gin.Context) {
	var req service.CreateOutboundReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.CreateOutbound(c.Request.Context(), req, GetUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Created(c, order)
}

// Complete 完成出库并扣减库存
// POST /api/v1/outbound/:id/complete
func (h *OutboundHandler) Complete(c *gin.Context) {
	order, err := h.svc.Complete(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, order)
}

// DeleteReq 删除出库单参数
type DeleteReq struct {
	Reason string `json:"reason"`
}

// Delete 删除出库单（带审计快照）
// DELETE /api/v1/outbound/:id
func (h *OutboundHandler) Delete(c *gin.Context) {
	var req DeleteReq
	c.ShouldBindJSON(&req) // reason 可空

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), req.Reason, GetUserID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, nil)
}

// BatchDeleteReq 批量删除参数
type BatchDeleteReq struct {
	IDs    []string `json:"ids" binding:"required"`
	Reason string   `json:"reason"`
}

// BatchDelete 批量删除出库单
// POST /api/v1/outbound/batch-delete
func (h *OutboundHandler) BatchDelete(c *gin.Context) {
	var req BatchDeleteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.BatchDelete(c.Request.Context(), req.IDs, req.Reason, GetUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, result)
}

// ListDeleted 删除审计记录列表
// GET /api/v1/outbound/deleted
func (h *OutboundHandler) ListDeleted(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListDeleted(c.Request.Context(), page, pageSize)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, ListResponse{
		Items:      items,
		Pagination: NewPagination(page, pageSize, total),
	})
}

// Import Excel导入出库单
// POST /api/v1/outbound/import
func (h *OutboundHandler) Import(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "缺少上传文件: "+err.Error())
		return
	}
	defer file.Close()

	result, err := h.svc.ImportExcel(c.Request.Context(), header.Filename, file, GetUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, result)
}
