package handler

import (
	"github.com/bitfantasy/nimo-wms/internal/wms/service"
	"github.com/gin-gonic/gin"
)

// InventoryHandler 库存处理器
type InventoryHandler struct {
	svc *service.InventoryService
}

func NewInventoryHandler(svc *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// List 库存列表
// GET /api/v1/inventory
func (h *InventoryHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"category": c.Query("category"),
		"search":   c.Query("search"),
	}

	items, total, err := h.svc.ListInventory(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, ListResponse{
		Items:      items,
		Pagination: NewPagination(page, pageSize, total),
	})
}

// Get 库存详情
// GET /api/v1/inventory/:id
func (h *InventoryHandler) Get(c *gin.Context) {
	inv, err := h.svc.GetInventory(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, inv)
}

// Create 新建库存记录
// POST /api/v1/inventory
func (h *InventoryHandler) Create(c *gin.Context) {
	var req service.CreateInventoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	inv, err := h.svc.CreateInventory(c.Request.Context(), req, GetUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Created(c, inv)
}

// Adjust 人工调整库存
// POST /api/v1/inventory/adjust
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req service.AdjustReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	inv, err := h.svc.Adjust(c.Request.Context(), req, GetUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, inv)
}

// Transactions 库存事务列表
// GET /api/v1/inventory/transactions
func (h *InventoryHandler) Transactions(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"inventory_id":     c.Query("inventory_id"),
		"transaction_type": c.Query("transaction_type"),
		"reference_no":     c.Query("reference_no"),
	}

	items, total, err := h.svc.ListTransactions(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, ListResponse{
		Items:      items,
		Pagination: NewPagination(page, pageSize, total),
	})
}
