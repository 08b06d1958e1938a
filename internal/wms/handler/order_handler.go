package handler

import (
	"time"

	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/bitfantasy/nimo-wms/internal/wms/service"
	"github.com/gin-gonic/gin"
)

// OrderHandler 采购订单处理器
type OrderHandler struct {
	svc    *service.OrderService
	invSvc *service.InventoryService
}

func NewOrderHandler(svc *service.OrderService, invSvc *service.InventoryService) *OrderHandler {
	return &OrderHandler{svc: svc, invSvc: invSvc}
}

// List 采购订单列表
// GET /api/v1/orders
func (h *OrderHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	filters := repository.OrderFilters{
		Status:   c.Query("status"),
		Category: c.Query("category"),
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

	orders, total, err := h.svc.ListOrders(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, ListResponse{
		Items:      orders,
		Pagination: NewPagination(page, pageSize, total),
	})
}

// Get 采购订单详情
// GET /api/v1/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.svc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, order)
}

// Create 创建采购订单
// POST /api/v1/orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req service.CreateOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.CreateOrder(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Created(c, order)
}

// Update 更新采购订单
// PUT /api/v1/orders/:id
func (h *OrderHandler) Update(c *gin.Context) {
	var req service.UpdateOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	order, err := h.svc.UpdateOrder(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, order)
}

// Inbound 已确认订单入库
// POST /api/v1/orders/:id/inbound
func (h *OrderHandler) Inbound(c *gin.Context) {
	if err := h.invSvc.InboundOrder(c.Request.Context(), c.Param("id"), GetUserID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, nil)
}

// UserUnits 用户单位列表
// GET /api/v1/orders/user-units
func (h *OrderHandler) UserUnits(c *gin.Context) {
	units, err := h.svc.UserUnits(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": units})
}

// Import Excel导入采购订单
// POST /api/v1/orders/import
func (h *OrderHandler) Import(c *gin.Context) {
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
