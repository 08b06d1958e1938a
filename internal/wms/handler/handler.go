package handler

import (
	"errors"
	"strconv"

	"github.com/bitfantasy/nimo-wms/internal/wms/service"
	"github.com/gin-gonic/gin"
)

// Handlers 处理器集合
type Handlers struct {
	Auth         *AuthHandler
	Order        *OrderHandler
	Workflow     *WorkflowHandler
	Inventory    *InventoryHandler
	Outbound     *OutboundHandler
	Confirmation *ConfirmationHandler
	Notification *NotificationHandler
	Dashboard    *DashboardHandler
	SSE          *SSEHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Auth:         NewAuthHandler(svc.Auth),
		Order:        NewOrderHandler(svc.Order, svc.Inventory),
		Workflow:     NewWorkflowHandler(svc.Workflow),
		Inventory:    NewInventoryHandler(svc.Inventory),
		Outbound:     NewOutboundHandler(svc.Outbound),
		Confirmation: NewConfirmationHandler(svc.Confirmation),
		Notification: NewNotificationHandler(svc.Notification),
		Dashboard:    NewDashboardHandler(svc.Dashboard),
		SSE:          NewSSEHandler(),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse 列表响应结构
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination 构造分页信息
func NewPagination(page, pageSize int, total int64) *Pagination {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      int(total),
		TotalPages: totalPages,
	}
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 资源冲突响应
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// writeServiceError 将业务错误映射为HTTP响应
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrWorkflowNotFound),
		errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrInventoryNotFound),
		errors.Is(err, service.ErrOutboundNotFound),
		errors.Is(err, service.ErrConfirmationNotFound),
		errors.Is(err, service.ErrNotificationNotFound),
		errors.Is(err, service.ErrUserNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrDuplicateWorkflow),
		errors.Is(err, service.ErrOrderNoExists),
		errors.Is(err, service.ErrVoucherExists),
		errors.Is(err, service.ErrMaterialExists),
		errors.Is(err, service.ErrConfirmationExists),
		errors.Is(err, service.ErrUsernameExists),
		errors.Is(err, service.ErrTaskAlreadyDone):
		Conflict(c, err.Error())
	case errors.Is(err, service.ErrNotAssignee),
		errors.Is(err, service.ErrUserDisabled):
		Forbidden(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrInvalidParam),
		errors.Is(err, service.ErrNoAssignee),
		errors.Is(err, service.ErrWorkflowNotDone),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrOutboundNotPending):
		BadRequest(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetPagination 从请求获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}
