package handler

import (
	"github.com/bitfantasy/nimo-wms/internal/wms/service"
	"github.com/gin-gonic/gin"
)

// NotificationHandler 通知处理器
type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// ListMine 我的通知列表
// GET /api/v1/notifications
func (h *NotificationHandler) ListMine(c *gin.Context) {
	page, pageSize := GetPagination(c)
	unreadOnly := c.Query("unread_only") == "true"

	result, err := h.svc.ListMine(c.Request.Context(), GetUserID(c), unreadOnly, page, pageSize)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, gin.H{
		"items":        result.Items,
		"unread_count": result.UnreadCount,
		"pagination":   NewPagination(page, pageSize, result.Total),
	})
}

// MarkRead 标记已读
// POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.svc.MarkRead(c.Request.Context(), GetUserID(c), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, nil)
}

// MarkAllRead 全部标记已读
// POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	updated, err := h.svc.MarkAllRead(c.Request.Context(), GetUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, gin.H{"updated": updated})
}

// Delete 删除我的一条通知
// DELETE /api/v1/notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), GetUserID(c), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, nil)
}
