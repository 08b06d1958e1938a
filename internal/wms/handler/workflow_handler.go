package handler

import (
	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/service"
	"github.com/gin-gonic/gin"
)

// WorkflowHandler 工作流处理器
type WorkflowHandler struct {
	svc *service.WorkflowService
}

func NewWorkflowHandler(svc *service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{svc: svc}
}

// Start 启动确认工作流
// POST /api/v1/workflow/start
func (h *WorkflowHandler) Start(c *gin.Context) {
	var req service.StartWorkflowReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	instance, err := h.svc.StartWorkflow(c.Request.Context(), req, GetUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Created(c, instance)
}

// CompleteTask 完成任务
// POST /api/v1/workflow/tasks/:taskId/complete
func (h *WorkflowHandler) CompleteTask(c *gin.Context) {
	var req service.CompleteTaskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	task, err := h.svc.CompleteTask(c.Request.Context(), c.Param("taskId"), GetUserID(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, task)
}

// TodoTasks 我的待办任务
// GET /api/v1/workflow/tasks/todo
func (h *WorkflowHandler) TodoTasks(c *gin.Context) {
	page, pageSize := GetPagination(c)
	wfType := entity.WorkflowType(c.Query("workflow_type"))

	tasks, total, err := h.svc.TodoTasks(c.Request.Context(), GetUserID(c), wfType, page, pageSize)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, ListResponse{
		Items:      tasks,
		Pagination: NewPagination(page, pageSize, total),
	})
}

// GetInstance 工作流实例详情
// GET /api/v1/workflow/instances/:id
func (h *WorkflowHandler) GetInstance(c *gin.Context) {
	instance, err := h.svc.GetInstance(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, instance)
}

// ListAssignments 员工分配规则列表
// GET /api/v1/workflow/assignments
func (h *WorkflowHandler) ListAssignments(c *gin.Context) {
	items, err := h.svc.ListAssignments(c.Request.Context(), c.Query("role_type"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// CreateAssignment 创建员工分配规则
// POST /api/v1/workflow/assignments
func (h *WorkflowHandler) CreateAssignment(c *gin.Context) {
	var req service.CreateAssignmentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	sa, err := h.svc.CreateAssignment(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	Created(c, sa)
}

// DeleteAssignment 删除员工分配规则
// DELETE /api/v1/workflow/assignments/:id
func (h *WorkflowHandler) DeleteAssignment(c *gin.Context) {
	if err := h.svc.DeleteAssignment(c.Request.Context(), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	Success(c, nil)
}
