package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorkflowRepository 工作流仓库：实例、任务与员工分配规则
type WorkflowRepository struct {
	db *gorm.DB
}

func NewWorkflowRepository(db *gorm.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// FindActiveInstance 查找业务键+类型下处于 CREATED/RUNNING 的实例
func (r *WorkflowRepository) FindActiveInstance(ctx context.Context, businessKey string, wfType entity.WorkflowType) (*entity.WorkflowInstance, error) {
	var wf entity.WorkflowInstance
	err := r.db.WithContext(ctx).
		Where("business_key = ? AND workflow_type = ? AND status IN ?",
			businessKey, wfType,
			[]entity.WorkflowStatus{entity.WorkflowStatusCreated, entity.WorkflowStatusRunning}).
		First(&wf).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &wf, nil
}

// FindInstanceByID 根据ID查找实例（含任务）
func (r *WorkflowRepository) FindInstanceByID(ctx context.Context, id string) (*entity.WorkflowInstance, error) {
	var wf entity.WorkflowInstance
	err := r.db.WithContext(ctx).
		Preload("Tasks").
		Where("id = ?", id).
		First(&wf).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &wf, nil
}

// FindTaskByTaskID 根据任务ID查找任务
func (r *WorkflowRepository) FindTaskByTaskID(ctx context.Context, taskID string) (*entity.WorkflowTask, error) {
	var task entity.WorkflowTask
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// TodoFilters 待办任务查询条件
type TodoFilters struct {
	AssigneeID   string
	WorkflowType entity.WorkflowType
}

// FindTodoTasks 查询某人的待办任务（按创建时间倒序，关联实例与订单）
func (r *WorkflowRepository) FindTodoTasks(ctx context.Context, f TodoFilters, page, pageSize int) ([]entity.WorkflowTask, int64, error) {
	var tasks []entity.WorkflowTask
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.WorkflowTask{}).
		Where("wh_workflow_tasks.assignee_id = ? AND wh_workflow_tasks.status = ?",
			f.AssigneeID, entity.TaskStatusPending)

	if f.WorkflowType != "" {
		query = query.
			Joins("JOIN wh_workflow_instances ON wh_workflow_instances.id = wh_workflow_tasks.workflow_instance_id").
			Where("wh_workflow_instances.workflow_type = ?", f.WorkflowType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("WorkflowInstance").
		Preload("WorkflowInstance.PurchaseOrder").
		Order("wh_workflow_tasks.created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&tasks).Error

	return tasks, total, err
}

// LockInstance 以 FOR UPDATE 锁定实例行，串行化兄弟任务的完成判定
func (r *WorkflowRepository) LockInstance(tx *gorm.DB, id string) (*entity.WorkflowInstance, error) {
	var wf entity.WorkflowInstance
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&wf).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &wf, nil
}

// SiblingTasks 实例下的全部任务
func (r *WorkflowRepository) SiblingTasks(tx *gorm.DB, instanceID string) ([]entity.WorkflowTask, error) {
	var tasks []entity.WorkflowTask
	err := tx.
		Where("workflow_instance_id = ?", instanceID).
		Find(&tasks).Error
	return tasks, err
}

// === 员工分配规则 ===

// FindAssignment 按三级精确匹配查找分配规则：
// 1) 大类+用户单位 2) 仅大类 3) 仅用户单位；同一级内按ID取首条。
func (r *WorkflowRepository) FindAssignment(ctx context.Context, roleType, category, userUnit string) (*entity.StaffAssignment, error) {
	conds := []map[string]interface{}{
		{"role_type": roleType, "category": category, "user_unit": userUnit},
		{"role_type": roleType, "category": category},
		{"role_type": roleType, "user_unit": userUnit},
	}

	for _, cond := range conds {
		var sa entity.StaffAssignment
		err := r.db.WithContext(ctx).
			Where(cond).
			Order("id").
			First(&sa).Error
		if err == nil {
			return &sa, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// ListAssignments 分配规则列表
func (r *WorkflowRepository) ListAssignments(ctx context.Context, roleType string) ([]entity.StaffAssignment, error) {
	var items []entity.StaffAssignment
	query := r.db.WithContext(ctx).Preload("Staff").Order("role_type, category, user_unit")
	if roleType != "" {
		query = query.Where("role_type = ?", roleType)
	}
	err := query.Find(&items).Error
	return items, err
}

// CreateAssignment 创建分配规则
func (r *WorkflowRepository) CreateAssignment(ctx context.Context, sa *entity.StaffAssignment) error {
	return r.db.WithContext(ctx).Create(sa).Error
}

// DeleteAssignment 删除分配规则
func (r *WorkflowRepository) DeleteAssignment(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.StaffAssignment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
