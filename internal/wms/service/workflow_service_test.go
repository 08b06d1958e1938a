package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/bitfantasy/nimo-wms/internal/wms/service"
	"github.com/bitfantasy/nimo-wms/internal/wms/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func boolPtr(b bool) *bool { return &b }

func setupWorkflowTest(t *testing.T) (*gorm.DB, *service.WorkflowService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	notifSvc := service.NewNotificationService(db, repos, zap.NewNop())
	wfSvc := service.NewWorkflowService(db, repos, notifSvc, zap.NewNop())
	return db, wfSvc
}

func TestResolveAssigneePrecedence(t *testing.T) {
	db, svc := setupWorkflowTest(t)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "staff-a", "keeper_a")
	testutil.SeedTestUser(t, db, "staff-b", "keeper_b")
	testutil.SeedTestUser(t, db, "staff-c", "keeper_c")

	testutil.SeedAssignment(t, db, "sa-01", "staff-a", entity.RoleTypeKeeper, "原材料", "")
	testutil.SeedAssignment(t, db, "sa-02", "staff-b", entity.RoleTypeKeeper, "原材料", "生产部")
	testutil.SeedAssignment(t, db, "sa-03", "staff-c", entity.RoleTypeKeeper, "", "办公室")

	// 大类+用户单位精确匹配优先
	sa, err := svc.ResolveAssignee(ctx, entity.RoleTypeKeeper, "原材料", "生产部")
	if err != nil {
		t.Fatalf("ResolveAssignee: %v", err)
	}
	if sa.StaffID != "staff-b" {
		t.Errorf("expected staff-b for exact match, got %s", sa.StaffID)
	}

	// 无精确匹配时回退到仅大类
	sa, err = svc.ResolveAssignee(ctx, entity.RoleTypeKeeper, "原材料", "办公室")
	if err != nil {
		t.Fatalf("ResolveAssignee: %v", err)
	}
	if sa.StaffID != "staff-a" {
		t.Errorf("expected staff-a for category fallback, got %s", sa.StaffID)
	}

	// 大类无匹配时回退到仅用户单位
	sa, err = svc.ResolveAssignee(ctx, entity.RoleTypeKeeper, "设备", "办公室")
	if err != nil {
		t.Fatalf("ResolveAssignee: %v", err)
	}
	if sa.StaffID != "staff-c" {
		t.Errorf("expected staff-c for user unit fallback, got %s", sa.StaffID)
	}

	// 三级均无匹配
	_, err = svc.ResolveAssignee(ctx, entity.RoleTypeKeeper, "设备", "车间")
	if !errors.Is(err, service.ErrNoAssignee) {
		t.Errorf("expected ErrNoAssignee, got %v", err)
	}
}

func TestStartWorkflow(t *testing.T) {
	db, svc := setupWorkflowTest(t)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "keeper-1", "keeper1")
	testutil.SeedTestUser(t, db, "inspector-1", "inspector1")
	testutil.SeedAssignment(t, db, "sa-01", "keeper-1", entity.RoleTypeKeeper, "原材料", "生产部")
	testutil.SeedAssignment(t, db, "sa-02", "inspector-1", entity.RoleTypeInspector, "原材料", "生产部")
	order := testutil.SeedOrder(t, db, "order-1", "PO20250001", "原材料", "生产部")

	instance, err := svc.StartWorkflow(ctx, service.StartWorkflowReq{OrderID: order.ID}, "initiator-1")
	if err != nil {
		t.Fatalf("StartWorkflow: %v", err)
	}

	if instance.Status != entity.WorkflowStatusRunning {
		t.Errorf("expected RUNNING instance, got %s", instance.Status)
	}
	if instance.BusinessKey != "PO20250001" {
		t.Errorf("expected business key PO20250001, got %s", instance.BusinessKey)
	}
	if len(instance.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(instance.Tasks))
	}

	byName := map[string]entity.WorkflowTask{}
	for _, task := range instance.Tasks {
		if task.Status != entity.TaskStatusPending {
			t.Errorf("task %s expected PENDING, got %s", task.TaskName, task.Status)
		}
		byName[task.TaskName] = task
	}
	if byName[entity.TaskNameKeeperConfirm].AssigneeID != "keeper-1" {
		t.Errorf("keeper task assigned to %s", byName[entity.TaskNameKeeperConfirm].AssigneeID)
	}
	if byName[entity.TaskNameInspectorConfirm].AssigneeID != "inspector-1" {
		t.Errorf("inspector task assigned to %s", byName[entity.TaskNameInspectorConfirm].AssigneeID)
	}

	// 订单进入处理中
	var updated entity.PurchaseOrder
	if err := db.Where("id = ?", order.ID).First(&updated).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if updated.Status != entity.OrderStatusProcessing {
		t.Errorf("expected PROCESSING order, got %s", updated.Status)
	}

	// 两位处理人各收到一条通知
	var recipients int64
	db.Model(&entity.NotificationRecipient{}).Count(&recipients)
	if recipients != 2 {
		t.Errorf("expected 2 notification recipients, got %d", recipients)
	}

	// 同一订单重复启动被拒绝
	_, err = svc.StartWorkflow(ctx, service.StartWorkflowReq{OrderID: order.ID}, "initiator-1")
	if !errors.Is(err, service.ErrDuplicateWorkflow) {
		t.Errorf("expected ErrDuplicateWorkflow, got %v", err)
	}
}

func TestStartWorkflowNoAssigneeWritesNothing(t *testing.T) {
	db, svc := setupWorkflowTest(t)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "keeper-1", "keeper1")
	// 只有保管员规则，质检员规则缺失
	testutil.SeedAssignment(t, db, "sa-01", "keeper-1", entity.RoleTypeKeeper, "原材料", "生产部")
	order := testutil.SeedOrder(t, db, "order-1", "PO20250002", "原材料", "生产部")

	_, err := svc.StartWorkflow(ctx, service.StartWorkflowReq{OrderNo: order.OrderNo}, "initiator-1")
	if !errors.Is(err, service.ErrNoAssignee) {
		t.Fatalf("expected ErrNoAssignee, got %v", err)
	}

	// 不产生任何写入
	var instances, tasks int64
	db.Model(&entity.WorkflowInstance{}).Count(&instances)
	db.Model(&entity.WorkflowTask{}).Count(&tasks)
	if instances != 0 || tasks != 0 {
		t.Errorf("expected no instances/tasks, got %d/%d", instances, tasks)
	}

	var reloaded entity.PurchaseOrder
	db.Where("id = ?", order.ID).First(&reloaded)
	if reloaded.Status != entity.OrderStatusPending {
		t.Errorf("order status should stay PENDING, got %s", reloaded.Status)
	}
}

func TestCompleteTask(t *testing.T) {
	db, svc := setupWorkflowTest(t)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "keeper-1", "keeper1")
	testutil.SeedTestUser(t, db, "inspector-1", "inspector1")
	testutil.SeedAssignment(t, db, "sa-01", "keeper-1", entity.RoleTypeKeeper, "原材料", "")
	testutil.SeedAssignment(t, db, "sa-02", "inspector-1", entity.RoleTypeInspector, "原材料", "")
	order := testutil.SeedOrder(t, db, "order-1", "PO20250003", "原材料", "生产部")

	instance, err := svc.StartWorkflow(ctx, service.StartWorkflowReq{OrderID: order.ID}, "initiator-1")
	if err != nil {
		t.Fatalf("StartWorkflow: %v", err)
	}

	var keeperTask, inspectorTask entity.WorkflowTask
	for _, task := range instance.Tasks {
		switch task.TaskName {
		case entity.TaskNameKeeperConfirm:
			keeperTask = task
		case entity.TaskNameInspectorConfirm:
			inspectorTask = task
		}
	}

	// 非处理人不能完成
	_, err = svc.CompleteTask(ctx, keeperTask.TaskID, "inspector-1", service.CompleteTaskReq{Approved: boolPtr(true)})
	if !errors.Is(err, service.ErrNotAssignee) {
		t.Fatalf("expected ErrNotAssignee, got %v", err)
	}

	// 未给出审批结论
	_, err = svc.CompleteTask(ctx, keeperTask.TaskID, "keeper-1", service.CompleteTaskReq{Comment: "ok"})
	if !errors.Is(err, service.ErrInvalidParam) {
		t.Fatalf("expected ErrInvalidParam without approved, got %v", err)
	}

	// 第一个任务完成后实例仍在运行
	done, err := svc.CompleteTask(ctx, keeperTask.TaskID, "keeper-1", service.CompleteTaskReq{Approved: boolPtr(true), Comment: "ok"})
	if err != nil {
		t.Fatalf("CompleteTask keeper: %v", err)
	}
	if done.Status != entity.TaskStatusCompleted || done.Result != entity.TaskResultApproved {
		t.Errorf("keeper task not completed: %s/%s", done.Status, done.Result)
	}

	var wf entity.WorkflowInstance
	db.Where("id = ?", instance.ID).First(&wf)
	if wf.Status != entity.WorkflowStatusRunning {
		t.Errorf("instance should stay RUNNING with one task open, got %s", wf.Status)
	}

	// 重复完成被拒绝
	_, err = svc.CompleteTask(ctx, keeperTask.TaskID, "keeper-1", service.CompleteTaskReq{Approved: boolPtr(true)})
	if !errors.Is(err, service.ErrTaskAlreadyDone) {
		t.Fatalf("expected ErrTaskAlreadyDone, got %v", err)
	}

	// 第二个任务驳回同样计入完成，实例结束且订单已确认
	rejected, err := svc.CompleteTask(ctx, inspectorTask.TaskID, "inspector-1", service.CompleteTaskReq{Approved: boolPtr(false), Comment: "质量不合格"})
	if err != nil {
		t.Fatalf("CompleteTask inspector: %v", err)
	}
	if rejected.Result != entity.TaskResultRejected {
		t.Errorf("expected REJECTED result, got %s", rejected.Result)
	}

	db.Where("id = ?", instance.ID).First(&wf)
	if wf.Status != entity.WorkflowStatusCompleted {
		t.Errorf("expected COMPLETED instance, got %s", wf.Status)
	}

	var reloaded entity.PurchaseOrder
	db.Where("id = ?", order.ID).First(&reloaded)
	if reloaded.Status != entity.OrderStatusConfirmed {
		t.Errorf("expected CONFIRMED order, got %s", reloaded.Status)
	}

	// 发起人收到完成通知（启动时2条 + 完成1条）
	var recipients int64
	db.Model(&entity.NotificationRecipient{}).Count(&recipients)
	if recipients != 3 {
		t.Errorf("expected 3 notification recipients, got %d", recipients)
	}
}

func TestStartWorkflowIDsUnique(t *testing.T) {
	db, svc := setupWorkflowTest(t)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "keeper-1", "keeper1")
	testutil.SeedTestUser(t, db, "inspector-1", "inspector1")
	testutil.SeedAssignment(t, db, "sa-01", "keeper-1", entity.RoleTypeKeeper, "原材料", "")
	testutil.SeedAssignment(t, db, "sa-02", "inspector-1", entity.RoleTypeInspector, "原材料", "")
	order1 := testutil.SeedOrder(t, db, "order-1", "PO20250011", "原材料", "生产部")
	order2 := testutil.SeedOrder(t, db, "order-2", "PO20250012", "原材料", "生产部")

	// 同一秒内连续启动，实例与任务编号仍然各不相同
	in1, err := svc.StartWorkflow(ctx, service.StartWorkflowReq{OrderID: order1.ID}, "initiator-1")
	if err != nil {
		t.Fatalf("StartWorkflow order1: %v", err)
	}
	in2, err := svc.StartWorkflow(ctx, service.StartWorkflowReq{OrderID: order2.ID}, "initiator-1")
	if err != nil {
		t.Fatalf("StartWorkflow order2: %v", err)
	}

	if in1.ProcessInstanceID == in2.ProcessInstanceID {
		t.Errorf("process instance ids collide: %s", in1.ProcessInstanceID)
	}
	seen := map[string]bool{}
	for _, task := range append(in1.Tasks, in2.Tasks...) {
		if seen[task.TaskID] {
			t.Errorf("task id collides: %s", task.TaskID)
		}
		seen[task.TaskID] = true
	}
}

func TestGetInstance(t *testing.T) {
	db, svc := setupWorkflowTest(t)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "keeper-1", "keeper1")
	testutil.SeedTestUser(t, db, "inspector-1", "inspector1")
	testutil.SeedAssignment(t, db, "sa-01", "keeper-1", entity.RoleTypeKeeper, "原材料", "")
	testutil.SeedAssignment(t, db, "sa-02", "inspector-1", entity.RoleTypeInspector, "原材料", "")
	order := testutil.SeedOrder(t, db, "order-1", "PO20250013", "原材料", "生产部")

	instance, err := svc.StartWorkflow(ctx, service.StartWorkflowReq{OrderID: order.ID}, "initiator-1")
	if err != nil {
		t.Fatalf("StartWorkflow: %v", err)
	}

	got, err := svc.GetInstance(ctx, instance.ID)
	if err != nil {
		t.Fatalf("GetInstance: %v", err)
	}
	if got.ID != instance.ID || len(got.Tasks) != 2 {
		t.Errorf("unexpected instance %s with %d tasks", got.ID, len(got.Tasks))
	}

	_, err = svc.GetInstance(ctx, "no-such-instance")
	if !errors.Is(err, service.ErrWorkflowNotFound) {
		t.Errorf("expected ErrWorkflowNotFound, got %v", err)
	}
}

func TestTodoTasks(t *testing.T) {
	db, svc := setupWorkflowTest(t)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "keeper-1", "keeper1")
	testutil.SeedTestUser(t, db, "inspector-1", "inspector1")
	testutil.SeedAssignment(t, db, "sa-01", "keeper-1", entity.RoleTypeKeeper, "原材料", "")
	testutil.SeedAssignment(t, db, "sa-02", "inspector-1", entity.RoleTypeInspector, "原材料", "")
	order := testutil.SeedOrder(t, db, "order-1", "PO20250004", "原材料", "生产部")

	instance, err := svc.StartWorkflow(ctx, service.StartWorkflowReq{OrderID: order.ID}, "initiator-1")
	if err != nil {
		t.Fatalf("StartWorkflow: %v", err)
	}

	tasks, total, err := svc.TodoTasks(ctx, "keeper-1", "", 1, 20)
	if err != nil {
		t.Fatalf("TodoTasks: %v", err)
	}
	if total != 1 || len(tasks) != 1 {
		t.Fatalf("expected 1 todo task, got total=%d len=%d", total, len(tasks))
	}
	if tasks[0].TaskName != entity.TaskNameKeeperConfirm {
		t.Errorf("unexpected task name %s", tasks[0].TaskName)
	}
	if tasks[0].WorkflowInstance == nil || tasks[0].WorkflowInstance.ID != instance.ID {
		t.Error("todo task should preload its workflow instance")
	}

	// 完成后不再出现在待办
	if _, err := svc.CompleteTask(ctx, tasks[0].TaskID, "keeper-1", service.CompleteTaskReq{Approved: boolPtr(true)}); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	_, total, err = svc.TodoTasks(ctx, "keeper-1", "", 1, 20)
	if err != nil {
		t.Fatalf("TodoTasks: %v", err)
	}
	if total != 0 {
		t.Errorf("expected empty todo list after completion, got %d", total)
	}
}

func TestAssignmentAdmin(t *testing.T) {
	db, svc := setupWorkflowTest(t)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "staff-a", "keeper_a")

	// 未知角色类型
	_, err := svc.CreateAssignment(ctx, service.CreateAssignmentReq{StaffID: "staff-a", RoleType: "manager", Category: "原材料"})
	if !errors.Is(err, service.ErrInvalidParam) {
		t.Fatalf("expected ErrInvalidParam for role type, got %v", err)
	}

	// 维度全空
	_, err = svc.CreateAssignment(ctx, service.CreateAssignmentReq{StaffID: "staff-a", RoleType: entity.RoleTypeKeeper})
	if !errors.Is(err, service.ErrInvalidParam) {
		t.Fatalf("expected ErrInvalidParam for empty dimensions, got %v", err)
	}

	// 员工不存在
	_, err = svc.CreateAssignment(ctx, service.CreateAssignmentReq{StaffID: "ghost", RoleType: entity.RoleTypeKeeper, Category: "原材料"})
	if !errors.Is(err, service.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	sa, err := svc.CreateAssignment(ctx, service.CreateAssignmentReq{StaffID: "staff-a", RoleType: entity.RoleTypeKeeper, Category: "原材料"})
	if err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}

	items, err := svc.ListAssignments(ctx, entity.RoleTypeKeeper)
	if err != nil {
		t.Fatalf("ListAssignments: %v", err)
	}
	if len(items) != 1 || items[0].ID != sa.ID {
		t.Fatalf("expected 1 assignment, got %d", len(items))
	}

	if err := svc.DeleteAssignment(ctx, sa.ID); err != nil {
		t.Fatalf("DeleteAssignment: %v", err)
	}
	if err := svc.DeleteAssignment(ctx, sa.ID); !errors.Is(err, service.ErrInvalidParam) {
		t.Errorf("expected ErrInvalidParam on double delete, got %v", err)
	}

	var count int64
	db.Model(&entity.StaffAssignment{}).Count(&count)
	if count != 0 {
		t.Errorf("expected 0 assignments after delete, got %d", count)
	}
}
