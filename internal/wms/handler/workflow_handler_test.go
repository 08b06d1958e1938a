package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-wms/internal/wms/entity"
	"github.com/bitfantasy/nimo-wms/internal/wms/repository"
	"github.com/bitfantasy/nimo-wms/internal/wms/service"
	"github.com/bitfantasy/nimo-wms/internal/wms/testutil"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupWorkflowRouter(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	notifSvc := service.NewNotificationService(db, repos, zap.NewNop())
	wfSvc := service.NewWorkflowService(db, repos, notifSvc, zap.NewNop())
	h := NewWorkflowHandler(wfSvc)

	r := testutil.SetupRouter()
	g := testutil.AuthGroup(r, "/api/v1/workflow")
	g.POST("/start", h.Start)
	g.GET("/tasks/todo", h.TodoTasks)
	g.POST("/tasks/:taskId/complete", h.CompleteTask)
	g.GET("/instances/:id", h.GetInstance)
	return db, r
}

func seedWorkflowFixtures(t *testing.T, db *gorm.DB) *entity.PurchaseOrder {
	t.Helper()
	testutil.SeedTestUser(t, db, "keeper-1", "keeper1")
	testutil.SeedTestUser(t, db, "inspector-1", "inspector1")
	testutil.SeedAssignment(t, db, "sa-01", "keeper-1", entity.RoleTypeKeeper, "原材料", "")
	testutil.SeedAssignment(t, db, "sa-02", "inspector-1", entity.RoleTypeInspector, "原材料", "")
	return testutil.SeedOrder(t, db, "order-1", "PO20250401", "原材料", "生产部")
}

func TestStartWorkflowEndpoint(t *testing.T) {
	db, r := setupWorkflowRouter(t)
	order := seedWorkflowFixtures(t, db)
	token := testutil.GenerateTestToken("initiator-1", "initiator", false)

	// 未认证
	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/workflow/start",
		gin.H{"order_id": order.ID}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	w = testutil.DoRequest(r, http.MethodPost, "/api/v1/workflow/start",
		gin.H{"order_id": order.ID}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 0 {
		t.Errorf("unexpected code %v", resp["code"])
	}
	data := resp["data"].(map[string]interface{})
	if data["status"] != string(entity.WorkflowStatusRunning) {
		t.Errorf("expected RUNNING, got %v", data["status"])
	}
	if tasks := data["tasks"].([]interface{}); len(tasks) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(tasks))
	}

	// 重复启动
	w = testutil.DoRequest(r, http.MethodPost, "/api/v1/workflow/start",
		gin.H{"order_id": order.ID}, token)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 on duplicate start, got %d", w.Code)
	}

	// 订单不存在
	w = testutil.DoRequest(r, http.MethodPost, "/api/v1/workflow/start",
		gin.H{"order_id": "no-such-order"}, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestCompleteTaskEndpoint(t *testing.T) {
	db, r := setupWorkflowRouter(t)
	order := seedWorkflowFixtures(t, db)

	initiatorToken := testutil.GenerateTestToken("initiator-1", "initiator", false)
	keeperToken := testutil.GenerateTestToken("keeper-1", "keeper1", false)
	inspectorToken := testutil.GenerateTestToken("inspector-1", "inspector1", false)

	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/workflow/start",
		gin.H{"order_id": order.ID}, initiatorToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("start workflow: %d %s", w.Code, w.Body.String())
	}

	var keeperTask, inspectorTask entity.WorkflowTask
	if err := db.Where("assignee_id = ?", "keeper-1").First(&keeperTask).Error; err != nil {
		t.Fatalf("keeper task: %v", err)
	}
	if err := db.Where("assignee_id = ?", "inspector-1").First(&inspectorTask).Error; err != nil {
		t.Fatalf("inspector task: %v", err)
	}

	// 保管员任务只能由保管员完成
	path := fmt.Sprintf("/api/v1/workflow/tasks/%s/complete", keeperTask.TaskID)
	w = testutil.DoRequest(r, http.MethodPost, path, gin.H{"approved": true}, inspectorToken)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for wrong assignee, got %d", w.Code)
	}

	// 缺少 approved 字段
	w = testutil.DoRequest(r, http.MethodPost, path, gin.H{"comment": "ok"}, keeperToken)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without approved, got %d", w.Code)
	}

	w = testutil.DoRequest(r, http.MethodPost, path, gin.H{"approved": true}, keeperToken)
	if w.Code != http.StatusOK {
		t.Fatalf("complete keeper task: %d %s", w.Code, w.Body.String())
	}

	// 重复完成
	w = testutil.DoRequest(r, http.MethodPost, path, gin.H{"approved": true}, keeperToken)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 on double complete, got %d", w.Code)
	}

	// 质检员待办只剩自己的任务
	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/workflow/tasks/todo", nil, inspectorToken)
	if w.Code != http.StatusOK {
		t.Fatalf("todo tasks: %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	items := resp["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 todo task, got %d", len(items))
	}

	path = fmt.Sprintf("/api/v1/workflow/tasks/%s/complete", inspectorTask.TaskID)
	w = testutil.DoRequest(r, http.MethodPost, path,
		gin.H{"approved": true, "comment": "合格"}, inspectorToken)
	if w.Code != http.StatusOK {
		t.Fatalf("complete inspector task: %d %s", w.Code, w.Body.String())
	}

	var reloaded entity.PurchaseOrder
	db.Where("id = ?", order.ID).First(&reloaded)
	if reloaded.Status != entity.OrderStatusConfirmed {
		t.Errorf("expected CONFIRMED order, got %s", reloaded.Status)
	}
}
