package sse

import (
	"fmt"
	"log"
	"sync"
)

// Event represents a Server-Sent Event
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// Client represents a connected SSE client
type Client struct {
	ID     string
	UserID string
	Events chan Event
}

// Hub manages all SSE client connections
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// GlobalHub is the singleton SSE Hub instance
var GlobalHub = NewHub()

// NewHub creates a new SSE Hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	log.Printf("[SSE] Client registered: id=%s user=%s (total: %d)", client.ID, client.UserID, len(h.clients))
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		log.Printf("[SSE] Client unregistered: id=%s (total: %d)", clientID, len(h.clients))
	}
}

// Broadcast sends an event to all connected clients
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Events <- event:
		default:
			log.Printf("[SSE] Client %s buffer full, skipping event", client.ID)
		}
	}
}

// SendToUser 给特定用户发送事件（而非广播）
func SendToUser(userID string, event Event) {
	GlobalHub.mu.RLock()
	defer GlobalHub.mu.RUnlock()
	for _, client := range GlobalHub.clients {
		if client.UserID == userID {
			select {
			case client.Events <- event:
			default:
				log.Printf("[SSE] Client %s buffer full, skipping user event", client.ID)
			}
		}
	}
}

// PublishNotification 给特定用户推送新通知事件（用于通知中心红点刷新）
func PublishNotification(userID, notificationID, title string) {
	data := fmt.Sprintf(`{"notification_id":"%s","title":"%s"}`, notificationID, title)
	SendToUser(userID, Event{
		EventType: "notification",
		Data:      data,
	})
	log.Printf("[SSE] Published notification to user=%s: id=%s", userID, notificationID)
}

// PublishWorkflowUpdate 广播工作流状态变化（订单列表/待办列表刷新）
func PublishWorkflowUpdate(businessKey, workflowType, action string) {
	data := fmt.Sprintf(`{"business_key":"%s","workflow_type":"%s","action":"%s"}`, businessKey, workflowType, action)
	GlobalHub.Broadcast(Event{
		EventType: "workflow_update",
		Data:      data,
	})
	log.Printf("[SSE] Published workflow_update: key=%s type=%s action=%s", businessKey, workflowType, action)
}

// PublishTodoUpdate 给特定用户推送待办变化事件
func PublishTodoUpdate(userID, taskID, action string) {
	data := fmt.Sprintf(`{"task_id":"%s","action":"%s"}`, taskID, action)
	SendToUser(userID, Event{
		EventType: "todo_update",
		Data:      data,
	})
	log.Printf("[SSE] Published todo_update to user=%s: task=%s action=%s", userID, taskID, action)
}
