package service

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"debate_hub/internal/models"
)

// Broadcaster 是服務層對推播通道的唯一出口。
// 廣播在提交成功後進行，送不出去不會回頭影響提交結果。
type Broadcaster interface {
	BroadcastEvent(debateID uint, event *models.Event)
}

// subscribeFrame 是訂閱端在連線上送來的控制訊息
type subscribeFrame struct {
	Action   string `json:"action"` // "join" 或 "leave"
	DebateID uint   `json:"debate_id"`
}

// Client 代表一個 WebSocket 訂閱端連線
type Client struct {
	ID       string             // 連線識別碼
	Conn     *websocket.Conn    // WebSocket 連接
	UserID   uint               // 用戶 ID
	SendChan chan *models.Event // 事件發送通道，用於異步傳送事件
	done     chan struct{}      // 連線結束時通知寫入端收尾
}

// Hub 管理所有的 WebSocket 連線與每場辯論的訂閱名單
type Hub struct {
	clients     map[uint]map[*Client]bool // 兩層 map: debateID -> client -> bool
	clientsMux  sync.RWMutex              // 用於保護 clients map 的讀寫鎖
	broadcastMu sync.Mutex                // 序列化排入動作，所有訂閱端收到同一串順序
}

// NewHub 創建並初始化新的推播中心
func NewHub() *Hub {
	return &Hub{
		clients: make(map[uint]map[*Client]bool),
	}
}

// HandleConnection 處理新的 WebSocket 連線請求。
// 每條連線對訂閱歷史是無狀態的：斷線重連後必須重新送出 join 訊息。
func (h *Hub) HandleConnection(conn *websocket.Conn, userID uint) {
	client := &Client{
		ID:       uuid.NewString(),
		Conn:     conn,
		UserID:   userID,
		SendChan: make(chan *models.Event, 256), // 設置緩衝大小為 256 的事件通道
		done:     make(chan struct{}),
	}

	// 確保連線關閉時清理資源。
	// SendChan 從不關閉：廣播端可能正對著它送事件，
	// 關閉通道會讓整個程序 panic，改用 done 通知寫入端收尾。
	defer func() {
		h.removeClient(client)
		close(client.done)
		conn.Close()
	}()

	// 啟動讀寫處理
	go h.writePump(client)
	h.readPump(client)
}

// readPump 持續監聽訂閱端送來的 join/leave 控制訊息
func (h *Hub) readPump(client *Client) {
	client.Conn.SetReadLimit(4096) // 設置最大訊息大小為 4KB
	client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket unexpected close error: %v", err)
			}
			break
		}

		var frame subscribeFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			log.Printf("subscribe frame parse error: %v", err)
			continue
		}

		switch frame.Action {
		case "join":
			h.subscribe(client, frame.DebateID)
		case "leave":
			h.unsubscribe(client, frame.DebateID)
		default:
			log.Printf("unknown subscribe action: %q", frame.Action)
		}
	}
}

// writePump 處理向訂閱端發送事件的邏輯
func (h *Hub) writePump(client *Client) {
	// 設置心跳檢查計時器
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case event := <-client.SendChan:
			// 設置寫入超時
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("event encoding error: %v", err)
				continue
			}

			if err := client.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-client.done:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			// 發送心跳包
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// BroadcastEvent 向訂閱指定辯論的所有連線廣播事件。
// 整輪排入在 broadcastMu 底下完成，兩個併發廣播不會交錯各連線的通道，
// 單場辯論的事件順序對所有訂閱端一致。
func (h *Hub) BroadcastEvent(debateID uint, event *models.Event) {
	h.broadcastMu.Lock()
	defer h.broadcastMu.Unlock()

	h.clientsMux.RLock()
	clients := make([]*Client, 0, len(h.clients[debateID]))
	for client := range h.clients[debateID] {
		clients = append(clients, client)
	}
	h.clientsMux.RUnlock()

	for _, client := range clients {
		select {
		case client.SendChan <- event:
			// 事件成功加入發送隊列
		default:
			// 訂閱端消化太慢，斷線讓它重連後重抓完整狀態
			log.Printf("dropping slow subscriber %s for debate %d", client.ID, debateID)
			h.removeClient(client)
			if client.Conn != nil {
				client.Conn.Close()
			}
		}
	}
}

// subscribe 將連線加入指定辯論的訂閱名單
func (h *Hub) subscribe(client *Client, debateID uint) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	if h.clients[debateID] == nil {
		h.clients[debateID] = make(map[*Client]bool)
	}
	h.clients[debateID][client] = true
}

// unsubscribe 將連線移出指定辯論的訂閱名單
func (h *Hub) unsubscribe(client *Client, debateID uint) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	if clients, ok := h.clients[debateID]; ok {
		delete(clients, client)
		// 如果沒有訂閱端了，刪除這場辯論的名單
		if len(clients) == 0 {
			delete(h.clients, debateID)
		}
	}
}

// removeClient 將連線從所有辯論的訂閱名單移除
func (h *Hub) removeClient(client *Client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	for debateID, clients := range h.clients {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, debateID)
		}
	}
}

// SubscriberCount 獲取指定辯論目前的訂閱連線數量
func (h *Hub) SubscriberCount(debateID uint) int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()

	return len(h.clients[debateID])
}
