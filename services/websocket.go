package services

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/qianlnk/avalon/models"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 15 * time.Second
)

// FeedMessage 推送给前端的消息信封
type FeedMessage struct {
	Type  string               `json:"type"` // snapshot 或 event
	View  *models.GameView     `json:"view,omitempty"`
	Event *models.HistoryEvent `json:"event,omitempty"`
}

// WebSocketManager 游戏事件直播通道。
// 每局游戏维护一组观战连接，游戏产生的历史事件按顺序推送给所有连接。
// 连接是只读的：前端通过REST接口驱动游戏，这里只负责往外推。
type WebSocketManager struct {
	mu         sync.RWMutex
	games      map[string]map[*websocket.Conn]bool
	subscribed map[string]bool
	manager    *GameManager
}

// NewWebSocketManager 创建WebSocket管理器实例
func NewWebSocketManager(gm *GameManager) *WebSocketManager {
	return &WebSocketManager{
		games:      make(map[string]map[*websocket.Conn]bool),
		subscribed: make(map[string]bool),
		manager:    gm,
	}
}

// HandleConnection 接入一条新连接：先推送当前局面快照，
// 之后该局的每条新事件都会实时送达，直到连接断开。
func (wm *WebSocketManager) HandleConnection(gameID string, conn *websocket.Conn) error {
	view, err := wm.manager.View(gameID)
	if err != nil {
		return err
	}

	wm.mu.Lock()
	if wm.games[gameID] == nil {
		wm.games[gameID] = make(map[*websocket.Conn]bool)
	}
	wm.games[gameID][conn] = true
	needSubscribe := !wm.subscribed[gameID]
	wm.subscribed[gameID] = true
	wm.mu.Unlock()

	// 每局只向引擎注册一个监听器，后续连接复用同一条事件流
	if needSubscribe {
		if err := wm.manager.Subscribe(gameID, func(ev models.HistoryEvent) {
			wm.broadcast(gameID, ev)
		}); err != nil {
			wm.removeConnection(gameID, conn)
			return err
		}
	}

	if err := wm.write(conn, FeedMessage{Type: "snapshot", View: view}); err != nil {
		wm.removeConnection(gameID, conn)
		return err
	}

	go wm.readLoop(gameID, conn)
	go wm.pingLoop(gameID, conn)

	log.Printf("[事件直播] 游戏 %s 新增观战连接", gameID)
	return nil
}

// broadcast 把一条事件推送给该局的所有连接，写失败的连接就地清理
func (wm *WebSocketManager) broadcast(gameID string, ev models.HistoryEvent) {
	wm.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(wm.games[gameID]))
	for conn := range wm.games[gameID] {
		conns = append(conns, conn)
	}
	wm.mu.RUnlock()

	msg := FeedMessage{Type: "event", Event: &ev}
	for _, conn := range conns {
		if err := wm.write(conn, msg); err != nil {
			log.Printf("[事件直播] 游戏 %s 推送失败，移除连接: %v", gameID, err)
			wm.removeConnection(gameID, conn)
		}
	}
}

// write 带超时的单条消息写入
func (wm *WebSocketManager) write(conn *websocket.Conn, msg FeedMessage) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	defer conn.SetWriteDeadline(time.Time{})
	return conn.WriteJSON(msg)
}

// readLoop 丢弃客户端发来的所有消息，只用于感知连接断开
func (wm *WebSocketManager) readLoop(gameID string, conn *websocket.Conn) {
	conn.SetReadLimit(4 * 1024)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[事件直播] 游戏 %s 连接读取失败: %v", gameID, err)
			}
			wm.removeConnection(gameID, conn)
			return
		}
	}
}

// pingLoop 周期性心跳，连接失效时触发清理
func (wm *WebSocketManager) pingLoop(gameID string, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for range ticker.C {
		wm.mu.RLock()
		_, alive := wm.games[gameID][conn]
		wm.mu.RUnlock()
		if !alive {
			return
		}

		if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
			wm.removeConnection(gameID, conn)
			return
		}
	}
}

// removeConnection 关闭并注销一条连接
func (wm *WebSocketManager) removeConnection(gameID string, conn *websocket.Conn) {
	wm.mu.Lock()
	if _, exists := wm.games[gameID][conn]; !exists {
		wm.mu.Unlock()
		return
	}
	delete(wm.games[gameID], conn)
	if len(wm.games[gameID]) == 0 {
		delete(wm.games, gameID)
	}
	wm.mu.Unlock()

	conn.Close()
	log.Printf("[事件直播] 游戏 %s 一条观战连接已关闭", gameID)
}
