package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wfunc/dragon-companion/internal/config"
	"go.uber.org/zap"
)

// Hub WebSocket连接管理中心，按用户推送龙宠变更通知
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 用户ID到客户端的映射
	userClients map[string][]*Client
	userMu      sync.RWMutex

	// 待推送的变更
	changes chan change

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	upgrader     websocket.Upgrader
	pingInterval time.Duration

	// 日志
	logger *zap.Logger
}

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"` // 消息类型
	UserID    string          `json:"user_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// MessageType 消息类型
const (
	// 系统消息
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"

	// 龙宠状态变化，客户端收到后重新拉取快照
	MessageTypeDragonChanged = "dragon_changed"
)

type change struct {
	reason  string
	userIDs []string
	at      time.Time
}

// ChangedPayload dragon_changed 消息的数据
type ChangedPayload struct {
	Reason string `json:"reason"`
}

// NewHub 创建Hub
func NewHub(cfg config.WebSocketConfig, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	readSize, writeSize := cfg.ReadBufferSize, cfg.WriteBufferSize
	if readSize <= 0 {
		readSize = 1024
	}
	if writeSize <= 0 {
		writeSize = 1024
	}
	ping := cfg.PingInterval
	if ping <= 0 || ping >= pongWait {
		ping = defaultPingPeriod
	}

	return &Hub{
		clients:     make(map[string]*Client),
		userClients: make(map[string][]*Client),
		changes:     make(chan change, 256),
		register:    make(chan *Client, 16),
		unregister:  make(chan *Client, 16),
		done:        make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readSize,
			WriteBufferSize: writeSize,
			CheckOrigin: func(r *http.Request) bool {
				// 身份由JWT校验，不限制Origin
				return true
			},
		},
		pingInterval: ping,
		logger:       logger,
	}
}

// Run 运行Hub，ctx结束时断开所有客户端
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case c := <-h.changes:
			h.deliver(c)
		}
	}
}

func (h *Hub) shutdown() {
	h.stopOnce.Do(func() { close(h.done) })

	h.clientsMu.Lock()
	for id, client := range h.clients {
		close(client.send)
		delete(h.clients, id)
	}
	h.clientsMu.Unlock()

	h.userMu.Lock()
	h.userClients = make(map[string][]*Client)
	h.userMu.Unlock()
}

// Serve 升级HTTP连接并为用户注册客户端
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket升级失败",
			zap.String("user_id", userID),
			zap.Error(err))
		return err
	}

	client := newClient(h, conn, userID)
	if !h.Register(client) {
		conn.Close()
		return ErrHubStopped
	}

	go client.writePump()
	go client.readPump()
	return nil
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	h.userMu.Lock()
	h.userClients[client.UserID] = append(h.userClients[client.UserID], client)
	h.userMu.Unlock()

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID))

	// 发送连接成功消息
	h.SendToClient(client.ID, &Message{
		Type:      MessageTypeConnected,
		UserID:    client.UserID,
		Timestamp: time.Now().Unix(),
	})
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.send)
	}
	h.clientsMu.Unlock()

	// 从用户客户端映射中移除
	h.userMu.Lock()
	clients := h.userClients[client.UserID]
	for i, c := range clients {
		if c.ID == client.ID {
			h.userClients[client.UserID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.userClients[client.UserID]) == 0 {
		delete(h.userClients, client.UserID)
	}
	h.userMu.Unlock()

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID))
}

// NotifyChanged 通知用户龙宠状态已变化，不阻塞调用方
func (h *Hub) NotifyChanged(_ context.Context, reason string, userIDs ...string) {
	select {
	case h.changes <- change{reason: reason, userIDs: userIDs, at: time.Now()}:
	case <-h.done:
	default:
		h.logger.Warn("变更通知队列已满，丢弃",
			zap.String("reason", reason),
			zap.Strings("user_ids", userIDs))
	}
}

func (h *Hub) deliver(c change) {
	data, _ := json.Marshal(ChangedPayload{Reason: c.reason})
	for _, userID := range c.userIDs {
		err := h.SendToUser(userID, &Message{
			Type:      MessageTypeDragonChanged,
			UserID:    userID,
			Data:      data,
			Timestamp: c.at.Unix(),
		})
		if err != nil && err != ErrUserNotConnected {
			h.logger.Warn("推送变更失败", zap.String("user_id", userID), zap.Error(err))
		}
	}
}

// SendToClient 发送消息给指定客户端
func (h *Hub) SendToClient(clientID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	client, ok := h.clients[clientID]
	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SendToUser 发送消息给指定用户的所有客户端
func (h *Hub) SendToUser(userID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.userMu.RLock()
	clients := append([]*Client(nil), h.userClients[userID]...)
	h.userMu.RUnlock()

	if len(clients) == 0 {
		return ErrUserNotConnected
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for _, client := range clients {
		if _, ok := h.clients[client.ID]; !ok {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.logger.Warn("用户客户端发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.String("user_id", userID))
		}
	}

	return nil
}

// GetOnlineUsers 获取在线用户列表
func (h *Hub) GetOnlineUsers() []string {
	h.userMu.RLock()
	defer h.userMu.RUnlock()

	users := make([]string, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}

// GetOnlineCount 获取在线连接数
func (h *Hub) GetOnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Register 注册客户端，Hub已停止时返回false
func (h *Hub) Register(client *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
