package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	chatHandler "github.com/zhouzirui/lookie/backend/internal/handler/chat"
	chatService "github.com/zhouzirui/lookie/backend/internal/service/chat"
	"github.com/zhouzirui/lookie/backend/internal/service/conversation"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// WebSocketHandler 通过 WebSocket 驱动推荐对话
type WebSocketHandler struct {
	chatSvc  *chatService.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc *chatService.Service, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		chatSvc: chatSvc,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage 用户输入的文本
type TextMessage struct {
	Text string `json:"text"`
}

// SelectMessage 选择候选商品
type SelectMessage struct {
	ProductID string `json:"productId"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// connectedInfo 连接建立后推送的当前状态
type connectedInfo struct {
	Type    string             `json:"type"`
	Persona string             `json:"persona"`
	State   conversation.State `json:"state"`
	Halted  bool               `json:"halted,omitempty"`
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	snapshot, err := h.chatSvc.Snapshot(sessionID)
	if err != nil {
		http.Error(w, err.Error(), chatHandler.StatusFor(err))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.logger.With(zap.String("session", sessionID))
	log.Info("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pingLoop(ctx, conn)

	h.send(conn, "result", sessionID, connectedInfo{
		Type:    "connected",
		Persona: snapshot.Persona,
		State:   snapshot.State,
		Halted:  snapshot.Halted,
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.sendError(conn, "session mismatch")
			continue
		}

		if done := h.handleMessage(ctx, conn, sessionID, &msg); done {
			log.Info("websocket closed by exit")
			return
		}
	}
}

// handleMessage 返回 true 表示会话已结束，连接应关闭。
func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *websocket.Conn, sessionID string, msg *inboundMessage) bool {
	switch msg.Type {
	case "text":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			h.sendError(conn, "invalid text payload")
			return false
		}
		turn, err := h.chatSvc.Send(ctx, sessionID, text.Text)
		h.sendTurn(conn, sessionID, turn, err)
	case "select":
		var sel SelectMessage
		if err := json.Unmarshal(msg.Data, &sel); err != nil || sel.ProductID == "" {
			h.sendError(conn, "invalid select payload")
			return false
		}
		turn, err := h.chatSvc.Select(ctx, sessionID, sel.ProductID)
		h.sendTurn(conn, sessionID, turn, err)
	case "exit":
		if _, err := h.chatSvc.Close(sessionID); err != nil {
			h.sendError(conn, err.Error())
			return true
		}
		h.send(conn, "result", sessionID, map[string]string{"type": "closed"})
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(writeTimeout))
		return true
	default:
		h.sendError(conn, "unsupported message type: "+msg.Type)
	}
	return false
}

// sendTurn 推送一次输入的处理结果；失败时若状态机给出了提示也一并推送。
func (h *WebSocketHandler) sendTurn(conn *websocket.Conn, sessionID string, turn conversation.Turn, err error) {
	if err == nil {
		h.send(conn, "result", sessionID, turn)
		return
	}
	if errors.Is(err, conversation.ErrBusy) {
		h.sendError(conn, "previous input is still being processed")
		return
	}
	if len(turn.Replies) > 0 {
		h.send(conn, "result", sessionID, turn)
	}
	h.sendError(conn, err.Error())
}

func (h *WebSocketHandler) send(conn *websocket.Conn, kind, sessionID string, data any) {
	msg := outgoingMessage{
		Type:      kind,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("websocket write failed", zap.String("type", kind), zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) {
	h.send(conn, "error", "", map[string]string{"message": message})
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
