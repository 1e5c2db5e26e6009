package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatHandler "github.com/zhouzirui/lookie/backend/internal/handler/chat"
	"github.com/zhouzirui/lookie/backend/internal/model/outfit"
	chatService "github.com/zhouzirui/lookie/backend/internal/service/chat"
	"github.com/zhouzirui/lookie/backend/internal/service/conversation"
	"github.com/zhouzirui/lookie/backend/pkg/utils"
)

// Handler streams conversation turns via Server-Sent Events, typing text replies out chunk by chunk.
type Handler struct {
	chatSvc *chatService.Service
	delay   time.Duration
	logger  *zap.Logger
}

// New creates a new stream handler. delay 为逐字输出的间隔，0 表示不等待。
func New(chatSvc *chatService.Service, delay time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{chatSvc: chatSvc, delay: delay, logger: logger}
}

// RegisterRoutes 注册流式接口
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	SessionID  string              `json:"sessionId"`
	Index      int                 `json:"index,omitempty"`
	Kind       string              `json:"kind,omitempty"`
	Content    string              `json:"content,omitempty"`
	Category   string              `json:"category,omitempty"`
	Candidates []outfit.Candidate  `json:"candidates,omitempty"`
	Outfit     *outfit.FinalOutfit `json:"outfit,omitempty"`
	State      string              `json:"state,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	query := r.URL.Query()
	message := query.Get("message")
	productID := query.Get("select")

	if message == "" && productID == "" {
		utils.RespondError(w, http.StatusBadRequest, "message or select query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	var (
		turn conversation.Turn
		err  error
	)
	if productID != "" {
		turn, err = h.chatSvc.Select(ctx, sessionID, productID)
	} else {
		turn, err = h.chatSvc.Send(ctx, sessionID, message)
	}
	if err != nil {
		if errors.Is(err, conversation.ErrBusy) {
			h.logger.Debug("stream input dropped while busy", zap.String("session", sessionID))
		}
		utils.RespondError(w, chatHandler.StatusFor(err), err.Error())
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	if err := h.streamTurn(ctx, w, flusher, sessionID, turn); err != nil {
		h.logger.Debug("stream aborted", zap.String("session", sessionID), zap.Error(err))
		return
	}
	h.logger.Debug("stream completed",
		zap.String("session", sessionID),
		zap.String("state", string(turn.State)),
		zap.Int("replies", len(turn.Replies)))
}

// streamTurn 依次推送 start、每条回复对应的事件以及 end。
func (h *Handler) streamTurn(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID string, turn conversation.Turn) error {
	if err := utils.SendSSEEvent(w, flusher, "start", StreamResponse{SessionID: sessionID}); err != nil {
		return err
	}

	for i, reply := range turn.Replies {
		var err error
		switch reply.Kind {
		case conversation.ReplyCandidates:
			err = utils.SendSSEEvent(w, flusher, "candidates", StreamResponse{
				SessionID:  sessionID,
				Index:      i,
				Category:   reply.Category,
				Candidates: reply.Candidates,
			})
		case conversation.ReplyOutfit:
			err = utils.SendSSEEvent(w, flusher, "outfit", StreamResponse{
				SessionID: sessionID,
				Index:     i,
				Outfit:    reply.Outfit,
			})
		default:
			err = h.typeOut(ctx, w, flusher, sessionID, i, reply)
		}
		if err != nil {
			return err
		}
	}

	return utils.SendSSEEvent(w, flusher, "end", StreamResponse{
		SessionID: sessionID,
		State:     string(turn.State),
	})
}

// typeOut 逐字推送 delta，最后推送完整的 message 事件。
func (h *Handler) typeOut(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID string, index int, reply conversation.Reply) error {
	for chunk := range utils.TypingChunks(reply.Text) {
		if err := utils.SendSSEEvent(w, flusher, "delta", StreamResponse{
			SessionID: sessionID,
			Index:     index,
			Kind:      string(reply.Kind),
			Content:   chunk,
		}); err != nil {
			return err
		}
		if err := h.pause(ctx); err != nil {
			return err
		}
	}

	if err := utils.SendSSEEvent(w, flusher, "message", StreamResponse{
		SessionID: sessionID,
		Index:     index,
		Kind:      string(reply.Kind),
		Content:   reply.Text,
	}); err != nil {
		return fmt.Errorf("send message event: %w", err)
	}
	return nil
}

func (h *Handler) pause(ctx context.Context) error {
	if h.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(h.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
