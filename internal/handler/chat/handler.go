package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/lookie/backend/internal/analysis/intent"
	"github.com/zhouzirui/lookie/backend/internal/model/chat"
	"github.com/zhouzirui/lookie/backend/internal/model/outfit"
	chatService "github.com/zhouzirui/lookie/backend/internal/service/chat"
	"github.com/zhouzirui/lookie/backend/internal/service/conversation"
	"github.com/zhouzirui/lookie/backend/internal/service/gateway"
	"github.com/zhouzirui/lookie/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	logger  *zap.Logger
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{chatSvc: chatSvc, logger: logger}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Route("/session/{sessionID}", func(sr chi.Router) {
		sr.Get("/", h.handleGetSession)
		sr.Delete("/", h.handleDeleteSession)
		sr.Post("/messages", h.handleSendMessage)
		sr.Post("/select", h.handleSelect)
		sr.Get("/transcript", h.handleTranscript)
		sr.Post("/lookbook", h.handleLookbook)
	})
	r.Get("/vocabulary", h.handleVocabulary)
}

type createSessionResponse struct {
	Session chat.Session      `json:"session"`
	Turn    conversation.Turn `json:"turn"`
}

type sessionResponse struct {
	Session  chat.Session          `json:"session"`
	Snapshot conversation.Snapshot `json:"snapshot"`
}

type turnErrorResponse struct {
	Error string            `json:"error"`
	Turn  conversation.Turn `json:"turn"`
}

// handleCreateSession 创建会话并返回开场白
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaID string `json:"personaId"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, turn, err := h.chatSvc.CreateSession(r.Context(), payload.PersonaID)
	if err != nil {
		if errors.Is(err, chatService.ErrBootstrapFailed) {
			utils.RespondJSON(w, StatusFor(err), turnErrorResponse{Error: err.Error(), Turn: turn})
			return
		}
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, createSessionResponse{Session: session, Turn: turn})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}
	snapshot, err := h.chatSvc.Snapshot(sessionID)
	if err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, sessionResponse{Session: session, Snapshot: snapshot})
}

// handleDeleteSession 立即返回，远端会话在后台删除
func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if _, err := h.chatSvc.Close(chi.URLParam(r, "sessionID")); err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "closing"})
}

// handleSendMessage 处理一条用户输入
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := h.chatSvc.Send(r.Context(), chi.URLParam(r, "sessionID"), payload.Content)
	if err != nil {
		h.respondTurnError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, turn)
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProductID string `json:"productId"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ProductID == "" {
		utils.RespondError(w, http.StatusBadRequest, "productId is required")
		return
	}

	turn, err := h.chatSvc.Select(r.Context(), chi.URLParam(r, "sessionID"), payload.ProductID)
	if err != nil {
		h.respondTurnError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, turn)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chatSvc.LoadTranscript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

func (h *Handler) handleLookbook(w http.ResponseWriter, r *http.Request) {
	look, err := h.chatSvc.Lookbook(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.logger.Warn("lookbook generation failed", zap.Error(err))
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, look)
}

type vocabularyResponse struct {
	Categories []string                                    `json:"categories"`
	Feedback   map[outfit.FeedbackType]map[string][]string `json:"feedback"`
}

// handleVocabulary 返回各品类可选的反馈选项
func (h *Handler) handleVocabulary(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, vocabularyResponse{
		Categories: outfit.CategoryOrder,
		Feedback:   intent.Vocabulary(),
	})
}

func (h *Handler) respondTurnError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("chat request failed", zap.Error(err))
	}
	utils.RespondError(w, status, err.Error())
}

// StatusFor 把服务层错误映射为 HTTP 状态码。
func StatusFor(err error) int {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chatService.ErrPersonaRequired), errors.Is(err, chatService.ErrPersonaNotFound):
		return http.StatusBadRequest
	case errors.Is(err, conversation.ErrBusy), errors.Is(err, conversation.ErrNotStarted),
		errors.Is(err, chatService.ErrOutfitNotReady):
		return http.StatusConflict
	case errors.Is(err, conversation.ErrHalted), errors.Is(err, conversation.ErrExited):
		return http.StatusGone
	case errors.Is(err, chatService.ErrLookbookDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, chatService.ErrBootstrapFailed), gateway.IsConnection(err):
		return http.StatusBadGateway
	}
	if _, ok := gateway.AsRemote(err); ok {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
