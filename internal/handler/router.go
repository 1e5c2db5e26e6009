package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/lookie/backend/internal/handler/chat"
	"github.com/zhouzirui/lookie/backend/internal/handler/persona"
	"github.com/zhouzirui/lookie/backend/internal/handler/stream"
	"github.com/zhouzirui/lookie/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/lookie/backend/internal/middleware"
	personaModel "github.com/zhouzirui/lookie/backend/internal/model/persona"
	chatService "github.com/zhouzirui/lookie/backend/internal/service/chat"
	"github.com/zhouzirui/lookie/backend/pkg/utils"
)

// Options 控制路由层的可调参数。
type Options struct {
	AllowedOrigins []string
	TypingDelay    time.Duration
	Logger         *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(personas personaModel.Store, chatSvc *chatService.Service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(opts.AllowedOrigins))

	personaHandler := persona.New(personas)
	chatHandler := chat.New(chatSvc, logger.Named("chat"))
	streamHandler := stream.New(chatSvc, opts.TypingDelay, logger.Named("stream"))
	wsHandler := ws.NewWebSocketHandler(chatSvc, logger.Named("ws"))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": chatSvc.Len(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		// 逐字输出的 SSE 接口
		streamHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	})

	return r
}
